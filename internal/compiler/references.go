package compiler

import (
	"fmt"

	"github.com/roach88/cardflow/internal/ir"
)

// ReferenceWarning reports an automation parameter that does not resolve
// against the current board state.
//
// Dangling references are warnings, not errors: at runtime a dangling
// trigger parameter simply never matches and a dangling action target is
// skipped, so the rest of the automation still runs.
type ReferenceWarning struct {
	AutomationID string `json:"automation_id"`
	Field        string `json:"field"`
	Ref          string `json:"ref"`
	Message      string `json:"message"`
}

func (w ReferenceWarning) String() string {
	return fmt.Sprintf("automation.%s.%s: %s", w.AutomationID, w.Field, w.Message)
}

// CheckReferences resolves every board, column and label id named by the
// automations against st.
func CheckReferences(automations []ir.Automation, st ir.State) []ReferenceWarning {
	var warnings []ReferenceWarning
	for _, a := range automations {
		warn := func(field, ref, msg string) {
			warnings = append(warnings, ReferenceWarning{AutomationID: a.ID, Field: field, Ref: ref, Message: msg})
		}

		if _, ok := st.Boards[a.BoardID]; !ok {
			warn("board", a.BoardID, fmt.Sprintf("board %q does not exist", a.BoardID))
			continue
		}

		column := func(field, id string) {
			col, ok := st.Columns[id]
			switch {
			case !ok:
				warn(field, id, fmt.Sprintf("column %q does not exist", id))
			case col.BoardID != a.BoardID:
				warn(field, id, fmt.Sprintf("column %q belongs to board %q, not %q", id, col.BoardID, a.BoardID))
			}
		}
		label := func(field, id string) {
			if _, ok := st.Label(id); !ok {
				warn(field, id, fmt.Sprintf("label %q does not exist", id))
			}
		}

		switch t := a.Trigger.(type) {
		case ir.CardMovedTo:
			if t.ColumnID != "" {
				column("when.column", t.ColumnID)
			}
		case ir.LabelAdded:
			if t.LabelID != "" {
				label("when.label", t.LabelID)
			}
		case ir.LabelRemoved:
			if t.LabelID != "" {
				label("when.label", t.LabelID)
			}
		}

		for i, act := range a.Actions {
			field := fmt.Sprintf("then[%d]", i)
			switch x := act.(type) {
			case ir.MoveToColumn:
				column(field+".column", x.ColumnID)
			case ir.AddLabel:
				label(field+".label", x.LabelID)
			}
		}
	}
	return warnings
}
