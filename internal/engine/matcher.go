package engine

import (
	"fmt"

	"github.com/roach88/cardflow/internal/ir"
)

// Match returns the automations whose trigger matches ev, in the order
// given.
//
// An automation matches when it is enabled, owned by the event's board,
// its trigger kind equals the event kind, and its discriminating
// parameter, if set, equals the event's value for it.
func Match(ev ir.ChangeEvent, automations []ir.Automation) []ir.Automation {
	var out []ir.Automation
	for _, a := range automations {
		if !a.Enabled || a.BoardID != ev.BoardID {
			continue
		}
		if matchTrigger(a.Trigger, ev) {
			out = append(out, a)
		}
	}
	return out
}

// matchTrigger compares one trigger against one event.
// The switch is exhaustive over the trigger variants.
func matchTrigger(t ir.Trigger, ev ir.ChangeEvent) bool {
	if t == nil || t.Kind() != ev.Kind {
		return false
	}

	switch t := t.(type) {
	case ir.CardMovedTo:
		return t.ColumnID == "" || t.ColumnID == ev.ToColumnID
	case ir.PriorityChanged:
		return t.Priority == "" || t.Priority == ev.Priority
	case ir.LabelAdded:
		return t.LabelID == "" || t.LabelID == ev.LabelID
	case ir.LabelRemoved:
		return t.LabelID == "" || t.LabelID == ev.LabelID
	case ir.CardCreated,
		ir.CardCompleted,
		ir.CardUncompleted,
		ir.DueDateSet,
		ir.DueDateOverdue,
		ir.AllSubtasksCompleted:
		return true
	default:
		panic(fmt.Sprintf("engine: unhandled trigger type %T", t))
	}
}
