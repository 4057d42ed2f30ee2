package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cardflow/internal/ir"
)

func validAutomation(id string) ir.Automation {
	return ir.Automation{
		ID:      id,
		BoardID: "b1",
		Name:    "Done completes",
		Enabled: true,
		Trigger: ir.CardMovedTo{ColumnID: "done"},
		Actions: []ir.Action{ir.MarkCompleted{}},
	}
}

func codes(errs []ValidationError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Code)
	}
	return out
}

func TestValidateValid(t *testing.T) {
	assert.Empty(t, Validate(validAutomation("done-completes")))
}

func TestValidateAutomationID(t *testing.T) {
	for _, id := range []string{"a", "done.completes", "a_b-c", "9lives"} {
		assert.Empty(t, Validate(validAutomation(id)), id)
	}
	for _, id := range []string{"", "-lead", "has space", "slash/id"} {
		errs := Validate(validAutomation(id))
		require.Len(t, errs, 1, id)
		assert.Equal(t, ErrInvalidAutomationID, errs[0].Code)
		assert.Equal(t, "id", errs[0].Field)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	a := ir.Automation{
		ID:      "x",
		Trigger: nil,
		Actions: nil,
	}

	errs := Validate(a)

	assert.Equal(t, []string{ErrMissingBoard, ErrMissingName, ErrMissingTrigger, ErrNoActions}, codes(errs))
}

func TestValidateTriggerPriority(t *testing.T) {
	a := validAutomation("a")
	a.Trigger = ir.PriorityChanged{}
	assert.Empty(t, Validate(a), "empty priority means any")

	a.Trigger = ir.PriorityChanged{Priority: "critical"}
	errs := Validate(a)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrInvalidTriggerParam, errs[0].Code)
	assert.Equal(t, "when.priority", errs[0].Field)
}

func TestValidateActions(t *testing.T) {
	tests := []struct {
		name   string
		action ir.Action
		field  string
		code   string
	}{
		{"nil", nil, "then[0]", ErrMissingAction},
		{"bad priority", ir.SetPriority{Priority: "critical"}, "then[0].priority", ErrInvalidPriority},
		{"empty priority", ir.SetPriority{}, "then[0].priority", ErrInvalidPriority},
		{"add_label without label", ir.AddLabel{}, "then[0].label", ErrMissingActionParam},
		{"remove_label without label", ir.RemoveLabel{}, "then[0].label", ErrMissingActionParam},
		{"move without column", ir.MoveToColumn{}, "then[0].column", ErrMissingActionParam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validAutomation("a")
			a.Actions = []ir.Action{tt.action}

			errs := Validate(a)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
			assert.Equal(t, tt.code, errs[0].Code)
		})
	}
}

func TestValidateZeroDaysIsValid(t *testing.T) {
	a := validAutomation("a")
	a.Actions = []ir.Action{ir.SetDueDateDays{Days: 0}, ir.SetDueDateDays{Days: -5}}
	assert.Empty(t, Validate(a))
}

func TestValidateAllPrefixesAndDuplicates(t *testing.T) {
	bad := validAutomation("second")
	bad.Name = ""

	errs := ValidateAll([]ir.Automation{
		validAutomation("first"),
		bad,
		validAutomation("first"),
	})

	require.Len(t, errs, 2)
	assert.Equal(t, "automation.second.name", errs[0].Field)
	assert.Equal(t, ErrMissingName, errs[0].Code)
	assert.Equal(t, "automation.first", errs[1].Field)
	assert.Equal(t, ErrDuplicateID, errs[1].Code)
}

func TestValidationErrorFormat(t *testing.T) {
	err := ValidationError{Field: "automation.a.board", Message: "board is required", Code: ErrMissingBoard}
	assert.Equal(t, "[E102] automation.a.board: board is required", err.Error())
}
