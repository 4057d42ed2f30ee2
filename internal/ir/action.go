package ir

import "fmt"

// ActionKind identifies one kind of state mutation an automation performs.
type ActionKind string

// Action kinds.
const (
	ActionSetPriority     ActionKind = "set_priority"
	ActionAddLabel        ActionKind = "add_label"
	ActionRemoveLabel     ActionKind = "remove_label"
	ActionMarkCompleted   ActionKind = "mark_completed"
	ActionMarkUncompleted ActionKind = "mark_uncompleted"
	ActionMoveToColumn    ActionKind = "move_to_column"
	ActionSetDueDateDays  ActionKind = "set_due_date_days"
	ActionClearDueDate    ActionKind = "clear_due_date"
)

// ActionKinds lists every action kind.
var ActionKinds = []ActionKind{
	ActionSetPriority,
	ActionAddLabel,
	ActionRemoveLabel,
	ActionMarkCompleted,
	ActionMarkUncompleted,
	ActionMoveToColumn,
	ActionSetDueDateDays,
	ActionClearDueDate,
}

// Action is one mutation performed when an automation fires.
//
// Action is a sealed sum type; each struct carries only the parameters its
// kind needs.
type Action interface {
	Kind() ActionKind
	action()
}

// SetPriority overwrites the card's priority.
type SetPriority struct {
	Priority Priority
}

// AddLabel attaches the global label LabelID to the card.
type AddLabel struct {
	LabelID string
}

// RemoveLabel detaches any label with LabelID from the card.
type RemoveLabel struct {
	LabelID string
}

// MarkCompleted sets the completed flag.
type MarkCompleted struct{}

// MarkUncompleted clears the completed flag.
type MarkUncompleted struct{}

// MoveToColumn appends the card to the end of ColumnID.
type MoveToColumn struct {
	ColumnID string
}

// SetDueDateDays sets the due date to the evaluation instant plus Days
// days. Days may be negative.
type SetDueDateDays struct {
	Days int
}

// ClearDueDate removes the due date.
type ClearDueDate struct{}

func (SetPriority) Kind() ActionKind     { return ActionSetPriority }
func (AddLabel) Kind() ActionKind        { return ActionAddLabel }
func (RemoveLabel) Kind() ActionKind     { return ActionRemoveLabel }
func (MarkCompleted) Kind() ActionKind   { return ActionMarkCompleted }
func (MarkUncompleted) Kind() ActionKind { return ActionMarkUncompleted }
func (MoveToColumn) Kind() ActionKind    { return ActionMoveToColumn }
func (SetDueDateDays) Kind() ActionKind  { return ActionSetDueDateDays }
func (ClearDueDate) Kind() ActionKind    { return ActionClearDueDate }

func (SetPriority) action()     {}
func (AddLabel) action()        {}
func (RemoveLabel) action()     {}
func (MarkCompleted) action()   {}
func (MarkUncompleted) action() {}
func (MoveToColumn) action()    {}
func (SetDueDateDays) action()  {}
func (ClearDueDate) action()    {}

// ValidationError represents a validation error with field path and message.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// validateAction checks the parameters an action kind requires.
func validateAction(field string, a Action) []ValidationError {
	var errs []ValidationError

	switch act := a.(type) {
	case SetPriority:
		if !act.Priority.Valid() {
			errs = append(errs, ValidationError{
				Field:   field + ".priority",
				Message: fmt.Sprintf("invalid priority %q, must be one of: none, low, medium, high, urgent", act.Priority),
			})
		}
	case AddLabel:
		if act.LabelID == "" {
			errs = append(errs, ValidationError{Field: field + ".labelId", Message: "label id is required"})
		}
	case RemoveLabel:
		if act.LabelID == "" {
			errs = append(errs, ValidationError{Field: field + ".labelId", Message: "label id is required"})
		}
	case MoveToColumn:
		if act.ColumnID == "" {
			errs = append(errs, ValidationError{Field: field + ".columnId", Message: "column id is required"})
		}
	case MarkCompleted, MarkUncompleted, SetDueDateDays, ClearDueDate:
	case nil:
		errs = append(errs, ValidationError{Field: field, Message: "action is required"})
	default:
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("unknown action type %T", a)})
	}

	return errs
}

// validateTrigger checks a trigger's optional parameter, when present.
func validateTrigger(field string, t Trigger) []ValidationError {
	switch trig := t.(type) {
	case nil:
		return []ValidationError{{Field: field, Message: "trigger is required"}}
	case PriorityChanged:
		if trig.Priority != "" && !trig.Priority.Valid() {
			return []ValidationError{{
				Field:   field + ".priority",
				Message: fmt.Sprintf("invalid priority %q, must be one of: none, low, medium, high, urgent", trig.Priority),
			}}
		}
	}
	return nil
}
