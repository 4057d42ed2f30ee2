package compiler

import (
	"fmt"
	"regexp"

	"github.com/roach88/cardflow/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// Automation errors (E101-E109)
	ErrInvalidAutomationID = "E101" // id missing or malformed
	ErrMissingBoard        = "E102" // board is required
	ErrMissingName         = "E103" // name is required
	ErrDuplicateID         = "E104" // automation id declared twice

	// Trigger errors (E110-E119)
	ErrMissingTrigger      = "E110" // when clause missing
	ErrInvalidTriggerParam = "E111" // discriminating parameter has an invalid value

	// Action errors (E120-E129)
	ErrNoActions          = "E120" // at least one action required
	ErrMissingActionParam = "E121" // action is missing its target id
	ErrInvalidPriority    = "E122" // set_priority with unknown level
	ErrMissingAction      = "E123" // nil entry in the action list
)

var automationIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks one automation against schema rules.
// Returns all errors found (does not fail-fast).
func Validate(a ir.Automation) []ValidationError {
	var errs []ValidationError

	// E101
	if !automationIDPattern.MatchString(a.ID) {
		errs = append(errs, ValidationError{
			Field:   "id",
			Message: fmt.Sprintf("invalid automation id %q: must start with a letter or digit and contain only letters, digits, '.', '_' or '-'", a.ID),
			Code:    ErrInvalidAutomationID,
		})
	}
	// E102
	if a.BoardID == "" {
		errs = append(errs, ValidationError{Field: "board", Message: "board is required", Code: ErrMissingBoard})
	}
	// E103
	if a.Name == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "name is required", Code: ErrMissingName})
	}

	errs = append(errs, validateTrigger(a.Trigger)...)

	// E120
	if len(a.Actions) == 0 {
		errs = append(errs, ValidationError{Field: "then", Message: "at least one action is required", Code: ErrNoActions})
	}
	for i, act := range a.Actions {
		errs = append(errs, validateAction(fmt.Sprintf("then[%d]", i), act)...)
	}

	return errs
}

// ValidateAll validates every automation and checks ids are unique.
// Field paths are prefixed with the automation id.
func ValidateAll(automations []ir.Automation) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(automations))
	for _, a := range automations {
		for _, ve := range Validate(a) {
			ve.Field = fmt.Sprintf("automation.%s.%s", a.ID, ve.Field)
			errs = append(errs, ve)
		}
		// E104
		if seen[a.ID] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("automation.%s", a.ID),
				Message: fmt.Sprintf("duplicate automation id %q", a.ID),
				Code:    ErrDuplicateID,
			})
		}
		seen[a.ID] = true
	}
	return errs
}

func validateTrigger(t ir.Trigger) []ValidationError {
	if t == nil {
		return []ValidationError{{Field: "when", Message: "when clause is required", Code: ErrMissingTrigger}}
	}
	if pc, ok := t.(ir.PriorityChanged); ok && pc.Priority != "" && !pc.Priority.Valid() {
		return []ValidationError{{
			Field:   "when.priority",
			Message: fmt.Sprintf("invalid priority %q, must be one of %v", pc.Priority, ir.Priorities),
			Code:    ErrInvalidTriggerParam,
		}}
	}
	return nil
}

func validateAction(field string, act ir.Action) []ValidationError {
	missing := func(param string) []ValidationError {
		return []ValidationError{{
			Field:   field + "." + param,
			Message: fmt.Sprintf("%s requires a %s", act.Kind(), param),
			Code:    ErrMissingActionParam,
		}}
	}

	switch a := act.(type) {
	case nil:
		return []ValidationError{{Field: field, Message: "action is required", Code: ErrMissingAction}}
	case ir.SetPriority:
		if !a.Priority.Valid() {
			return []ValidationError{{
				Field:   field + ".priority",
				Message: fmt.Sprintf("invalid priority %q, must be one of %v", a.Priority, ir.Priorities),
				Code:    ErrInvalidPriority,
			}}
		}
	case ir.AddLabel:
		if a.LabelID == "" {
			return missing("label")
		}
	case ir.RemoveLabel:
		if a.LabelID == "" {
			return missing("label")
		}
	case ir.MoveToColumn:
		if a.ColumnID == "" {
			return missing("column")
		}
	}
	return nil
}
