package ir

import (
	"encoding/json"
	"fmt"
	"time"
)

// Automation is a user-defined rule: one trigger and an ordered list of
// actions, scoped to exactly one board. A disabled automation is inert.
type Automation struct {
	ID        string
	BoardID   string
	Name      string
	Enabled   bool
	Trigger   Trigger
	Actions   []Action
	CreatedAt time.Time
}

// Validate checks the automation against schema rules.
// Returns all errors (not fail-fast).
func (a *Automation) Validate() []ValidationError {
	var errs []ValidationError

	if a.ID == "" {
		errs = append(errs, ValidationError{Field: "id", Message: "id is required"})
	}
	if a.BoardID == "" {
		errs = append(errs, ValidationError{Field: "board", Message: "board id is required"})
	}
	if a.Name == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "name is required"})
	}

	errs = append(errs, validateTrigger("when", a.Trigger)...)

	if len(a.Actions) == 0 {
		errs = append(errs, ValidationError{Field: "then", Message: "at least one action is required"})
	}
	for i, act := range a.Actions {
		errs = append(errs, validateAction(fmt.Sprintf("then[%d]", i), act)...)
	}

	return errs
}

// automationJSON is the wire shape of an Automation.
type automationJSON struct {
	ID        string       `json:"id"`
	BoardID   string       `json:"boardId"`
	Name      string       `json:"name"`
	Enabled   bool         `json:"enabled"`
	Trigger   TriggerSpec  `json:"trigger"`
	Actions   []ActionSpec `json:"actions"`
	CreatedAt time.Time    `json:"createdAt"`
}

// MarshalJSON encodes the trigger and actions in tagged form.
func (a Automation) MarshalJSON() ([]byte, error) {
	if a.Trigger == nil {
		return nil, fmt.Errorf("automation %s: trigger is required", a.ID)
	}
	actions := make([]ActionSpec, len(a.Actions))
	for i, act := range a.Actions {
		actions[i] = SpecOfAction(act)
	}
	return json.Marshal(automationJSON{
		ID:        a.ID,
		BoardID:   a.BoardID,
		Name:      a.Name,
		Enabled:   a.Enabled,
		Trigger:   SpecOfTrigger(a.Trigger),
		Actions:   actions,
		CreatedAt: a.CreatedAt,
	})
}

// UnmarshalJSON decodes the tagged form produced by MarshalJSON.
// Unknown keys are rejected at every level.
func (a *Automation) UnmarshalJSON(data []byte) error {
	var raw automationJSON
	if err := decodeStrict(data, &raw); err != nil {
		return err
	}

	trig, err := raw.Trigger.Build()
	if err != nil {
		return fmt.Errorf("automation %s: %w", raw.ID, err)
	}
	actions, err := BuildActions(raw.Actions)
	if err != nil {
		return fmt.Errorf("automation %s: %w", raw.ID, err)
	}

	*a = Automation{
		ID:        raw.ID,
		BoardID:   raw.BoardID,
		Name:      raw.Name,
		Enabled:   raw.Enabled,
		Trigger:   trig,
		Actions:   actions,
		CreatedAt: raw.CreatedAt,
	}
	return nil
}
