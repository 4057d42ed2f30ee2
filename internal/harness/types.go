package harness

import (
	"github.com/roach88/cardflow/internal/engine"
	"github.com/roach88/cardflow/internal/ir"
)

// Trace entry types.
const (
	TypeStep   = "step"
	TypeEvent  = "event"
	TypeFiring = "firing"
)

// TraceEvent is one entry of a scenario trace: an applied step, a detected
// change event, or an automation firing. Entries appear in the order they
// happened, so a step is followed by the events and firings it caused.
type TraceEvent struct {
	Type string `json:"type"` // "step", "event" or "firing"

	// step
	Step int    `json:"step,omitempty"` // index into Scenario.Steps
	Op   string `json:"op,omitempty"`

	// event and firing
	Cycle   int64          `json:"cycle,omitempty"`
	Kind    ir.EventKind   `json:"kind,omitempty"` // firing: the triggering event
	Context map[string]any `json:"context,omitempty"`

	// firing
	Seq        int64              `json:"seq,omitempty"`
	Automation string             `json:"automation,omitempty"`
	Applied    []ir.ActionKind    `json:"applied,omitempty"`
	Skipped    []ir.SkippedAction `json:"skipped,omitempty"`
	Error      string             `json:"error,omitempty"`

	Card string `json:"card,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions hold.
	Pass bool `json:"pass"`

	// Trace contains steps, events and firings in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Firings are the recorded firings in seq order.
	Firings []ir.Firing `json:"firings"`

	// Events are every detected change event in detection order.
	Events []ir.ChangeEvent `json:"events"`

	// Stats are the engine counters after the last step.
	Stats engine.Stats `json:"stats"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Errors:  []string{},
		Firings: []ir.Firing{},
		Events:  []ir.ChangeEvent{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStepTrace records an applied step.
func (r *Result) AddStepTrace(index int, op, cardID string) {
	r.Trace = append(r.Trace, TraceEvent{
		Type: TypeStep,
		Step: index,
		Op:   op,
		Card: cardID,
	})
}

// AddEventTrace records a detected change event.
func (r *Result) AddEventTrace(cycle int64, ev ir.ChangeEvent) {
	r.Events = append(r.Events, ev)
	r.Trace = append(r.Trace, TraceEvent{
		Type:    TypeEvent,
		Cycle:   cycle,
		Kind:    ev.Kind,
		Card:    ev.CardID,
		Context: ev.Context(),
	})
}

// AddFiringTrace records a firing.
func (r *Result) AddFiringTrace(f ir.Firing) {
	r.Firings = append(r.Firings, f)
	r.Trace = append(r.Trace, TraceEvent{
		Type:       TypeFiring,
		Seq:        f.Seq,
		Cycle:      f.Cycle,
		Automation: f.AutomationID,
		Card:       f.CardID,
		Kind:       f.Event.Kind,
		Applied:    f.Applied,
		Skipped:    f.Skipped,
		Error:      f.Error,
	})
}
