package ir

import "time"

// SkippedAction records an action that was not applied and why.
type SkippedAction struct {
	Index  int        `json:"index"`
	Kind   ActionKind `json:"kind"`
	Reason string     `json:"reason"`
}

// Firing records one automation executing against one card in one cycle.
// It is the engine's only outward-facing output: hosts use it for
// notifications and the store persists it as the firing log.
type Firing struct {
	ID             string          `json:"id"`
	Cycle          int64           `json:"cycle"`
	Seq            int64           `json:"seq"`
	AutomationID   string          `json:"automationId"`
	AutomationName string          `json:"automationName"`
	BoardID        string          `json:"boardId"`
	CardID         string          `json:"cardId"`
	Event          ChangeEvent     `json:"event"`
	Applied        []ActionKind    `json:"applied"`
	Skipped        []SkippedAction `json:"skipped,omitempty"`
	Error          string          `json:"error,omitempty"`
	At             time.Time       `json:"at"`
}

// OK reports whether every action in the automation was applied.
func (f Firing) OK() bool {
	return len(f.Skipped) == 0 && f.Error == ""
}
