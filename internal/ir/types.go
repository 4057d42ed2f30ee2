package ir

import (
	"slices"
	"time"
)

// Priority is a card priority level.
type Priority string

// Priority values. The zero value "" is not a priority; triggers use it to
// mean "any priority".
const (
	PriorityNone   Priority = "none"
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Priorities lists every valid priority in ascending order.
var Priorities = []Priority{PriorityNone, PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// Valid reports whether p is one of the defined priority levels.
func (p Priority) Valid() bool {
	return slices.Contains(Priorities, p)
}

// Board is the top-level container of columns and cards.
type Board struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	ColumnIDs []string `json:"columnIds"`
}

// Column is an ordered lane of cards within a board.
// CardIDs order is the visual order and the append position for moves.
type Column struct {
	ID      string   `json:"id"`
	BoardID string   `json:"boardId"`
	Title   string   `json:"title"`
	CardIDs []string `json:"cardIds"`
}

// Label is a global label definition.
type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// CardLabel is the denormalized label copy stored on a card.
// Its Name and Color may drift from the global Label; only ID is authoritative.
type CardLabel struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Subtask is a checklist item on a card.
type Subtask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Card is the atomic task unit. It belongs to exactly one column and board.
type Card struct {
	ID          string      `json:"id"`
	ColumnID    string      `json:"columnId"`
	BoardID     string      `json:"boardId"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Labels      []CardLabel `json:"labels"`
	Priority    Priority    `json:"priority"`
	DueDate     *time.Time  `json:"dueDate,omitempty"`
	Subtasks    []Subtask   `json:"subtasks,omitempty"`
	Completed   bool        `json:"completed"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Clone returns a deep copy of the card.
func (c Card) Clone() Card {
	out := c
	out.Labels = slices.Clone(c.Labels)
	out.Subtasks = slices.Clone(c.Subtasks)
	if c.DueDate != nil {
		d := *c.DueDate
		out.DueDate = &d
	}
	return out
}

// HasLabel reports whether the card carries a label with the given id.
func (c Card) HasLabel(labelID string) bool {
	return slices.ContainsFunc(c.Labels, func(l CardLabel) bool { return l.ID == labelID })
}

// AllSubtasksCompleted reports whether the card has at least one subtask
// and every subtask is complete.
func (c Card) AllSubtasksCompleted() bool {
	if len(c.Subtasks) == 0 {
		return false
	}
	for _, st := range c.Subtasks {
		if !st.Completed {
			return false
		}
	}
	return true
}

// Overdue reports whether the card has a due date strictly before at.
func (c Card) Overdue(at time.Time) bool {
	return c.DueDate != nil && c.DueDate.Before(at)
}

// Clone returns a deep copy of the column.
func (c Column) Clone() Column {
	out := c
	out.CardIDs = slices.Clone(c.CardIDs)
	return out
}

// State is a full, detached copy of the entity store's contents.
type State struct {
	Boards  map[string]Board  `json:"boards"`
	Columns map[string]Column `json:"columns"`
	Cards   map[string]Card   `json:"cards"`
	Labels  []Label           `json:"labels"`
}

// Label resolves a global label by id.
func (s State) Label(id string) (Label, bool) {
	for _, l := range s.Labels {
		if l.ID == id {
			return l, true
		}
	}
	return Label{}, false
}

// SortedCardIDs returns the card ids in ascending order.
func (s State) SortedCardIDs() []string {
	ids := make([]string, 0, len(s.Cards))
	for id := range s.Cards {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
