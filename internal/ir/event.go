package ir

// EventKind identifies a semantically meaningful card change. The same
// catalog names trigger kinds: a trigger of kind K matches events of kind K.
type EventKind string

// Event kinds detected by the snapshot differ.
const (
	EventCardCreated          EventKind = "card_created"
	EventCardMovedTo          EventKind = "card_moved_to"
	EventCardCompleted        EventKind = "card_completed"
	EventCardUncompleted      EventKind = "card_uncompleted"
	EventPriorityChanged      EventKind = "priority_changed"
	EventDueDateSet           EventKind = "due_date_set"
	EventDueDateOverdue       EventKind = "due_date_overdue"
	EventLabelAdded           EventKind = "label_added"
	EventLabelRemoved         EventKind = "label_removed"
	EventAllSubtasksCompleted EventKind = "all_subtasks_completed"
)

// EventKinds lists the catalog in detection order.
var EventKinds = []EventKind{
	EventCardCreated,
	EventCardMovedTo,
	EventCardCompleted,
	EventCardUncompleted,
	EventPriorityChanged,
	EventDueDateSet,
	EventDueDateOverdue,
	EventLabelAdded,
	EventLabelRemoved,
	EventAllSubtasksCompleted,
}

// Valid reports whether k is part of the catalog.
func (k EventKind) Valid() bool {
	for _, known := range EventKinds {
		if k == known {
			return true
		}
	}
	return false
}

// ChangeEvent is one detected change on one card.
// Only the context fields relevant to Kind are populated.
type ChangeEvent struct {
	Kind    EventKind `json:"kind"`
	CardID  string    `json:"cardId"`
	BoardID string    `json:"boardId"`

	// card_moved_to
	FromColumnID string `json:"fromColumnId,omitempty"`
	ToColumnID   string `json:"toColumnId,omitempty"`

	// priority_changed: the new priority
	Priority Priority `json:"priority,omitempty"`

	// label_added, label_removed
	LabelID string `json:"labelId,omitempty"`
}

// Context returns the populated context fields as a plain map, suitable for
// canonical serialization. Empty fields are omitted.
func (e ChangeEvent) Context() map[string]any {
	ctx := map[string]any{}
	if e.FromColumnID != "" {
		ctx["fromColumnId"] = e.FromColumnID
	}
	if e.ToColumnID != "" {
		ctx["toColumnId"] = e.ToColumnID
	}
	if e.Priority != "" {
		ctx["priority"] = string(e.Priority)
	}
	if e.LabelID != "" {
		ctx["labelId"] = e.LabelID
	}
	return ctx
}
