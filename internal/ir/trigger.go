package ir

// Trigger is the event condition that activates an automation.
//
// Trigger is a sealed sum type: the only implementations are the ten
// structs below. Each carries at most one discriminating parameter; an
// empty parameter matches any value.
type Trigger interface {
	Kind() EventKind
	trigger()
}

// CardCreated matches card_created events.
type CardCreated struct{}

// CardMovedTo matches card_moved_to events, optionally only into ColumnID.
type CardMovedTo struct {
	ColumnID string
}

// CardCompleted matches card_completed events.
type CardCompleted struct{}

// CardUncompleted matches card_uncompleted events.
type CardUncompleted struct{}

// PriorityChanged matches priority_changed events, optionally only when
// the new priority equals Priority.
type PriorityChanged struct {
	Priority Priority
}

// DueDateSet matches due_date_set events.
type DueDateSet struct{}

// DueDateOverdue matches due_date_overdue events.
type DueDateOverdue struct{}

// LabelAdded matches label_added events, optionally only for LabelID.
type LabelAdded struct {
	LabelID string
}

// LabelRemoved matches label_removed events, optionally only for LabelID.
type LabelRemoved struct {
	LabelID string
}

// AllSubtasksCompleted matches all_subtasks_completed events.
type AllSubtasksCompleted struct{}

func (CardCreated) Kind() EventKind          { return EventCardCreated }
func (CardMovedTo) Kind() EventKind          { return EventCardMovedTo }
func (CardCompleted) Kind() EventKind        { return EventCardCompleted }
func (CardUncompleted) Kind() EventKind      { return EventCardUncompleted }
func (PriorityChanged) Kind() EventKind      { return EventPriorityChanged }
func (DueDateSet) Kind() EventKind           { return EventDueDateSet }
func (DueDateOverdue) Kind() EventKind       { return EventDueDateOverdue }
func (LabelAdded) Kind() EventKind           { return EventLabelAdded }
func (LabelRemoved) Kind() EventKind         { return EventLabelRemoved }
func (AllSubtasksCompleted) Kind() EventKind { return EventAllSubtasksCompleted }

func (CardCreated) trigger()          {}
func (CardMovedTo) trigger()          {}
func (CardCompleted) trigger()        {}
func (CardUncompleted) trigger()      {}
func (PriorityChanged) trigger()      {}
func (DueDateSet) trigger()           {}
func (DueDateOverdue) trigger()       {}
func (LabelAdded) trigger()           {}
func (LabelRemoved) trigger()         {}
func (AllSubtasksCompleted) trigger() {}
