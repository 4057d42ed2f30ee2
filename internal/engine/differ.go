package engine

import (
	"time"

	"github.com/roach88/cardflow/internal/ir"
)

// Diff compares the retained baseline prev with the current snapshot now
// and returns one event per detected change per card.
//
// Cards are visited in sorted id order; per card, events follow the catalog
// order of ir.EventKinds, with label events in label-list order. Cards
// present in prev but absent from now produce nothing.
//
// Overdue is edge-triggered: a card fires due_date_overdue when its due date
// is in the past at now.At and the baseline did not already see it overdue
// at prev.At.
func Diff(prev, now Snapshot) []ir.ChangeEvent {
	var events []ir.ChangeEvent
	for _, id := range now.CardIDs() {
		card := now.Cards[id]
		old, existed := prev.Cards[id]
		if !existed {
			events = append(events, event(ir.EventCardCreated, card))
			continue
		}
		events = append(events, diffCard(old, card, prev.At, now.At)...)
	}
	return events
}

func event(kind ir.EventKind, c ir.Card) ir.ChangeEvent {
	return ir.ChangeEvent{Kind: kind, CardID: c.ID, BoardID: c.BoardID}
}

func diffCard(old, card ir.Card, prevAt, nowAt time.Time) []ir.ChangeEvent {
	var events []ir.ChangeEvent

	if old.ColumnID != card.ColumnID {
		ev := event(ir.EventCardMovedTo, card)
		ev.FromColumnID = old.ColumnID
		ev.ToColumnID = card.ColumnID
		events = append(events, ev)
	}

	switch {
	case !old.Completed && card.Completed:
		events = append(events, event(ir.EventCardCompleted, card))
	case old.Completed && !card.Completed:
		events = append(events, event(ir.EventCardUncompleted, card))
	}

	if old.Priority != card.Priority {
		ev := event(ir.EventPriorityChanged, card)
		ev.Priority = card.Priority
		events = append(events, ev)
	}

	if old.DueDate == nil && card.DueDate != nil {
		events = append(events, event(ir.EventDueDateSet, card))
	}

	if card.Overdue(nowAt) && !old.Overdue(prevAt) {
		events = append(events, event(ir.EventDueDateOverdue, card))
	}

	for _, l := range card.Labels {
		if !old.HasLabel(l.ID) {
			ev := event(ir.EventLabelAdded, card)
			ev.LabelID = l.ID
			events = append(events, ev)
		}
	}
	for _, l := range old.Labels {
		if !card.HasLabel(l.ID) {
			ev := event(ir.EventLabelRemoved, card)
			ev.LabelID = l.ID
			events = append(events, ev)
		}
	}

	if len(old.Subtasks) > 0 && !old.AllSubtasksCompleted() && card.AllSubtasksCompleted() {
		events = append(events, event(ir.EventAllSubtasksCompleted, card))
	}

	return events
}
