package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/cardflow/internal/board"
	"github.com/roach88/cardflow/internal/ir"
)

// Store is the entity store surface the engine needs: full-state reads for
// diffing, point reads for the executor, change subscription, and the card
// mutators actions map onto. *board.Store implements it.
type Store interface {
	State() ir.State
	Subscribe(board.Listener) (unsubscribe func())

	Card(id string) (ir.Card, bool)
	Column(id string) (ir.Column, bool)
	Label(id string) (ir.Label, bool)

	UpdateCard(id string, p board.CardPatch) (ir.Card, error)
	MoveCard(id, columnID string) (ir.Card, error)
	AddCardLabel(cardID, labelID string) (ir.Card, error)
	RemoveCardLabel(cardID, labelID string) (ir.Card, error)
}

// Outcome reports what an action list did to a card.
type Outcome struct {
	Applied []ir.ActionKind
	Skipped []ir.SkippedAction
}

// Executor applies action lists to the store.
type Executor struct {
	store Store
}

// NewExecutor creates an executor writing to s.
func NewExecutor(s Store) *Executor {
	return &Executor{store: s}
}

// Execute applies actions to the card in list order. Each action re-reads
// the card from the store immediately before applying, so it sees the
// effects of the actions before it. at is the cycle's evaluation instant.
//
// There is no rollback: an action that cannot be applied is recorded as
// skipped and the rest of the list still runs.
func (x *Executor) Execute(cardID string, actions []ir.Action, at time.Time) Outcome {
	var out Outcome
	x.executeInto(&out, cardID, actions, at)
	return out
}

// executeInto records into out as it goes, so a panicking action leaves
// the actions before it accounted for.
func (x *Executor) executeInto(out *Outcome, cardID string, actions []ir.Action, at time.Time) {
	for i, act := range actions {
		if err := x.apply(cardID, act, at); err != nil {
			slog.Debug("action skipped",
				"card_id", cardID,
				"action", act.Kind(),
				"index", i,
				"error", err,
			)
			out.Skipped = append(out.Skipped, ir.SkippedAction{Index: i, Kind: act.Kind(), Reason: err.Error()})
			continue
		}
		out.Applied = append(out.Applied, act.Kind())
	}
}

func (x *Executor) apply(cardID string, act ir.Action, at time.Time) error {
	card, ok := x.store.Card(cardID)
	if !ok {
		return cardNotFound(cardID)
	}

	var err error
	switch a := act.(type) {
	case ir.SetPriority:
		p := a.Priority
		_, err = x.store.UpdateCard(card.ID, board.CardPatch{Priority: &p})

	case ir.AddLabel:
		if _, ok := x.store.Label(a.LabelID); !ok {
			return labelNotFound(card.ID, a.LabelID)
		}
		_, err = x.store.AddCardLabel(card.ID, a.LabelID)

	case ir.RemoveLabel:
		_, err = x.store.RemoveCardLabel(card.ID, a.LabelID)

	case ir.MarkCompleted:
		done := true
		_, err = x.store.UpdateCard(card.ID, board.CardPatch{Completed: &done})

	case ir.MarkUncompleted:
		done := false
		_, err = x.store.UpdateCard(card.ID, board.CardPatch{Completed: &done})

	case ir.MoveToColumn:
		if a.ColumnID == card.ColumnID {
			return nil
		}
		col, ok := x.store.Column(a.ColumnID)
		if !ok {
			return columnNotFound(card.ID, a.ColumnID)
		}
		if col.BoardID != card.BoardID {
			return crossBoardMove(card.ID, a.ColumnID)
		}
		_, err = x.store.MoveCard(card.ID, a.ColumnID)

	case ir.SetDueDateDays:
		due := at.AddDate(0, 0, a.Days)
		_, err = x.store.UpdateCard(card.ID, board.CardPatch{DueDate: &due})

	case ir.ClearDueDate:
		_, err = x.store.UpdateCard(card.ID, board.CardPatch{ClearDueDate: true})

	default:
		panic(fmt.Sprintf("engine: unhandled action type %T", act))
	}

	if err != nil {
		return storeRejected(card.ID, err)
	}
	return nil
}
