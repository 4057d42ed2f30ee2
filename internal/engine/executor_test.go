package engine

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cardflow/internal/board"
	"github.com/roach88/cardflow/internal/ir"
	"github.com/roach88/cardflow/internal/testutil"
)

func newExecutorStore(t *testing.T) *board.Store {
	t.Helper()
	s := newBoard(t, testutil.NewManualTime(t0))
	_, err := s.CreateCard(board.CardInput{ID: "c1", ColumnID: "todo"})
	require.NoError(t, err)
	_, err = s.CreateCard(board.CardInput{ID: "c2", ColumnID: "todo"})
	require.NoError(t, err)
	return s
}

func TestExecute_EachActionKind(t *testing.T) {
	tests := []struct {
		name   string
		action ir.Action
		check  func(t *testing.T, c ir.Card)
	}{
		{"set_priority", ir.SetPriority{Priority: ir.PriorityHigh}, func(t *testing.T, c ir.Card) {
			assert.Equal(t, ir.PriorityHigh, c.Priority)
		}},
		{"add_label", ir.AddLabel{LabelID: "L"}, func(t *testing.T, c ir.Card) {
			assert.Equal(t, []ir.CardLabel{{ID: "L", Name: "Later", Color: "blue"}}, c.Labels)
		}},
		{"remove_label absent", ir.RemoveLabel{LabelID: "L"}, func(t *testing.T, c ir.Card) {
			assert.Empty(t, c.Labels)
		}},
		{"mark_completed", ir.MarkCompleted{}, func(t *testing.T, c ir.Card) {
			assert.True(t, c.Completed)
		}},
		{"mark_uncompleted", ir.MarkUncompleted{}, func(t *testing.T, c ir.Card) {
			assert.False(t, c.Completed)
		}},
		{"move_to_column", ir.MoveToColumn{ColumnID: "done"}, func(t *testing.T, c ir.Card) {
			assert.Equal(t, "done", c.ColumnID)
		}},
		{"set_due_date_days", ir.SetDueDateDays{Days: 3}, func(t *testing.T, c ir.Card) {
			require.NotNil(t, c.DueDate)
			assert.Equal(t, t0.AddDate(0, 0, 3), *c.DueDate)
		}},
		{"set_due_date_days negative", ir.SetDueDateDays{Days: -2}, func(t *testing.T, c ir.Card) {
			require.NotNil(t, c.DueDate)
			assert.Equal(t, t0.AddDate(0, 0, -2), *c.DueDate)
		}},
		{"clear_due_date", ir.ClearDueDate{}, func(t *testing.T, c ir.Card) {
			assert.Nil(t, c.DueDate)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newExecutorStore(t)
			out := NewExecutor(s).Execute("c1", []ir.Action{tt.action}, t0)

			assert.Equal(t, []ir.ActionKind{tt.action.Kind()}, out.Applied)
			assert.Empty(t, out.Skipped)
			c, _ := s.Card("c1")
			tt.check(t, c)
		})
	}
}

func TestExecute_CoversEveryActionKind(t *testing.T) {
	actions := []ir.Action{
		ir.SetPriority{Priority: ir.PriorityLow},
		ir.AddLabel{LabelID: "bug"},
		ir.RemoveLabel{LabelID: "bug"},
		ir.MarkCompleted{},
		ir.MarkUncompleted{},
		ir.MoveToColumn{ColumnID: "doing"},
		ir.SetDueDateDays{Days: 1},
		ir.ClearDueDate{},
	}
	require.Len(t, actions, len(ir.ActionKinds))

	s := newExecutorStore(t)
	out := NewExecutor(s).Execute("c1", actions, t0)

	assert.Equal(t, ir.ActionKinds, out.Applied)
}

func TestExecute_ReadsLatestState(t *testing.T) {
	s := newExecutorStore(t)

	out := NewExecutor(s).Execute("c1", []ir.Action{
		ir.SetPriority{Priority: ir.PriorityUrgent},
		ir.AddLabel{LabelID: "L"},
		ir.MoveToColumn{ColumnID: "done"},
		ir.MoveToColumn{ColumnID: "done"},
	}, t0)

	assert.Len(t, out.Applied, 4)
	c, _ := s.Card("c1")
	assert.Equal(t, ir.PriorityUrgent, c.Priority, "later actions must not overwrite earlier ones")
	assert.True(t, c.HasLabel("L"))
	assert.Equal(t, "done", c.ColumnID)
	done, _ := s.Column("done")
	assert.Equal(t, []string{"c1"}, done.CardIDs)
}

func TestExecute_MoveToCurrentColumnIsNoop(t *testing.T) {
	s := newExecutorStore(t)
	before, _ := s.Column("todo")
	seq := s.Seq()

	out := NewExecutor(s).Execute("c1", []ir.Action{ir.MoveToColumn{ColumnID: "todo"}}, t0)

	assert.Equal(t, []ir.ActionKind{ir.ActionMoveToColumn}, out.Applied)
	after, _ := s.Column("todo")
	assert.Equal(t, before.CardIDs, after.CardIDs)
	assert.Equal(t, seq, s.Seq(), "no mutation may be published")
}

func TestExecute_AddLabelDedupes(t *testing.T) {
	s := newExecutorStore(t)

	NewExecutor(s).Execute("c1", []ir.Action{ir.AddLabel{LabelID: "L"}, ir.AddLabel{LabelID: "L"}}, t0)

	c, _ := s.Card("c1")
	assert.Len(t, c.Labels, 1)
}

func TestExecute_DanglingReferencesSkipWithoutRollback(t *testing.T) {
	s := newExecutorStore(t)

	out := NewExecutor(s).Execute("c1", []ir.Action{
		ir.SetPriority{Priority: ir.PriorityHigh},
		ir.MoveToColumn{ColumnID: "gone"},
		ir.AddLabel{LabelID: "gone"},
		ir.MoveToColumn{ColumnID: "other"},
		ir.MarkCompleted{},
	}, t0)

	assert.Equal(t, []ir.ActionKind{ir.ActionSetPriority, ir.ActionMarkCompleted}, out.Applied)
	require.Len(t, out.Skipped, 3)
	assert.Equal(t, 1, out.Skipped[0].Index)
	assert.True(t, strings.HasPrefix(out.Skipped[0].Reason, string(ErrCodeColumnNotFound)))
	assert.Equal(t, 2, out.Skipped[1].Index)
	assert.True(t, strings.HasPrefix(out.Skipped[1].Reason, string(ErrCodeLabelNotFound)))
	assert.Equal(t, 3, out.Skipped[2].Index)
	assert.True(t, strings.HasPrefix(out.Skipped[2].Reason, string(ErrCodeCrossBoardMove)))

	c, _ := s.Card("c1")
	assert.Equal(t, ir.PriorityHigh, c.Priority)
	assert.True(t, c.Completed)
	assert.Equal(t, "todo", c.ColumnID)
}

func TestExecute_MissingCard(t *testing.T) {
	s := newExecutorStore(t)
	require.NoError(t, s.DeleteCard("c1"))

	out := NewExecutor(s).Execute("c1", []ir.Action{ir.MarkCompleted{}, ir.ClearDueDate{}}, t0)

	assert.Empty(t, out.Applied)
	require.Len(t, out.Skipped, 2)
	assert.Contains(t, out.Skipped[0].Reason, string(ErrCodeCardNotFound))
}

func TestExecute_OtherCardsUntouched(t *testing.T) {
	s := newExecutorStore(t)
	before, _ := s.Card("c2")

	NewExecutor(s).Execute("c1", []ir.Action{ir.MarkCompleted{}, ir.MoveToColumn{ColumnID: "done"}}, t0.Add(time.Hour))

	after, _ := s.Card("c2")
	assert.Equal(t, before, after)
}

func TestActionError(t *testing.T) {
	err := error(columnNotFound("c1", "gone"))
	assert.True(t, IsDanglingReference(err))
	assert.False(t, IsPanic(err))
	assert.Equal(t, `COLUMN_NOT_FOUND: column "gone" does not exist (card=c1)`, err.Error())

	wrapped := storeRejected("c1", board.ErrInvalidPriority)
	assert.True(t, errors.Is(wrapped, board.ErrInvalidPriority))
	assert.False(t, IsDanglingReference(wrapped))

	assert.True(t, IsPanic(recoveredPanic("c1", "boom")))
}
