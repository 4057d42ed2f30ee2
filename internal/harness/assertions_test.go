package harness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cardflow/internal/board"
	"github.com/roach88/cardflow/internal/ir"
	"github.com/roach88/cardflow/internal/testutil"
)

func assertionStore(t *testing.T) *board.Store {
	t.Helper()
	st := board.New(board.WithIDGenerator(testutil.NewSequentialIDs("t")), board.WithClock(testutil.NewManualTime(DefaultNow).Now))
	require.NoError(t, BuildBoard(st, BoardFixture{
		Boards: []BoardSpec{{ID: "b1", Columns: []ColumnSpec{{ID: "todo"}, {ID: "done"}}}},
		Labels: []LabelSpec{{ID: "bug", Name: "Bug", Color: "red"}, {ID: "ui", Name: "UI"}},
		Cards: []CardSpec{
			{ID: "c1", Column: "todo", Title: "One", Priority: "high", Labels: []string{"ui", "bug"}, Due: "2026-02-01"},
			{ID: "c2", Column: "todo", Title: "Two"},
			{ID: "c3", Column: "done", Title: "Three", Completed: true},
		},
	}))
	require.NoError(t, st.ArchiveCard("c3"))
	return st
}

func TestBuildBoard(t *testing.T) {
	st := assertionStore(t)

	c1, ok := st.Card("c1")
	require.True(t, ok)
	assert.Equal(t, "b1", c1.BoardID)
	assert.Equal(t, ir.PriorityHigh, c1.Priority)
	assert.Equal(t, []ir.CardLabel{{ID: "ui", Name: "UI"}, {ID: "bug", Name: "Bug", Color: "red"}}, c1.Labels)
	require.NotNil(t, c1.DueDate)
	assert.Equal(t, testutil.Date(2026, time.February, 1), *c1.DueDate)

	c2, _ := st.Card("c2")
	assert.Equal(t, ir.PriorityNone, c2.Priority)

	b, _ := st.Board("b1")
	assert.Equal(t, []string{"todo", "done"}, b.ColumnIDs)
	todo, _ := st.Column("todo")
	assert.Equal(t, []string{"c1", "c2"}, todo.CardIDs)
}

func TestBuildBoard_Errors(t *testing.T) {
	tests := []struct {
		name    string
		fixture BoardFixture
	}{
		{"duplicate board", BoardFixture{Boards: []BoardSpec{{ID: "b1"}, {ID: "b1"}}}},
		{"unknown column", BoardFixture{
			Boards: []BoardSpec{{ID: "b1", Columns: []ColumnSpec{{ID: "todo"}}}},
			Cards:  []CardSpec{{ID: "c1", Column: "doing"}},
		}},
		{"unknown label", BoardFixture{
			Boards: []BoardSpec{{ID: "b1", Columns: []ColumnSpec{{ID: "todo"}}}},
			Cards:  []CardSpec{{ID: "c1", Column: "todo", Labels: []string{"nope"}}},
		}},
		{"bad due", BoardFixture{
			Boards: []BoardSpec{{ID: "b1", Columns: []ColumnSpec{{ID: "todo"}}}},
			Cards:  []CardSpec{{ID: "c1", Column: "todo", Due: "soon"}},
		}},
		{"bad priority", BoardFixture{
			Boards: []BoardSpec{{ID: "b1", Columns: []ColumnSpec{{ID: "todo"}}}},
			Cards:  []CardSpec{{ID: "c1", Column: "todo", Priority: "critical"}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, BuildBoard(board.New(), tt.fixture))
		})
	}
}

func TestAssertCardState(t *testing.T) {
	st := assertionStore(t)

	tests := []struct {
		name   string
		card   string
		expect CardExpect
		errMsg string
	}{
		{"all fields match", "c1", CardExpect{
			Column:    ptr("todo"),
			Title:     ptr("One"),
			Priority:  ptr("high"),
			Completed: ptr(false),
			Labels:    &[]string{"ui", "bug"},
			Due:       ptr("2026-02-01T00:00:00Z"),
			Archived:  ptr(false),
			Exists:    ptr(true),
		}, ""},
		{"due as date", "c1", CardExpect{Due: ptr("2026-02-01")}, ""},
		{"no due", "c2", CardExpect{Due: ptr("")}, ""},
		{"archived card", "c3", CardExpect{Archived: ptr(true), Completed: ptr(true)}, ""},
		{"missing card not expected", "c9", CardExpect{Exists: ptr(false)}, ""},
		{"wrong column", "c1", CardExpect{Column: ptr("done")}, "in column todo"},
		{"wrong priority", "c1", CardExpect{Priority: ptr("low")}, "priority high"},
		{"label order matters", "c1", CardExpect{Labels: &[]string{"bug", "ui"}}, "labels [ui bug]"},
		{"unexpected due", "c1", CardExpect{Due: ptr("")}, "due 2026-02-01T00:00:00Z"},
		{"missing due", "c2", CardExpect{Due: ptr("2026-02-01")}, "no due date"},
		{"not archived", "c2", CardExpect{Archived: ptr(true)}, "archived=false"},
		{"missing card", "c9", CardExpect{Completed: ptr(true)}, "card not found"},
		{"exists mismatch", "c1", CardExpect{Exists: ptr(false)}, "exists=true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertCardState(st, Assertion{Type: AssertCardState, Card: tt.card, Expect: &tt.expect})
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var ae *AssertionError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, AssertCardState, ae.Type)
			assert.Contains(t, ae.Actual, tt.errMsg)
		})
	}
}

func TestAssertColumnOrder(t *testing.T) {
	st := assertionStore(t)

	assert.NoError(t, assertColumnOrder(st, Assertion{Column: "todo", Cards: []string{"c1", "c2"}}))
	assert.NoError(t, assertColumnOrder(st, Assertion{Column: "done"}), "archived cards leave the column")
	assert.Error(t, assertColumnOrder(st, Assertion{Column: "todo", Cards: []string{"c2", "c1"}}))
	assert.Error(t, assertColumnOrder(st, Assertion{Column: "todo", Cards: []string{"c1"}}))

	err := assertColumnOrder(st, Assertion{Column: "nowhere"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column not found")
}

func sampleResult() *Result {
	r := NewResult()
	r.AddStepTrace(0, StepMoveCard, "c1")
	r.AddEventTrace(1, ir.ChangeEvent{Kind: ir.EventCardMovedTo, CardID: "c1", BoardID: "b1", FromColumnID: "todo", ToColumnID: "done"})
	r.AddFiringTrace(ir.Firing{Seq: 1, Cycle: 1, AutomationID: "a", CardID: "c1", Event: ir.ChangeEvent{Kind: ir.EventCardMovedTo}})
	r.AddFiringTrace(ir.Firing{Seq: 2, Cycle: 1, AutomationID: "b", CardID: "c1", Event: ir.ChangeEvent{Kind: ir.EventCardMovedTo}})
	r.AddStepTrace(1, StepMoveCard, "c2")
	r.AddEventTrace(2, ir.ChangeEvent{Kind: ir.EventCardMovedTo, CardID: "c2", BoardID: "b1", FromColumnID: "todo", ToColumnID: "done"})
	r.AddFiringTrace(ir.Firing{Seq: 3, Cycle: 2, AutomationID: "a", CardID: "c2", Event: ir.ChangeEvent{Kind: ir.EventCardMovedTo}})
	return r
}

func TestAssertFiringCount(t *testing.T) {
	r := sampleResult()

	tests := []struct {
		name string
		a    Assertion
		ok   bool
	}{
		{"all", Assertion{Type: AssertFiringCount, Count: 3}, true},
		{"by automation", Assertion{Type: AssertFiringCount, Automation: "a", Count: 2}, true},
		{"by card", Assertion{Type: AssertFiringCount, Card: "c2", Count: 1}, true},
		{"by both", Assertion{Type: AssertFiringCount, Automation: "b", Card: "c2", Count: 0}, true},
		{"too few", Assertion{Type: AssertFiringCount, Count: 4}, false},
		{"too many", Assertion{Type: AssertFiringCount, Automation: "b", Count: 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertFiringCount(r, tt.a)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestAssertEventCount(t *testing.T) {
	r := sampleResult()

	assert.NoError(t, assertEventCount(r, Assertion{Kind: "card_moved_to", Count: 2}))
	assert.NoError(t, assertEventCount(r, Assertion{Kind: "card_moved_to", Card: "c1", Count: 1}))
	assert.NoError(t, assertEventCount(r, Assertion{Kind: "card_created", Count: 0}))

	err := assertEventCount(r, Assertion{Kind: "card_moved_to", Card: "c2", Count: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected: 3 card_moved_to event(s) for card=c2")
	assert.Contains(t, err.Error(), "Actual: 1 event(s)")
}

func TestEvaluateAssertions(t *testing.T) {
	st := assertionStore(t)
	r := sampleResult()

	errs := EvaluateAssertions(r, []Assertion{
		{Type: AssertFiringCount, Count: 3},
		{Type: AssertNoFirings, Automation: "zzz"},
		{Type: AssertNoFirings, Automation: "a"},
		{Type: AssertColumnOrder, Column: "todo", Cards: []string{"c1", "c2"}},
		{Type: AssertCardState, Card: "c1"},
		{Type: "trace_contains"},
	}, st)

	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "Expected: 0 firing(s) for automation=a")
	assert.Contains(t, errs[1], "assertion[4]: card_state requires expect")
	assert.Contains(t, errs[2], `assertion[5]: unknown assertion type "trace_contains"`)
}

func TestAssertionError_ErrorFormat(t *testing.T) {
	err := &AssertionError{
		Type:     AssertFiringCount,
		Expected: "1 firing(s)",
		Actual:   "2 firing(s)",
		Trace:    sampleResult().Trace[:3],
	}

	want := "Assertion failed: firing_count\n" +
		"  Expected: 1 firing(s)\n" +
		"  Actual: 2 firing(s)\n" +
		"\nFull trace:\n" +
		"  [1] step 0 move_card c1\n" +
		"  [2]   cycle 1 card_moved_to c1 map[fromColumnId:todo toColumnId:done]\n" +
		"  [3]   cycle 1 fire a on c1 (card_moved_to) applied=[]\n"
	assert.Equal(t, want, err.Error())
}
