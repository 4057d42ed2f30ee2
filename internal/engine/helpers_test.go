package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/cardflow/internal/board"
	"github.com/roach88/cardflow/internal/ir"
	"github.com/roach88/cardflow/internal/registry"
	"github.com/roach88/cardflow/internal/testutil"
)

var t0 = testutil.Date(2026, time.March, 1)

// newBoard builds board b1 (todo, doing, done), board b2 (other) and the
// global labels L and bug.
func newBoard(t *testing.T, clock *testutil.ManualTime) *board.Store {
	t.Helper()
	s := board.New(
		board.WithIDGenerator(testutil.NewSequentialIDs("gen")),
		board.WithClock(clock.Now),
	)
	_, err := s.CreateBoard(ir.Board{ID: "b1"})
	require.NoError(t, err)
	_, err = s.CreateBoard(ir.Board{ID: "b2"})
	require.NoError(t, err)
	for _, c := range []ir.Column{
		{ID: "todo", BoardID: "b1"},
		{ID: "doing", BoardID: "b1"},
		{ID: "done", BoardID: "b1"},
		{ID: "other", BoardID: "b2"},
	} {
		_, err := s.CreateColumn(c)
		require.NoError(t, err)
	}
	_, err = s.CreateLabel(ir.Label{ID: "L", Name: "Later", Color: "blue"})
	require.NoError(t, err)
	_, err = s.CreateLabel(ir.Label{ID: "bug", Name: "Bug", Color: "red"})
	require.NoError(t, err)
	return s
}

func automation(id string, trig ir.Trigger, actions ...ir.Action) ir.Automation {
	return ir.Automation{
		ID:      id,
		BoardID: "b1",
		Name:    id,
		Enabled: true,
		Trigger: trig,
		Actions: actions,
	}
}

type fixture struct {
	clock   *testutil.ManualTime
	store   *board.Store
	reg     *registry.Registry
	eng     *Engine
	firings []ir.Firing
}

// newFixture starts an engine over a fresh board with the given automations.
func newFixture(t *testing.T, automations ...ir.Automation) *fixture {
	t.Helper()
	f := &fixture{clock: testutil.NewManualTime(t0)}
	f.store = newBoard(t, f.clock)

	var err error
	f.reg, err = registry.New(automations...)
	require.NoError(t, err)

	f.eng = New(f.store, f.reg,
		WithTimeSource(f.clock),
		WithRecorder(RecorderFunc(func(fr ir.Firing) { f.firings = append(f.firings, fr) })),
	)
	f.eng.Start()
	t.Cleanup(f.eng.Stop)
	return f
}

func (f *fixture) createCard(t *testing.T, in board.CardInput) ir.Card {
	t.Helper()
	c, err := f.store.CreateCard(in)
	require.NoError(t, err)
	return c
}

func (f *fixture) card(t *testing.T, id string) ir.Card {
	t.Helper()
	c, ok := f.store.Card(id)
	require.True(t, ok, "card %s not found", id)
	return c
}

func (f *fixture) firingIDs() []string {
	out := make([]string, len(f.firings))
	for i, fr := range f.firings {
		out[i] = fr.AutomationID
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}

func card(id, column string) ir.Card {
	return ir.Card{ID: id, ColumnID: column, BoardID: "b1", Priority: ir.PriorityNone}
}

func snap(at time.Time, cards ...ir.Card) Snapshot {
	s := Snapshot{Cards: map[string]ir.Card{}, Columns: map[string][]string{}, At: at}
	for _, c := range cards {
		s.Cards[c.ID] = c
		s.Columns[c.ColumnID] = append(s.Columns[c.ColumnID], c.ID)
	}
	return s
}

func kinds(events []ir.ChangeEvent) []ir.EventKind {
	out := make([]ir.EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}
