package engine

import (
	"slices"
	"time"

	"github.com/roach88/cardflow/internal/ir"
)

// Snapshot is the engine's retained diff baseline: every active card and
// every column's card order, captured at one evaluation instant.
//
// At is the instant the snapshot's overdue state was judged against. A due
// date counts as having been overdue in the snapshot only if it was already
// in the past at At.
type Snapshot struct {
	Cards   map[string]ir.Card
	Columns map[string][]string
	At      time.Time
}

// Capture copies the card and column state out of st.
func Capture(st ir.State, at time.Time) Snapshot {
	s := Snapshot{
		Cards:   make(map[string]ir.Card, len(st.Cards)),
		Columns: make(map[string][]string, len(st.Columns)),
		At:      at,
	}
	for id, c := range st.Cards {
		s.Cards[id] = c.Clone()
	}
	for id, col := range st.Columns {
		s.Columns[id] = slices.Clone(col.CardIDs)
	}
	return s
}

// CardIDs returns the snapshot's card ids in sorted order.
func (s Snapshot) CardIDs() []string {
	ids := make([]string, 0, len(s.Cards))
	for id := range s.Cards {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s Snapshot) clone() Snapshot {
	out := Snapshot{
		Cards:   make(map[string]ir.Card, len(s.Cards)),
		Columns: make(map[string][]string, len(s.Columns)),
		At:      s.At,
	}
	for id, c := range s.Cards {
		out.Cards[id] = c.Clone()
	}
	for id, ids := range s.Columns {
		out.Columns[id] = slices.Clone(ids)
	}
	return out
}
