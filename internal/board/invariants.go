package board

import (
	"errors"
	"fmt"
	"slices"
)

// Check verifies the structural invariants of the store:
//   - every card references an existing column on the card's board
//   - every card appears exactly once, in its own column's order
//   - every column lists only active cards it owns
//   - every board lists exactly the columns that belong to it
//   - priorities are valid and label ids are unique
//
// All violations are joined into one error wrapping ErrInvariant.
func (s *Store) Check() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...)))
	}

	seen := make(map[string]string)
	for _, colID := range sortedKeys(s.columns) {
		col := s.columns[colID]
		if _, ok := s.boards[col.BoardID]; !ok {
			fail("column %q references missing board %q", colID, col.BoardID)
		}
		for _, cardID := range col.CardIDs {
			if other, dup := seen[cardID]; dup {
				fail("card %q listed in both %q and %q", cardID, other, colID)
				continue
			}
			seen[cardID] = colID
			card, ok := s.cards[cardID]
			if !ok {
				fail("column %q lists unknown card %q", colID, cardID)
				continue
			}
			if card.ColumnID != colID {
				fail("column %q lists card %q owned by %q", colID, cardID, card.ColumnID)
			}
		}
	}

	for _, cardID := range sortedKeys(s.cards) {
		card := s.cards[cardID]
		col, ok := s.columns[card.ColumnID]
		switch {
		case !ok:
			fail("card %q references missing column %q", cardID, card.ColumnID)
		case col.BoardID != card.BoardID:
			fail("card %q on board %q sits in column %q of board %q", cardID, card.BoardID, col.ID, col.BoardID)
		case seen[cardID] == "":
			fail("card %q missing from column %q order", cardID, card.ColumnID)
		}
		if !card.Priority.Valid() {
			fail("card %q has invalid priority %q", cardID, card.Priority)
		}
	}

	for _, boardID := range sortedKeys(s.boards) {
		b := s.boards[boardID]
		for _, colID := range b.ColumnIDs {
			col, ok := s.columns[colID]
			if !ok {
				fail("board %q lists unknown column %q", boardID, colID)
				continue
			}
			if col.BoardID != boardID {
				fail("board %q lists column %q of board %q", boardID, colID, col.BoardID)
			}
		}
	}
	for _, colID := range sortedKeys(s.columns) {
		col := s.columns[colID]
		if b, ok := s.boards[col.BoardID]; ok && !slices.Contains(b.ColumnIDs, colID) {
			fail("column %q missing from board %q order", colID, col.BoardID)
		}
	}

	labelIDs := make(map[string]bool, len(s.labels))
	for _, l := range s.labels {
		if labelIDs[l.ID] {
			fail("duplicate label id %q", l.ID)
		}
		labelIDs[l.ID] = true
	}

	return errors.Join(errs...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
