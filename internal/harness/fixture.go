package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cardflow/internal/board"
	"github.com/roach88/cardflow/internal/ir"
)

// BuildBoard seeds st with the fixture. Call it before the engine is
// constructed so the seeded cards are part of the engine's baseline.
func BuildBoard(st *board.Store, f BoardFixture) error {
	for _, b := range f.Boards {
		if _, err := st.CreateBoard(ir.Board{ID: b.ID, Title: b.Title}); err != nil {
			return fmt.Errorf("board %s: %w", b.ID, err)
		}
		for _, c := range b.Columns {
			if _, err := st.CreateColumn(ir.Column{ID: c.ID, BoardID: b.ID, Title: c.Title}); err != nil {
				return fmt.Errorf("column %s: %w", c.ID, err)
			}
		}
	}
	for _, l := range f.Labels {
		if _, err := st.CreateLabel(ir.Label{ID: l.ID, Name: l.Name, Color: l.Color}); err != nil {
			return fmt.Errorf("label %s: %w", l.ID, err)
		}
	}
	for i, c := range f.Cards {
		in, err := c.input()
		if err != nil {
			return fmt.Errorf("cards[%d]: %w", i, err)
		}
		if _, err := st.CreateCard(in); err != nil {
			return fmt.Errorf("cards[%d]: %w", i, err)
		}
	}
	return nil
}

func (c CardSpec) input() (board.CardInput, error) {
	in := board.CardInput{
		ID:          c.ID,
		ColumnID:    c.Column,
		Title:       c.Title,
		Description: c.Description,
		Priority:    ir.Priority(c.Priority),
		LabelIDs:    c.Labels,
		Completed:   c.Completed,
	}
	if c.Due != "" {
		due, err := parseDue(c.Due)
		if err != nil {
			return board.CardInput{}, err
		}
		in.DueDate = &due
	}
	for _, st := range c.Subtasks {
		in.Subtasks = append(in.Subtasks, ir.Subtask{ID: st.ID, Title: st.Title, Completed: st.Completed})
	}
	return in, nil
}

// parseDue accepts an RFC 3339 instant or a YYYY-MM-DD date (midnight UTC).
func parseDue(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("due %q: want RFC 3339 or YYYY-MM-DD", s)
	}
	return t, nil
}

// LoadBoardFixture reads a standalone board fixture: the same document as a
// scenario's board section.
func LoadBoardFixture(path string) (BoardFixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BoardFixture{}, fmt.Errorf("failed to read board fixture: %w", err)
	}
	var f BoardFixture
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return BoardFixture{}, fmt.Errorf("failed to parse board fixture: %w", err)
	}
	return f, nil
}

// FixtureState builds f into a fresh store and returns the resulting state.
func FixtureState(f BoardFixture) (ir.State, error) {
	st := board.New()
	if err := BuildBoard(st, f); err != nil {
		return ir.State{}, err
	}
	return st.State(), nil
}
