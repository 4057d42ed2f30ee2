package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/cardflow/internal/ir"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestAutomation creates a test automation with minimal required fields.
func createTestAutomation(id, boardID string) ir.Automation {
	return ir.Automation{
		ID:        id,
		BoardID:   boardID,
		Name:      "Automation " + id,
		Enabled:   true,
		Trigger:   ir.CardMovedTo{ColumnID: "done"},
		Actions:   []ir.Action{ir.MarkCompleted{}, ir.SetDueDateDays{Days: -1}},
		CreatedAt: t0,
	}
}

// createTestFiring creates a test firing with a content-addressed id.
func createTestFiring(t *testing.T, automationID, cardID string, seq int64) ir.Firing {
	t.Helper()
	f := ir.Firing{
		Cycle:          1,
		Seq:            seq,
		AutomationID:   automationID,
		AutomationName: "Automation " + automationID,
		BoardID:        "b1",
		CardID:         cardID,
		Event: ir.ChangeEvent{
			Kind:         ir.EventCardMovedTo,
			CardID:       cardID,
			BoardID:      "b1",
			FromColumnID: "todo",
			ToColumnID:   "done",
		},
		Applied: []ir.ActionKind{ir.ActionMarkCompleted},
		At:      t0.Add(time.Duration(seq) * time.Second),
	}
	id, err := ir.FiringID(f)
	if err != nil {
		t.Fatalf("FiringID() failed: %v", err)
	}
	f.ID = id
	return f
}
