package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/cardflow/internal/ir"
)

// execer is the subset of *sql.DB and *sql.Tx used by writes.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WriteAutomation inserts or replaces an automation.
// A new id is appended after the last stored automation; an existing id
// keeps its position.
func (s *Store) WriteAutomation(ctx context.Context, a ir.Automation) error {
	if err := writeAutomation(ctx, s.db, a); err != nil {
		return fmt.Errorf("write automation: %w", err)
	}
	return nil
}

// WriteAutomations upserts automations in order inside one transaction.
// Either all are written or none are.
func (s *Store) WriteAutomations(ctx context.Context, automations []ir.Automation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write automations: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, a := range automations {
		if err := writeAutomation(ctx, tx, a); err != nil {
			return fmt.Errorf("write automations: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write automations: commit: %w", err)
	}
	return nil
}

func writeAutomation(ctx context.Context, db execer, a ir.Automation) error {
	if a.Trigger == nil {
		return fmt.Errorf("automation %s: trigger is required", a.ID)
	}
	triggerJSON, err := ir.MarshalTrigger(a.Trigger)
	if err != nil {
		return fmt.Errorf("automation %s: %w", a.ID, err)
	}
	actionsJSON, err := ir.MarshalActions(a.Actions)
	if err != nil {
		return fmt.Errorf("automation %s: %w", a.ID, err)
	}

	var position int64
	err = db.QueryRowContext(ctx, `SELECT position FROM automations WHERE id = ?`, a.ID).Scan(&position)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(position) + 1, 0) FROM automations`).Scan(&position); err != nil {
			return fmt.Errorf("automation %s: next position: %w", a.ID, err)
		}
	case err != nil:
		return fmt.Errorf("automation %s: position: %w", a.ID, err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO automations
		(id, board_id, name, enabled, trigger_spec, action_specs, created_at, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			board_id = excluded.board_id,
			name = excluded.name,
			enabled = excluded.enabled,
			trigger_spec = excluded.trigger_spec,
			action_specs = excluded.action_specs,
			created_at = excluded.created_at
	`,
		a.ID,
		a.BoardID,
		a.Name,
		a.Enabled,
		string(triggerJSON),
		string(actionsJSON),
		formatTime(a.CreatedAt),
		position,
	)
	if err != nil {
		return fmt.Errorf("automation %s: %w", a.ID, err)
	}
	return nil
}

// SetAutomationEnabled updates the enabled flag.
// Returns ErrNotFound if no automation has the id.
func (s *Store) SetAutomationEnabled(ctx context.Context, id string, enabled bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE automations SET enabled = ? WHERE id = ?`, enabled, id)
	if err != nil {
		return fmt.Errorf("set automation enabled: %w", err)
	}
	return requireAffected(res, "set automation enabled", id)
}

// DeleteAutomation removes an automation. Its firings stay in the log.
// Returns ErrNotFound if no automation has the id.
func (s *Store) DeleteAutomation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM automations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete automation: %w", err)
	}
	return requireAffected(res, "delete automation", id)
}

func requireAffected(res sql.Result, op, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: automation %s: %w", op, id, ErrNotFound)
	}
	return nil
}

// WriteFiring appends a firing to the log.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - a firing already
// present is silently ignored and inserted is false.
func (s *Store) WriteFiring(ctx context.Context, f ir.Firing) (inserted bool, err error) {
	if f.ID == "" {
		return false, fmt.Errorf("write firing: id is required")
	}

	eventJSON, err := marshalEvent(f.Event)
	if err != nil {
		return false, fmt.Errorf("write firing: %w", err)
	}
	appliedJSON, err := marshalApplied(f.Applied)
	if err != nil {
		return false, fmt.Errorf("write firing: %w", err)
	}
	skippedJSON, err := marshalSkipped(f.Skipped)
	if err != nil {
		return false, fmt.Errorf("write firing: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO firings
		(id, seq, cycle, automation_id, automation_name, board_id, card_id, event, applied, skipped, error, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		f.ID,
		f.Seq,
		f.Cycle,
		f.AutomationID,
		f.AutomationName,
		f.BoardID,
		f.CardID,
		eventJSON,
		appliedJSON,
		skippedJSON,
		f.Error,
		formatTime(f.At),
	)
	if err != nil {
		return false, fmt.Errorf("write firing: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write firing: rows affected: %w", err)
	}
	return n > 0, nil
}
