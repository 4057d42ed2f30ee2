package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/cardflow/internal/ir"
)

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const automationColumns = `id, board_id, name, enabled, trigger_spec, action_specs, created_at`

// ReadAutomation returns the automation with the given id.
// Returns ErrNotFound if it does not exist.
func (s *Store) ReadAutomation(ctx context.Context, id string) (ir.Automation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+automationColumns+` FROM automations WHERE id = ?`, id)
	a, err := scanAutomation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Automation{}, fmt.Errorf("read automation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return ir.Automation{}, fmt.Errorf("read automation %s: %w", id, err)
	}
	return a, nil
}

// ReadAutomations returns stored automations in declaration order.
// An empty boardID returns every board's automations.
//
// Returns an empty slice (not nil) if none exist.
func (s *Store) ReadAutomations(ctx context.Context, boardID string) ([]ir.Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations`
	var args []any
	if boardID != "" {
		query += ` WHERE board_id = ?`
		args = append(args, boardID)
	}
	query += ` ORDER BY position ASC, id COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query automations: %w", err)
	}
	defer rows.Close()

	automations := []ir.Automation{}
	for rows.Next() {
		a, err := scanAutomation(rows)
		if err != nil {
			return nil, err
		}
		automations = append(automations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate automations: %w", err)
	}
	return automations, nil
}

func scanAutomation(row scanner) (ir.Automation, error) {
	var (
		a                        ir.Automation
		triggerJSON, actionsJSON string
		createdAt                string
	)
	if err := row.Scan(&a.ID, &a.BoardID, &a.Name, &a.Enabled, &triggerJSON, &actionsJSON, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ir.Automation{}, err
		}
		return ir.Automation{}, fmt.Errorf("scan automation: %w", err)
	}

	var err error
	if a.Trigger, err = ir.UnmarshalTrigger([]byte(triggerJSON)); err != nil {
		return ir.Automation{}, fmt.Errorf("automation %s: %w", a.ID, err)
	}
	if a.Actions, err = ir.UnmarshalActions([]byte(actionsJSON)); err != nil {
		return ir.Automation{}, fmt.Errorf("automation %s: %w", a.ID, err)
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return ir.Automation{}, fmt.Errorf("automation %s: %w", a.ID, err)
	}
	return a, nil
}

// FiringFilter narrows ReadFirings. Zero fields match everything.
type FiringFilter struct {
	BoardID      string
	CardID       string
	AutomationID string
	Limit        int // 0 = no limit
}

// ReadFirings returns logged firings matching filter.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ReadFirings(ctx context.Context, filter FiringFilter) ([]ir.Firing, error) {
	var (
		where []string
		args  []any
	)
	if filter.BoardID != "" {
		where = append(where, "board_id = ?")
		args = append(args, filter.BoardID)
	}
	if filter.CardID != "" {
		where = append(where, "card_id = ?")
		args = append(args, filter.CardID)
	}
	if filter.AutomationID != "" {
		where = append(where, "automation_id = ?")
		args = append(args, filter.AutomationID)
	}

	query := `
		SELECT id, seq, cycle, automation_id, automation_name, board_id, card_id, event, applied, skipped, error, at
		FROM firings`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC, id COLLATE BINARY ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query firings: %w", err)
	}
	defer rows.Close()

	firings := []ir.Firing{}
	for rows.Next() {
		f, err := scanFiring(rows)
		if err != nil {
			return nil, err
		}
		firings = append(firings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate firings: %w", err)
	}
	return firings, nil
}

func scanFiring(row scanner) (ir.Firing, error) {
	var (
		f                                   ir.Firing
		eventJSON, appliedJSON, skippedJSON string
		at                                  string
	)
	if err := row.Scan(
		&f.ID, &f.Seq, &f.Cycle, &f.AutomationID, &f.AutomationName, &f.BoardID, &f.CardID,
		&eventJSON, &appliedJSON, &skippedJSON, &f.Error, &at,
	); err != nil {
		return ir.Firing{}, fmt.Errorf("scan firing: %w", err)
	}

	var err error
	if f.Event, err = unmarshalEvent(eventJSON); err != nil {
		return ir.Firing{}, fmt.Errorf("firing %s: %w", f.ID, err)
	}
	if f.Applied, err = unmarshalApplied(appliedJSON); err != nil {
		return ir.Firing{}, fmt.Errorf("firing %s: %w", f.ID, err)
	}
	if f.Skipped, err = unmarshalSkipped(skippedJSON); err != nil {
		return ir.Firing{}, fmt.Errorf("firing %s: %w", f.ID, err)
	}
	if f.At, err = parseTime(at); err != nil {
		return ir.Firing{}, fmt.Errorf("firing %s: %w", f.ID, err)
	}
	return f, nil
}

// LastFiringSeq returns the highest logged firing seq, or 0 for an empty log.
// Pass it to engine.NewClockAt to continue the log's total order.
func (s *Store) LastFiringSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM firings`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last firing seq: %w", err)
	}
	return seq, nil
}

// CountFirings returns the number of logged firings.
func (s *Store) CountFirings(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM firings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count firings: %w", err)
	}
	return n, nil
}
