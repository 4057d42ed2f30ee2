package store

import (
	"context"
	"log/slog"

	"github.com/roach88/cardflow/internal/ir"
)

// Recorder writes engine firings to the log. It satisfies engine.Recorder.
//
// Write failures are logged and swallowed: a failing disk must not stop
// the engine's cycle.
type Recorder struct {
	store *Store
	ctx   context.Context
}

// Recorder returns a Recorder that writes with ctx.
func (s *Store) Recorder(ctx context.Context) *Recorder {
	return &Recorder{store: s, ctx: ctx}
}

// Record appends f to the firing log.
func (r *Recorder) Record(f ir.Firing) {
	inserted, err := r.store.WriteFiring(r.ctx, f)
	if err != nil {
		slog.Error("record firing failed",
			"firing_id", f.ID,
			"automation_id", f.AutomationID,
			"card_id", f.CardID,
			"error", err,
		)
		return
	}
	if !inserted {
		slog.Debug("firing already recorded", "firing_id", f.ID)
	}
}
