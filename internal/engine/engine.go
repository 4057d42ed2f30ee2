package engine

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/cardflow/internal/board"
	"github.com/roach88/cardflow/internal/ir"
)

// AutomationSource supplies the enabled automations for a board in
// declaration order. *registry.Registry implements it.
type AutomationSource interface {
	Enabled(boardID string) []ir.Automation
}

// Recorder receives one record per firing, synchronously, at the end of
// each automation's execution. Recorders must not block; mutations a
// recorder makes to the store are absorbed into the running cycle.
type Recorder interface {
	Record(f ir.Firing)
}

// RecorderFunc adapts a plain function to Recorder.
type RecorderFunc func(ir.Firing)

// Record calls f.
func (f RecorderFunc) Record(fr ir.Firing) {
	f(fr)
}

// EventSink receives every cycle's detected events, in order, before any
// automation is matched. Only cycles that detected events call it.
type EventSink func(cycle int64, events []ir.ChangeEvent)

// Stats are cumulative engine counters.
type Stats struct {
	Cycles  int64 `json:"cycles"`  // cycles run to completion
	Dropped int64 `json:"dropped"` // notifications absorbed by the reentrancy guard
	Firings int64 `json:"firings"` // automations executed
	Skipped int64 `json:"skipped"` // actions skipped (dangling reference, missing card, store rejection)
	Panics  int64 `json:"panics"`  // automation panics contained
}

// Engine observes the entity store and runs automations against it.
//
// Every committed store mutation notifies the engine. If no cycle is
// running, the notification starts one: diff the retained snapshot against
// the live state, match each event against the card's board automations,
// execute every match, then refresh the snapshot from the store as it
// stands after the actions ran. Notifications produced by the cycle's own
// writes find the guard set and return immediately; their effects are
// already visible in the refreshed snapshot.
//
// Thread-safety model: store mutations, and therefore cycles, run on the
// caller's goroutine. The guard cannot tell a nested notification from one
// raised by another goroutine, so an unserialized concurrent write that
// lands during a cycle is dropped and its change folded into the refreshed
// snapshot without events. Hosts with more than one writer wrap every
// external mutation, and every direct Process call, in Exclusive. Stats is
// safe from any goroutine.
//
// INVARIANTS:
//   - at most one cycle runs at a time
//   - the snapshot is refreshed and the guard released on every exit
//     from a cycle, including panics
//   - all events of a cycle are computed before any action executes
type Engine struct {
	store       Store
	automations AutomationSource
	executor    *Executor
	time        TimeSource
	cycles      *Clock
	seq         *Clock
	recorder    Recorder
	sink        EventSink

	snapshot Snapshot
	running  atomic.Bool

	mu          sync.Mutex
	unsubscribe func()

	writer sync.Mutex

	stats struct {
		cycles, dropped, firings, skipped, panics atomic.Int64
	}
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithTimeSource sets the source of the per-cycle evaluation instant.
//
// Default: SystemTime
func WithTimeSource(ts TimeSource) EngineOption {
	return func(e *Engine) {
		e.time = ts
	}
}

// WithRecorder sets the firing recorder.
func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithEventSink sets a callback for each cycle's detected events.
func WithEventSink(fn EventSink) EngineOption {
	return func(e *Engine) {
		e.sink = fn
	}
}

// WithClock sets the clock used to stamp firing seq numbers.
// Pass NewClockAt(last) to continue a persisted firing log.
func WithClock(c *Clock) EngineOption {
	return func(e *Engine) {
		e.seq = c
	}
}

// New creates an engine over s and automations. The retained snapshot is
// seeded from the store's state at construction, judged at the time
// source's current instant, so pre-existing cards produce no events.
//
// The engine is inert until Start.
func New(s Store, automations AutomationSource, opts ...EngineOption) *Engine {
	e := &Engine{
		store:       s,
		automations: automations,
		executor:    NewExecutor(s),
		time:        SystemTime{},
		cycles:      NewClock(),
		seq:         NewClock(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.snapshot = Capture(s.State(), e.time.Now())
	return e
}

// Start subscribes the engine to store notifications.
// Calling Start on a started engine is a no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.unsubscribe != nil {
		return
	}
	e.unsubscribe = e.store.Subscribe(e.notify)
	slog.Info("engine started", "cards", len(e.snapshot.Cards))
}

// Stop unsubscribes the engine. The retained snapshot is kept, so a
// restarted engine diffs against the state it last saw.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.unsubscribe == nil {
		return
	}
	e.unsubscribe()
	e.unsubscribe = nil
	slog.Info("engine stopped", "cycles", e.stats.cycles.Load())
}

// Stats returns a copy of the engine counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Cycles:  e.stats.cycles.Load(),
		Dropped: e.stats.dropped.Load(),
		Firings: e.stats.firings.Load(),
		Skipped: e.stats.skipped.Load(),
		Panics:  e.stats.panics.Load(),
	}
}

// Snapshot returns a copy of the retained baseline.
// Must not be called concurrently with a cycle.
func (e *Engine) Snapshot() Snapshot {
	return e.snapshot.clone()
}

// Exclusive runs fn holding the engine's writer lock, so a mutation made
// in fn waits for a cycle started by another writer to finish. The cycle
// fn's own mutation starts runs inside fn; its nested writes do not take
// the lock. fn must not call Exclusive.
func (e *Engine) Exclusive(fn func()) {
	e.writer.Lock()
	defer e.writer.Unlock()
	fn()
}

func (e *Engine) notify(ch board.Change) {
	if !e.Process() {
		slog.Debug("notification absorbed", "seq", ch.Seq, "op", ch.Op, "card_id", ch.CardID)
	}
}

// Process runs one cycle unless one is already running.
// Returns false if the call was absorbed by the reentrancy guard.
//
// Hosts call Process directly to re-evaluate without a mutation, for
// example on a timer so due dates that pass unobserved fire overdue.
func (e *Engine) Process() bool {
	if !e.running.CompareAndSwap(false, true) {
		e.stats.dropped.Add(1)
		return false
	}
	e.cycle()
	return true
}

func (e *Engine) cycle() {
	at := e.time.Now()
	cycle := e.cycles.Next()
	firings := 0

	defer func() {
		if r := recover(); r != nil {
			e.stats.panics.Add(1)
			slog.Error("cycle panicked", "cycle", cycle, "panic", r)
		}
		e.snapshot = Capture(e.store.State(), at)
		e.stats.cycles.Add(1)
		e.running.Store(false)
		slog.Debug("cycle complete", "cycle", cycle, "firings", firings)
	}()

	current := Capture(e.store.State(), at)
	events := Diff(e.snapshot, current)
	if len(events) == 0 {
		return
	}
	if e.sink != nil {
		e.sink(cycle, events)
	}

	// All events are matched before any action executes.
	type job struct {
		ev ir.ChangeEvent
		a  ir.Automation
	}
	var jobs []job
	byBoard := make(map[string][]ir.Automation)
	for _, ev := range events {
		autos, ok := byBoard[ev.BoardID]
		if !ok {
			autos = e.automations.Enabled(ev.BoardID)
			byBoard[ev.BoardID] = autos
		}
		for _, a := range Match(ev, autos) {
			jobs = append(jobs, job{ev: ev, a: a})
		}
	}

	for _, j := range jobs {
		e.fire(cycle, at, j.ev, j.a)
		firings++
	}
}

// fire executes one automation against the event's card. A panic is
// contained here so the remaining automations of the cycle still run.
func (e *Engine) fire(cycle int64, at time.Time, ev ir.ChangeEvent, a ir.Automation) {
	f := ir.Firing{
		Cycle:          cycle,
		AutomationID:   a.ID,
		AutomationName: a.Name,
		BoardID:        a.BoardID,
		CardID:         ev.CardID,
		Event:          ev,
		At:             at,
	}

	var out Outcome
	func() {
		defer func() {
			if r := recover(); r != nil {
				e.stats.panics.Add(1)
				f.Error = recoveredPanic(ev.CardID, r).Error()
				slog.Error("automation panicked",
					"cycle", cycle,
					"automation_id", a.ID,
					"card_id", ev.CardID,
					"panic", r,
				)
			}
		}()
		e.executor.executeInto(&out, ev.CardID, a.Actions, at)
	}()
	f.Applied = out.Applied
	f.Skipped = out.Skipped

	f.Seq = e.seq.Next()
	id, err := ir.FiringID(f)
	if err != nil {
		slog.Error("firing id failed", "automation_id", a.ID, "card_id", ev.CardID, "error", err)
	}
	f.ID = id

	e.stats.firings.Add(1)
	e.stats.skipped.Add(int64(len(f.Skipped)))
	slog.Info("automation fired",
		"cycle", cycle,
		"automation_id", a.ID,
		"card_id", ev.CardID,
		"event", ev.Kind,
		"applied", len(f.Applied),
		"skipped", len(f.Skipped),
	)

	if e.recorder != nil {
		e.recorder.Record(f)
	}
}
