package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/cardflow/internal/board"
	"github.com/roach88/cardflow/internal/compiler"
	"github.com/roach88/cardflow/internal/engine"
	"github.com/roach88/cardflow/internal/ir"
	"github.com/roach88/cardflow/internal/registry"
	"github.com/roach88/cardflow/internal/testutil"
)

// Harness runs one scenario against a fresh board store and a real engine.
// The clock is manual and ids are sequential, so traces are reproducible.
type Harness struct {
	store    *board.Store
	engine   *engine.Engine
	clock    *testutil.ManualTime
	result   *Result
	recorder engine.Recorder
	logger   *slog.Logger
}

type options struct {
	recorder  engine.Recorder
	firingSeq int64
	logger    *slog.Logger
}

// Option configures Run.
type Option func(*options)

// WithRecorder forwards every firing to r after it is traced.
func WithRecorder(r engine.Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// WithFiringSeq continues firing seq numbers after last.
func WithFiringSeq(last int64) Option {
	return func(o *options) {
		o.firingSeq = last
	}
}

// WithLogger sets the logger for step progress. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// LoadRules compiles and validates the CUE files at paths, in order.
// Every compile and validation error is collected into one error.
func LoadRules(paths []string) ([]ir.Automation, error) {
	ctx := cuecontext.New()

	var (
		autos []ir.Automation
		errs  []error
	)
	for _, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read rules: %w", err)
		}
		compiled, compileErrs := compiler.CompileSource(ctx, path, src)
		errs = append(errs, compileErrs...)
		autos = append(autos, compiled...)
	}
	for _, verr := range compiler.ValidateAll(autos) {
		errs = append(errs, verr)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return autos, nil
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
//  1. Compile and register the scenario's rules
//  2. Seed the board fixture (no events)
//  3. Start the engine and apply each step, tracing events and firings
//  4. Evaluate assertions against the trace and the final board
//
// An error means the scenario could not run; failed assertions are
// reported through Result.Pass and Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	now := DefaultNow
	if scenario.Now != "" {
		t, err := time.Parse(time.RFC3339, scenario.Now)
		if err != nil {
			return nil, fmt.Errorf("now: %w", err)
		}
		now = t.UTC()
	}

	autos, err := LoadRules(scenario.Rules)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	reg, err := registry.New(autos...)
	if err != nil {
		return nil, fmt.Errorf("failed to register rules: %w", err)
	}

	clock := testutil.NewManualTime(now)
	st := board.New(
		board.WithIDGenerator(testutil.NewSequentialIDs("gen")),
		board.WithClock(clock.Now),
	)
	if err := BuildBoard(st, scenario.Board); err != nil {
		return nil, fmt.Errorf("failed to build board: %w", err)
	}

	h := &Harness{
		store:    st,
		clock:    clock,
		result:   NewResult(),
		recorder: o.recorder,
		logger:   o.logger,
	}
	h.engine = engine.New(st, reg,
		engine.WithTimeSource(clock),
		engine.WithClock(engine.NewClockAt(o.firingSeq)),
		engine.WithEventSink(h.traceEvents),
		engine.WithRecorder(engine.RecorderFunc(h.traceFiring)),
	)
	h.engine.Start()
	defer h.engine.Stop()

	for i, step := range scenario.Steps {
		if err := h.apply(i, step); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Op(), err)
		}
	}
	h.result.Stats = h.engine.Stats()

	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions, st) {
		h.result.AddError(msg)
	}
	return h.result, nil
}

func (h *Harness) traceEvents(cycle int64, events []ir.ChangeEvent) {
	for _, ev := range events {
		h.result.AddEventTrace(cycle, ev)
	}
}

func (h *Harness) traceFiring(f ir.Firing) {
	h.result.AddFiringTrace(f)
	if h.recorder != nil {
		h.recorder.Record(f)
	}
}

// apply traces the step, then performs it. Store mutations run the engine
// cycle synchronously, so the cycle's entries follow the step's.
func (h *Harness) apply(index int, s Step) error {
	op := s.Op()
	h.result.AddStepTrace(index, op, s.CardID())
	h.logger.Info("applying step", "step", index, "op", op, "card_id", s.CardID())

	switch op {
	case StepCreateCard:
		in, err := s.CreateCard.input()
		if err != nil {
			return err
		}
		_, err = h.store.CreateCard(in)
		return err

	case StepUpdateCard:
		p, err := s.UpdateCard.patch()
		if err != nil {
			return err
		}
		_, err = h.store.UpdateCard(s.UpdateCard.Card, p)
		return err

	case StepMoveCard:
		_, err := h.store.MoveCard(s.MoveCard.Card, s.MoveCard.Column)
		return err

	case StepAddLabel:
		_, err := h.store.AddCardLabel(s.AddLabel.Card, s.AddLabel.Label)
		return err

	case StepRemoveLabel:
		_, err := h.store.RemoveCardLabel(s.RemoveLabel.Card, s.RemoveLabel.Label)
		return err

	case StepAddSubtask:
		a := s.AddSubtask
		_, err := h.store.AddSubtask(a.Card, ir.Subtask{ID: a.ID, Title: a.Title, Completed: a.Completed})
		return err

	case StepCompleteSubtask:
		c := s.CompleteSubtask
		completed := true
		if c.Completed != nil {
			completed = *c.Completed
		}
		_, err := h.store.SetSubtaskCompleted(c.Card, c.Subtask, completed)
		return err

	case StepArchiveCard:
		return h.store.ArchiveCard(s.ArchiveCard.Card)

	case StepDeleteCard:
		return h.store.DeleteCard(s.DeleteCard.Card)

	case StepAdvance:
		d, err := time.ParseDuration(s.Advance)
		if err != nil {
			return err
		}
		h.clock.Advance(d)
		return nil

	case StepProcess:
		if !h.engine.Process() {
			return fmt.Errorf("process absorbed by a running cycle")
		}
		return nil
	}
	return fmt.Errorf("no operation set")
}

func (u *UpdateCardStep) patch() (board.CardPatch, error) {
	p := board.CardPatch{
		Title:        u.Title,
		Description:  u.Description,
		ClearDueDate: u.ClearDue,
		Completed:    u.Completed,
	}
	if u.Priority != nil {
		prio := ir.Priority(*u.Priority)
		p.Priority = &prio
	}
	if u.Due != nil {
		due, err := parseDue(*u.Due)
		if err != nil {
			return board.CardPatch{}, err
		}
		p.DueDate = &due
	}
	return p, nil
}
