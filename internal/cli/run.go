package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/cardflow/internal/engine"
	"github.com/roach88/cardflow/internal/harness"
	"github.com/roach88/cardflow/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string // optional firing log
}

// RunResult summarizes one scenario run.
type RunResult struct {
	Scenario string               `json:"scenario"`
	Pass     bool                 `json:"pass"`
	Errors   []string             `json:"errors,omitempty"`
	Trace    []harness.TraceEvent `json:"trace"`
	Stats    engine.Stats         `json:"stats"`
	Database string               `json:"database,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run one scenario and print its trace",
		Long: `Run a scenario against an in-memory board and print the trace.

The scenario's rules are compiled, its board fixture is built and every
step is applied with the automation engine attached. With --db, the rules
are imported into the database and every firing is appended to its log,
continuing the log's sequence numbers.

Firing ids carry no run identity. A scenario's cycles run at its fixed
"now", so a firing that matches an earlier run's cycle, instant,
automation, card and event has the same id and is not appended again.
Re-running a scenario therefore leaves the log unchanged, and different
scenarios sharing a --db can collapse each other's firings. Give each
scenario its own database to keep every run.

Exit codes:
  0 - Scenario passed
  1 - One or more assertions failed
  2 - Command error (bad scenario, database error)

Examples:
  cardflow run scenarios/done.yaml
  cardflow run scenarios/done.yaml --db ./cardflow.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite firing log (default database from config)")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	log := opts.logger()

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return failWith(formatter, ExitCommandError, ErrCodeScenario, err.Error())
	}

	runOpts := []harness.Option{harness.WithLogger(log)}

	dbPath := opts.database(opts.Database)
	if dbPath != "" {
		ctx := commandContext(cmd)
		st, err := store.Open(dbPath)
		if err != nil {
			return failWith(formatter, ExitCommandError, ErrCodeDatabase, fmt.Sprintf("failed to open database: %v", err))
		}
		defer closeStore(st, log)

		dbOpts, err := persistOptions(ctx, st, scenario)
		if err != nil {
			return failWith(formatter, ExitCommandError, ErrCodeDatabase, err.Error())
		}
		runOpts = append(runOpts, dbOpts...)
	}

	log.Info("running scenario", "scenario", scenario.Name, "steps", len(scenario.Steps), "db", dbPath)
	result, err := harness.Run(scenario, runOpts...)
	if err != nil {
		return failWith(formatter, ExitCommandError, ErrCodeScenario, fmt.Sprintf("execution failed: %v", err))
	}
	log.Info("scenario finished",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"cycles", result.Stats.Cycles,
		"firings", result.Stats.Firings,
		"dropped", result.Stats.Dropped)

	out := RunResult{
		Scenario: scenario.Name,
		Pass:     result.Pass,
		Errors:   result.Errors,
		Trace:    result.Trace,
		Stats:    result.Stats,
		Database: dbPath,
	}

	if formatter.JSON() {
		if out.Pass {
			if err := formatter.Success(out); err != nil {
				return err
			}
		} else if err := formatter.Failure(ErrCodeTestFailed, fmt.Sprintf("%d assertion(s) failed", len(out.Errors)), out); err != nil {
			return err
		}
	} else {
		printRun(formatter, out)
	}

	if !out.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

// persistOptions imports the scenario's rules into st and returns harness
// options that append firings to its log after the last recorded seq.
func persistOptions(ctx context.Context, st *store.Store, scenario *harness.Scenario) ([]harness.Option, error) {
	autos, err := harness.LoadRules(scenario.Rules)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	if err := st.WriteAutomations(ctx, autos); err != nil {
		return nil, fmt.Errorf("failed to import rules: %w", err)
	}
	last, err := st.LastFiringSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read firing log: %w", err)
	}
	return []harness.Option{
		harness.WithRecorder(st.Recorder(ctx)),
		harness.WithFiringSeq(last),
	}, nil
}

func printRun(f *OutputFormatter, out RunResult) {
	f.Printf("Scenario: %s\n", out.Scenario)
	for _, ev := range out.Trace {
		f.Printf("  %s\n", ev.String())
	}
	f.Printf("\n%d cycle(s), %d firing(s), %d skipped action(s), %d dropped notification(s)\n",
		out.Stats.Cycles, out.Stats.Firings, out.Stats.Skipped, out.Stats.Dropped)
	if out.Database != "" {
		f.Printf("Firings recorded to %s\n", out.Database)
	}
	if out.Pass {
		f.Printf("✓ Passed\n")
		return
	}
	f.Printf("✗ Failed\n")
	for _, e := range out.Errors {
		f.Printf("  %s\n", e)
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func closeStore(st *store.Store, log *slog.Logger) {
	if err := st.Close(); err != nil {
		log.Error("error closing database", "error", err)
	}
}
