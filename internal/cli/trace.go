package cli

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cardflow/internal/ir"
	"github.com/roach88/cardflow/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database   string
	Board      string
	Card       string
	Automation string
	Limit      int
}

// TraceResult holds the firing log matching the filter.
type TraceResult struct {
	Firings []ir.Firing `json:"firings"`
	Stats   TraceStats  `json:"stats"`
}

// TraceStats summarizes the returned firings.
type TraceStats struct {
	Total       int            `json:"total"`
	OK          int            `json:"ok"`
	WithSkips   int            `json:"with_skips"`
	WithErrors  int            `json:"with_errors"`
	Cycles      int            `json:"cycles"`
	Automations map[string]int `json:"automations"` // automation id → firings
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the recorded firing log",
		Long: `Show which automations ran on which cards, in seq order.

Each firing lists the change event that triggered it, the actions that were
applied and any that were skipped with their reason. Firings are grouped
by the engine cycle that produced them.

Examples:
  cardflow trace --db ./cardflow.db
  cardflow trace --db ./cardflow.db --card c1
  cardflow trace --db ./cardflow.db --automation done-completes --limit 20 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default database from config)")
	cmd.Flags().StringVar(&opts.Board, "board", "", "only firings on this board")
	cmd.Flags().StringVar(&opts.Card, "card", "", "only firings on this card")
	cmd.Flags().StringVar(&opts.Automation, "automation", "", "only firings of this automation")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of firings (0 = all)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	if opts.Limit < 0 {
		return failWith(formatter, ExitCommandError, ErrCodeGeneric, "--limit must not be negative")
	}
	dbPath := opts.database(opts.Database)
	if dbPath == "" {
		return failWith(formatter, ExitCommandError, ErrCodeDatabase, "--db is required (or set database in the config file)")
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return failWith(formatter, ExitCommandError, ErrCodeDatabase, fmt.Sprintf("failed to open database: %v", err))
	}
	defer closeStore(st, opts.logger())

	firings, err := st.ReadFirings(commandContext(cmd), store.FiringFilter{
		BoardID:      opts.Board,
		CardID:       opts.Card,
		AutomationID: opts.Automation,
		Limit:        opts.Limit,
	})
	if err != nil {
		return failWith(formatter, ExitCommandError, ErrCodeDatabase, fmt.Sprintf("failed to read firings: %v", err))
	}
	if firings == nil {
		firings = []ir.Firing{}
	}

	result := TraceResult{Firings: firings, Stats: traceStats(firings)}
	if formatter.JSON() {
		return formatter.Success(result)
	}
	printTrace(formatter, result)
	return nil
}

func traceStats(firings []ir.Firing) TraceStats {
	stats := TraceStats{Total: len(firings), Automations: map[string]int{}}
	cycles := map[int64]bool{}
	for _, f := range firings {
		cycles[f.Cycle] = true
		stats.Automations[f.AutomationID]++
		if f.OK() {
			stats.OK++
		}
		if len(f.Skipped) > 0 {
			stats.WithSkips++
		}
		if f.Error != "" {
			stats.WithErrors++
		}
	}
	stats.Cycles = len(cycles)
	return stats
}

func printTrace(f *OutputFormatter, result TraceResult) {
	if len(result.Firings) == 0 {
		f.Printf("No firings found.\n")
		return
	}

	var lastCycle int64 = -1
	for _, fr := range result.Firings {
		if fr.Cycle != lastCycle {
			f.Printf("cycle %d  %s\n", fr.Cycle, fr.At.UTC().Format("2006-01-02T15:04:05Z"))
			lastCycle = fr.Cycle
		}
		f.Printf("  #%d %s on %s (%s)\n", fr.Seq, fr.AutomationID, fr.CardID, describeEvent(fr.Event))
		f.Printf("     applied: %s\n", joinKinds(fr.Applied))
		for _, s := range fr.Skipped {
			f.Printf("     skipped[%d] %s: %s\n", s.Index, s.Kind, s.Reason)
		}
		if fr.Error != "" {
			f.Printf("     error: %s\n", fr.Error)
		}
		if f.Verbose {
			f.Printf("     id: %s\n", fr.ID)
		}
	}

	s := result.Stats
	f.Printf("\n%d firing(s) in %d cycle(s): %d ok, %d with skipped actions, %d with errors\n",
		s.Total, s.Cycles, s.OK, s.WithSkips, s.WithErrors)
	for _, id := range slices.Sorted(maps.Keys(s.Automations)) {
		f.Printf("  %s: %d\n", id, s.Automations[id])
	}
}

// describeEvent renders an event kind with its context, keys sorted.
func describeEvent(ev ir.ChangeEvent) string {
	ctx := ev.Context()
	if len(ctx) == 0 {
		return string(ev.Kind)
	}
	parts := make([]string, 0, len(ctx))
	for _, k := range slices.Sorted(maps.Keys(ctx)) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, ctx[k]))
	}
	return string(ev.Kind) + " " + strings.Join(parts, " ")
}

func joinKinds(kinds []ir.ActionKind) string {
	if len(kinds) == 0 {
		return "-"
	}
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}
