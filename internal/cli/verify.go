package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cardflow/internal/ir"
	"github.com/roach88/cardflow/internal/store"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Database string
}

// IntegrityProblem is one firing that fails verification.
type IntegrityProblem struct {
	Seq     int64  `json:"seq"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

// VerifyResult holds the verification result for the whole log.
type VerifyResult struct {
	Firings  int64              `json:"firings"`
	Valid    bool               `json:"valid"`
	Problems []IntegrityProblem `json:"problems,omitempty"`
	Orphans  []string           `json:"orphans,omitempty"` // automation ids no longer stored
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the firing log's integrity",
		Long: `Re-read the firing log in order and check it.

Every firing's content-addressed id is recomputed from its automation,
card, cycle, instant and triggering event and must equal the stored id.
Sequence numbers must be strictly increasing. Firings of automations that
were removed since are reported but do not fail verification.

Exit codes:
  0 - Log is consistent
  1 - One or more firings failed verification
  2 - Command error (database not found, etc.)

Examples:
  cardflow verify --db ./cardflow.db
  cardflow verify --db ./cardflow.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default database from config)")

	return cmd
}

func runVerify(opts *VerifyOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	dbPath := opts.database(opts.Database)
	if dbPath == "" {
		return failWith(formatter, ExitCommandError, ErrCodeDatabase, "--db is required (or set database in the config file)")
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return failWith(formatter, ExitCommandError, ErrCodeDatabase, fmt.Sprintf("failed to open database: %v", err))
	}
	defer closeStore(st, opts.logger())

	ctx := commandContext(cmd)
	firings, err := st.ReadFirings(ctx, store.FiringFilter{})
	if err != nil {
		return failWith(formatter, ExitCommandError, ErrCodeDatabase, fmt.Sprintf("failed to read firings: %v", err))
	}
	automations, err := st.ReadAutomations(ctx, "")
	if err != nil {
		return failWith(formatter, ExitCommandError, ErrCodeDatabase, fmt.Sprintf("failed to read automations: %v", err))
	}

	result := verifyFirings(firings, automations)
	opts.logger().Info("verified firing log", "db", dbPath, "firings", result.Firings, "problems", len(result.Problems))

	if formatter.JSON() {
		if result.Valid {
			if err := formatter.Success(result); err != nil {
				return err
			}
		} else if err := formatter.Failure(ErrCodeIntegrity, fmt.Sprintf("%d firing(s) failed verification", len(result.Problems)), result); err != nil {
			return err
		}
	} else {
		printVerify(formatter, result)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d firing(s) failed verification", len(result.Problems)))
	}
	return nil
}

// verifyFirings checks ids and ordering. firings must be in log order.
func verifyFirings(firings []ir.Firing, automations []ir.Automation) VerifyResult {
	result := VerifyResult{Firings: int64(len(firings)), Valid: true}

	stored := make(map[string]bool, len(automations))
	for _, a := range automations {
		stored[a.ID] = true
	}
	orphaned := map[string]bool{}

	var lastSeq int64
	for i, f := range firings {
		problem := func(format string, args ...any) {
			result.Problems = append(result.Problems, IntegrityProblem{Seq: f.Seq, ID: f.ID, Message: fmt.Sprintf(format, args...)})
		}

		id, err := ir.FiringID(f)
		switch {
		case err != nil:
			problem("cannot compute id: %v", err)
		case id != f.ID:
			problem("id mismatch: recomputed %s", id)
		}
		if i > 0 && f.Seq <= lastSeq {
			problem("seq %d does not follow %d", f.Seq, lastSeq)
		}
		lastSeq = f.Seq

		if !stored[f.AutomationID] && !orphaned[f.AutomationID] {
			orphaned[f.AutomationID] = true
			result.Orphans = append(result.Orphans, f.AutomationID)
		}
	}

	result.Valid = len(result.Problems) == 0
	return result
}

func printVerify(f *OutputFormatter, result VerifyResult) {
	if result.Firings == 0 {
		f.Printf("No firings found in database.\n")
		return
	}
	for _, p := range result.Problems {
		f.Printf("✗ #%d %s: %s\n", p.Seq, p.ID, p.Message)
	}
	for _, id := range result.Orphans {
		f.Printf("ℹ firings of removed automation %s\n", id)
	}
	if result.Valid {
		f.Printf("✓ %d firing(s) verified\n", result.Firings)
		return
	}
	f.Printf("✗ %d of %d firing(s) failed verification\n", len(result.Problems), result.Firings)
}
