package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cardflow/internal/compiler"
	"github.com/roach88/cardflow/internal/harness"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Board  string // board fixture for reference checks
	Strict bool   // treat warnings as failures
}

// ValidationResult holds validation results. Errors fail the command;
// reference and loop warnings fail it only with --strict.
type ValidationResult struct {
	Valid       bool                        `json:"valid"`
	Automations int                         `json:"automations"`
	Errors      []Problem                   `json:"errors,omitempty"`
	References  []compiler.ReferenceWarning `json:"references,omitempty"`
	Cascades    []compiler.CascadeWarning   `json:"cascades,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [rules-dir]",
		Short: "Check rules for errors, dangling references and cascades",
		Long: `Validate CUE automation rules.

Compiles and schema-checks every automation, then reports cascades: one
automation producing a change another triggers on. Cascades never run
(writes made while automations execute are absorbed), so they are reported
as hints. With --board, every board, column and label id named by a rule
is resolved against the fixture.

Exit codes:
  0 - Rules valid
  1 - Errors found (or warnings with --strict)
  2 - Command error (missing directory, bad fixture)

Examples:
  cardflow validate ./rules
  cardflow validate ./rules --board board.yaml --strict`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, opts.rulesDir(args), cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Board, "board", "", "board fixture YAML for reference checks")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail on reference and loop warnings")

	return cmd
}

func runValidate(opts *ValidateOptions, rulesDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	if rulesDir == "" {
		return failWith(formatter, ExitCommandError, ErrCodeNotFound, "no rules directory given and rules_dir is not configured")
	}

	loaded, err := LoadRules(rulesDir)
	if err != nil {
		return loadFailure(formatter, err)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, rulesDir)

	if !loaded.OK() {
		return outputProblems(formatter, "validation", loaded.Problems)
	}

	result := ValidationResult{
		Valid:       true,
		Automations: len(loaded.Automations),
		Cascades:    compiler.AnalyzeCascades(loaded.Automations),
	}

	if opts.Board != "" {
		fixture, err := harness.LoadBoardFixture(opts.Board)
		if err != nil {
			return failWith(formatter, ExitCommandError, ErrCodeNotFound, err.Error())
		}
		state, err := harness.FixtureState(fixture)
		if err != nil {
			return failWith(formatter, ExitCommandError, ErrCodeScenario, fmt.Sprintf("board fixture: %v", err))
		}
		result.References = compiler.CheckReferences(loaded.Automations, state)
	}

	log := opts.logger()
	log.Info("validated rules",
		"dir", rulesDir,
		"automations", result.Automations,
		"references", len(result.References),
		"cascades", len(result.Cascades))

	strictFailures := len(result.References) + countLoops(result.Cascades)
	if opts.Strict && strictFailures > 0 {
		result.Valid = false
	}

	if formatter.JSON() {
		if !result.Valid {
			if err := formatter.Failure(ErrCodeStrictCheck, fmt.Sprintf("%d warning(s) with --strict", strictFailures), result); err != nil {
				return err
			}
		} else if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		printValidation(formatter, result)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d warning(s) under --strict", strictFailures))
	}
	return nil
}

func countLoops(cascades []compiler.CascadeWarning) int {
	n := 0
	for _, c := range cascades {
		if c.Level == "warning" {
			n++
		}
	}
	return n
}

func printValidation(f *OutputFormatter, result ValidationResult) {
	if result.Valid {
		f.Printf("✓ All rules valid (%d automation(s))\n", result.Automations)
	} else {
		f.Printf("✗ Validation failed\n")
	}
	if len(result.References) > 0 {
		f.Printf("\nDangling references:\n")
		for _, w := range result.References {
			f.Printf("  ⚠ %s\n", w.String())
		}
	}
	if len(result.Cascades) > 0 {
		f.Printf("\nCascades:\n")
		for _, c := range result.Cascades {
			marker := "ℹ"
			if c.Level == "warning" {
				marker = "⚠"
			}
			f.Printf("  %s %s\n", marker, c.Message)
		}
	}
}

// ValidateRulesDir validates a rules directory without producing output.
func ValidateRulesDir(rulesDir string) ([]Problem, error) {
	loaded, err := LoadRules(rulesDir)
	if err != nil {
		return nil, err
	}
	return loaded.Problems, nil
}
