package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/cardflow/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult is the compiled form of a rules directory.
type CompilationResult struct {
	Automations []ir.Automation `json:"automations"`
	Files       int             `json:"files"`
	Boards      map[string]int  `json:"boards"` // board id → automation count
	Output      string          `json:"output,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile [rules-dir]",
		Short: "Compile CUE rules to automation JSON",
		Long: `Compile CUE automation rules to their JSON form.

Every automation is parsed, checked against the schema and emitted with
its trigger and actions in tagged form. The rules directory defaults to
rules_dir from the config file.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, opts.rulesDir(args), cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, rulesDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	if rulesDir == "" {
		return failWith(formatter, ExitCommandError, ErrCodeNotFound, "no rules directory given and rules_dir is not configured")
	}

	loaded, err := LoadRules(rulesDir)
	if err != nil {
		return loadFailure(formatter, err)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, rulesDir)
	for _, a := range loaded.Automations {
		formatter.VerboseLog("Compiled automation: %s (board %s)", a.ID, a.BoardID)
	}

	if !loaded.OK() {
		return outputProblems(formatter, "compilation", loaded.Problems)
	}

	result := CompilationResult{
		Automations: loaded.Automations,
		Files:       loaded.FileCount,
		Boards:      map[string]int{},
	}
	for _, a := range loaded.Automations {
		result.Boards[a.BoardID]++
	}

	if opts.Output != "" {
		if err := writeAutomationsFile(loaded.Automations, opts.Output); err != nil {
			return failWith(formatter, ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
		result.Output = opts.Output
	}
	opts.logger().Info("compiled rules", "dir", rulesDir, "automations", len(result.Automations), "files", result.Files)

	if formatter.JSON() {
		return formatter.Success(result)
	}

	formatter.Printf("✓ Compiled %d automation(s) from %d file(s)\n", len(result.Automations), result.Files)
	for _, id := range slices.Sorted(maps.Keys(result.Boards)) {
		formatter.Printf("  board %s: %d\n", id, result.Boards[id])
	}
	if result.Output != "" {
		formatter.Printf("  written to %s\n", result.Output)
	}
	return nil
}

func writeAutomationsFile(automations []ir.Automation, path string) error {
	data, err := json.MarshalIndent(automations, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// readAutomationsFile reads the JSON written by compile -o.
func readAutomationsFile(path string) ([]ir.Automation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var automations []ir.Automation
	if err := dec.Decode(&automations); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return automations, nil
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// loadFailure reports a LoadRules error as a command error.
func loadFailure(f *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return failWith(f, ExitCommandError, loadErr.Code, loadErr.Message)
	}
	return failWith(f, ExitCommandError, ErrCodeGeneric, err.Error())
}

// outputProblems reports compile or validation problems and returns the
// ExitFailure error.
func outputProblems(f *OutputFormatter, stage string, problems []Problem) error {
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("%s failed with %d error(s)", stage, len(problems)))
	if f.JSON() {
		if err := f.Failure(problems[0].Code, problems[0].Message, map[string]any{"errors": problems}); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintf(f.Writer, "✗ %s failed\n\n", stageTitles[stage])
	for _, p := range problems {
		if p.Pos != "" {
			fmt.Fprintf(f.Writer, "%s\n", p.Pos)
		}
		fmt.Fprintf(f.Writer, "  %s: %s: %s\n\n", p.Code, p.Field, p.Message)
	}
	return exitErr
}

var stageTitles = map[string]string{
	"compilation": "Compilation",
	"validation":  "Validation",
}
