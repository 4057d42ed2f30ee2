package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/cardflow/internal/ir"
	"github.com/roach88/cardflow/internal/store"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Database string
	JSON     string // compiled automations from `compile -o`
	Prune    bool   // delete stored automations of the imported boards that are not in the import
}

// ImportResult reports what the import wrote.
type ImportResult struct {
	Imported []string `json:"imported"`
	Pruned   []string `json:"pruned,omitempty"`
	Database string   `json:"database"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import [rules-dir]",
		Short: "Compile rules and store them in the database",
		Long: `Compile rules and upsert every automation into the database.

Automations keep their declaration order. Re-importing an automation
replaces the stored copy, including its enabled flag. With --prune, stored
automations on the imported boards that are missing from the import are
deleted. --json imports the output of "cardflow compile -o" instead of
compiling a rules directory.

Examples:
  cardflow import ./rules --db ./cardflow.db
  cardflow import --json automations.json --db ./cardflow.db --prune`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default database from config)")
	cmd.Flags().StringVar(&opts.JSON, "json", "", "import compiled automations JSON instead of a rules directory")
	cmd.Flags().BoolVar(&opts.Prune, "prune", false, "delete stored automations of imported boards missing from the import")

	return cmd
}

func runImport(opts *ImportOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	log := opts.logger()

	dbPath := opts.database(opts.Database)
	if dbPath == "" {
		return failWith(formatter, ExitCommandError, ErrCodeDatabase, "--db is required (or set database in the config file)")
	}

	automations, err := importSource(opts, args, formatter)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	st, err := store.Open(dbPath)
	if err != nil {
		return failWith(formatter, ExitCommandError, ErrCodeDatabase, fmt.Sprintf("failed to open database: %v", err))
	}
	defer closeStore(st, log)

	if err := st.WriteAutomations(ctx, automations); err != nil {
		return failWith(formatter, ExitCommandError, ErrCodeDatabase, fmt.Sprintf("failed to write automations: %v", err))
	}

	result := ImportResult{Imported: make([]string, 0, len(automations)), Database: dbPath}
	for _, a := range automations {
		result.Imported = append(result.Imported, a.ID)
	}

	if opts.Prune {
		pruned, err := pruneAutomations(cmd, st, automations)
		if err != nil {
			return failWith(formatter, ExitCommandError, ErrCodeDatabase, fmt.Sprintf("failed to prune automations: %v", err))
		}
		result.Pruned = pruned
	}
	log.Info("imported automations", "db", dbPath, "imported", len(result.Imported), "pruned", len(result.Pruned))

	if formatter.JSON() {
		return formatter.Success(result)
	}
	formatter.Printf("✓ Imported %d automation(s) into %s\n", len(result.Imported), dbPath)
	for _, id := range result.Pruned {
		formatter.Printf("  pruned %s\n", id)
	}
	return nil
}

// importSource compiles the rules directory, or reads --json.
func importSource(opts *ImportOptions, args []string, f *OutputFormatter) ([]ir.Automation, error) {
	if opts.JSON != "" {
		automations, err := readAutomationsFile(opts.JSON)
		if err != nil {
			return nil, failWith(f, ExitCommandError, ErrCodeNotFound, fmt.Sprintf("failed to read %s: %v", opts.JSON, err))
		}
		if problems := validationProblems(automations); len(problems) > 0 {
			return nil, outputProblems(f, "validation", problems)
		}
		return automations, nil
	}

	rulesDir := opts.rulesDir(args)
	if rulesDir == "" {
		return nil, failWith(f, ExitCommandError, ErrCodeNotFound, "no rules directory given and rules_dir is not configured")
	}
	loaded, err := LoadRules(rulesDir)
	if err != nil {
		return nil, loadFailure(f, err)
	}
	if !loaded.OK() {
		return nil, outputProblems(f, "compilation", loaded.Problems)
	}
	return loaded.Automations, nil
}

func pruneAutomations(cmd *cobra.Command, st *store.Store, imported []ir.Automation) ([]string, error) {
	ctx := commandContext(cmd)
	var (
		boards []string
		keep   = make(map[string]bool, len(imported))
	)
	for _, a := range imported {
		keep[a.ID] = true
		if !slices.Contains(boards, a.BoardID) {
			boards = append(boards, a.BoardID)
		}
	}

	var pruned []string
	for _, boardID := range boards {
		stored, err := st.ReadAutomations(ctx, boardID)
		if err != nil {
			return pruned, err
		}
		for _, a := range stored {
			if keep[a.ID] {
				continue
			}
			if err := st.DeleteAutomation(ctx, a.ID); err != nil {
				return pruned, err
			}
			pruned = append(pruned, a.ID)
		}
	}
	return pruned, nil
}
