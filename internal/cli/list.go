package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/cardflow/internal/ir"
	"github.com/roach88/cardflow/internal/store"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Database string
	Board    string
	Enabled  bool // only enabled automations
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored automations",
		Long: `List the automations stored in the database in declaration order.

Examples:
  cardflow list --db ./cardflow.db
  cardflow list --db ./cardflow.db --board b1 --enabled --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default database from config)")
	cmd.Flags().StringVar(&opts.Board, "board", "", "only automations of this board")
	cmd.Flags().BoolVar(&opts.Enabled, "enabled", false, "only enabled automations")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
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

	automations, err := st.ReadAutomations(commandContext(cmd), opts.Board)
	if err != nil {
		return failWith(formatter, ExitCommandError, ErrCodeDatabase, fmt.Sprintf("failed to read automations: %v", err))
	}
	if opts.Enabled {
		kept := automations[:0]
		for _, a := range automations {
			if a.Enabled {
				kept = append(kept, a)
			}
		}
		automations = kept
	}

	if formatter.JSON() {
		if automations == nil {
			automations = []ir.Automation{}
		}
		return formatter.Success(automations)
	}

	if len(automations) == 0 {
		formatter.Printf("No automations found.\n")
		return nil
	}
	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBOARD\tENABLED\tWHEN\tTHEN")
	for _, a := range automations {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\n", a.ID, a.BoardID, a.Enabled, describeTrigger(a.Trigger), describeActions(a.Actions))
	}
	return tw.Flush()
}

// describeTrigger renders a trigger as kind[=param].
func describeTrigger(t ir.Trigger) string {
	spec := ir.SpecOfTrigger(t)
	switch {
	case spec.ColumnID != "":
		return fmt.Sprintf("%s=%s", spec.Type, spec.ColumnID)
	case spec.Priority != "":
		return fmt.Sprintf("%s=%s", spec.Type, spec.Priority)
	case spec.LabelID != "":
		return fmt.Sprintf("%s=%s", spec.Type, spec.LabelID)
	}
	return string(spec.Type)
}

// describeActions renders an action list as comma-separated kind[=param].
func describeActions(actions []ir.Action) string {
	parts := make([]string, 0, len(actions))
	for _, act := range actions {
		spec := ir.SpecOfAction(act)
		switch {
		case spec.ColumnID != "":
			parts = append(parts, fmt.Sprintf("%s=%s", spec.Type, spec.ColumnID))
		case spec.Priority != "":
			parts = append(parts, fmt.Sprintf("%s=%s", spec.Type, spec.Priority))
		case spec.LabelID != "":
			parts = append(parts, fmt.Sprintf("%s=%s", spec.Type, spec.LabelID))
		case spec.Days != nil:
			parts = append(parts, fmt.Sprintf("%s=%d", spec.Type, *spec.Days))
		default:
			parts = append(parts, string(spec.Type))
		}
	}
	return strings.Join(parts, ",")
}
