package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cardflow/internal/store"
)

// ManageOptions holds flags shared by enable, disable and remove.
type ManageOptions struct {
	*RootOptions
	Database string
}

// ManageResult reports the automation a command changed.
type ManageResult struct {
	ID      string `json:"id"`
	Action  string `json:"action"` // "enabled", "disabled" or "removed"
	Enabled *bool  `json:"enabled,omitempty"`
}

// NewEnableCommand creates the enable command.
func NewEnableCommand(rootOpts *RootOptions) *cobra.Command {
	return newManageCommand(rootOpts, "enable", "Enable a stored automation", func(o *ManageOptions, id string, cmd *cobra.Command) error {
		return setEnabled(o, id, true, cmd)
	})
}

// NewDisableCommand creates the disable command. A disabled automation is
// kept but never evaluated.
func NewDisableCommand(rootOpts *RootOptions) *cobra.Command {
	return newManageCommand(rootOpts, "disable", "Disable a stored automation", func(o *ManageOptions, id string, cmd *cobra.Command) error {
		return setEnabled(o, id, false, cmd)
	})
}

// NewRemoveCommand creates the remove command. The automation's firings
// stay in the log.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return newManageCommand(rootOpts, "remove", "Delete a stored automation", removeAutomation)
}

func newManageCommand(rootOpts *RootOptions, use, short string, run func(*ManageOptions, string, *cobra.Command) error) *cobra.Command {
	opts := &ManageOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           use + " <automation-id>",
		Short:         short,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, args[0], cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default database from config)")
	return cmd
}

func setEnabled(opts *ManageOptions, id string, enabled bool, cmd *cobra.Command) error {
	action := "disabled"
	if enabled {
		action = "enabled"
	}
	return withStore(opts, cmd, func(st *store.Store, f *OutputFormatter) error {
		if err := st.SetAutomationEnabled(commandContext(cmd), id, enabled); err != nil {
			return manageFailure(f, id, err)
		}
		return manageSuccess(opts, f, ManageResult{ID: id, Action: action, Enabled: &enabled})
	})
}

func removeAutomation(opts *ManageOptions, id string, cmd *cobra.Command) error {
	return withStore(opts, cmd, func(st *store.Store, f *OutputFormatter) error {
		if err := st.DeleteAutomation(commandContext(cmd), id); err != nil {
			return manageFailure(f, id, err)
		}
		return manageSuccess(opts, f, ManageResult{ID: id, Action: "removed"})
	})
}

// withStore opens the configured database for the duration of fn.
func withStore(opts *ManageOptions, cmd *cobra.Command, fn func(*store.Store, *OutputFormatter) error) error {
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
	return fn(st, formatter)
}

func manageFailure(f *OutputFormatter, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return failWith(f, ExitFailure, ErrCodeNotFound, fmt.Sprintf("automation %s not found", id))
	}
	return failWith(f, ExitCommandError, ErrCodeDatabase, err.Error())
}

func manageSuccess(opts *ManageOptions, f *OutputFormatter, r ManageResult) error {
	opts.logger().Info("automation updated", "automation_id", r.ID, "action", r.Action)
	if f.JSON() {
		return f.Success(r)
	}
	f.Printf("✓ %s %s\n", r.ID, r.Action)
	return nil
}
