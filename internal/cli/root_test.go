package cli

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cardflow/internal/config"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "cardflow", cmd.Use)
	assert.Contains(t, cmd.Long, "automation rules")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"compile", "validate", "run", "test", "import", "list", "enable", "disable", "remove", "trace", "verify"}

	for _, name := range commands {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
			assert.True(t, sub.SilenceUsage, "%s prints its own errors", name)
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		command string
		flags   []string
	}{
		{"compile", []string{"output"}},
		{"validate", []string{"board", "strict"}},
		{"run", []string{"db"}},
		{"test", []string{"update", "filter"}},
		{"import", []string{"db", "json", "prune"}},
		{"list", []string{"db", "board", "enabled"}},
		{"trace", []string{"db", "board", "card", "automation", "limit"}},
		{"verify", []string{"db"}},
		{"enable", []string{"db"}},
	}
	root := NewRootCommand()
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			cmd, _, err := root.Find([]string{tt.command})
			require.NoError(t, err)
			for _, flag := range tt.flags {
				assert.NotNil(t, cmd.Flags().Lookup(flag), "--%s", flag)
			}
		})
	}
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	_, _, err := execute(t, "--format", "invalid", "compile", ".")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	rules := rulesDir(t, workflowRules)
	cfg := writeFile(t, dir, "cardflow.yaml", "rules_dir: "+rules+"\nlog:\n  level: debug\n  format: json\n")

	// rules_dir stands in for the missing argument; debug JSON logs go to stderr.
	out, logs, err := execute(t, "--config", cfg, "compile")
	require.NoError(t, err)
	assert.Contains(t, out, "Compiled 3 automation(s)")
	assert.Contains(t, logs, `"msg":"compiled rules"`)
}

func TestConfigFile_FromEnvironment(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "cardflow.db")
	cfg := writeFile(t, dir, "cardflow.yaml", "database: "+db+"\n")

	stdout, _, err := execute(t, "--config", cfg, "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No automations found.")

	t.Setenv(config.EnvConfig, cfg)
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"verify"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	require.NoError(t, cmd.Execute())
}

func TestConfigFile_Errors(t *testing.T) {
	_, _, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	bad := writeFile(t, t.TempDir(), "cardflow.yaml", "log:\n  level: loud\n")
	_, _, err = execute(t, "--config", bad, "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.level")
}

func TestVerboseLogsDebug(t *testing.T) {
	_, logs, err := execute(t, "-v", "run", scenarioFile(t))
	require.NoError(t, err)
	assert.Contains(t, logs, "level=DEBUG")
}
