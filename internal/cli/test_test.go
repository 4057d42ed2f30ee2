package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenariosDir holds the passing scenario plus a second copy named
// second.yaml.
func scenariosDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "rules.cue", workflowRules)
	writeFile(t, dir, "move_to_done.yaml", scenarioDoc)
	writeFile(t, dir, "second.yaml", strings.Replace(scenarioDoc, "name: move_to_done", "name: second", 1))
	return dir
}

func TestTest_GoldenLifecycle(t *testing.T) {
	dir := scenariosDir(t)
	golden := filepath.Join(dir, "golden", "move_to_done.golden")

	// No golden file yet: assertions decide.
	out, _, err := execute(t, "--format", "json", "test", dir)
	require.NoError(t, err)
	var result TestResult
	decode(t, out, &result)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Passed)
	require.Len(t, result.Scenarios, 2)
	assert.Equal(t, goldenMissing, result.Scenarios[0].Golden)

	out, _, err = execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ move_to_done (golden updated)")
	assert.FileExists(t, golden)

	out, _, err = execute(t, "--format", "json", "test", dir)
	require.NoError(t, err)
	result = TestResult{}
	decode(t, out, &result)
	assert.Equal(t, goldenMatch, result.Scenarios[0].Golden)
	assert.Equal(t, goldenMatch, result.Scenarios[1].Golden)

	require.NoError(t, os.WriteFile(golden, []byte("stale\n"), 0o644))
	out, _, err = execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ move_to_done")
	assert.Contains(t, out, "trace does not match golden file")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTest_Filter(t *testing.T) {
	dir := scenariosDir(t)

	out, _, err := execute(t, "test", dir, "--filter", "sec*")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ second")
	assert.NotContains(t, out, "move_to_done")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")

	out, _, err = execute(t, "test", dir, "--filter", "nothing*")
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")

	_, _, err = execute(t, "test", dir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTest_FailingScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rules.cue", workflowRules)
	writeFile(t, dir, "broken.yaml", strings.Replace(scenarioDoc, "count: 2", "count: 9", 1))

	out, _, err := execute(t, "--format", "json", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result TestResult
	resp := decode(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Scenarios, 1)
	assert.NotEmpty(t, result.Scenarios[0].Errors)
}

func TestTest_MissingDir(t *testing.T) {
	_, _, err := execute(t, "test", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("scenarios", "golden", "done.golden"), goldenFilePath(filepath.Join("scenarios", "done.yaml")))
	assert.Equal(t, filepath.Join("golden", "x.golden"), goldenFilePath("x.yml"))
}
