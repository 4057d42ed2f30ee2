package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/cardflow/internal/config"
)

const workflowRules = `package rules

automation: "done-completes": {
	board: "b1"
	name:  "Cards moved to done are completed"
	when: {type: "card_moved_to", column: "done"}
	then: [
		{type: "mark_completed"},
		{type: "remove_label", label: "blocked"},
	]
}

automation: "urgent-due": {
	board: "b1"
	name:  "Urgent cards are due tomorrow"
	when: {type: "priority_changed", priority: "urgent"}
	then: [{type: "set_due_date_days", days: 1}]
}

automation: escalate: {
	board: "b1"
	name:  "Bugs are urgent"
	when: {type: "label_added", label: "bug"}
	then: [{type: "set_priority", priority: "urgent"}]
}
`

const loopRules = `package rules

automation: escalate: {
	board: "b1"
	name:  "Bugs are urgent"
	when: {type: "label_added", label: "bug"}
	then: [{type: "set_priority", priority: "urgent"}]
}

automation: "bug-on-urgent": {
	board: "b1"
	name:  "Urgent cards are bugs"
	when: {type: "priority_changed", priority: "urgent"}
	then: [{type: "add_label", label: "bug"}]
}
`

const boardFixture = `boards:
  - id: b1
    columns:
      - id: todo
      - id: done
labels:
  - {id: blocked, name: Blocked}
`

const scenarioDoc = `name: move_to_done
description: "Moving a card to done completes it"
rules:
  - rules.cue
board:
  boards:
    - id: b1
      columns:
        - {id: todo}
        - {id: done}
  labels:
    - {id: blocked, name: Blocked}
    - {id: bug, name: Bug}
  cards:
    - {id: c1, column: todo, labels: [blocked]}
    - {id: c2, column: todo}
steps:
  - move_card: {card: c1, column: done}
  - add_label: {card: c2, label: bug}
assertions:
  - type: card_state
    card: c1
    expect: {column: done, completed: true, labels: []}
  - type: card_state
    card: c2
    expect: {priority: urgent, labels: [bug]}
  - type: firing_count
    count: 2
`

// writeFile writes content to dir/name and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// rulesDir creates a directory holding one rules file.
func rulesDir(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "rules.cue", content)
	return dir
}

// scenarioFile writes scenarioDoc and its rules into a fresh directory.
func scenarioFile(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "rules.cue", workflowRules)
	return writeFile(t, dir, "move_to_done.yaml", scenarioDoc)
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv(config.EnvConfig, "")

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

type response struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

// decode parses a JSON envelope and decodes its data into v (if non-nil).
func decode(t *testing.T, out string, v any) response {
	t.Helper()
	var resp response
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	if v != nil {
		require.NotEmpty(t, resp.Data, "response has no data: %s", out)
		require.NoError(t, json.Unmarshal(resp.Data, v))
	}
	return resp
}
