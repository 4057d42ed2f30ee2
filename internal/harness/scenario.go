package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cardflow/internal/ir"
)

// Scenario defines a conformance test scenario.
// A scenario seeds a board, registers automations, applies a sequence of
// mutations through the real engine and asserts on the resulting trace and
// final board state.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Now is the fixed evaluation instant (RFC 3339). Defaults to DefaultNow.
	// The clock only moves through advance steps.
	Now string `yaml:"now,omitempty"`

	// Rules lists CUE automation files to compile and register.
	// Paths are relative to the scenario file location.
	Rules []string `yaml:"rules"`

	// Board is the initial state, built before the engine starts, so it
	// produces no events.
	Board BoardFixture `yaml:"board"`

	// Steps are the mutations applied with the engine running.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// DefaultNow is the evaluation instant for scenarios that omit now.
var DefaultNow = time.Date(2026, time.January, 1, 9, 0, 0, 0, time.UTC)

// BoardFixture is the initial board state. Boards and columns keep their
// listed order; cards are appended to their column in listed order.
type BoardFixture struct {
	Boards []BoardSpec `yaml:"boards"`
	Labels []LabelSpec `yaml:"labels,omitempty"`
	Cards  []CardSpec  `yaml:"cards,omitempty"`
}

// BoardSpec describes a board and its columns.
type BoardSpec struct {
	ID      string       `yaml:"id"`
	Title   string       `yaml:"title,omitempty"`
	Columns []ColumnSpec `yaml:"columns"`
}

// ColumnSpec describes a column.
type ColumnSpec struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title,omitempty"`
}

// LabelSpec describes a global label.
type LabelSpec struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name,omitempty"`
	Color string `yaml:"color,omitempty"`
}

// CardSpec describes a card, either in the fixture or in a create_card step.
type CardSpec struct {
	ID          string        `yaml:"id,omitempty"`
	Column      string        `yaml:"column"`
	Title       string        `yaml:"title,omitempty"`
	Description string        `yaml:"description,omitempty"`
	Priority    string        `yaml:"priority,omitempty"`
	Due         string        `yaml:"due,omitempty"` // RFC 3339 or YYYY-MM-DD
	Labels      []string      `yaml:"labels,omitempty"`
	Subtasks    []SubtaskSpec `yaml:"subtasks,omitempty"`
	Completed   bool          `yaml:"completed,omitempty"`
}

// SubtaskSpec describes a subtask.
type SubtaskSpec struct {
	ID        string `yaml:"id,omitempty"`
	Title     string `yaml:"title,omitempty"`
	Completed bool   `yaml:"completed,omitempty"`
}

// Step is one scenario step. Exactly one field must be set.
type Step struct {
	CreateCard      *CardSpec            `yaml:"create_card,omitempty"`
	UpdateCard      *UpdateCardStep      `yaml:"update_card,omitempty"`
	MoveCard        *MoveCardStep        `yaml:"move_card,omitempty"`
	AddLabel        *LabelStep           `yaml:"add_label,omitempty"`
	RemoveLabel     *LabelStep           `yaml:"remove_label,omitempty"`
	AddSubtask      *AddSubtaskStep      `yaml:"add_subtask,omitempty"`
	CompleteSubtask *CompleteSubtaskStep `yaml:"complete_subtask,omitempty"`
	ArchiveCard     *CardRef             `yaml:"archive_card,omitempty"`
	DeleteCard      *CardRef             `yaml:"delete_card,omitempty"`

	// Advance moves the clock forward by a Go duration ("24h"). No cycle runs.
	Advance string `yaml:"advance,omitempty"`

	// Process runs one engine cycle without a mutation.
	Process bool `yaml:"process,omitempty"`
}

// UpdateCardStep patches a card. Unset fields are left unchanged.
type UpdateCardStep struct {
	Card        string  `yaml:"card"`
	Title       *string `yaml:"title,omitempty"`
	Description *string `yaml:"description,omitempty"`
	Priority    *string `yaml:"priority,omitempty"`
	Due         *string `yaml:"due,omitempty"`
	ClearDue    bool    `yaml:"clear_due,omitempty"`
	Completed   *bool   `yaml:"completed,omitempty"`
}

// MoveCardStep moves a card to the end of a column.
type MoveCardStep struct {
	Card   string `yaml:"card"`
	Column string `yaml:"column"`
}

// LabelStep adds or removes a label on a card.
type LabelStep struct {
	Card  string `yaml:"card"`
	Label string `yaml:"label"`
}

// AddSubtaskStep appends a subtask to a card.
type AddSubtaskStep struct {
	Card      string `yaml:"card"`
	ID        string `yaml:"id,omitempty"`
	Title     string `yaml:"title,omitempty"`
	Completed bool   `yaml:"completed,omitempty"`
}

// CompleteSubtaskStep sets a subtask's completion flag. Completed defaults to true.
type CompleteSubtaskStep struct {
	Card      string `yaml:"card"`
	Subtask   string `yaml:"subtask"`
	Completed *bool  `yaml:"completed,omitempty"`
}

// CardRef names a card.
type CardRef struct {
	Card string `yaml:"card"`
}

// Step operation names, as they appear in YAML and traces.
const (
	StepCreateCard      = "create_card"
	StepUpdateCard      = "update_card"
	StepMoveCard        = "move_card"
	StepAddLabel        = "add_label"
	StepRemoveLabel     = "remove_label"
	StepAddSubtask      = "add_subtask"
	StepCompleteSubtask = "complete_subtask"
	StepArchiveCard     = "archive_card"
	StepDeleteCard      = "delete_card"
	StepAdvance         = "advance"
	StepProcess         = "process"
)

// ops lists the operations set on s, in field order.
func (s Step) ops() []string {
	var ops []string
	add := func(set bool, name string) {
		if set {
			ops = append(ops, name)
		}
	}
	add(s.CreateCard != nil, StepCreateCard)
	add(s.UpdateCard != nil, StepUpdateCard)
	add(s.MoveCard != nil, StepMoveCard)
	add(s.AddLabel != nil, StepAddLabel)
	add(s.RemoveLabel != nil, StepRemoveLabel)
	add(s.AddSubtask != nil, StepAddSubtask)
	add(s.CompleteSubtask != nil, StepCompleteSubtask)
	add(s.ArchiveCard != nil, StepArchiveCard)
	add(s.DeleteCard != nil, StepDeleteCard)
	add(s.Advance != "", StepAdvance)
	add(s.Process, StepProcess)
	return ops
}

// Op returns the step's operation name, or "" if none is set.
func (s Step) Op() string {
	if ops := s.ops(); len(ops) > 0 {
		return ops[0]
	}
	return ""
}

// CardID returns the card the step targets, or "" for clock and cycle steps.
func (s Step) CardID() string {
	switch {
	case s.CreateCard != nil:
		return s.CreateCard.ID
	case s.UpdateCard != nil:
		return s.UpdateCard.Card
	case s.MoveCard != nil:
		return s.MoveCard.Card
	case s.AddLabel != nil:
		return s.AddLabel.Card
	case s.RemoveLabel != nil:
		return s.RemoveLabel.Card
	case s.AddSubtask != nil:
		return s.AddSubtask.Card
	case s.CompleteSubtask != nil:
		return s.CompleteSubtask.Card
	case s.ArchiveCard != nil:
		return s.ArchiveCard.Card
	case s.DeleteCard != nil:
		return s.DeleteCard.Card
	}
	return ""
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "card_state": card fields match Expect
	// - "column_order": column lists exactly Cards, in order
	// - "firing_count": firings (optionally for Automation and/or Card) == Count
	// - "event_count": detected events of Kind (optionally for Card) == Count
	// - "no_firings": no firings (optionally for Automation)
	Type string `yaml:"type"`

	Card       string      `yaml:"card,omitempty"`
	Column     string      `yaml:"column,omitempty"`
	Cards      []string    `yaml:"cards,omitempty"`
	Automation string      `yaml:"automation,omitempty"`
	Kind       string      `yaml:"kind,omitempty"`
	Count      int         `yaml:"count,omitempty"`
	Expect     *CardExpect `yaml:"expect,omitempty"`
}

// CardExpect lists expected card fields. Unset fields are not checked.
type CardExpect struct {
	Column    *string   `yaml:"column,omitempty"`
	Title     *string   `yaml:"title,omitempty"`
	Priority  *string   `yaml:"priority,omitempty"`
	Completed *bool     `yaml:"completed,omitempty"`
	Labels    *[]string `yaml:"labels,omitempty"` // label ids in card order
	Due       *string   `yaml:"due,omitempty"`    // "" asserts no due date
	Archived  *bool     `yaml:"archived,omitempty"`
	Exists    *bool     `yaml:"exists,omitempty"`
}

// Assertion type constants.
const (
	AssertCardState   = "card_state"
	AssertColumnOrder = "column_order"
	AssertFiringCount = "firing_count"
	AssertEventCount  = "event_count"
	AssertNoFirings   = "no_firings"
)

// LoadScenario reads and parses a scenario YAML file, resolving rule paths
// relative to the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving rule paths relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	for i, rulePath := range scenario.Rules {
		if !filepath.IsAbs(rulePath) && basePath != "" {
			scenario.Rules[i] = filepath.Join(basePath, rulePath)
		}
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario decodes scenario YAML without validating rule paths.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Now != "" {
		if _, err := time.Parse(time.RFC3339, s.Now); err != nil {
			return fmt.Errorf("now: %w", err)
		}
	}
	if len(s.Rules) == 0 {
		return fmt.Errorf("rules list is required and must be non-empty")
	}
	if len(s.Board.Boards) == 0 {
		return fmt.Errorf("board.boards is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for _, rulePath := range s.Rules {
		if _, err := os.Stat(rulePath); os.IsNotExist(err) {
			return fmt.Errorf("rule file not found: %s", rulePath)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, s Step) error {
	ops := s.ops()
	switch len(ops) {
	case 0:
		return fmt.Errorf("steps[%d]: no operation set", index)
	case 1:
	default:
		return fmt.Errorf("steps[%d]: exactly one operation allowed, got %v", index, ops)
	}

	switch s.Op() {
	case StepAdvance:
		d, err := time.ParseDuration(s.Advance)
		if err != nil {
			return fmt.Errorf("steps[%d]: advance: %w", index, err)
		}
		if d < 0 {
			return fmt.Errorf("steps[%d]: advance must not be negative", index)
		}
		return nil
	case StepProcess:
		return nil
	case StepCreateCard:
		if s.CreateCard.Column == "" {
			return fmt.Errorf("steps[%d]: create_card requires column", index)
		}
		return nil
	}
	if s.CardID() == "" {
		return fmt.Errorf("steps[%d]: %s requires card", index, s.Op())
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}

	switch a.Type {
	case AssertCardState:
		if a.Card == "" {
			return fmt.Errorf("assertions[%d]: card is required for card_state", index)
		}
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for card_state", index)
		}
	case AssertColumnOrder:
		if a.Column == "" {
			return fmt.Errorf("assertions[%d]: column is required for column_order", index)
		}
	case AssertFiringCount, AssertNoFirings:
	case AssertEventCount:
		if !ir.EventKind(a.Kind).Valid() {
			return fmt.Errorf("assertions[%d]: unknown event kind %q for event_count", index, a.Kind)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
