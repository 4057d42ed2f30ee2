package harness

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/roach88/cardflow/internal/board"
	"github.com/roach88/cardflow/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, event.String())
		}
	}

	return buf.String()
}

// String renders one trace line. Events and firings are indented under
// the step that caused them.
func (ev TraceEvent) String() string {
	switch ev.Type {
	case TypeStep:
		if ev.Card == "" {
			return fmt.Sprintf("step %d %s", ev.Step, ev.Op)
		}
		return fmt.Sprintf("step %d %s %s", ev.Step, ev.Op, ev.Card)
	case TypeEvent:
		return fmt.Sprintf("  cycle %d %s %s %v", ev.Cycle, ev.Kind, ev.Card, ev.Context)
	case TypeFiring:
		return fmt.Sprintf("  cycle %d fire %s on %s (%s) applied=%v", ev.Cycle, ev.Automation, ev.Card, ev.Kind, ev.Applied)
	}
	return ev.Type
}

// assertCardState checks the final state of one card against the expected
// fields. Archived cards are found too; deleted cards only satisfy
// exists: false.
func assertCardState(st *board.Store, a Assertion) error {
	want := a.Expect
	fail := func(expected, actual string) error {
		return &AssertionError{
			Type:     AssertCardState,
			Expected: fmt.Sprintf("card %s %s", a.Card, expected),
			Actual:   actual,
		}
	}

	card, active := st.Card(a.Card)
	archived := false
	if !active {
		card, archived = st.ArchivedCard(a.Card)
	}
	exists := active || archived

	if want.Exists != nil && *want.Exists != exists {
		return fail(fmt.Sprintf("exists=%t", *want.Exists), fmt.Sprintf("exists=%t", exists))
	}
	if !exists {
		if want.Exists != nil {
			return nil
		}
		return fail("to exist", "card not found")
	}
	if want.Archived != nil && *want.Archived != archived {
		return fail(fmt.Sprintf("archived=%t", *want.Archived), fmt.Sprintf("archived=%t", archived))
	}
	if want.Column != nil && *want.Column != card.ColumnID {
		return fail("in column "+*want.Column, "in column "+card.ColumnID)
	}
	if want.Title != nil && *want.Title != card.Title {
		return fail(fmt.Sprintf("title %q", *want.Title), fmt.Sprintf("title %q", card.Title))
	}
	if want.Priority != nil && ir.Priority(*want.Priority) != card.Priority {
		return fail("priority "+*want.Priority, "priority "+string(card.Priority))
	}
	if want.Completed != nil && *want.Completed != card.Completed {
		return fail(fmt.Sprintf("completed=%t", *want.Completed), fmt.Sprintf("completed=%t", card.Completed))
	}
	if want.Labels != nil {
		got := make([]string, 0, len(card.Labels))
		for _, l := range card.Labels {
			got = append(got, l.ID)
		}
		if !slices.Equal(*want.Labels, got) {
			return fail(fmt.Sprintf("labels %v", *want.Labels), fmt.Sprintf("labels %v", got))
		}
	}
	if want.Due != nil {
		if err := checkDue(*want.Due, card.DueDate); err != nil {
			return fail("due "+*want.Due, err.Error())
		}
	}
	return nil
}

func checkDue(want string, got *time.Time) error {
	if want == "" {
		if got != nil {
			return fmt.Errorf("due %s", got.UTC().Format(time.RFC3339))
		}
		return nil
	}
	if got == nil {
		return fmt.Errorf("no due date")
	}
	wantT, err := parseDue(want)
	if err != nil {
		return err
	}
	if !wantT.Equal(*got) {
		return fmt.Errorf("due %s", got.UTC().Format(time.RFC3339))
	}
	return nil
}

// assertColumnOrder checks that a column lists exactly the expected cards.
func assertColumnOrder(st *board.Store, a Assertion) error {
	col, ok := st.Column(a.Column)
	if !ok {
		return &AssertionError{
			Type:     AssertColumnOrder,
			Expected: fmt.Sprintf("column %s to exist", a.Column),
			Actual:   "column not found",
		}
	}
	want := a.Cards
	if want == nil {
		want = []string{}
	}
	got := col.CardIDs
	if got == nil {
		got = []string{}
	}
	if !slices.Equal(want, got) {
		return &AssertionError{
			Type:     AssertColumnOrder,
			Expected: fmt.Sprintf("column %s cards %v", a.Column, want),
			Actual:   fmt.Sprintf("%v", got),
		}
	}
	return nil
}

// countFirings counts firings matching the assertion's optional filters.
func countFirings(firings []ir.Firing, a Assertion) int {
	n := 0
	for _, f := range firings {
		if a.Automation != "" && f.AutomationID != a.Automation {
			continue
		}
		if a.Card != "" && f.CardID != a.Card {
			continue
		}
		n++
	}
	return n
}

// assertFiringCount checks the number of firings, optionally filtered.
func assertFiringCount(result *Result, a Assertion) error {
	got := countFirings(result.Firings, a)
	if got != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d firing(s)%s", a.Count, filterSuffix(a)),
			Actual:   fmt.Sprintf("%d firing(s)", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertEventCount checks the number of detected events of a kind.
func assertEventCount(result *Result, a Assertion) error {
	got := 0
	for _, ev := range result.Events {
		if string(ev.Kind) == a.Kind && (a.Card == "" || ev.CardID == a.Card) {
			got++
		}
	}
	if got != a.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d %s event(s)%s", a.Count, a.Kind, filterSuffix(a)),
			Actual:   fmt.Sprintf("%d event(s)", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

func filterSuffix(a Assertion) string {
	var parts []string
	if a.Automation != "" {
		parts = append(parts, "automation="+a.Automation)
	}
	if a.Card != "" {
		parts = append(parts, "card="+a.Card)
	}
	if len(parts) == 0 {
		return ""
	}
	return " for " + strings.Join(parts, " ")
}

// EvaluateAssertions evaluates all assertions against the result and the
// final board state. Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, st *board.Store) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertCardState:
			if assertion.Expect == nil {
				err = fmt.Errorf("assertion[%d]: card_state requires expect", i)
			} else {
				err = assertCardState(st, assertion)
			}
		case AssertColumnOrder:
			err = assertColumnOrder(st, assertion)
		case AssertFiringCount:
			err = assertFiringCount(result, assertion)
		case AssertNoFirings:
			assertion.Count = 0
			err = assertFiringCount(result, assertion)
		case AssertEventCount:
			err = assertEventCount(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
