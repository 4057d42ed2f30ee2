package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/cardflow/internal/ir"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical
// JSON serialization. Firing ids are left out: they hash the evaluation
// instant, and seq plus cycle already identify a firing within a trace.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		m := map[string]any{"type": event.Type}
		switch event.Type {
		case TypeStep:
			m["step"] = int64(event.Step)
			m["op"] = event.Op
			if event.Card != "" {
				m["card"] = event.Card
			}
		case TypeEvent:
			m["cycle"] = event.Cycle
			m["kind"] = event.Kind
			m["card"] = event.Card
			m["context"] = contextMap(event.Context)
		case TypeFiring:
			m["seq"] = event.Seq
			m["cycle"] = event.Cycle
			m["automation"] = event.Automation
			m["card"] = event.Card
			m["event"] = event.Kind
			applied := make([]any, len(event.Applied))
			for j, k := range event.Applied {
				applied[j] = k
			}
			m["applied"] = applied
			if len(event.Skipped) > 0 {
				skipped := make([]any, len(event.Skipped))
				for j, sk := range event.Skipped {
					skipped[j] = map[string]any{
						"index":  sk.Index,
						"kind":   sk.Kind,
						"reason": sk.Reason,
					}
				}
				m["skipped"] = skipped
			}
			if event.Error != "" {
				m["error"] = event.Error
			}
		}
		traceList[i] = m
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
}

func contextMap(ctx map[string]any) map[string]any {
	if ctx == nil {
		return map[string]any{}
	}
	return ctx
}

// MarshalTrace renders a scenario trace as canonical JSON.
func MarshalTrace(scenarioName string, trace []TraceEvent) ([]byte, error) {
	snapshot := TraceSnapshot{ScenarioName: scenarioName, Trace: trace}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) error {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result's trace against a golden file,
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalTrace(scenarioName, result.Trace)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
