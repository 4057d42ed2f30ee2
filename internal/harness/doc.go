// Package harness provides conformance testing for cardflow automations.
//
// The harness compiles CUE automation rules, seeds a board from a fixture,
// applies a sequence of card mutations with a real engine subscribed, and
// checks the resulting trace and final board state.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: done_completes
//	description: "Moving a card to done marks it completed"
//	now: "2026-01-01T09:00:00Z"
//	rules:
//	  - ../rules/done.cue
//	board:
//	  boards:
//	    - id: b1
//	      columns: [{id: todo}, {id: done}]
//	  cards:
//	    - {id: c1, column: todo, title: "Write docs"}
//	steps:
//	  - move_card: {card: c1, column: done}
//	  - advance: 48h
//	  - process: true
//	assertions:
//	  - type: card_state
//	    card: c1
//	    expect: {completed: true}
//	  - type: firing_count
//	    automation: done-completes
//	    count: 1
//
// Step operations: create_card, update_card, move_card, add_label,
// remove_label, add_subtask, complete_subtask, archive_card, delete_card,
// advance (clock only) and process (one cycle without a mutation).
//
// # Assertion Types
//
//   - card_state: final card fields match expect
//   - column_order: a column lists exactly the given cards
//   - firing_count: number of firings, optionally per automation and card
//   - event_count: number of detected events of a kind
//   - no_firings: no firings, optionally per automation
//
// # Deterministic Testing
//
// The clock is a testutil.ManualTime fixed at the scenario's now and moved
// only by advance steps. Generated ids come from testutil.SequentialIDs.
// Fixture cards are part of the engine baseline and produce no events.
// Traces are therefore identical across runs and are compared against
// golden files in testdata/golden.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/done_completes.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
