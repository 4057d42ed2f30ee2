// Package engine implements the cardflow automation engine.
//
// The engine watches the entity store, turns each notification into a list
// of semantic change events, matches those events against the board's
// enabled automations, and applies the matching automations' actions back
// to the store.
//
// ARCHITECTURE:
//
// Processing Cycle:
//  1. Store mutation commits and notifies the engine synchronously
//  2. Reentrancy guard admits the notification if no cycle is running
//  3. Diff compares the retained Snapshot against the live state
//  4. Match filters each event's board automations by trigger
//  5. Executor applies each match's actions in list order
//  6. Snapshot is refreshed from the store as it stands after step 5
//  7. Guard is released
//
// Writes made in step 5 notify the engine again; those notifications find
// the guard set and are absorbed. Because the refresh in step 6 reads the
// store after the actions ran, action effects become part of the baseline
// and never re-fire. An automation reacting to priority_changed by setting
// a priority therefore writes exactly once per external change.
//
// CRITICAL PATTERNS:
//
// Evaluation Instant:
// Each cycle reads its TimeSource once. The same instant judges overdue
// due dates and anchors set_due_date_days.
//
// Deterministic Scheduling:
// Cards are visited in sorted id order, events per card in catalog order,
// automations in registry declaration order, actions in list order.
//
// Failure Containment:
// A dangling column or label turns the action into a recorded skip. A
// panicking automation is recovered and recorded on its firing. The cycle
// always reaches the snapshot refresh and guard release.
package engine
