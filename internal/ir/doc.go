// Package ir provides the shared data model for cardflow.
//
// This package contains the board entities (boards, columns, cards, labels),
// the compiled automation representation (triggers and actions as sealed sum
// types), the change-event catalog produced by the snapshot differ, and the
// firing records emitted by the engine. All other internal packages import
// ir; ir imports nothing internal.
//
// Key design constraints:
//   - Triggers and actions are closed sets: one struct per kind, matched by
//     exhaustive switch, never by free-form property inspection
//   - An empty discriminating parameter on a trigger means "any value"
//   - Card label entries are denormalized copies; resolution always goes
//     through the global label list by id
//   - JSON tags on board entities use camelCase to match exported board files
package ir
