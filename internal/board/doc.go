// Package board implements the entity store: the authoritative, observable
// mapping of boards, columns, cards, and labels.
//
// # Notification model
//
// Every mutator is synchronous. When a mutation commits, the store
// publishes a Change to every registered Listener before the mutator
// returns. Listeners run after the store lock is released, so a listener
// may call back into the store (read or mutate); nested mutations publish
// nested notifications, which the automation engine's reentrancy guard
// absorbs.
//
// Mutations that fail validation, and mutations that would not change
// anything (moving a card to its own column, removing a label the card does
// not carry), publish nothing.
//
// # Invariants
//
//   - A card's ColumnID resolves to a column that lists the card exactly once
//   - No card id appears in two columns
//   - A card's BoardID equals its column's BoardID
//   - Archived and deleted cards are absent from every column
package board
