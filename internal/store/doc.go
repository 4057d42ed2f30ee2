// Package store provides SQLite-backed durable storage for automations and
// the firing log.
//
// Two tables:
//   - automations: rule definitions, one row per automation id, with the
//     trigger and action list stored as tagged JSON
//   - firings: append-only log of every automation execution the engine
//     reported, keyed by content-addressed firing id
//
// # Ordering
//
// Automations keep their declaration order in a position column. An upsert
// of an existing id keeps its position.
//
// Firing reads are ordered by seq, the engine's logical firing clock, with
// id as tie-breaker: ORDER BY seq ASC, id COLLATE BINARY ASC. Timestamps are
// stored but never used for ordering.
//
// # Idempotency
//
// WriteFiring uses ON CONFLICT(id) DO NOTHING. Recording the same firing
// twice, for example when a harness scenario is re-run against the same
// database, leaves one row.
//
// # Connection settings
//
// Open sets these through the driver DSN, so each pooled connection carries
// them: journal_mode=WAL, synchronous=NORMAL, busy_timeout=5000 and
// foreign_keys=1. The schema version lives in PRAGMA user_version.
package store
