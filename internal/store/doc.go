// Package store provides SQLite-backed durable storage for machine configs,
// clips and the sync history.
//
// The store holds:
//   - Machine configs: one row per ref, content-addressed by config.Hash
//   - Clips: one row per clip name, content-addressed by config.HashClip
//   - Sync runs: an append-only log of reconciliation reports
//
// # Ordering
//
// Sync runs are ordered by seq INTEGER (insertion order), never by wall
// time, so listings are identical across machines and replays. Ref and
// name listings use COLLATE BINARY.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// A Store implements config.Source, so a database imported with
// `animfsm import` can drive the reconciler directly.
package store
