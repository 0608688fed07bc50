// Package engine hosts the animation runtime: one graph lock shared by the
// reconciler and every animation manager, a tick loop, hot reload and sync
// history.
//
// ARCHITECTURE:
//
// Graph lock:
// Reconciler mutations and Manager.Update both take the Runtime's mutex, so
// a frame never observes a half-synced machine. Nested-machine resolution
// runs outside the lock and attaches under it.
//
// Run loop:
//  1. A ticker drives Tick, which updates every manager in creation order
//  2. Refs received on the reload channel go onto a deduplicating queue
//  3. A single sync worker drains the queue and resyncs each ref
//  4. A ref whose config disappeared is removed from the graph
//
// Run ids:
// Every Sync generates a run id (UUIDv7 by default) and carries it in the
// context, so each reconcile report it causes, nested ones included, is
// recorded in the history under the same id. A nested ref already being
// resolved for another run is recorded once, under that run's id.
package engine
