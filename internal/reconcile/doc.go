// Package reconcile keeps a live machine graph in sync with declarative
// configuration without rebuilding it.
//
// UPDATE:
//
//  1. Reuse the live machine for the ref, or create one named from config.
//  2. Set the initial state id (an active machine is not re-entered).
//  3. Remove live states absent from config. Removal drops transitions
//     targeting them and invalidates the active-state cursor.
//  4. For each configured state, reuse or create it in place, then
//     a. sync actions by id (reconfigure, create via the registry, remove),
//     b. set every configured transition (last write wins),
//     c. resolve its machine refs concurrently and attach them all at once.
//  5. Return once every state's nested resolution has finished.
//
// Steps 1 to 4b run inside the graph lock. Step 4c fetches outside it and
// re-acquires the lock only to attach, so a slow Source never stalls a frame.
//
// CONCURRENCY:
//
// Resolve coalesces concurrent requests for the same ref into one fetch and
// one sync; every caller receives the same *fsm.Machine. A ref that would
// wait on its own resolution fails with MACHINE_CYCLE instead of blocking.
package reconcile
