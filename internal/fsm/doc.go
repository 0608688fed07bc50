// Package fsm implements the hierarchical state-machine model driven by the
// animation runtime.
//
// A Machine is a directed graph of States with one designated initial state
// and a single active-state cursor. A State owns an ordered list of Actions,
// a transition map keyed by event id, and zero or more nested Machines.
//
// LIFECYCLE:
//
//	Start:  current = initial, enter actions run in list order, nested machines start
//	Update: update actions run in list order, nested machines update
//	Send:   nested machines stop, exit actions run, target enter sequence runs
//
// Transitions only fire on explicit event delivery. Actions request events
// through Context.Send; queued events are drained after the lifecycle call
// that produced them, bounded by MaxChainedTransitions.
//
// CONCURRENCY:
//
// Machines and States carry no locks. Callers that mutate the graph while it
// is being advanced (the reconciler against the animation manager) must
// serialize through a shared lock held around the whole mutation or frame.
package fsm
