// Package harness runs animation scenarios against the real runtime and
// checks their outcome.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: door_opens
//	description: "The door slides open and settles"
//	update_rate: 0
//	configs:
//	  door: { name: door, initialState: closed, states: [...] }
//	clips:
//	  - { name: slide, duration: 1, channels: { root: [...] } }
//	layers:
//	  - name: base
//	    machine: door
//	steps:
//	  - start: base
//	  - send: { layer: base, event: open }
//	  - advance: 0.5
//	  - tick: 1
//	assertions:
//	  - type: active_state
//	    layer: base
//	    state: opening
//
// Instead of inline configs a scenario may name a config_dir (relative to
// the scenario file); machines and clips are then loaded from it the way
// `animfsm run` loads them.
//
// # Step Types
//
//   - sync: resync a machine ref from its config
//   - start: enter a layer's initial state
//   - send: deliver an event to a layer
//   - advance: move the manual clock forward by seconds
//   - tick: run the manager N times
//   - set_config / remove_config: edit an inline config (apply with sync)
//
// # Assertion Types
//
//   - active_state: a layer's (or machine's) active state
//   - state_exists / state_absent: a state is (not) in a machine
//   - transition: a state maps an event to a target ("" for none)
//   - joint: the applied pose holds a joint translation
//
// # Deterministic Testing
//
// Every scenario runs on a fresh in-memory store with a manual clock and
// sequential run ids, so traces are byte-identical across runs and can be
// compared against golden files.
package harness
