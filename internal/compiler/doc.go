// Package compiler turns CUE values into configuration trees.
//
// CompileMachine accepts the same shape as the YAML/JSON form, plus two
// conveniences that read better in CUE: states (and a state's actions) may
// be written as a struct keyed by id, and transitions may be written as a
// struct mapping event id to target state.
//
//	machine: door: {
//		initialState: "closed"
//		states: closed: {
//			actions: chime: {type: "log", options: message: "closed"}
//			transitions: open: "opening"
//		}
//		states: opening: machineRefs: ["hinge"]
//	}
//
// The compiler does not validate semantics; see config.Validate.
package compiler
