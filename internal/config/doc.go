// Package config defines the declarative machine and clip configuration
// trees, the Source lookup used to resolve machine references, canonical
// content hashing and static validation.
//
// A MachineConfig has the wire shape
//
//	{ name, initialState, states: [ { id, name,
//	    actions: [ { id, type, options } ],
//	    transitions: [ { id, targetState } ],
//	    machineRefs: [ ref ] } ] }
//
// and is decoded from YAML, JSON or CUE by the loader and compiler packages.
package config
