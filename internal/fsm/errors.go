package fsm

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected while driving or reconciling a
// machine graph.
//
// RuntimeError includes structured fields for diagnostics:
//   - Code identifies the category
//   - Machine/State/Ref locate the failure in the graph
//   - Details carries extra key/value context
type RuntimeError struct {
	Code    RuntimeErrorCode
	Message string
	Machine string
	State   string
	Ref     string
	Details map[string]string
	Err     error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnknownState indicates a state id not present in the machine.
	ErrCodeUnknownState RuntimeErrorCode = "UNKNOWN_STATE"

	// ErrCodeChainLimit indicates too many chained transitions in one drain.
	ErrCodeChainLimit RuntimeErrorCode = "CHAIN_LIMIT"

	// ErrCodeMachineCycle indicates a machine reference that (transitively) references itself.
	ErrCodeMachineCycle RuntimeErrorCode = "MACHINE_CYCLE"

	// ErrCodeResolveFailed indicates a nested machine reference could not be resolved.
	ErrCodeResolveFailed RuntimeErrorCode = "RESOLVE_FAILED"

	// ErrCodeMissingBaseState indicates the base animation layer has no active state.
	ErrCodeMissingBaseState RuntimeErrorCode = "MISSING_BASE_STATE"

	// ErrCodeInvalidOptions indicates an action rejected its configuration.
	ErrCodeInvalidOptions RuntimeErrorCode = "INVALID_OPTIONS"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.Ref != "":
		msg += fmt.Sprintf(" (ref=%s)", e.Ref)
	case e.Machine != "" && e.State != "":
		msg += fmt.Sprintf(" (machine=%s, state=%s)", e.Machine, e.State)
	case e.Machine != "":
		msg += fmt.Sprintf(" (machine=%s)", e.Machine)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsCode reports whether err, or any RuntimeError it wraps, carries the
// given code. A RESOLVE_FAILED wrapping a MACHINE_CYCLE matches both.
func IsCode(err error, code RuntimeErrorCode) bool {
	for err != nil {
		var re *RuntimeError
		if !errors.As(err, &re) {
			return false
		}
		if re.Code == code {
			return true
		}
		err = re.Err
	}
	return false
}

// NewUnknownStateError creates a RuntimeError for a missing state id.
func NewUnknownStateError(machine string, id StateID) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownState,
		Message: fmt.Sprintf("state %q not found", id),
		Machine: machine,
		State:   string(id),
	}
}

// NewCycleError creates a RuntimeError for a self-referencing machine chain.
func NewCycleError(ref string, chain []string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeMachineCycle,
		Message: "machine reference cycle",
		Ref:     ref,
		Details: map[string]string{"chain": fmt.Sprint(chain)},
	}
}

// NewResolveError wraps a failed nested machine resolution.
func NewResolveError(ref string, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeResolveFailed,
		Message: "resolve machine reference",
		Ref:     ref,
		Err:     err,
	}
}
