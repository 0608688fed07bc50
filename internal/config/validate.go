package config

import (
	"fmt"
	"strings"
)

// Validation codes (E200-E299 errors, W200-W299 warnings).
const (
	ErrMissingName         = "E201" // machine name is required
	ErrMissingInitialState = "E202" // initialState is required
	ErrUnknownInitialState = "E203" // initialState names no configured state
	ErrDuplicateStateID    = "E204" // two states share an id
	ErrDuplicateActionID   = "E205" // two actions in one state share an id
	ErrMissingID           = "E206" // state, action or transition id is empty
	ErrMissingActionType   = "E207" // action type is empty
	ErrDuplicateEvent      = "E208" // one state maps the same event twice

	WarnUnknownActionType = "W201" // type not registered, skipped at sync
	WarnDanglingTarget    = "W202" // transition target not a configured state
)

// Severity classifies a ValidationError.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationError is one finding from Validate.
type ValidationError struct {
	Field    string   `json:"field"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// TypeRegistry reports whether an action type tag is known. *fsm.Registry
// satisfies it; nil disables the check.
type TypeRegistry interface {
	Has(typeTag string) bool
}

// Validate checks cfg and returns every finding (does not fail fast).
//
// Warnings describe configuration the reconciler accepts anyway: unknown
// action types are skipped and dangling transition targets only surface
// when the event is delivered.
func Validate(cfg *MachineConfig, types TypeRegistry) []ValidationError {
	var out []ValidationError
	add := func(sev Severity, field, code, format string, args ...any) {
		out = append(out, ValidationError{
			Field:    field,
			Code:     code,
			Message:  fmt.Sprintf(format, args...),
			Severity: sev,
		})
	}

	if strings.TrimSpace(cfg.Name) == "" {
		add(SeverityError, "name", ErrMissingName, "machine name is required")
	}

	stateIDs := make(map[string]bool, len(cfg.States))
	for i, s := range cfg.States {
		field := fmt.Sprintf("states[%d]", i)
		if s.ID == "" {
			add(SeverityError, field+".id", ErrMissingID, "state id is required")
			continue
		}
		if stateIDs[s.ID] {
			add(SeverityError, field+".id", ErrDuplicateStateID, "duplicate state id %q", s.ID)
		}
		stateIDs[s.ID] = true
	}

	switch {
	case cfg.InitialState == "":
		add(SeverityError, "initialState", ErrMissingInitialState, "initialState is required")
	case !stateIDs[cfg.InitialState]:
		add(SeverityError, "initialState", ErrUnknownInitialState, "initialState %q is not a configured state", cfg.InitialState)
	}

	for i, s := range cfg.States {
		field := fmt.Sprintf("states[%d]", i)

		actionIDs := make(map[string]bool, len(s.Actions))
		for j, a := range s.Actions {
			af := fmt.Sprintf("%s.actions[%d]", field, j)
			if a.ID == "" {
				add(SeverityError, af+".id", ErrMissingID, "action id is required")
			} else if actionIDs[a.ID] {
				add(SeverityError, af+".id", ErrDuplicateActionID, "duplicate action id %q in state %q", a.ID, s.ID)
			}
			actionIDs[a.ID] = true

			switch {
			case a.Type == "":
				add(SeverityError, af+".type", ErrMissingActionType, "action type is required")
			case types != nil && !types.Has(a.Type):
				add(SeverityWarning, af+".type", WarnUnknownActionType, "action type %q is not registered and will be skipped", a.Type)
			}
		}

		events := make(map[string]bool, len(s.Transitions))
		for j, t := range s.Transitions {
			tf := fmt.Sprintf("%s.transitions[%d]", field, j)
			if t.ID == "" {
				add(SeverityError, tf+".id", ErrMissingID, "transition event id is required")
				continue
			}
			if events[t.ID] {
				add(SeverityError, tf+".id", ErrDuplicateEvent, "event %q mapped twice in state %q", t.ID, s.ID)
			}
			events[t.ID] = true
			if !stateIDs[t.TargetState] {
				add(SeverityWarning, tf+".targetState", WarnDanglingTarget, "target %q is not a configured state", t.TargetState)
			}
		}

		for j, ref := range s.MachineRefs {
			if ref == "" {
				add(SeverityError, fmt.Sprintf("%s.machineRefs[%d]", field, j), ErrMissingID, "machine ref is empty")
			}
		}
	}
	return out
}

// HasErrors reports whether any finding has error severity.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}
