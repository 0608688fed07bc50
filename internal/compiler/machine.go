package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/animfsm/internal/config"
)

// CompileMachine parses a CUE value into a MachineConfig.
//
// The machine name is the "name" field when present, otherwise the value's
// struct label:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(src)
//	cfg, err := CompileMachine(v.LookupPath(cue.ParsePath("machine.door")))
func CompileMachine(v cue.Value) (*config.MachineConfig, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	cfg := &config.MachineConfig{}

	name, err := optionalString(v, "name")
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = lastLabel(v)
	}
	cfg.Name = name

	initVal := v.LookupPath(cue.ParsePath("initialState"))
	if !initVal.Exists() {
		return nil, &CompileError{
			Field:   "initialState",
			Message: "initialState is required",
			Pos:     v.Pos(),
		}
	}
	if cfg.InitialState, err = initVal.String(); err != nil {
		return nil, formatCUEError(err)
	}

	cfg.States, err = parseStates(v.LookupPath(cue.ParsePath("states")))
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseStates accepts a list of state structs or a struct keyed by id.
func parseStates(v cue.Value) ([]config.StateConfig, error) {
	if !v.Exists() {
		return nil, nil
	}
	var states []config.StateConfig
	err := eachEntry(v, "states", func(label string, sv cue.Value) error {
		s, err := parseState(label, sv)
		if err != nil {
			return err
		}
		states = append(states, s)
		return nil
	})
	return states, err
}

func parseState(label string, v cue.Value) (config.StateConfig, error) {
	var s config.StateConfig
	var err error

	if s.ID, err = optionalString(v, "id"); err != nil {
		return s, err
	}
	if s.ID == "" {
		s.ID = label
	}
	if s.ID == "" {
		return s, &CompileError{Field: "states.id", Message: "state id is required", Pos: v.Pos()}
	}
	if s.Name, err = optionalString(v, "name"); err != nil {
		return s, err
	}

	if av := v.LookupPath(cue.ParsePath("actions")); av.Exists() {
		err = eachEntry(av, "actions", func(label string, a cue.Value) error {
			action, err := parseAction(label, a)
			if err != nil {
				return err
			}
			s.Actions = append(s.Actions, action)
			return nil
		})
		if err != nil {
			return s, err
		}
	}

	if tv := v.LookupPath(cue.ParsePath("transitions")); tv.Exists() {
		if s.Transitions, err = parseTransitions(tv); err != nil {
			return s, err
		}
	}

	if rv := v.LookupPath(cue.ParsePath("machineRefs")); rv.Exists() {
		iter, err := rv.List()
		if err != nil {
			return s, formatCUEError(err)
		}
		for iter.Next() {
			ref, err := iter.Value().String()
			if err != nil {
				return s, formatCUEError(err)
			}
			s.MachineRefs = append(s.MachineRefs, ref)
		}
	}
	return s, nil
}

func parseAction(label string, v cue.Value) (config.ActionConfig, error) {
	var a config.ActionConfig
	var err error

	if a.ID, err = optionalString(v, "id"); err != nil {
		return a, err
	}
	if a.ID == "" {
		a.ID = label
	}
	if a.ID == "" {
		return a, &CompileError{Field: "actions.id", Message: "action id is required", Pos: v.Pos()}
	}

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return a, &CompileError{
			Field:   "actions.type",
			Message: fmt.Sprintf("action %q: type is required", a.ID),
			Pos:     v.Pos(),
		}
	}
	if a.Type, err = typeVal.String(); err != nil {
		return a, formatCUEError(err)
	}

	if ov := v.LookupPath(cue.ParsePath("options")); ov.Exists() {
		var opts map[string]any
		if err := ov.Decode(&opts); err != nil {
			return a, formatCUEError(err)
		}
		a.Options = opts
	}
	return a, nil
}

// parseTransitions accepts [{id, targetState}] or {event: target}.
func parseTransitions(v cue.Value) ([]config.TransitionConfig, error) {
	var out []config.TransitionConfig

	if v.IncompleteKind() == cue.StructKind {
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			target, err := iter.Value().String()
			if err != nil {
				return nil, &CompileError{
					Field:   "transitions." + iter.Selector().Unquoted(),
					Message: "target state must be a string",
					Pos:     iter.Value().Pos(),
				}
			}
			out = append(out, config.TransitionConfig{ID: iter.Selector().Unquoted(), TargetState: target})
		}
		return out, nil
	}

	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		tv := iter.Value()
		id, err := optionalString(tv, "id")
		if err != nil {
			return nil, err
		}
		target, err := optionalString(tv, "targetState")
		if err != nil {
			return nil, err
		}
		if id == "" {
			return nil, &CompileError{Field: "transitions.id", Message: "transition event id is required", Pos: tv.Pos()}
		}
		out = append(out, config.TransitionConfig{ID: id, TargetState: target})
	}
	return out, nil
}

// eachEntry walks a list (label "") or a struct (label = field name) in
// declaration order.
func eachEntry(v cue.Value, field string, fn func(label string, v cue.Value) error) error {
	switch v.IncompleteKind() {
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return formatCUEError(err)
		}
		for iter.Next() {
			if err := fn("", iter.Value()); err != nil {
				return err
			}
		}
		return nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return formatCUEError(err)
		}
		for iter.Next() {
			if err := fn(iter.Selector().Unquoted(), iter.Value()); err != nil {
				return err
			}
		}
		return nil
	default:
		return &CompileError{
			Field:   field,
			Message: fmt.Sprintf("must be a list or a struct, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func lastLabel(v cue.Value) string {
	sels := v.Path().Selectors()
	if len(sels) == 0 {
		return ""
	}
	sel := sels[len(sels)-1]
	if !sel.IsString() {
		return ""
	}
	return sel.Unquoted()
}
