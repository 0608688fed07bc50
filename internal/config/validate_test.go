package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type typeSet map[string]bool

func (s typeSet) Has(tag string) bool { return s[tag] }

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidate_Valid(t *testing.T) {
	errs := Validate(doorConfig(), typeSet{"emit": true})
	assert.Empty(t, errs)
	assert.False(t, HasErrors(errs))
}

func TestValidate_Findings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*MachineConfig)
		want   []string
		fatal  bool
	}{
		{"missing name", func(c *MachineConfig) { c.Name = " " }, []string{ErrMissingName}, true},
		{"missing initial", func(c *MachineConfig) { c.InitialState = "" }, []string{ErrMissingInitialState}, true},
		{"unknown initial", func(c *MachineConfig) { c.InitialState = "Z" }, []string{ErrUnknownInitialState}, true},
		{"duplicate state", func(c *MachineConfig) { c.States[1].ID = "A" }, []string{ErrDuplicateStateID, WarnDanglingTarget}, true},
		{"duplicate action", func(c *MachineConfig) {
			c.States[0].Actions = append(c.States[0].Actions, c.States[0].Actions[0])
		}, []string{ErrDuplicateActionID}, true},
		{"missing type", func(c *MachineConfig) { c.States[0].Actions[0].Type = "" }, []string{ErrMissingActionType}, true},
		{"unknown type", func(c *MachineConfig) { c.States[0].Actions[0].Type = "teleport" }, []string{WarnUnknownActionType}, false},
		{"dangling target", func(c *MachineConfig) { c.States[0].Transitions[0].TargetState = "C" }, []string{WarnDanglingTarget}, false},
		{"duplicate event", func(c *MachineConfig) {
			c.States[0].Transitions = append(c.States[0].Transitions, TransitionConfig{ID: "go", TargetState: "A"})
		}, []string{ErrDuplicateEvent}, true},
		{"empty ref", func(c *MachineConfig) { c.States[1].MachineRefs = []string{""} }, []string{ErrMissingID}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := doorConfig()
			tt.mutate(cfg)
			errs := Validate(cfg, typeSet{"emit": true})
			assert.Equal(t, tt.want, codes(errs))
			assert.Equal(t, tt.fatal, HasErrors(errs))
		})
	}
}

func TestValidate_NilRegistrySkipsTypeCheck(t *testing.T) {
	cfg := doorConfig()
	cfg.States[0].Actions[0].Type = "teleport"
	assert.Empty(t, Validate(cfg, nil))
}

func TestValidationError_Error(t *testing.T) {
	e := ValidationError{Field: "name", Code: ErrMissingName, Message: "machine name is required"}
	assert.Equal(t, "[E201] name: machine name is required", e.Error())
}
