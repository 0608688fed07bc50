package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/animfsm/internal/anim"
	"github.com/roach88/animfsm/internal/config"
)

// Scenario defines an animation scenario: machines and clips, the layer
// stack they drive, the steps to execute and the assertions on the outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// UpdateRate is the manager throttle in seconds. Omitted means
	// anim.DefaultUpdateRate; 0 disables throttling.
	UpdateRate *float64 `yaml:"update_rate,omitempty"`

	// Strict makes precondition violations fail the run.
	Strict bool `yaml:"strict,omitempty"`

	// Configs are inline machine configs keyed by ref.
	Configs map[string]*config.MachineConfig `yaml:"configs,omitempty"`

	// Clips are inline clip configs.
	Clips []*config.ClipConfig `yaml:"clips,omitempty"`

	// ConfigDir loads configs and clips from a directory instead. Relative
	// paths are resolved against the scenario file.
	ConfigDir string `yaml:"config_dir,omitempty"`

	// Layers lists the layer stack bottom-up. The first entry drives the
	// manager's base layer; the rest are added on top in order. Steps and
	// assertions refer to layers by these names.
	Layers []LayerSpec `yaml:"layers"`

	// Steps run in order after every layer is bound.
	Steps []Step `yaml:"steps"`

	// Assertions are checked after the last step.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// LayerSpec declares one layer and the machine ref driving it.
type LayerSpec struct {
	Name    string   `yaml:"name"`
	Machine string   `yaml:"machine"`
	Blend   string   `yaml:"blend,omitempty"`
	Weight  *float64 `yaml:"weight,omitempty"`
}

// Step is one scenario operation. Exactly one field is set.
type Step struct {
	Sync         *string        `yaml:"sync,omitempty"`
	Start        *string        `yaml:"start,omitempty"`
	Send         *SendStep      `yaml:"send,omitempty"`
	Advance      *float64       `yaml:"advance,omitempty"`
	Tick         *int           `yaml:"tick,omitempty"`
	SetConfig    *SetConfigStep `yaml:"set_config,omitempty"`
	RemoveConfig *string        `yaml:"remove_config,omitempty"`
}

// SendStep delivers Event to Layer.
type SendStep struct {
	Layer string `yaml:"layer"`
	Event string `yaml:"event"`
}

// SetConfigStep replaces the inline config for Ref.
type SetConfigStep struct {
	Ref    string                `yaml:"ref"`
	Config *config.MachineConfig `yaml:"config"`
}

// Step operation names, as they appear in traces.
const (
	OpBind         = "bind"
	OpSync         = "sync"
	OpStart        = "start"
	OpSend         = "send"
	OpAdvance      = "advance"
	OpTick         = "tick"
	OpSetConfig    = "set_config"
	OpRemoveConfig = "remove_config"
)

// Op returns the name of the operation the step performs.
func (s Step) Op() (string, error) {
	var ops []string
	if s.Sync != nil {
		ops = append(ops, OpSync)
	}
	if s.Start != nil {
		ops = append(ops, OpStart)
	}
	if s.Send != nil {
		ops = append(ops, OpSend)
	}
	if s.Advance != nil {
		ops = append(ops, OpAdvance)
	}
	if s.Tick != nil {
		ops = append(ops, OpTick)
	}
	if s.SetConfig != nil {
		ops = append(ops, OpSetConfig)
	}
	if s.RemoveConfig != nil {
		ops = append(ops, OpRemoveConfig)
	}
	switch len(ops) {
	case 0:
		return "", fmt.Errorf("no operation")
	case 1:
		return ops[0], nil
	default:
		return "", fmt.Errorf("multiple operations %v", ops)
	}
}

// Assertion checks the final runtime state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Layer selects the layer's machine (active_state).
	Layer string `yaml:"layer,omitempty"`

	// Machine selects a machine by ref.
	Machine string `yaml:"machine,omitempty"`

	// State is the expected active state, or the state inspected.
	State string `yaml:"state,omitempty"`

	// Event and Target are used by transition. An empty Target asserts the
	// event has no mapping.
	Event  string `yaml:"event,omitempty"`
	Target string `yaml:"target,omitempty"`

	// Joint, Translation and Tolerance are used by joint.
	Joint       string    `yaml:"joint,omitempty"`
	Translation []float64 `yaml:"translation,omitempty"`
	Tolerance   float64   `yaml:"tolerance,omitempty"`
}

// Assertion type constants.
const (
	AssertActiveState = "active_state"
	AssertStateExists = "state_exists"
	AssertStateAbsent = "state_absent"
	AssertTransition  = "transition"
	AssertJoint       = "joint"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.ConfigDir != "" && !filepath.IsAbs(scenario.ConfigDir) {
		scenario.ConfigDir = filepath.Join(filepath.Dir(path), scenario.ConfigDir)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.UpdateRate != nil && *s.UpdateRate < 0 {
		return fmt.Errorf("update_rate must be >= 0")
	}
	if s.ConfigDir != "" && (len(s.Configs) > 0 || len(s.Clips) > 0) {
		return fmt.Errorf("config_dir cannot be combined with inline configs or clips")
	}
	if len(s.Layers) == 0 {
		return fmt.Errorf("layers list is required and must be non-empty")
	}

	layers := make(map[string]bool, len(s.Layers))
	for i, l := range s.Layers {
		if l.Name == "" {
			return fmt.Errorf("layers[%d]: name is required", i)
		}
		if layers[l.Name] {
			return fmt.Errorf("layers[%d]: duplicate layer %q", i, l.Name)
		}
		layers[l.Name] = true
		if l.Machine == "" {
			return fmt.Errorf("layers[%d]: machine is required", i)
		}
		if _, err := anim.ParseBlendMode(l.Blend); err != nil {
			return fmt.Errorf("layers[%d]: %w", i, err)
		}
	}

	for i, step := range s.Steps {
		op, err := step.Op()
		if err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
		switch op {
		case OpStart:
			if !layers[*step.Start] {
				return fmt.Errorf("steps[%d]: unknown layer %q", i, *step.Start)
			}
		case OpSend:
			if !layers[step.Send.Layer] {
				return fmt.Errorf("steps[%d]: unknown layer %q", i, step.Send.Layer)
			}
			if step.Send.Event == "" {
				return fmt.Errorf("steps[%d]: event is required", i)
			}
		case OpAdvance:
			if *step.Advance < 0 {
				return fmt.Errorf("steps[%d]: advance must be >= 0", i)
			}
		case OpTick:
			if *step.Tick < 1 {
				return fmt.Errorf("steps[%d]: tick count must be >= 1", i)
			}
		case OpSetConfig, OpRemoveConfig:
			if s.ConfigDir != "" {
				return fmt.Errorf("steps[%d]: %s requires inline configs", i, op)
			}
			if op == OpSetConfig && (step.SetConfig.Ref == "" || step.SetConfig.Config == nil) {
				return fmt.Errorf("steps[%d]: set_config needs ref and config", i)
			}
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], layers); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, layers map[string]bool) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertActiveState:
		if (a.Layer == "") == (a.Machine == "") {
			return fmt.Errorf("assertions[%d]: exactly one of layer or machine is required for active_state", index)
		}
		if a.Layer != "" && !layers[a.Layer] {
			return fmt.Errorf("assertions[%d]: unknown layer %q", index, a.Layer)
		}
	case AssertStateExists, AssertStateAbsent:
		if a.Machine == "" || a.State == "" {
			return fmt.Errorf("assertions[%d]: machine and state are required for %s", index, a.Type)
		}
	case AssertTransition:
		if a.Machine == "" || a.State == "" || a.Event == "" {
			return fmt.Errorf("assertions[%d]: machine, state and event are required for transition", index)
		}
	case AssertJoint:
		if a.Joint == "" {
			return fmt.Errorf("assertions[%d]: joint is required for joint", index)
		}
		if len(a.Translation) != 3 {
			return fmt.Errorf("assertions[%d]: translation needs 3 components", index)
		}
		if a.Tolerance < 0 {
			return fmt.Errorf("assertions[%d]: tolerance must be >= 0", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
