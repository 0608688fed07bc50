package config

// MachineConfig declares one state machine.
type MachineConfig struct {
	Name         string        `yaml:"name" json:"name"`
	InitialState string        `yaml:"initialState" json:"initialState"`
	States       []StateConfig `yaml:"states" json:"states"`
}

// StateConfig declares one state, its ordered actions, its outgoing
// transitions and the machines it embeds.
type StateConfig struct {
	ID          string             `yaml:"id" json:"id"`
	Name        string             `yaml:"name,omitempty" json:"name,omitempty"`
	Actions     []ActionConfig     `yaml:"actions,omitempty" json:"actions,omitempty"`
	Transitions []TransitionConfig `yaml:"transitions,omitempty" json:"transitions,omitempty"`
	MachineRefs []string           `yaml:"machineRefs,omitempty" json:"machineRefs,omitempty"`
}

// ActionConfig declares an action instance. Type selects the registered
// factory; Options are passed to Configure unchanged.
type ActionConfig struct {
	ID      string         `yaml:"id" json:"id"`
	Type    string         `yaml:"type" json:"type"`
	Options map[string]any `yaml:"options,omitempty" json:"options,omitempty"`
}

// TransitionConfig maps an event id (ID) to a target state id.
type TransitionConfig struct {
	ID          string `yaml:"id" json:"id"`
	TargetState string `yaml:"targetState" json:"targetState"`
}

// StateIDs returns the configured state ids in declaration order.
func (c *MachineConfig) StateIDs() []string {
	out := make([]string, len(c.States))
	for i, s := range c.States {
		out[i] = s.ID
	}
	return out
}

// ClipConfig declares an animation clip. Channels map joint names to
// keyframes.
type ClipConfig struct {
	Name     string                      `yaml:"name" json:"name"`
	Duration float64                     `yaml:"duration" json:"duration"`
	Channels map[string][]KeyframeConfig `yaml:"channels" json:"channels"`
}

// KeyframeConfig is one joint sample. Omitted rotation and scale default to
// identity when the clip is built.
type KeyframeConfig struct {
	Time        float64   `yaml:"time" json:"time"`
	Translation []float64 `yaml:"translation,omitempty" json:"translation,omitempty"`
	Rotation    []float64 `yaml:"rotation,omitempty" json:"rotation,omitempty"`
	Scale       []float64 `yaml:"scale,omitempty" json:"scale,omitempty"`
}
