package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doorConfig() *MachineConfig {
	return &MachineConfig{
		Name:         "door",
		InitialState: "A",
		States: []StateConfig{
			{
				ID: "A",
				Actions: []ActionConfig{
					{ID: "wave", Type: "emit", Options: map[string]any{"event": "go", "delay": 1}},
				},
				Transitions: []TransitionConfig{{ID: "go", TargetState: "B"}},
			},
			{ID: "B", MachineRefs: []string{"blink"}},
		},
	}
}

func TestHash_Stable(t *testing.T) {
	h1, err := Hash(doorConfig())
	require.NoError(t, err)
	h2, err := Hash(doorConfig())
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestHash_NumericFormsAgree(t *testing.T) {
	a := doorConfig()
	b := doorConfig()
	b.States[0].Actions[0].Options["delay"] = 1.0

	assert.Equal(t, MustHash(a), MustHash(b))
}

func TestHash_EmptyEqualsOmitted(t *testing.T) {
	a := doorConfig()
	b := doorConfig()
	b.States[1].Actions = []ActionConfig{}
	b.States[1].Transitions = []TransitionConfig{}
	a.States[0].Actions[0].Options = nil
	b.States[0].Actions[0].Options = map[string]any{}

	assert.Equal(t, MustHash(a), MustHash(b))
}

func TestHash_DetectsChanges(t *testing.T) {
	base := MustHash(doorConfig())

	changes := map[string]func(*MachineConfig){
		"initial state": func(c *MachineConfig) { c.InitialState = "B" },
		"option value":  func(c *MachineConfig) { c.States[0].Actions[0].Options["event"] = "stop" },
		"target":        func(c *MachineConfig) { c.States[0].Transitions[0].TargetState = "A" },
		"machine ref":   func(c *MachineConfig) { c.States[1].MachineRefs = nil },
		"state order":   func(c *MachineConfig) { c.States[0], c.States[1] = c.States[1], c.States[0] },
	}
	for name, mutate := range changes {
		t.Run(name, func(t *testing.T) {
			cfg := doorConfig()
			mutate(cfg)
			assert.NotEqual(t, base, MustHash(cfg))
		})
	}
}

func TestHashClip(t *testing.T) {
	clip := &ClipConfig{
		Name:     "wave",
		Duration: 1,
		Channels: map[string][]KeyframeConfig{
			"hand": {{Time: 0}, {Time: 1, Translation: []float64{0, 1, 0}}},
		},
	}
	h1, err := HashClip(clip)
	require.NoError(t, err)

	clip.Channels["hand"][1].Translation[1] = 2
	h2, err := HashClip(clip)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}
