package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "door_opens.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "door_opens", s.Name)
	require.NotNil(t, s.UpdateRate)
	assert.Equal(t, 0.0, *s.UpdateRate)
	assert.Equal(t, "closed", s.Configs["door"].InitialState)
	assert.Equal(t, 1, s.Configs["door"].States[1].Actions[0].Options["loop_count"])
	require.Len(t, s.Steps, 6)

	op, err := s.Steps[1].Op()
	require.NoError(t, err)
	assert.Equal(t, OpSend, op)
	assert.Equal(t, "open", s.Steps[1].Send.Event)
}

func TestLoadScenario_ResolvesConfigDir(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "from_dir.yaml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "configs"), s.ConfigDir)
}

func TestLoadScenario_Errors(t *testing.T) {
	const layers = "layers: [{name: base, machine: m}]\n"
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown field", "name: x\nlayer: []\n", "field layer not found"},
		{"missing name", layers, "name is required"},
		{"no layers", "name: x\n", "layers list is required"},
		{"duplicate layer", "name: x\nlayers: [{name: a, machine: m}, {name: a, machine: m}]\n", "duplicate layer"},
		{"bad blend", "name: x\nlayers: [{name: a, machine: m, blend: multiply}]\n", "unknown blend mode"},
		{"empty step", "name: x\n" + layers + "steps: [{}]\n", "no operation"},
		{"two ops", "name: x\n" + layers + "steps: [{start: base, tick: 1}]\n", "multiple operations"},
		{"unknown layer", "name: x\n" + layers + "steps: [{start: top}]\n", `unknown layer "top"`},
		{"zero ticks", "name: x\n" + layers + "steps: [{tick: 0}]\n", "tick count"},
		{"negative rate", "name: x\nupdate_rate: -1\n" + layers, "update_rate"},
		{"dir with inline", "name: x\nconfig_dir: /tmp\nconfigs: {m: {name: m}}\n" + layers, "cannot be combined"},
		{"set_config with dir", "name: x\nconfig_dir: /tmp\n" + layers + "steps: [{remove_config: m}]\n", "requires inline configs"},
		{"assertion type", "name: x\n" + layers + "assertions: [{type: vibes}]\n", "unknown assertion type"},
		{"active_state target", "name: x\n" + layers + "assertions: [{type: active_state, state: s}]\n", "exactly one of layer or machine"},
		{"joint components", "name: x\n" + layers + "assertions: [{type: joint, joint: j, translation: [1]}]\n", "3 components"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read scenario file")
}
