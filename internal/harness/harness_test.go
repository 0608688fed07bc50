package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/animfsm/internal/config"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"door_opens", "nested_reload"} {
		t.Run(name, func(t *testing.T) {
			result, err := RunWithGolden(t, loadTestScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "failures: %v", result.Failures)
		})
	}
}

func TestRun_ConfigDir(t *testing.T) {
	result, err := Run(loadTestScenario(t, "from_dir"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "failures: %v", result.Failures)

	// The nested CUE machine is resolved during bind.
	require.NotEmpty(t, result.Trace)
	bind := result.Trace[0]
	assert.Equal(t, OpBind, bind.Op)
	require.Len(t, bind.Syncs, 2)
	assert.Equal(t, "eyes", bind.Syncs[0].Ref)
	assert.Equal(t, "walker", bind.Syncs[1].Ref)
}

func TestRun_FailedAssertions(t *testing.T) {
	s := minimalScenario()
	s.Assertions = []Assertion{
		{Type: AssertActiveState, Layer: "base", State: "elsewhere"},
		{Type: AssertStateAbsent, Machine: "lamp", State: "on"},
		{Type: AssertJoint, Joint: "bulb", Translation: []float64{0, 0, 0}},
		{Type: AssertTransition, Machine: "ghost", State: "on", Event: "x"},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Failures, 4)
	assert.Contains(t, result.Failures[0], "expected elsewhere, got on")
	assert.Contains(t, result.Failures[1], "present=true")
	assert.Contains(t, result.Failures[2], "no such joint")
	assert.Contains(t, result.Failures[3], `machine "ghost" is not live`)
}

func TestRun_StrictViolation(t *testing.T) {
	s := minimalScenario()
	s.Strict = true
	s.Steps = []Step{{Tick: intPtr(1)}} // never started

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Trace, 2)
	assert.Contains(t, result.Trace[1].Error, "MISSING_BASE_STATE")
}

func TestRun_UnresolvableLayer(t *testing.T) {
	s := minimalScenario()
	s.Layers[0].Machine = "ghost"

	_, err := Run(s)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrNotFound)
}

func TestRun_AddedLayer(t *testing.T) {
	s := minimalScenario()
	s.Configs["glow"] = &config.MachineConfig{Name: "glow", InitialState: "on", States: []config.StateConfig{{ID: "on"}}}
	weight := 0.5
	s.Layers = append(s.Layers, LayerSpec{Name: "overlay", Machine: "glow", Blend: "additive", Weight: &weight})
	s.Steps = []Step{{Start: strPtr("overlay")}}
	s.Assertions = []Assertion{
		{Type: AssertActiveState, Layer: "overlay", State: "on"},
		{Type: AssertActiveState, Layer: "base", State: ""},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "failures: %v", result.Failures)
	assert.Equal(t, map[string]string{"base": "", "overlay": "on"}, result.Trace[len(result.Trace)-1].Active)
}

func minimalScenario() *Scenario {
	rate := 0.0
	return &Scenario{
		Name:       "minimal",
		UpdateRate: &rate,
		Configs: map[string]*config.MachineConfig{
			"lamp": {Name: "lamp", InitialState: "on", States: []config.StateConfig{{ID: "on"}}},
		},
		Layers: []LayerSpec{{Name: "base", Machine: "lamp"}},
		Steps:  []Step{{Start: strPtr("base")}, {Tick: intPtr(1)}},
	}
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
