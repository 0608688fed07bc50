package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lampScenario = `name: lamp_%s
update_rate: 0
configs:
  lamp:
    name: lamp
    initialState: "off"
    states:
      - id: "off"
        transitions: [{ id: toggle, targetState: "on" }]
      - id: "on"
layers:
  - { name: base, machine: lamp }
steps:
  - start: base
  - send: { layer: base, event: toggle }
assertions:
  - { type: active_state, layer: base, state: "%s" }
`

func scenarioDir(t *testing.T) string {
	t.Helper()
	return writeFiles(t, map[string]string{
		"pass.yaml":  fmt.Sprintf(lampScenario, "pass", "on"),
		"fail.yaml":  fmt.Sprintf(lampScenario, "fail", "off"),
		"notes.txt":  "not a scenario",
		"broken.yml": "name: broken\nlayerz: []\n",
	})
}

func TestTestCommand_Directory(t *testing.T) {
	out, err := execute(t, "test", scenarioDir(t))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✓ lamp_pass")
	assert.Contains(t, out, "✗ lamp_fail")
	assert.Contains(t, out, "expected off, got on")
	assert.Contains(t, out, "✗ broken.yml")
	assert.Contains(t, out, "load error")
	assert.Contains(t, out, "Test Summary: 1 passed, 2 failed, 3 total")
}

func TestTestCommand_FilterAndJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "test", "--filter", "pass", scenarioDir(t))
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, "lamp_pass", resp.Data.Scenarios[0].Name)
}

func TestTestCommand_Golden(t *testing.T) {
	dir := scenarioDir(t)
	file := filepath.Join(dir, "pass.yaml")
	golden := filepath.Join(t.TempDir(), "golden")

	_, err := execute(t, "test", file, "--golden", golden)
	require.Error(t, err, "golden file does not exist yet")

	out, err := execute(t, "test", file, "--golden", golden, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ lamp_pass")

	data, err := os.ReadFile(filepath.Join(golden, "lamp_pass.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name":"lamp_pass"`)

	_, err = execute(t, "test", file, "--golden", golden)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(golden, "lamp_pass.golden"), []byte("{}"), 0644))
	out, err = execute(t, "test", file, "--golden", golden)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match")
}

func TestTestCommand_Errors(t *testing.T) {
	_, err := execute(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")

	_, err = execute(t, "test", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "test", "--update", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--update requires --golden")
}
