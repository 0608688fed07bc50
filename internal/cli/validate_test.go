package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidDir(t *testing.T) {
	out, err := execute(t, "validate", createConfigDir(t))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 2 machine(s), 1 clip(s) valid")
}

func TestValidate_JSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "validate", createConfigDir(t))
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 2, resp.Data.Machines)
	assert.Equal(t, 1, resp.Data.Clips)
}

func TestValidate_WarningsDoNotFail(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"lamp.yaml": `name: lamp
initialState: "on"
states:
  - id: "on"
    actions: [{ id: hum, type: hum_loudly }]
`,
	})
	out, err := execute(t, "validate", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "warning W201")
}

func TestValidate_Findings(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		code  string
	}{
		{
			name: "missing initial state",
			files: map[string]string{
				"lamp.yaml": "name: lamp\nstates: [{ id: on }]\n",
			},
			code: "E202",
		},
		{
			name: "unknown machine ref",
			files: map[string]string{
				"lamp.yaml": "name: lamp\ninitialState: on\nstates: [{ id: on, machineRefs: [ghost] }]\n",
			},
			code: ErrCodeUnknownRef,
		},
		{
			name: "ref cycle",
			files: map[string]string{
				"a.yaml": "name: a\ninitialState: s\nstates: [{ id: s, machineRefs: [b] }]\n",
				"b.yaml": "name: b\ninitialState: s\nstates: [{ id: s, machineRefs: [a] }]\n",
			},
			code: ErrCodeRefCycle,
		},
		{
			name: "cue syntax",
			files: map[string]string{
				"lamp.cue": "machine: {\n\tinitialState: \n}\n",
			},
			code: ErrCodeLoadFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "validate", writeFiles(t, tt.files))
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.Contains(t, out, "✗ Validation failed")
			assert.Contains(t, out, "error "+tt.code)
		})
	}
}

func TestValidate_CommandErrors(t *testing.T) {
	tests := []struct {
		name string
		dir  func(t *testing.T) string
		code string
	}{
		{"missing dir", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope") }, ErrCodeNotFound},
		{"empty dir", func(t *testing.T) string { return t.TempDir() }, ErrCodeNoFiles},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "validate", tt.dir(t))
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.code)
			assert.Contains(t, out, "Error ["+tt.code+"]")
		})
	}
}

func TestRefCycles(t *testing.T) {
	loaded, errs := LoadConfigs(writeFiles(t, map[string]string{
		"a.yaml": "name: a\ninitialState: s\nstates: [{ id: s, machineRefs: [b] }]\n",
		"b.yaml": "name: b\ninitialState: s\nstates: [{ id: s, machineRefs: [c] }]\n",
		"c.yaml": "name: c\ninitialState: s\nstates: [{ id: s, machineRefs: [a] }]\n",
		"d.yaml": "name: d\ninitialState: s\nstates: [{ id: s, machineRefs: [d, a] }]\n",
	}))
	require.Empty(t, errs)

	assert.Equal(t, [][]string{{"a", "b", "c", "a"}, {"d", "d"}}, refCycles(loaded))
}
