package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const doorYAML = `name: door
initialState: closed
states:
  - id: closed
    transitions:
      - { id: open, targetState: opening }
  - id: opening
    actions:
      - { id: slide, type: play_clip, options: { clip: slide } }
    machineRefs: [blink]
`

const blinkCUE = `machine: {
	initialState: "open"
	states: {
		open: transitions: {blink: "shut"}
		shut: {}
	}
}
`

const slideYAML = `name: slide
duration: 1
channels:
  root:
    - { time: 0, translation: [0, 0, 0] }
    - { time: 1, translation: [1, 0, 0] }
`

// writeFiles creates files (path relative to the returned dir -> content)
// in a fresh temp directory.
func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

// createConfigDir writes the door machine, its nested blink machine and
// the slide clip.
func createConfigDir(t *testing.T) string {
	t.Helper()
	return writeFiles(t, map[string]string{
		"door.yaml":        doorYAML,
		"blink.cue":        blinkCUE,
		"clips/slide.yaml": slideYAML,
	})
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func findCommand(t *testing.T, name string) *cobra.Command {
	t.Helper()
	sub, _, err := NewRootCommand().Find([]string{name})
	require.NoError(t, err)
	return sub
}
