package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/animfsm/internal/config"
)

const doorYAML = `
initialState: A
states:
  - id: A
    actions:
      - id: hello
        type: log
        options:
          message: hi
          level: debug
    transitions:
      - id: go
        targetState: B
  - id: B
    machineRefs: [blink]
`

const blinkCUE = `
machine: {
	name: "blink"
	initialState: "open"
	states: open: transitions: blink: "shut"
	states: shut: {}
}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDirSource_GetConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "door.yaml", doorYAML)
	writeFile(t, dir, "blink.cue", blinkCUE)
	writeFile(t, dir, "notes.txt", "ignored")

	src, err := NewDirSource(dir)
	require.NoError(t, err)
	ctx := context.Background()

	door, err := src.GetConfig(ctx, "door")
	require.NoError(t, err)
	assert.Equal(t, "door", door.Name, "name defaults to the ref")
	assert.Equal(t, []string{"A", "B"}, door.StateIDs())
	assert.Equal(t, "debug", door.States[0].Actions[0].Options["level"])
	assert.Equal(t, []string{"blink"}, door.States[1].MachineRefs)

	blink, err := src.GetConfig(ctx, "blink")
	require.NoError(t, err)
	assert.Equal(t, "blink", blink.Name)
	assert.Equal(t, []config.TransitionConfig{{ID: "blink", TargetState: "shut"}}, blink.States[0].Transitions)

	_, err = src.GetConfig(ctx, "missing")
	assert.ErrorIs(t, err, config.ErrNotFound)
	_, err = src.GetConfig(ctx, "../door")
	assert.ErrorIs(t, err, config.ErrNotFound)

	refs, err := src.Refs()
	require.NoError(t, err)
	assert.Equal(t, []string{"blink", "door"}, refs)
}

func TestDirSource_CUERootWithoutName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lid.cue", `initialState: "up"
states: up: {}
`)
	src, err := NewDirSource(dir)
	require.NoError(t, err)

	cfg, err := src.GetConfig(context.Background(), "lid")
	require.NoError(t, err)
	assert.Equal(t, "lid", cfg.Name)
}

func TestLoadMachineFile_RejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.yaml", "initialState: A\nstaets: []\n")

	_, err := LoadMachineFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "staets")
}

func TestLoadMachineFile_JSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "j.json", `{"name": "jay", "initialState": "x", "states": [{"id": "x"}]}`)

	cfg, err := LoadMachineFile(path)
	require.NoError(t, err)
	assert.Equal(t, "jay", cfg.Name)
}

func TestNewDirSource_Errors(t *testing.T) {
	_, err := NewDirSource(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)

	file := writeFile(t, t.TempDir(), "f.yaml", "x: 1")
	_, err = NewDirSource(file)
	assert.Error(t, err)
}

func TestLoadClips(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "clips/wave.yaml", `
duration: 1
channels:
  hand:
    - time: 0
    - time: 1
      translation: [0, 2, 0]
`)
	writeFile(t, dir, "clips/spin.cue", `clip: {
	name: "spin"
	duration: 2
	channels: root: [{time: 0, rotation: [0, 0, 0, 1]}]
}`)

	lib, err := LoadClips(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"spin", "wave"}, lib.Names())

	wave := lib.Lookup("wave")
	require.NotNil(t, wave)
	assert.InDelta(t, 1.0, wave.Sample(0.5)["hand"].Translation[1], 1e-9)
	assert.Equal(t, [3]float64{1, 1, 1}, wave.Sample(0)["hand"].Scale)

	empty, err := LoadClips(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, empty.Names())
}

func TestBuildClip_BadComponents(t *testing.T) {
	_, err := BuildClip(&config.ClipConfig{
		Name:     "bad",
		Duration: 1,
		Channels: map[string][]config.KeyframeConfig{"hip": {{Time: 0, Translation: []float64{1, 2}}}},
	})
	assert.Error(t, err)
}

func TestWatcher_EmitsRefs(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcherWithDebounce(10*time.Millisecond, dir)
	require.NoError(t, err)
	defer w.Close()

	writeFile(t, dir, "ignored.txt", "x")
	writeFile(t, dir, "door.yaml", doorYAML)

	select {
	case ref := <-w.Events:
		assert.Equal(t, "door", ref)
	case err := <-w.Errors:
		t.Fatalf("watch error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("no event for door.yaml")
	}
}

func TestWatcher_ReportsAfterLastWrite(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcherWithDebounce(200*time.Millisecond, dir)
	require.NoError(t, err)
	defer w.Close()

	writeFile(t, dir, "door.yaml", "")
	for i := 0; i < 3; i++ {
		time.Sleep(20 * time.Millisecond)
		writeFile(t, dir, "door.yaml", doorYAML)
	}
	assert.Empty(t, w.Events, "nothing reported while writes keep arriving")

	select {
	case ref := <-w.Events:
		assert.Equal(t, "door", ref)
	case <-time.After(5 * time.Second):
		t.Fatal("no event for door.yaml")
	}

	select {
	case ref := <-w.Events:
		t.Fatalf("unexpected second event for %q", ref)
	case <-time.After(400 * time.Millisecond):
	}
}

func TestWatcher_CloseIsIdempotent(t *testing.T) {
	w, err := NewWatcher(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.NoError(t, w.Close())

	_, ok := <-w.Events
	assert.False(t, ok, "events channel closed after Close")
}

func TestIsConfigFile(t *testing.T) {
	assert.True(t, IsConfigFile("a/b.YAML"))
	assert.True(t, IsConfigFile("c.cue"))
	assert.False(t, IsConfigFile("d.tengo"))
	assert.Equal(t, "door", Ref("/x/door.yml"))
}
