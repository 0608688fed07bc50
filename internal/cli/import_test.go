package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/animfsm/internal/store"
)

func importJSON(t *testing.T, args ...string) ImportResult {
	t.Helper()
	out, err := execute(t, append([]string{"--format", "json", "import"}, args...)...)
	require.NoError(t, err)

	var resp struct {
		Data ImportResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	return resp.Data
}

func TestImport(t *testing.T) {
	dir := createConfigDir(t)
	db := filepath.Join(t.TempDir(), "anim.db")

	first := importJSON(t, "--db", db, dir)
	assert.Equal(t, []string{"blink", "door"}, first.Changed)
	assert.Empty(t, first.Unchanged)
	assert.Equal(t, 1, first.Clips)

	second := importJSON(t, "--db", db, dir)
	assert.Empty(t, second.Changed)
	assert.Equal(t, []string{"blink", "door"}, second.Unchanged)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	cfg, err := st.GetConfig(context.Background(), "door")
	require.NoError(t, err)
	assert.Equal(t, "closed", cfg.InitialState)
	_, rev, err := st.ConfigHash(context.Background(), "door")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)
}

func TestImport_Prune(t *testing.T) {
	dir := createConfigDir(t)
	db := filepath.Join(t.TempDir(), "anim.db")
	importJSON(t, "--db", db, dir)

	require.NoError(t, os.Remove(filepath.Join(dir, "blink.cue")))

	kept := importJSON(t, "--db", db, dir)
	assert.Empty(t, kept.Deleted)

	pruned := importJSON(t, "--db", db, "--prune", dir)
	assert.Equal(t, []string{"blink"}, pruned.Deleted)
}

func TestImport_Text(t *testing.T) {
	out, err := execute(t, "import", "--db", filepath.Join(t.TempDir(), "anim.db"), createConfigDir(t))
	require.NoError(t, err)
	assert.Contains(t, out, "  + door")
	assert.Contains(t, out, "✓ Imported 2 machine(s) (2 changed), 1 clip(s)")
}

func TestImport_Errors(t *testing.T) {
	t.Run("missing db flag", func(t *testing.T) {
		_, err := execute(t, "import", createConfigDir(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `required flag(s) "db" not set`)
	})

	t.Run("broken config", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{"lamp.yaml": "name: [\n"})
		_, err := execute(t, "import", "--db", filepath.Join(t.TempDir(), "anim.db"), dir)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, err.Error(), ErrCodeLoadFailed)
	})
}
