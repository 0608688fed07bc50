package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/animfsm/internal/config"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// doorConfig returns a two-state config with options of every JSON kind.
func doorConfig() *config.MachineConfig {
	return &config.MachineConfig{
		Name:         "door",
		InitialState: "closed",
		States: []config.StateConfig{
			{
				ID: "closed",
				Actions: []config.ActionConfig{{
					ID:   "hold",
					Type: "play_clip",
					Options: map[string]any{
						"clip":       "door_closed",
						"loop_count": 2,
						"time_scale": 0.5,
						"tags":       []any{"a", "<b>"},
					},
				}},
				Transitions: []config.TransitionConfig{{ID: "open", TargetState: "opened"}},
			},
			{ID: "opened", MachineRefs: []string{"hinge"}},
		},
	}
}
