package engine

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7Generator(t *testing.T) {
	var g UUIDv7Generator
	seen := make(map[string]bool)
	prev := ""
	for i := 0; i < 100; i++ {
		id := g.Generate()
		parsed, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(7), parsed.Version())
		assert.False(t, seen[id])
		seen[id] = true
		assert.Greater(t, id, prev, "v7 ids sort by creation")
		prev = id
	}
}

func TestFixedGenerator(t *testing.T) {
	g := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", g.Generate())
	assert.Equal(t, "b", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}

func TestRunIDContext(t *testing.T) {
	assert.Equal(t, "", RunID(context.Background()))
	assert.Equal(t, "r1", RunID(withRunID(context.Background(), "r1")))
}
