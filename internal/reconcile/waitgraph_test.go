package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWaitGraph(t *testing.T) {
	g := newWaitGraph()

	ok, _ := g.add("a", "b")
	assert.True(t, ok)
	ok, _ = g.add("b", "c")
	assert.True(t, ok)

	ok, path := g.add("c", "a")
	assert.False(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, path)

	ok, path = g.add("a", "a")
	assert.False(t, ok)
	assert.Equal(t, []string{"a"}, path)

	// Diamonds are fine.
	ok, _ = g.add("x", "c")
	assert.True(t, ok)

	g.remove("b", "c")
	ok, _ = g.add("c", "a")
	assert.True(t, ok)
}

func TestWaitGraph_CountsEdges(t *testing.T) {
	g := newWaitGraph()
	g.add("a", "b")
	g.add("a", "b")
	g.remove("a", "b")

	ok, _ := g.add("b", "a")
	assert.False(t, ok, "one waiter still holds the edge")

	g.remove("a", "b")
	ok, _ = g.add("b", "a")
	assert.True(t, ok)
	assert.Empty(t, g.edges["a"])
}
