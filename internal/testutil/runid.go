package testutil

import (
	"fmt"
	"sync"
)

// SequenceRunIDGenerator generates predictable sync run ids.
//
// Ids have the form "<prefix>-0001", "<prefix>-0002", ... so golden history
// output is byte-identical across runs.
//
// Thread-safety: SequenceRunIDGenerator is safe for concurrent use.
type SequenceRunIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceRunIDGenerator creates a generator. An empty prefix becomes "run".
func NewSequenceRunIDGenerator(prefix string) *SequenceRunIDGenerator {
	if prefix == "" {
		prefix = "run"
	}
	return &SequenceRunIDGenerator{prefix: prefix}
}

// Generate returns the next run id.
//
// Implements engine.RunIDGenerator.
func (g *SequenceRunIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
