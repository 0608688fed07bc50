package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManualClock_StartsAtGivenTime(t *testing.T) {
	clock := NewManualClock(2.5)
	assert.Equal(t, 2.5, clock.Seconds())
}

func TestManualClock_AdvanceIsMonotonic(t *testing.T) {
	clock := NewManualClock(0)

	assert.Equal(t, 0.5, clock.Advance(0.5))
	assert.Equal(t, 0.5, clock.Advance(-1), "negative advance ignored")

	clock.Set(0.25)
	assert.Equal(t, 0.5, clock.Seconds(), "Set never rewinds")

	clock.Set(3)
	assert.Equal(t, 3.0, clock.Seconds())
}

func TestManualClock_Reset(t *testing.T) {
	clock := NewManualClock(10)
	clock.Reset()
	assert.Equal(t, 0.0, clock.Seconds())
}

func TestManualClock_ThreadSafe(t *testing.T) {
	clock := NewManualClock(0)
	const numGoroutines = 50

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			clock.Advance(1)
		}()
	}
	wg.Wait()

	assert.Equal(t, float64(numGoroutines), clock.Seconds())
}

func TestSequenceRunIDGenerator(t *testing.T) {
	gen := NewSequenceRunIDGenerator("")
	assert.Equal(t, "run-0001", gen.Generate())
	assert.Equal(t, "run-0002", gen.Generate())

	custom := NewSequenceRunIDGenerator("sync")
	assert.Equal(t, "sync-0001", custom.Generate())
}
