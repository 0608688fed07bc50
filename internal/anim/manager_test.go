package anim

import (
	"bytes"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/animfsm/internal/fsm"
	"github.com/roach88/animfsm/internal/testutil"
)

// tickAction counts update calls.
type tickAction struct{ updates int }

func (a *tickAction) ID() string                    { return "tick" }
func (a *tickAction) Configure(map[string]any) error { return nil }
func (a *tickAction) OnEnter(*fsm.Context)           {}
func (a *tickAction) OnUpdate(*fsm.Context)          { a.updates++ }
func (a *tickAction) OnExit(*fsm.Context)            {}

func singleState(name string, actions ...fsm.Action) *fsm.Machine {
	m := fsm.NewMachine(name)
	s := fsm.NewState("idle")
	for _, a := range actions {
		s.AddAction(a)
	}
	m.AddState(s)
	m.SetInitialState("idle")
	return m
}

func playing(t *testing.T, clip string) *fsm.Machine {
	t.Helper()
	a := NewPlayClipAction("play")
	require.NoError(t, a.Configure(map[string]any{"clip": clip}))
	return singleState(clip, a)
}

func TestManager_BaseLayer(t *testing.T) {
	m := NewManager(testutil.NewManualClock(0))

	require.Len(t, m.Layers(), 1)
	assert.Equal(t, BaseLayerName, m.BaseLayer().Name())
	assert.Same(t, m.BaseLayer(), m.Layer(0))
	assert.Nil(t, m.Layer(1))
	assert.Equal(t, DefaultUpdateRate, m.UpdateRate())
}

func TestManager_ThrottleIdempotence(t *testing.T) {
	clock := testutil.NewManualClock(0)
	m := NewManager(clock, WithUpdateRate(0.25))
	tick := &tickAction{}
	m.BaseLayer().SetMachine(singleState("base", tick))
	require.NoError(t, m.BaseLayer().Start())

	m.Update()
	assert.Equal(t, 0, tick.updates, "inside the first interval")

	clock.Set(0.3)
	m.Update()
	require.Equal(t, 1, tick.updates)
	last := m.LastUpdate()

	m.Update()
	clock.Set(0.45)
	m.Update()
	assert.Equal(t, 1, tick.updates)
	assert.Equal(t, last, m.LastUpdate())
}

func TestManager_PhaseStability(t *testing.T) {
	clock := testutil.NewManualClock(0)
	m := NewManager(clock, WithUpdateRate(0.25))

	readings := []float64{0.3, 0.61, 1.0, 1.9, 2.26, 2.27, 7.13}
	want := []float64{0.25, 0.5, 1.0, 1.75, 2.25, 2.25, 7.0}
	for i, r := range readings {
		clock.Set(r)
		m.Update()
		assert.InDelta(t, want[i], m.LastUpdate(), 1e-9, "reading %v", r)
		assert.InDelta(t, 0, math.Remainder(m.LastUpdate(), 0.25), 1e-9)
	}
}

func TestManager_ZeroRateAlwaysUpdates(t *testing.T) {
	clock := testutil.NewManualClock(1)
	m := NewManager(clock, WithUpdateRate(0))
	tick := &tickAction{}
	m.BaseLayer().SetMachine(singleState("base", tick))
	require.NoError(t, m.BaseLayer().Start())

	m.Update()
	m.Update()
	assert.Equal(t, 2, tick.updates)
	assert.Equal(t, 1.0, m.LastUpdate())
}

func TestManager_ClipInstanceCache(t *testing.T) {
	clock := testutil.NewManualClock(1)
	m := NewManager(clock)
	a, b := slide(), NewClip("other", 1, nil)

	first := m.ClipInstance(a)
	assert.Same(t, first, m.ClipInstance(a))
	assert.Equal(t, 1.0, first.StartTime())

	clock.Advance(2)
	other := m.ClipInstance(b)
	assert.NotSame(t, first, other)
	assert.Equal(t, 3.0, other.StartTime())
	assert.Equal(t, 1.0, first.StartTime())

	// Each manager keeps its own cursors.
	assert.NotSame(t, first, NewManager(clock).ClipInstance(a))
}

func TestManager_ClipInstanceConcurrent(t *testing.T) {
	m := NewManager(testutil.NewManualClock(0))
	c := slide()

	const n = 32
	got := make([]*ClipInstance, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			got[i] = m.ClipInstance(c)
		}(i)
	}
	wg.Wait()

	for _, ci := range got {
		assert.Same(t, got[0], ci)
	}
}

func constant(name string, x float64) *Clip {
	return NewClip(name, 1, map[string][]Keyframe{
		"hip": {{Time: 0, Transform: translated(x)}},
	})
}

func TestManager_BlendOrdering(t *testing.T) {
	lib := NewClipLibrary(constant("stand", 0), constant("lean", 10), constant("nudge", 1))
	m := NewManager(testutil.NewManualClock(0), WithClips(lib), WithUpdateRate(0))

	m.BaseLayer().SetMachine(playing(t, "stand"))
	upper := m.AddLayer("upper", BlendOverride, 0.5)
	upper.SetMachine(playing(t, "lean"))
	top := m.AddLayer("top", BlendAdditive, 1)
	top.SetMachine(playing(t, "nudge"))
	for _, l := range m.Layers() {
		require.NoError(t, l.Start())
	}

	// Out-of-order blending on the top layer is overwritten by the manager's
	// bottom-up pass.
	top.UpdateLayerBlending(m.BaseLayer())

	out := m.CurrentSourceData()
	assert.InDelta(t, 6.0, out["hip"].Translation[0], 1e-9)

	again := m.CurrentSourceData()
	assert.Equal(t, out, again)
	assert.InDelta(t, 5.0, upper.CurrentSourceData()["hip"].Translation[0], 1e-9)
}

func TestManager_EmptyUpperLayerPassesThrough(t *testing.T) {
	lib := NewClipLibrary(constant("stand", 2))
	m := NewManager(testutil.NewManualClock(0), WithClips(lib))
	m.BaseLayer().SetMachine(playing(t, "stand"))
	require.NoError(t, m.BaseLayer().Start())
	m.AddLayer("empty", BlendOverride, 1)

	out := m.CurrentSourceData()
	assert.InDelta(t, 2.0, out["hip"].Translation[0], 1e-9)
}

func TestManager_AppliesToPoses(t *testing.T) {
	lib := NewClipLibrary(constant("stand", 4))
	clock := testutil.NewManualClock(0)
	pose := NewSkeletonPose()
	m := NewManager(clock, WithClips(lib), WithUpdateRate(0))
	m.AddPose(pose)
	m.BaseLayer().SetMachine(playing(t, "stand"))
	require.NoError(t, m.BaseLayer().Start())

	m.Update()
	hip, ok := pose.Joint("hip")
	require.True(t, ok)
	assert.InDelta(t, 4.0, hip.Translation[0], 1e-9)
	assert.Len(t, pose.Snapshot(), 1)
}

func TestManager_MissingBaseState(t *testing.T) {
	t.Run("strict panics", func(t *testing.T) {
		m := NewManager(testutil.NewManualClock(0), WithStrict(true))
		assert.Panics(t, func() { m.CurrentSourceData() })
	})

	t.Run("lenient warns once per frame", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		m := NewManager(testutil.NewManualClock(0), WithLogger(logger))

		assert.NotPanics(t, func() {
			m.CurrentSourceData()
			m.CurrentSourceData()
		})
		assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("MISSING_BASE_STATE")))
	})
}

func TestManager_LayerByName(t *testing.T) {
	m := NewManager(testutil.NewManualClock(0))
	arms := m.AddLayer("arms", BlendAdditive, 2)

	got, ok := m.LayerByName("arms")
	require.True(t, ok)
	assert.Same(t, arms, got)
	assert.Equal(t, 1.0, got.Weight(), "weight clamps to 1")
	assert.Equal(t, BlendAdditive, got.Mode())

	_, ok = m.LayerByName("legs")
	assert.False(t, ok)
}
