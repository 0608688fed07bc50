package anim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/animfsm/internal/fsm"
	"github.com/roach88/animfsm/internal/testutil"
)

func TestLayer_WeightClamped(t *testing.T) {
	m := NewManager(testutil.NewManualClock(0))
	top := m.AddLayer("top", BlendOverride, 1.5)
	assert.Equal(t, 1.0, top.Weight())

	top.SetWeight(-2)
	assert.Equal(t, 0.0, top.Weight())
	assert.Same(t, m, top.Manager())
}

func TestLayer_WithoutMachine(t *testing.T) {
	m := NewManager(testutil.NewManualClock(0))
	l := m.BaseLayer()

	assert.NoError(t, l.Start())
	assert.False(t, l.Send("go"))
	assert.Nil(t, l.CurrentState())
	assert.Nil(t, l.SourceData())
}

func TestLayer_AdditiveOverBase(t *testing.T) {
	clock := testutil.NewManualClock(0)
	m := NewManager(clock, WithClips(NewClipLibrary(slide(), constant("nudge", 2))), WithUpdateRate(0))

	base := m.BaseLayer()
	base.SetMachine(playing(t, "slide"))
	require.NoError(t, base.Start())

	top := m.AddLayer("top", BlendAdditive, 0.5)
	top.SetMachine(playing(t, "nudge"))
	require.NoError(t, top.Start())

	clock.Set(0.5)
	m.Update()

	// Before blending the top layer reports its own contribution.
	assert.InDelta(t, 2.0, top.CurrentSourceData()["hip"].Translation[0], 1e-9)

	out := m.CurrentSourceData()
	assert.InDelta(t, 5.0+2.0*0.5, out["hip"].Translation[0], 1e-9)
	assert.InDelta(t, 5.0, base.CurrentSourceData()["hip"].Translation[0], 1e-9, "base is never blended")
}

func TestLayer_HoldsLastPoseWhenClipUnbound(t *testing.T) {
	clock := testutil.NewManualClock(0)
	m := NewManager(clock, WithClips(NewClipLibrary(slide())), WithUpdateRate(0))

	play := NewPlayClipAction("play")
	require.NoError(t, play.Configure(map[string]any{"clip": "slide"}))
	machine := fsm.NewMachine("mover")
	moving := fsm.NewState("moving")
	moving.AddAction(play)
	moving.SetTransition("halt", "idle")
	machine.AddState(moving)
	machine.AddState(fsm.NewState("idle"))
	machine.SetInitialState("moving")

	base := m.BaseLayer()
	base.SetMachine(machine)
	require.NoError(t, base.Start())

	clock.Set(0.25)
	m.Update()
	require.NotNil(t, base.BoundClip())
	assert.InDelta(t, 2.5, base.SourceData()["hip"].Translation[0], 1e-9)

	require.True(t, base.Send("halt"))
	assert.Nil(t, base.BoundClip())

	clock.Set(0.75)
	m.Update()
	assert.InDelta(t, 2.5, base.SourceData()["hip"].Translation[0], 1e-9)
}
