package fsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_SetMachinesDetachesDropped(t *testing.T) {
	s := NewState("s")
	m1 := NewMachine("m1")
	m2 := NewMachine("m2")
	s.SetMachines([]*Machine{m1, m2})
	s.SetMachines([]*Machine{m2})

	assert.Equal(t, []*Machine{m2}, s.Machines())
	assert.Empty(t, m1.Parents())
	assert.Equal(t, []*State{s}, m2.Parents())
}

func TestState_ActionsKeepOrder(t *testing.T) {
	var log []string
	s := NewState("s")
	for _, id := range []string{"x", "y", "z"} {
		s.AddAction(&recordAction{id: id, log: &log})
	}
	require.True(t, s.RemoveAction("y"))
	assert.False(t, s.RemoveAction("y"))

	ids := []string{}
	for _, a := range s.Actions() {
		ids = append(ids, a.ID())
	}
	assert.Equal(t, []string{"x", "z"}, ids)

	_, ok := s.Action("z")
	assert.True(t, ok)
}

func TestState_Transitions(t *testing.T) {
	s := NewState("s")
	s.SetTransition("b", "two")
	s.SetTransition("a", "one")
	s.SetTransition("c", "one")
	s.SetTransition("b", "three")

	target, ok := s.Transition("b")
	require.True(t, ok)
	assert.Equal(t, StateID("three"), target)

	assert.Equal(t, []Transition{
		{Event: "a", Target: "one"},
		{Event: "b", Target: "three"},
		{Event: "c", Target: "one"},
	}, s.Transitions())

	assert.Equal(t, 2, s.RemoveTransitionsTo("one"))
	assert.True(t, s.RemoveTransition("b"))
	assert.False(t, s.RemoveTransition("b"))
	assert.Empty(t, s.Transitions())
}

func TestState_AddMachineIsIdempotent(t *testing.T) {
	s := NewState("s")
	m := NewMachine("m")
	s.AddMachine(m)
	s.AddMachine(m)

	assert.Len(t, s.Machines(), 1)
	assert.Equal(t, []*State{s}, m.Parents())
}

func TestState_SetActionsCopiesInput(t *testing.T) {
	var log []string
	in := []Action{&recordAction{id: "x", log: &log}, &recordAction{id: "y", log: &log}}
	s := NewState("s")
	s.SetActions(in)
	in[0] = &recordAction{id: "z", log: &log}

	_, ok := s.Action("x")
	assert.True(t, ok)
	_, ok = s.Action("z")
	assert.False(t, ok)
}
