package fsm

import "sort"

// StateID identifies a state within a machine.
type StateID string

// EventID identifies a transition event.
type EventID string

// Transition is a directed, event-keyed edge to a target state.
type Transition struct {
	Event  EventID
	Target StateID
}

// State is a graph node owning ordered actions, event-keyed transitions and
// nested machine references.
//
// INVARIANT: a State's id never changes. Reconciliation mutates fields in
// place so that a machine's active-state pointer stays valid.
type State struct {
	id          StateID
	Name        string
	actions     []Action
	transitions map[EventID]StateID
	machines    []*Machine
	owner       *Machine
	justEntered bool
}

// NewState creates an empty state.
func NewState(id StateID) *State {
	return &State{
		id:          id,
		transitions: make(map[EventID]StateID),
	}
}

// ID returns the stable state id.
func (s *State) ID() StateID {
	return s.id
}

// Owner returns the machine this state is attached to, or nil once removed.
func (s *State) Owner() *Machine {
	return s.owner
}

// JustEntered reports whether the state was entered during the current frame.
// Cleared by Machine.PostUpdate.
func (s *State) JustEntered() bool {
	return s.justEntered
}

// AddAction appends an action to the end of the action list.
func (s *State) AddAction(a Action) {
	s.actions = append(s.actions, a)
}

// Action returns the action with the given id.
func (s *State) Action(id string) (Action, bool) {
	for _, a := range s.actions {
		if a.ID() == id {
			return a, true
		}
	}
	return nil, false
}

// Actions returns a copy of the ordered action list.
func (s *State) Actions() []Action {
	out := make([]Action, len(s.actions))
	copy(out, s.actions)
	return out
}

// SetActions replaces the action list, keeping the given order.
func (s *State) SetActions(actions []Action) {
	s.actions = append(s.actions[:0:0], actions...)
}

// RemoveAction removes the action with the given id, preserving order.
func (s *State) RemoveAction(id string) bool {
	for i, a := range s.actions {
		if a.ID() == id {
			s.actions = append(s.actions[:i], s.actions[i+1:]...)
			return true
		}
	}
	return false
}

// SetTransition sets or overwrites the transition for event.
func (s *State) SetTransition(event EventID, target StateID) {
	s.transitions[event] = target
}

// Transition returns the target for event.
func (s *State) Transition(event EventID) (StateID, bool) {
	t, ok := s.transitions[event]
	return t, ok
}

// Transitions returns all transitions sorted by event id.
func (s *State) Transitions() []Transition {
	out := make([]Transition, 0, len(s.transitions))
	for ev, target := range s.transitions {
		out = append(out, Transition{Event: ev, Target: target})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Event < out[j].Event })
	return out
}

// RemoveTransition deletes the transition for event.
func (s *State) RemoveTransition(event EventID) bool {
	if _, ok := s.transitions[event]; !ok {
		return false
	}
	delete(s.transitions, event)
	return true
}

// RemoveTransitionsTo deletes every transition targeting target and returns
// how many were removed.
func (s *State) RemoveTransitionsTo(target StateID) int {
	n := 0
	for ev, t := range s.transitions {
		if t == target {
			delete(s.transitions, ev)
			n++
		}
	}
	return n
}

// AddMachine attaches a nested machine. Attaching the same machine twice is a
// no-op.
func (s *State) AddMachine(m *Machine) {
	for _, existing := range s.machines {
		if existing == m {
			return
		}
	}
	s.machines = append(s.machines, m)
	m.addParent(s)
}

// SetMachines replaces the nested machine list. Machines no longer listed are
// detached from this state.
func (s *State) SetMachines(ms []*Machine) {
	keep := make(map[*Machine]bool, len(ms))
	for _, m := range ms {
		keep[m] = true
	}
	for _, old := range s.machines {
		if !keep[old] {
			old.removeParent(s)
		}
	}
	s.machines = s.machines[:0]
	for _, m := range ms {
		s.AddMachine(m)
	}
}

// Machines returns a copy of the nested machine list.
func (s *State) Machines() []*Machine {
	out := make([]*Machine, len(s.machines))
	copy(out, s.machines)
	return out
}

func (s *State) removeMachine(m *Machine) {
	for i, existing := range s.machines {
		if existing == m {
			s.machines = append(s.machines[:i], s.machines[i+1:]...)
			return
		}
	}
}

func (s *State) context(m *Machine, env Env) *Context {
	return &Context{
		Machine: m,
		State:   s,
		Time:    env.Time,
		Host:    env.Host,
		Logger:  env.logger(),
	}
}

func (s *State) enter(m *Machine, env Env) {
	s.justEntered = true
	ctx := s.context(m, env)
	for _, a := range s.actions {
		a.OnEnter(ctx)
	}
	for _, child := range s.machines {
		if err := child.Start(env); err != nil {
			env.logger().Warn("nested machine start failed",
				"machine", m.name,
				"state", s.id,
				"nested", child.name,
				"error", err,
			)
		}
	}
}

func (s *State) update(m *Machine, env Env) {
	ctx := s.context(m, env)
	for _, a := range s.actions {
		a.OnUpdate(ctx)
	}
	for _, child := range s.machines {
		child.Update(env)
	}
}

func (s *State) exit(m *Machine, env Env) {
	for _, child := range s.machines {
		child.Stop(env)
	}
	ctx := s.context(m, env)
	for _, a := range s.actions {
		a.OnExit(ctx)
	}
}
