package fsm

import "sort"

// MaxChainedTransitions bounds how many queued events a single drain delivers.
// Actions that keep re-sending events past this limit are cut off.
const MaxChainedTransitions = 64

// historySize is the number of previously active state ids kept per machine.
const historySize = 16

// Machine is a named graph of States with one designated initial state and a
// single active-state cursor.
//
// The active state is nil until Start is called, and becomes nil again when
// the active state is removed from the graph.
type Machine struct {
	name     string
	initial  StateID
	states   map[StateID]*State
	current  *State
	history  []StateID
	parents  []*State
	pending  []EventID
	draining bool
}

// NewMachine creates an empty machine.
func NewMachine(name string) *Machine {
	return &Machine{
		name:   name,
		states: make(map[StateID]*State),
	}
}

// Name returns the machine name.
func (m *Machine) Name() string {
	return m.name
}

// SetName renames the machine.
func (m *Machine) SetName(name string) {
	m.name = name
}

// SetInitialState sets the state entered by Start. It does not affect an
// already-active machine.
func (m *Machine) SetInitialState(id StateID) {
	m.initial = id
}

// InitialState returns the configured initial state id.
func (m *Machine) InitialState() StateID {
	return m.initial
}

// AddState attaches s to the machine, replacing any state with the same id.
func (m *Machine) AddState(s *State) {
	s.owner = m
	m.states[s.id] = s
}

// State returns the state with the given id.
func (m *Machine) State(id StateID) (*State, bool) {
	s, ok := m.states[id]
	return s, ok
}

// StateIDs returns all state ids in sorted order.
func (m *Machine) StateIDs() []StateID {
	ids := make([]StateID, 0, len(m.states))
	for id := range m.states {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// RemoveState detaches the state with the given id.
//
// Every transition in other states targeting it is removed, its owner
// back-reference is cleared and its nested machines lose their parent link.
// If the state is active the cursor is invalidated (set to nil) without
// running exit actions.
func (m *Machine) RemoveState(id StateID) bool {
	s, ok := m.states[id]
	if !ok {
		return false
	}
	delete(m.states, id)

	for _, other := range m.states {
		other.RemoveTransitionsTo(id)
	}

	if m.current == s {
		m.current = nil
		m.pending = nil
	}

	s.owner = nil
	s.justEntered = false
	for _, child := range s.machines {
		child.removeParent(s)
	}
	s.machines = nil
	return true
}

// Current returns the active state, or nil.
func (m *Machine) Current() *State {
	return m.current
}

// History returns previously active state ids, oldest first.
func (m *Machine) History() []StateID {
	out := make([]StateID, len(m.history))
	copy(out, m.history)
	return out
}

// Parents returns the states that reference this machine.
func (m *Machine) Parents() []*State {
	out := make([]*State, len(m.parents))
	copy(out, m.parents)
	return out
}

// Start enters the initial state. An already-active state is exited first.
func (m *Machine) Start(env Env) error {
	initial, ok := m.states[m.initial]
	if !ok {
		return NewUnknownStateError(m.name, m.initial)
	}
	if m.current != nil {
		m.Stop(env)
	}
	m.current = initial
	initial.enter(m, env)
	m.drain(env)
	return nil
}

// Stop exits the active state and clears the cursor.
func (m *Machine) Stop(env Env) {
	if m.current == nil {
		return
	}
	prev := m.current
	prev.exit(m, env)
	m.pushHistory(prev.id)
	m.current = nil
	m.pending = nil
}

// Send delivers an event to the active state. It returns true when the event
// caused a transition. Events with no mapping, or whose target is missing
// from the machine, leave the active state unchanged.
func (m *Machine) Send(env Env, event EventID) bool {
	if m.draining {
		m.enqueue(event)
		return false
	}
	fired := m.fire(env, event)
	m.drain(env)
	return fired
}

// Update runs the active state's update actions and advances nested machines.
func (m *Machine) Update(env Env) {
	if m.current == nil {
		return
	}
	m.current.update(m, env)
	m.drain(env)
}

// PostUpdate clears one-shot per-frame flags on the active state and nested
// machines.
func (m *Machine) PostUpdate() {
	if m.current == nil {
		return
	}
	m.current.justEntered = false
	for _, child := range m.current.machines {
		child.PostUpdate()
	}
}

// RemoveFromParent detaches the machine from every state referencing it.
func (m *Machine) RemoveFromParent() {
	for _, p := range m.parents {
		p.removeMachine(m)
	}
	m.parents = nil
}

func (m *Machine) fire(env Env, event EventID) bool {
	if m.current == nil {
		return false
	}
	target, ok := m.current.Transition(event)
	if !ok {
		return false
	}
	next, ok := m.states[target]
	if !ok {
		env.logger().Debug("transition target missing",
			"machine", m.name,
			"state", m.current.id,
			"event", event,
			"target", target,
		)
		return false
	}

	prev := m.current
	prev.exit(m, env)
	m.pushHistory(prev.id)
	m.current = next
	env.logger().Debug("transition",
		"machine", m.name,
		"from", prev.id,
		"to", next.id,
		"event", event,
	)
	next.enter(m, env)
	return true
}

func (m *Machine) drain(env Env) {
	if m.draining {
		return
	}
	m.draining = true
	defer func() { m.draining = false }()

	for n := 0; len(m.pending) > 0; n++ {
		if n >= MaxChainedTransitions {
			err := &RuntimeError{
				Code:    ErrCodeChainLimit,
				Message: "too many chained transitions, dropping queued events",
				Machine: m.name,
			}
			env.logger().Warn("transition chain cut off",
				"machine", m.name,
				"dropped", len(m.pending),
				"error", err,
			)
			m.pending = nil
			return
		}
		ev := m.pending[0]
		m.pending = m.pending[1:]
		m.fire(env, ev)
	}
}

func (m *Machine) enqueue(event EventID) {
	m.pending = append(m.pending, event)
}

func (m *Machine) pushHistory(id StateID) {
	m.history = append(m.history, id)
	if len(m.history) > historySize {
		m.history = m.history[len(m.history)-historySize:]
	}
}

func (m *Machine) addParent(s *State) {
	for _, p := range m.parents {
		if p == s {
			return
		}
	}
	m.parents = append(m.parents, s)
}

func (m *Machine) removeParent(s *State) {
	for i, p := range m.parents {
		if p == s {
			m.parents = append(m.parents[:i], m.parents[i+1:]...)
			return
		}
	}
}
