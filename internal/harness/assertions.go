package harness

import (
	"fmt"
	"math"

	"github.com/roach88/animfsm/internal/fsm"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

// defaultTolerance applies to joint assertions that give none.
const defaultTolerance = 1e-6

func (h *Harness) check(a Assertion) error {
	switch a.Type {
	case AssertActiveState:
		return h.assertActiveState(a)
	case AssertStateExists, AssertStateAbsent:
		return h.assertStatePresence(a)
	case AssertTransition:
		return h.assertTransition(a)
	case AssertJoint:
		return h.assertJoint(a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func (h *Harness) machine(ref string) (*fsm.Machine, error) {
	m, ok := h.runtime.Reconciler().Machine(ref)
	if !ok {
		return nil, fmt.Errorf("machine %q is not live", ref)
	}
	return m, nil
}

func (h *Harness) assertActiveState(a Assertion) error {
	var m *fsm.Machine
	if a.Layer != "" {
		m = h.layers[a.Layer].Machine()
	} else {
		var err error
		if m, err = h.machine(a.Machine); err != nil {
			return err
		}
	}

	actual := "<none>"
	if m != nil && m.Current() != nil {
		actual = string(m.Current().ID())
	}
	expected := a.State
	if expected == "" {
		expected = "<none>"
	}
	if actual != expected {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: actual}
	}
	return nil
}

func (h *Harness) assertStatePresence(a Assertion) error {
	m, err := h.machine(a.Machine)
	if err != nil {
		return err
	}
	_, exists := m.State(fsm.StateID(a.State))
	want := a.Type == AssertStateExists
	if exists != want {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("state %q present=%t", a.State, want),
			Actual:   fmt.Sprintf("present=%t (states %v)", exists, m.StateIDs()),
		}
	}
	return nil
}

func (h *Harness) assertTransition(a Assertion) error {
	m, err := h.machine(a.Machine)
	if err != nil {
		return err
	}
	s, ok := m.State(fsm.StateID(a.State))
	if !ok {
		return fmt.Errorf("state %q not in machine %q", a.State, a.Machine)
	}
	target, _ := s.Transition(fsm.EventID(a.Event))
	if string(target) != a.Target {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s --%s--> %q", a.State, a.Event, a.Target),
			Actual:   fmt.Sprintf("%q", target),
		}
	}
	return nil
}

func (h *Harness) assertJoint(a Assertion) error {
	tol := a.Tolerance
	if tol == 0 {
		tol = defaultTolerance
	}
	got, ok := h.pose.Joint(a.Joint)
	if !ok {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("joint %q", a.Joint), Actual: "no such joint in pose"}
	}
	for i := 0; i < 3; i++ {
		if math.Abs(got.Translation[i]-a.Translation[i]) > tol {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s translation %v", a.Joint, a.Translation),
				Actual:   fmt.Sprintf("%v", got.Translation),
			}
		}
	}
	return nil
}
