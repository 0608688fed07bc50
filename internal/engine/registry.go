package engine

import (
	"github.com/roach88/animfsm/internal/anim"
	"github.com/roach88/animfsm/internal/fsm"
)

// NewRegistry returns a registry holding the generic actions (emit, log,
// script) and the animation actions (play_clip, set_weight).
func NewRegistry() *fsm.Registry {
	r := fsm.NewRegistry()
	fsm.RegisterBuiltins(r)
	anim.RegisterActions(r)
	return r
}
