package anim

import (
	"fmt"

	"github.com/roach88/animfsm/internal/fsm"
)

// Animation action type tags.
const (
	TypePlayClip  = "play_clip"
	TypeSetWeight = "set_weight"
)

// RegisterActions adds the animation action kinds to r.
func RegisterActions(r *fsm.Registry) {
	r.Register(TypePlayClip, func(id string) fsm.Action { return NewPlayClipAction(id) })
	r.Register(TypeSetWeight, func(id string) fsm.Action { return NewSetWeightAction(id) })
}

// PlayClipAction binds a clip to its host layer while its state is active.
type PlayClipAction struct {
	id        string
	clip      string
	timeScale float64
	loopCount int
	onEnd     fsm.EventID

	instance *ClipInstance
	ended    bool
}

// NewPlayClipAction creates an unconfigured play_clip action.
func NewPlayClipAction(id string) *PlayClipAction {
	return &PlayClipAction{id: id, timeScale: 1}
}

func (a *PlayClipAction) ID() string { return a.id }

// Configure reads "clip" (required), "time_scale", "loop_count" and "on_end".
func (a *PlayClipAction) Configure(opts map[string]any) error {
	clip, err := fsm.OptString(opts, "clip", "")
	if err != nil {
		return fsm.NewInvalidOptionsError(a.id, err)
	}
	if clip == "" {
		return fsm.NewInvalidOptionsError(a.id, fmt.Errorf("option %q is required", "clip"))
	}
	scale, err := fsm.OptFloat(opts, "time_scale", 1)
	if err != nil {
		return fsm.NewInvalidOptionsError(a.id, err)
	}
	loops, err := fsm.OptInt(opts, "loop_count", 0)
	if err != nil {
		return fsm.NewInvalidOptionsError(a.id, err)
	}
	if loops < 0 {
		return fsm.NewInvalidOptionsError(a.id, fmt.Errorf("option %q must be >= 0", "loop_count"))
	}
	onEnd, err := fsm.OptString(opts, "on_end", "")
	if err != nil {
		return fsm.NewInvalidOptionsError(a.id, err)
	}
	a.clip = clip
	a.timeScale = scale
	a.loopCount = loops
	a.onEnd = fsm.EventID(onEnd)
	return nil
}

func (a *PlayClipAction) OnEnter(ctx *fsm.Context) {
	a.instance = nil
	a.ended = false
	layer, ok := ctx.Host.(*Layer)
	if !ok {
		return
	}
	clip := layer.manager.Clips().Lookup(a.clip)
	if clip == nil {
		ctx.Logger.Warn("clip not found",
			"action", a.id,
			"clip", a.clip,
			"layer", layer.name,
		)
		return
	}
	ci := layer.manager.ClipInstance(clip)
	ci.TimeScale = a.timeScale
	ci.LoopCount = a.loopCount
	ci.Reset(ctx.Time)
	layer.bindClip(ci)
	a.instance = ci
}

func (a *PlayClipAction) OnUpdate(ctx *fsm.Context) {
	if a.instance == nil || a.ended || a.instance.Active() {
		return
	}
	a.ended = true
	if a.onEnd != "" {
		ctx.Send(a.onEnd)
	}
}

func (a *PlayClipAction) OnExit(ctx *fsm.Context) {
	if layer, ok := ctx.Host.(*Layer); ok && a.instance != nil {
		layer.unbindClip(a.instance)
	}
	a.instance = nil
}

// SetWeightAction sets the host layer's blend weight on enter.
type SetWeightAction struct {
	id     string
	weight float64
}

// NewSetWeightAction creates a set_weight action with weight 1.
func NewSetWeightAction(id string) *SetWeightAction {
	return &SetWeightAction{id: id, weight: 1}
}

func (a *SetWeightAction) ID() string { return a.id }

// Configure reads "weight" in [0,1].
func (a *SetWeightAction) Configure(opts map[string]any) error {
	w, err := fsm.OptFloat(opts, "weight", 1)
	if err != nil {
		return fsm.NewInvalidOptionsError(a.id, err)
	}
	if w < 0 || w > 1 {
		return fsm.NewInvalidOptionsError(a.id, fmt.Errorf("option %q must be in [0,1]", "weight"))
	}
	a.weight = w
	return nil
}

func (a *SetWeightAction) OnEnter(ctx *fsm.Context) {
	if layer, ok := ctx.Host.(*Layer); ok {
		layer.SetWeight(a.weight)
	}
}

func (a *SetWeightAction) OnUpdate(*fsm.Context) {}
func (a *SetWeightAction) OnExit(*fsm.Context)   {}
