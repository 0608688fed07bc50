package anim

import (
	"github.com/roach88/animfsm/internal/fsm"
)

// BaseLayerName names the layer every Manager creates at index 0.
const BaseLayerName = "base"

// Layer is one independently driven animation channel. It wraps a single
// machine and blends its output onto the layer beneath it.
type Layer struct {
	name    string
	manager *Manager
	machine *fsm.Machine
	mode    BlendMode
	weight  float64

	clip      *ClipInstance
	lastValid SourceData

	blended    SourceData
	hasBlended bool
}

func newLayer(m *Manager, name string, mode BlendMode, weight float64) *Layer {
	return &Layer{
		name:    name,
		manager: m,
		mode:    mode,
		weight:  clamp01(weight),
	}
}

// Name returns the layer name.
func (l *Layer) Name() string { return l.name }

// Manager returns the owning manager.
func (l *Layer) Manager() *Manager { return l.manager }

// Machine returns the wrapped machine, or nil.
func (l *Layer) Machine() *fsm.Machine { return l.machine }

// Mode returns the blend policy.
func (l *Layer) Mode() BlendMode { return l.mode }

// Weight returns the blend weight in [0,1].
func (l *Layer) Weight() float64 { return l.weight }

// SetWeight sets the blend weight, clamped to [0,1].
func (l *Layer) SetWeight(w float64) { l.weight = clamp01(w) }

// SetMachine binds the layer to a machine. The machine is not started.
func (l *Layer) SetMachine(m *fsm.Machine) {
	l.manager.locker.Lock()
	defer l.manager.locker.Unlock()
	l.machine = m
}

// CurrentState returns the machine's active state, or nil.
func (l *Layer) CurrentState() *fsm.State {
	if l.machine == nil {
		return nil
	}
	return l.machine.Current()
}

// Start enters the machine's initial state at the manager's current time.
func (l *Layer) Start() error {
	l.manager.locker.Lock()
	defer l.manager.locker.Unlock()
	if l.machine == nil {
		return nil
	}
	return l.machine.Start(l.env(l.manager.clock.Seconds()))
}

// Send delivers an event to the layer's machine. It returns true when a
// transition fired.
func (l *Layer) Send(event fsm.EventID) bool {
	l.manager.locker.Lock()
	defer l.manager.locker.Unlock()
	if l.machine == nil {
		return false
	}
	return l.machine.Send(l.env(l.manager.clock.Seconds()), event)
}

// BoundClip returns the clip instance currently driving the layer, or nil.
func (l *Layer) BoundClip() *ClipInstance { return l.clip }

func (l *Layer) bindClip(ci *ClipInstance) {
	l.clip = ci
}

// unbindClip detaches ci if it is still the bound clip, keeping its final
// sample as the held pose.
func (l *Layer) unbindClip(ci *ClipInstance) {
	if l.clip == ci {
		l.lastValid = ci.Sample()
		l.clip = nil
	}
}

// update advances the bound clip, then the machine. Called by Manager.Update
// with the locker held.
func (l *Layer) update(globalTime float64) {
	if l.clip != nil {
		l.clip.Update(globalTime)
	}
	if l.machine != nil {
		l.machine.Update(l.env(globalTime))
	}
}

func (l *Layer) postUpdate() {
	if l.machine != nil {
		l.machine.PostUpdate()
	}
}

func (l *Layer) env(t float64) fsm.Env {
	return fsm.Env{Time: t, Host: l, Logger: l.manager.logger}
}

// SourceData returns the layer's own, unblended contribution. With no clip
// bound the last valid contribution is held.
func (l *Layer) SourceData() SourceData {
	if l.clip != nil {
		l.lastValid = l.clip.Sample()
	}
	return l.lastValid
}

// UpdateLayerBlending composes this layer onto lower according to the
// layer's blend policy. A layer with no contribution passes lower through.
//
// Must run once per frame after lower's own blending step.
func (l *Layer) UpdateLayerBlending(lower *Layer) {
	below := lower.CurrentSourceData()
	own := l.SourceData()
	if own == nil {
		l.blended = below.Clone()
	} else {
		l.blended = Blend(below, own, l.weight, l.mode)
	}
	l.hasBlended = true
}

// CurrentSourceData returns the most recently blended result, or the layer's
// own data before any blending pass.
func (l *Layer) CurrentSourceData() SourceData {
	if l.hasBlended {
		return l.blended
	}
	return l.SourceData()
}
