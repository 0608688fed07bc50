package anim

import (
	"log/slog"
	"math"
	"sync"

	"github.com/roach88/animfsm/internal/fsm"
)

// DefaultUpdateRate is the default minimum interval between accepted updates.
const DefaultUpdateRate = 1.0 / 60.0

// Manager owns an ordered stack of layers, drives them once per tick and
// pushes the blended result to every registered pose.
//
// Layer 0 is the base layer and must always have an active state; layers
// above it composite on top of it.
//
// Thread-safety: Update, Layer.Start and Layer.Send run under the graph
// locker. Share that locker with whatever mutates the machines (see
// WithLocker). ClipInstance is safe for concurrent use on its own.
type Manager struct {
	clock   Clock
	applier Applier
	poses   []Pose
	clips   *ClipLibrary
	logger  *slog.Logger
	strict  bool
	locker  sync.Locker

	layers     []*Layer
	updateRate float64
	lastUpdate float64
	warnedAt   float64
	warned     bool

	cacheMu   sync.Mutex
	instances map[*Clip]*ClipInstance
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithUpdateRate sets the throttle interval in seconds. Zero disables
// throttling.
func WithUpdateRate(rate float64) ManagerOption {
	return func(m *Manager) {
		if rate >= 0 {
			m.updateRate = rate
		}
	}
}

// WithApplier replaces the default DirectApplier.
func WithApplier(a Applier) ManagerOption {
	return func(m *Manager) {
		m.applier = a
	}
}

// WithPose registers a pose to update every accepted tick.
func WithPose(p Pose) ManagerOption {
	return func(m *Manager) {
		m.poses = append(m.poses, p)
	}
}

// WithClips sets the library play_clip actions look clips up in.
func WithClips(lib *ClipLibrary) ManagerOption {
	return func(m *Manager) {
		m.clips = lib
	}
}

// WithLocker sets the graph lock held during Update. Pass the same locker to
// the reconciler so frames never observe a half-synced graph.
func WithLocker(l sync.Locker) ManagerOption {
	return func(m *Manager) {
		m.locker = l
	}
}

// WithLogger sets the logger handed to actions and used for violations.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithStrict makes precondition violations panic instead of logging.
func WithStrict(strict bool) ManagerOption {
	return func(m *Manager) {
		m.strict = strict
	}
}

// NewManager creates a manager with a single base layer.
func NewManager(clock Clock, opts ...ManagerOption) *Manager {
	m := &Manager{
		clock:      clock,
		applier:    DirectApplier{},
		logger:     slog.Default(),
		updateRate: DefaultUpdateRate,
		instances:  make(map[*Clip]*ClipInstance),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.locker == nil {
		m.locker = &sync.Mutex{}
	}
	m.layers = []*Layer{newLayer(m, BaseLayerName, BlendOverride, 1)}
	return m
}

// Update advances every layer to the current global time and applies the
// blended result to each pose. Calls inside the throttle interval are no-ops.
func (m *Manager) Update() {
	m.locker.Lock()
	defer m.locker.Unlock()

	now := m.clock.Seconds()
	if m.updateRate != 0 {
		if now-m.lastUpdate < m.updateRate {
			return
		}
		// Snap to the rate grid so pauses do not shift the phase.
		m.lastUpdate = now - math.Mod(now-m.lastUpdate, m.updateRate)
	} else {
		m.lastUpdate = now
	}

	for _, l := range m.layers {
		if l.CurrentState() != nil {
			l.update(now)
		}
	}

	for _, p := range m.poses {
		m.applier.ApplyTo(p, m)
	}

	for _, l := range m.layers {
		if l.CurrentState() != nil {
			l.postUpdate()
		}
	}
}

// LastUpdate returns the rate-aligned time of the last accepted update.
func (m *Manager) LastUpdate() float64 {
	return m.lastUpdate
}

// UpdateRate returns the throttle interval.
func (m *Manager) UpdateRate() float64 {
	return m.updateRate
}

// ClipInstance returns this manager's playback cursor for clip, creating it
// at the current global time on first request.
func (m *Manager) ClipInstance(clip *Clip) *ClipInstance {
	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()
	ci, ok := m.instances[clip]
	if !ok {
		ci = newClipInstance(clip, m.clock.Seconds())
		m.instances[clip] = ci
	}
	return ci
}

// CurrentSourceData blends the layers bottom-up, each over the one below,
// and returns the top layer's result.
func (m *Manager) CurrentSourceData() SourceData {
	if m.layers[0].CurrentState() == nil {
		m.violation(fsm.ErrCodeMissingBaseState, "base layer has no active state")
	}
	for i := 0; i < len(m.layers)-1; i++ {
		m.layers[i+1].UpdateLayerBlending(m.layers[i])
	}
	return m.layers[len(m.layers)-1].CurrentSourceData()
}

func (m *Manager) violation(code fsm.RuntimeErrorCode, msg string) {
	err := &fsm.RuntimeError{Code: code, Message: msg}
	if m.strict {
		panic(err)
	}
	if m.warned && m.warnedAt == m.lastUpdate {
		return
	}
	m.warned, m.warnedAt = true, m.lastUpdate
	m.logger.Warn("animation precondition violated", "error", err)
}

// AddLayer appends a layer on top of the stack.
func (m *Manager) AddLayer(name string, mode BlendMode, weight float64) *Layer {
	m.locker.Lock()
	defer m.locker.Unlock()
	l := newLayer(m, name, mode, weight)
	m.layers = append(m.layers, l)
	return l
}

// Layer returns the layer at index i, or nil.
func (m *Manager) Layer(i int) *Layer {
	if i < 0 || i >= len(m.layers) {
		return nil
	}
	return m.layers[i]
}

// BaseLayer returns layer 0.
func (m *Manager) BaseLayer() *Layer {
	return m.layers[0]
}

// LayerByName returns the first layer with the given name.
func (m *Manager) LayerByName(name string) (*Layer, bool) {
	for _, l := range m.layers {
		if l.name == name {
			return l, true
		}
	}
	return nil, false
}

// Layers returns the layer stack, base first.
func (m *Manager) Layers() []*Layer {
	out := make([]*Layer, len(m.layers))
	copy(out, m.layers)
	return out
}

// AddPose registers an additional pose.
func (m *Manager) AddPose(p Pose) {
	m.locker.Lock()
	defer m.locker.Unlock()
	m.poses = append(m.poses, p)
}

// Clips returns the clip library, or nil.
func (m *Manager) Clips() *ClipLibrary {
	return m.clips
}

// Logger returns the manager's logger.
func (m *Manager) Logger() *slog.Logger {
	return m.logger
}
