package anim

import "sync"

// Clock supplies global time in seconds. It must be monotonically
// non-decreasing for the lifetime of a Manager.
type Clock interface {
	Seconds() float64
}

// Pose is an externally owned skeleton pose updated by an Applier.
type Pose interface {
	SetJoint(name string, t Transform)
}

// Applier pushes a manager's blended result onto a pose.
type Applier interface {
	ApplyTo(pose Pose, m *Manager)
}

// DirectApplier copies the manager's current source data into the pose
// joint by joint.
type DirectApplier struct{}

// ApplyTo implements Applier.
func (DirectApplier) ApplyTo(pose Pose, m *Manager) {
	for name, t := range m.CurrentSourceData() {
		pose.SetJoint(name, t)
	}
}

// SkeletonPose is a map-backed Pose.
//
// Thread-safety: SkeletonPose is safe for concurrent use.
type SkeletonPose struct {
	mu     sync.RWMutex
	joints map[string]Transform
}

// NewSkeletonPose creates an empty pose.
func NewSkeletonPose() *SkeletonPose {
	return &SkeletonPose{joints: make(map[string]Transform)}
}

// SetJoint implements Pose.
func (p *SkeletonPose) SetJoint(name string, t Transform) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.joints[name] = t
}

// Joint returns the transform last applied to the named joint.
func (p *SkeletonPose) Joint(name string) (Transform, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, ok := p.joints[name]
	return t, ok
}

// Snapshot returns a copy of every joint transform.
func (p *SkeletonPose) Snapshot() SourceData {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(SourceData, len(p.joints))
	for k, v := range p.joints {
		out[k] = v
	}
	return out
}
