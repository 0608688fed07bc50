package anim

import (
	"math"
	"slices"
	"sort"
	"sync"
)

// Keyframe is a joint transform at a point in clip-local time.
type Keyframe struct {
	Time      float64
	Transform Transform
}

// Clip is an immutable animation asset shared between managers. Clip
// identity (the pointer) keys each manager's instance cache.
type Clip struct {
	Name     string
	Duration float64
	Channels map[string][]Keyframe
}

// NewClip creates a clip holding a copy of each channel's keyframes, sorted
// by time. The caller's slices are left untouched.
func NewClip(name string, duration float64, channels map[string][]Keyframe) *Clip {
	owned := make(map[string][]Keyframe, len(channels))
	for joint, frames := range channels {
		sorted := slices.Clone(frames)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })
		owned[joint] = sorted
	}
	return &Clip{Name: name, Duration: duration, Channels: owned}
}

// Sample evaluates every channel at local time t.
func (c *Clip) Sample(t float64) SourceData {
	out := make(SourceData, len(c.Channels))
	for joint, frames := range c.Channels {
		if len(frames) == 0 {
			continue
		}
		out[joint] = sampleChannel(frames, t)
	}
	return out
}

func sampleChannel(frames []Keyframe, t float64) Transform {
	if t <= frames[0].Time {
		return frames[0].Transform
	}
	last := frames[len(frames)-1]
	if t >= last.Time {
		return last.Transform
	}
	i := sort.Search(len(frames), func(i int) bool { return frames[i].Time > t })
	a, b := frames[i-1], frames[i]
	span := b.Time - a.Time
	if span <= 0 {
		return b.Transform
	}
	return Lerp(a.Transform, b.Transform, (t-a.Time)/span)
}

// ClipLibrary resolves clip names to shared clip assets.
//
// Thread-safety: ClipLibrary is safe for concurrent use.
type ClipLibrary struct {
	mu    sync.RWMutex
	clips map[string]*Clip
}

// NewClipLibrary creates a library holding the given clips.
func NewClipLibrary(clips ...*Clip) *ClipLibrary {
	lib := &ClipLibrary{clips: make(map[string]*Clip, len(clips))}
	for _, c := range clips {
		lib.clips[c.Name] = c
	}
	return lib
}

// Add registers or replaces a clip by name.
func (l *ClipLibrary) Add(c *Clip) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clips[c.Name] = c
}

// Lookup returns the named clip, or nil.
func (l *ClipLibrary) Lookup(name string) *Clip {
	if l == nil {
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.clips[name]
}

// Names returns all clip names in sorted order.
func (l *ClipLibrary) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.clips))
	for name := range l.clips {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ClipInstance is a manager-local playback cursor into a Clip.
type ClipInstance struct {
	clip      *Clip
	startTime float64
	localTime float64
	active    bool

	// TimeScale multiplies elapsed global time. Negative plays backwards.
	TimeScale float64
	// LoopCount is the number of plays before the instance stops; 0 loops forever.
	LoopCount int
}

func newClipInstance(clip *Clip, startTime float64) *ClipInstance {
	return &ClipInstance{
		clip:      clip,
		startTime: startTime,
		active:    true,
		TimeScale: 1,
	}
}

// Clip returns the clip this instance plays.
func (ci *ClipInstance) Clip() *Clip { return ci.clip }

// StartTime returns the global time playback (re)started at.
func (ci *ClipInstance) StartTime() float64 { return ci.startTime }

// LocalTime returns the current clip-local time.
func (ci *ClipInstance) LocalTime() float64 { return ci.localTime }

// Active reports whether the instance is still playing. Finite loops become
// inactive once they reach the end.
func (ci *ClipInstance) Active() bool { return ci.active }

// Reset restarts playback at globalTime.
func (ci *ClipInstance) Reset(globalTime float64) {
	ci.startTime = globalTime
	ci.localTime = 0
	ci.active = true
}

// Update moves the cursor to globalTime.
func (ci *ClipInstance) Update(globalTime float64) {
	if !ci.active {
		return
	}
	d := ci.clip.Duration
	if d <= 0 {
		ci.localTime = 0
		return
	}
	elapsed := (globalTime - ci.startTime) * ci.TimeScale

	if ci.LoopCount > 0 {
		total := d * float64(ci.LoopCount)
		if elapsed >= total {
			ci.localTime = d
			ci.active = false
			return
		}
		if elapsed <= -total {
			ci.localTime = 0
			ci.active = false
			return
		}
	}

	local := math.Mod(elapsed, d)
	if local < 0 {
		local += d
	}
	ci.localTime = local
}

// Sample evaluates the clip at the instance's local time.
func (ci *ClipInstance) Sample() SourceData {
	return ci.clip.Sample(ci.localTime)
}
