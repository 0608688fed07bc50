package anim

import (
	"fmt"
	"math"
)

// Transform is a joint's local translation, rotation (quaternion x,y,z,w)
// and scale.
type Transform struct {
	Translation [3]float64
	Rotation    [4]float64
	Scale       [3]float64
}

// Identity returns the neutral transform.
func Identity() Transform {
	return Transform{
		Rotation: [4]float64{0, 0, 0, 1},
		Scale:    [3]float64{1, 1, 1},
	}
}

// SourceData is a layer's animation contribution: joint name to transform.
type SourceData map[string]Transform

// Clone returns a shallow copy. Transforms are values so the copy is
// independent.
func (d SourceData) Clone() SourceData {
	if d == nil {
		return nil
	}
	out := make(SourceData, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// BlendMode selects how a layer composes onto the layer beneath it.
type BlendMode string

const (
	// BlendOverride lerps from the lower pose toward this layer's pose by weight.
	BlendOverride BlendMode = "override"
	// BlendAdditive adds this layer's weighted delta from identity onto the lower pose.
	BlendAdditive BlendMode = "additive"
)

// ParseBlendMode accepts "override" (default for empty) and "additive".
func ParseBlendMode(s string) (BlendMode, error) {
	switch BlendMode(s) {
	case "", BlendOverride:
		return BlendOverride, nil
	case BlendAdditive:
		return BlendAdditive, nil
	default:
		return "", fmt.Errorf("unknown blend mode %q", s)
	}
}

// Blend composes upper onto lower. Joints absent from upper keep the lower
// transform; joints absent from lower blend from identity.
func Blend(lower, upper SourceData, weight float64, mode BlendMode) SourceData {
	weight = clamp01(weight)
	out := make(SourceData, len(lower)+len(upper))
	for k, v := range lower {
		out[k] = v
	}
	for joint, u := range upper {
		l, ok := lower[joint]
		if !ok {
			l = Identity()
		}
		switch mode {
		case BlendAdditive:
			out[joint] = addWeighted(l, u, weight)
		default:
			out[joint] = Lerp(l, u, weight)
		}
	}
	return out
}

// Lerp interpolates translation and scale linearly and rotation by
// normalized lerp along the shortest arc.
func Lerp(a, b Transform, w float64) Transform {
	return Transform{
		Translation: lerp3(a.Translation, b.Translation, w),
		Rotation:    nlerp(a.Rotation, b.Rotation, w),
		Scale:       lerp3(a.Scale, b.Scale, w),
	}
}

func addWeighted(base, delta Transform, w float64) Transform {
	var out Transform
	for i := 0; i < 3; i++ {
		out.Translation[i] = base.Translation[i] + delta.Translation[i]*w
		out.Scale[i] = base.Scale[i] * (1 + (delta.Scale[i]-1)*w)
	}
	out.Rotation = normalize4(quatMul(base.Rotation, nlerp(Identity().Rotation, delta.Rotation, w)))
	return out
}

func lerp3(a, b [3]float64, w float64) [3]float64 {
	return [3]float64{
		a[0] + (b[0]-a[0])*w,
		a[1] + (b[1]-a[1])*w,
		a[2] + (b[2]-a[2])*w,
	}
}

func nlerp(a, b [4]float64, w float64) [4]float64 {
	dot := a[0]*b[0] + a[1]*b[1] + a[2]*b[2] + a[3]*b[3]
	if dot < 0 {
		b = [4]float64{-b[0], -b[1], -b[2], -b[3]}
	}
	var out [4]float64
	for i := range out {
		out[i] = a[i] + (b[i]-a[i])*w
	}
	return normalize4(out)
}

func quatMul(a, b [4]float64) [4]float64 {
	return [4]float64{
		a[3]*b[0] + a[0]*b[3] + a[1]*b[2] - a[2]*b[1],
		a[3]*b[1] - a[0]*b[2] + a[1]*b[3] + a[2]*b[0],
		a[3]*b[2] + a[0]*b[1] - a[1]*b[0] + a[2]*b[3],
		a[3]*b[3] - a[0]*b[0] - a[1]*b[1] - a[2]*b[2],
	}
}

func normalize4(q [4]float64) [4]float64 {
	n := math.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
	if n == 0 {
		return [4]float64{0, 0, 0, 1}
	}
	return [4]float64{q[0] / n, q[1] / n, q[2] / n, q[3] / n}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
