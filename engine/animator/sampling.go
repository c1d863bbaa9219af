package animator

import (
	"sort"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// SampleVector3 returns the linearly interpolated value of an ascending keyframe sequence at time t.
// Before the first key the first value is returned; at or after the last key the last value is returned.
// An empty sequence yields the zero vector; use SampleVector3Or to supply a fallback.
//
// Parameters:
//   - keys: keyframes sorted by ascending time
//   - t: the query time in seconds
//
// Returns:
//   - mgl32.Vec3: the sampled value
func SampleVector3(keys []model.VectorKeyframe, t float32) mgl32.Vec3 {
	return SampleVector3Or(keys, t, mgl32.Vec3{})
}

// SampleVector3Or is SampleVector3 with an explicit value for an empty sequence.
//
// Parameters:
//   - keys: keyframes sorted by ascending time
//   - t: the query time in seconds
//   - fallback: the value returned when keys is empty
//
// Returns:
//   - mgl32.Vec3: the sampled value
func SampleVector3Or(keys []model.VectorKeyframe, t float32, fallback mgl32.Vec3) mgl32.Vec3 {
	n := len(keys)
	switch {
	case n == 0:
		return fallback
	case n == 1 || t <= keys[0].Time:
		return keys[0].Value
	case t >= keys[n-1].Time:
		return keys[n-1].Value
	}

	i := sort.Search(n, func(j int) bool { return keys[j].Time > t }) - 1
	return common.LerpVec3(keys[i].Value, keys[i+1].Value, keyFactor(keys[i].Time, keys[i+1].Time, t))
}

// SampleQuaternion returns the spherically interpolated rotation of an ascending keyframe sequence
// at time t, always taking the shorter arc between the bracketing keys.
// An empty sequence yields the identity rotation; use SampleQuaternionOr to supply a fallback.
//
// Parameters:
//   - keys: keyframes sorted by ascending time
//   - t: the query time in seconds
//
// Returns:
//   - mgl32.Quat: the sampled rotation
func SampleQuaternion(keys []model.QuaternionKeyframe, t float32) mgl32.Quat {
	return SampleQuaternionOr(keys, t, mgl32.QuatIdent())
}

// SampleQuaternionOr is SampleQuaternion with an explicit value for an empty sequence.
//
// Parameters:
//   - keys: keyframes sorted by ascending time
//   - t: the query time in seconds
//   - fallback: the rotation returned when keys is empty
//
// Returns:
//   - mgl32.Quat: the sampled rotation
func SampleQuaternionOr(keys []model.QuaternionKeyframe, t float32, fallback mgl32.Quat) mgl32.Quat {
	n := len(keys)
	switch {
	case n == 0:
		return fallback
	case n == 1 || t <= keys[0].Time:
		return keys[0].Value
	case t >= keys[n-1].Time:
		return keys[n-1].Value
	}

	i := sort.Search(n, func(j int) bool { return keys[j].Time > t }) - 1
	return common.SlerpShortest(keys[i].Value, keys[i+1].Value, keyFactor(keys[i].Time, keys[i+1].Time, t))
}

// keyFactor maps t into [0, 1] between two key times. A zero-length interval maps to 0.
func keyFactor(t0, t1, t float32) float32 {
	span := t1 - t0
	if span <= 0 {
		return 0
	}
	f := (t - t0) / span
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
