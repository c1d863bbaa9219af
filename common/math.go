package common

import (
	"unsafe"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// shortArcEpsilon is the dot product above which two unit quaternions are treated as
// coincident and interpolated linearly instead of spherically.
const shortArcEpsilon = 0.9995

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// ComposeTRS builds a local transform matrix from scale, rotation and translation.
// The scale is applied first, then the rotation, then the translation (T * R * S in
// column-vector convention).
//
// Parameters:
//   - translation: the translation component
//   - rotation: the rotation quaternion, expected to be unit length
//   - scale: the per-axis scale component
//
// Returns:
//   - mgl32.Mat4: the composed column-major matrix
func ComposeTRS(translation mgl32.Vec3, rotation mgl32.Quat, scale mgl32.Vec3) mgl32.Mat4 {
	t := mgl32.Translate3D(translation[0], translation[1], translation[2])
	s := mgl32.Scale3D(scale[0], scale[1], scale[2])
	return t.Mul4(rotation.Mat4()).Mul4(s)
}

// LerpVec3 linearly interpolates between a and b. A factor of 0 returns a unchanged.
//
// Parameters:
//   - a: the start value
//   - b: the end value
//   - t: the interpolation factor, normally in [0, 1]
//
// Returns:
//   - mgl32.Vec3: the interpolated vector
func LerpVec3(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	if t == 0 {
		return a
	}
	return a.Add(b.Sub(a).Mul(t))
}

// SlerpShortest spherically interpolates between two unit quaternions along the shorter arc.
// When the dot product of a and b is negative, b is negated first so the rotation never takes
// the long way around. A factor of 0 returns a unchanged.
//
// Parameters:
//   - a: the start rotation
//   - b: the end rotation
//   - t: the interpolation factor, normally in [0, 1]
//
// Returns:
//   - mgl32.Quat: the interpolated unit quaternion
func SlerpShortest(a, b mgl32.Quat, t float32) mgl32.Quat {
	if t == 0 {
		return a
	}
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	if a.Dot(b) > shortArcEpsilon {
		return mgl32.QuatNlerp(a, b, t)
	}
	return mgl32.QuatSlerp(a, b, t)
}

// InverseTranspose returns the transpose of the inverse of m, used to transform normals
// under non-uniform scale. A singular matrix yields the identity.
//
// Parameters:
//   - m: the source matrix
//
// Returns:
//   - mgl32.Mat4: transpose(inverse(m)), or identity if m is singular
func InverseTranspose(m mgl32.Mat4) mgl32.Mat4 {
	if math32.Abs(m.Det()) < 1e-12 {
		return mgl32.Ident4()
	}
	return m.Inv().Transpose()
}

// WrapTime wraps t into [0, duration) using floating-point modulo.
// A non-positive duration always yields 0.
//
// Parameters:
//   - t: the time to wrap, in seconds
//   - duration: the length of the period, in seconds
//
// Returns:
//   - float32: the wrapped time
func WrapTime(t, duration float32) float32 {
	if duration <= 0 {
		return 0
	}
	w := math32.Mod(t, duration)
	if w < 0 {
		w += duration
	}
	if w >= duration {
		w = 0
	}
	return w
}

// DecomposeMatrix splits a column-major affine matrix into translation, rotation and scale.
// This is an approximation that assumes no shear.
//
// Parameters:
//   - m: the matrix to decompose
//
// Returns:
//   - translation: the translation column
//   - rotation: the normalized rotation quaternion
//   - scale: the length of each basis column
func DecomposeMatrix(m mgl32.Mat4) (translation mgl32.Vec3, rotation mgl32.Quat, scale mgl32.Vec3) {
	translation = m.Col(3).Vec3()

	sx := m.Col(0).Vec3().Len()
	sy := m.Col(1).Vec3().Len()
	sz := m.Col(2).Vec3().Len()
	scale = mgl32.Vec3{sx, sy, sz}

	// Avoid division by zero
	if sx < 0.0001 {
		sx = 1
	}
	if sy < 0.0001 {
		sy = 1
	}
	if sz < 0.0001 {
		sz = 1
	}

	r := mgl32.Ident4()
	r.SetCol(0, m.Col(0).Mul(1/sx))
	r.SetCol(1, m.Col(1).Mul(1/sy))
	r.SetCol(2, m.Col(2).Mul(1/sz))
	r.SetCol(3, mgl32.Vec4{0, 0, 0, 1})

	rotation = mgl32.Mat4ToQuat(r).Normalize()
	return translation, rotation, scale
}
