package common

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestWrapTime(t *testing.T) {
	assert.InDelta(t, 0.5, WrapTime(2.5, 2), 1e-6)
	assert.InDelta(t, 1.5, WrapTime(-0.5, 2), 1e-6)
	assert.Equal(t, float32(0), WrapTime(2, 2))
	assert.Equal(t, float32(0), WrapTime(3, 0))
}

func TestSlerpShortestTakesShortArc(t *testing.T) {
	a := mgl32.QuatIdent()
	b := mgl32.QuatRotate(math32.Pi/2, mgl32.Vec3{0, 1, 0})

	want := mgl32.QuatSlerp(a, b, 0.5)
	got := SlerpShortest(a, b.Scale(-1), 0.5)
	assert.True(t, want.ApproxEqualThreshold(got, 1e-5), "got %v want %v", got, want)

	assert.Equal(t, a, SlerpShortest(a, b, 0))
}

func TestComposeTRSOrder(t *testing.T) {
	m := ComposeTRS(mgl32.Vec3{1, 0, 0}, mgl32.QuatRotate(math32.Pi/2, mgl32.Vec3{0, 0, 1}), mgl32.Vec3{2, 2, 2})
	p := m.Mul4x1(mgl32.Vec4{1, 0, 0, 1}).Vec3()
	assert.True(t, p.ApproxEqualThreshold(mgl32.Vec3{1, 2, 0}, 1e-5), "got %v", p)
}

func TestInverseTranspose(t *testing.T) {
	m := mgl32.Scale3D(2, 4, 8)
	it := InverseTranspose(m)
	assert.True(t, it.ApproxEqualThreshold(mgl32.Scale3D(0.5, 0.25, 0.125), 1e-6))

	assert.Equal(t, mgl32.Ident4(), InverseTranspose(mgl32.Scale3D(0, 1, 1)))
}

func TestDecomposeMatrixRoundTrip(t *testing.T) {
	tr := mgl32.Vec3{1, 2, 3}
	rot := mgl32.QuatRotate(0.7, mgl32.Vec3{0, 1, 0})
	sc := mgl32.Vec3{1, 2, 1}

	gotT, gotR, gotS := DecomposeMatrix(ComposeTRS(tr, rot, sc))
	assert.True(t, gotT.ApproxEqualThreshold(tr, 1e-5))
	assert.True(t, gotS.ApproxEqualThreshold(sc, 1e-5))
	assert.InDelta(t, 1, math32.Abs(gotR.Dot(rot)), 1e-5)
}

func TestSliceToBytes(t *testing.T) {
	assert.Nil(t, SliceToBytes([]float32{}))
	assert.Len(t, SliceToBytes([]float32{1, 2, 3}), 12)
}
