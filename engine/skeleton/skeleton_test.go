package skeleton

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/engine/animator"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chain() *model.Node {
	return &model.Node{
		Name:      "Root",
		Transform: model.IdentityTransform(),
		Children: []*model.Node{{
			Name:      "Spine",
			Transform: model.IdentityTransform(),
			Children: []*model.Node{{
				Name:      "Head",
				Transform: model.IdentityTransform(),
			}},
		}},
	}
}

func rootLift() *model.Animation {
	anim := model.NewAnimation("lift", 1)
	anim.Tracks["Root"] = &model.NodeTrack{
		Translations: []model.VectorKeyframe{
			{Time: 0, Value: mgl32.Vec3{0, 0, 0}},
			{Time: 1, Value: mgl32.Vec3{0, 5, 0}},
		},
	}
	return anim
}

func assertMatInDelta(t *testing.T, want, got mgl32.Mat4) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-5, "element %d", i)
	}
}

func TestBuildDepthFirstOrder(t *testing.T) {
	root := &model.Node{
		Name:      "Hips",
		Transform: model.IdentityTransform(),
		Children: []*model.Node{
			{Name: "LeftLeg", Transform: model.IdentityTransform(), Children: []*model.Node{{Name: "LeftFoot", Transform: model.IdentityTransform()}}},
			{Name: "RightLeg", Transform: model.IdentityTransform()},
		},
	}
	s, err := Build(root)
	require.NoError(t, err)
	require.Equal(t, 4, s.JointCount())

	names := make([]string, 0, 4)
	for _, j := range s.Joints() {
		names = append(names, j.Name)
	}
	assert.Equal(t, []string{"Hips", "LeftLeg", "LeftFoot", "RightLeg"}, names)

	assert.Equal(t, -1, s.Root().Parent)
	assert.Equal(t, []int{1, 3}, s.Root().Children)
	assert.Equal(t, 1, s.Joint(2).Parent)
	assert.Equal(t, 0, s.Joint(3).Parent)

	i, ok := s.JointIndex("LeftFoot")
	assert.True(t, ok)
	assert.Equal(t, 2, i)
	_, ok = s.JointIndex("Tail")
	assert.False(t, ok)
}

func TestRootTranslationPropagates(t *testing.T) {
	s, err := Build(chain())
	require.NoError(t, err)

	s.Update(rootLift(), 0.5)

	want := mgl32.Translate3D(0, 2.5, 0)
	assert.Equal(t, want, s.Joint(0).SkeletonSpaceMatrix)
	assert.Equal(t, want, s.Joint(1).SkeletonSpaceMatrix)
	assert.Equal(t, want, s.Joint(2).SkeletonSpaceMatrix)
}

func TestUntouchedJointsKeepBindTransform(t *testing.T) {
	spine := model.Transform{
		Translation: mgl32.Vec3{0.1, 1.3, -0.2},
		Rotation:    mgl32.QuatRotate(0.7, mgl32.Vec3{0, 1, 0}),
		Scale:       mgl32.Vec3{1, 1.5, 1},
	}
	root := chain()
	root.Children[0].Transform = spine

	s, err := Build(root)
	require.NoError(t, err)

	for _, tm := range []float32{0, 0.3, 0.9, 1, 4} {
		s.Update(rootLift(), tm)
		j := s.Joint(1)
		assert.Equal(t, spine.Translation, j.Translation)
		assert.Equal(t, spine.Rotation, j.Rotation)
		assert.Equal(t, spine.Scale, j.Scale)
		assert.Equal(t, spine, j.BindTransform())
	}
}

func TestParentCompositionHoldsAtDepth(t *testing.T) {
	defs := []JointDef{{Name: "j0", Parent: -1, Transform: model.IdentityTransform()}}
	for i := 1; i < 12; i++ {
		defs = append(defs, JointDef{
			Name:   "j" + string(rune('a'+i)),
			Parent: (i - 1) / 2,
			Transform: model.Transform{
				Translation: mgl32.Vec3{float32(i) * 0.1, 1, 0},
				Rotation:    mgl32.QuatRotate(float32(i)*0.2, mgl32.Vec3{1, 1, 0}.Normalize()),
				Scale:       mgl32.Vec3{1, 1 + float32(i)*0.05, 1},
			},
		})
	}
	s, err := FromJoints(defs)
	require.NoError(t, err)

	anim := model.NewAnimation("twist", 2)
	anim.Tracks["j0"] = &model.NodeTrack{
		Rotations: []model.QuaternionKeyframe{
			{Time: 0, Value: mgl32.QuatIdent()},
			{Time: 2, Value: mgl32.QuatRotate(math32.Pi, mgl32.Vec3{0, 0, 1})},
		},
	}
	anim.Tracks["je"] = &model.NodeTrack{
		Translations: []model.VectorKeyframe{{Time: 0, Value: mgl32.Vec3{3, 0, 0}}},
	}

	s.Update(anim, 0.7)
	for _, j := range s.Joints()[1:] {
		parent := s.Joint(j.Parent)
		assertMatInDelta(t, parent.SkeletonSpaceMatrix.Mul4(j.LocalMatrix), j.SkeletonSpaceMatrix)
	}
	assert.Equal(t, s.Root().LocalMatrix, s.Root().SkeletonSpaceMatrix)
	assert.Equal(t, mgl32.Vec3{3, 0, 0}, s.Joint(4).Translation)
}

func TestEmptyChannelKeepsCurrentValue(t *testing.T) {
	s, err := Build(chain())
	require.NoError(t, err)

	anim := model.NewAnimation("scale-only", 1)
	anim.Tracks["Head"] = &model.NodeTrack{
		Scales: []model.VectorKeyframe{{Time: 0, Value: mgl32.Vec3{2, 2, 2}}},
	}
	s.Update(anim, 0.5)

	head := s.Joint(2)
	assert.Equal(t, mgl32.Vec3{2, 2, 2}, head.Scale)
	assert.Equal(t, mgl32.Vec3{}, head.Translation)
	assert.Equal(t, mgl32.QuatIdent(), head.Rotation)
}

func TestBindPrecomputesTracks(t *testing.T) {
	s, err := Build(chain())
	require.NoError(t, err)

	anim := rootLift()
	assert.Equal(t, 1, s.Bind(anim))
	assert.NotNil(t, s.tracks[0])
	assert.Nil(t, s.tracks[1])

	other := model.NewAnimation("nod", 1)
	other.Tracks["Head"] = &model.NodeTrack{
		Rotations: []model.QuaternionKeyframe{{Value: mgl32.QuatRotate(0.5, mgl32.Vec3{1, 0, 0})}},
	}
	s.Update(other, 0)
	assert.Same(t, other, s.bound)
	assert.Nil(t, s.tracks[0])
	assert.NotNil(t, s.tracks[2])

	assert.Zero(t, s.Bind(nil))
}

func TestResetPose(t *testing.T) {
	s, err := Build(chain())
	require.NoError(t, err)

	s.Update(rootLift(), 1)
	assert.Equal(t, mgl32.Vec3{0, 5, 0}, s.Root().Translation)

	s.ResetPose()
	assert.Equal(t, mgl32.Vec3{}, s.Root().Translation)
	assert.Equal(t, mgl32.Ident4(), s.Joint(2).SkeletonSpaceMatrix)
}

func TestConstructionViolations(t *testing.T) {
	ident := model.IdentityTransform()
	cases := map[string][]JointDef{
		"empty":           nil,
		"root has parent": {{Name: "a", Parent: 0, Transform: ident}},
		"second root":     {{Name: "a", Parent: -1, Transform: ident}, {Name: "b", Parent: -1, Transform: ident}},
		"forward parent":  {{Name: "a", Parent: -1, Transform: ident}, {Name: "b", Parent: 2, Transform: ident}, {Name: "c", Parent: 0, Transform: ident}},
		"self parent":     {{Name: "a", Parent: -1, Transform: ident}, {Name: "b", Parent: 1, Transform: ident}},
		"duplicate name":  {{Name: "a", Parent: -1, Transform: ident}, {Name: "a", Parent: 0, Transform: ident}},
	}
	for name, defs := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromJoints(defs)
			assert.ErrorIs(t, err, ErrInvalidSkeleton)
		})
	}

	_, err := Build(nil)
	assert.ErrorIs(t, err, ErrInvalidSkeleton)

	dup := chain()
	dup.Children[0].Children[0].Name = "Root"
	_, err = Build(dup)
	assert.ErrorIs(t, err, ErrInvalidSkeleton)
}

func TestAnimateFollowsAnimatorCursor(t *testing.T) {
	s, err := Build(chain())
	require.NoError(t, err)

	a := animator.NewAnimator()
	s.Animate(a)
	assert.Equal(t, mgl32.Ident4(), s.Joint(2).SkeletonSpaceMatrix)

	a.SetAnimation(rootLift())
	a.Advance(0.5, false)
	s.Animate(a)
	assertMatInDelta(t, mgl32.Translate3D(0, 2.5, 0), s.Joint(2).SkeletonSpaceMatrix)

	a.Advance(1, false)
	s.Animate(a)
	assertMatInDelta(t, mgl32.Translate3D(0, 5, 0), s.Root().SkeletonSpaceMatrix)
}
