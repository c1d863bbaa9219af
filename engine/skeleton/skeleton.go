package skeleton

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/animator"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrInvalidSkeleton is returned when a joint list breaks the construction invariants:
// a single root at index 0, every parent index strictly below its child's index, unique names.
var ErrInvalidSkeleton = errors.New("invalid skeleton")

// Joint is one node of the skeleton hierarchy.
type Joint struct {
	// Name identifies the joint; animation tracks and skin weights refer to it by name.
	Name string

	// Index is the joint's position in the skeleton's joint array.
	Index int

	// Parent is the index of the parent joint, or -1 for the root.
	Parent int

	// Children are the indices of the direct child joints.
	Children []int

	// Translation, Rotation and Scale are the current local transform components.
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3

	// LocalMatrix is Translation * Rotation * Scale.
	LocalMatrix mgl32.Mat4

	// SkeletonSpaceMatrix is the joint transform relative to the skeleton root.
	SkeletonSpaceMatrix mgl32.Mat4

	bind model.Transform
}

// BindTransform returns the local transform the joint was constructed with.
//
// Returns:
//   - model.Transform: the bind-time local transform
func (j *Joint) BindTransform() model.Transform {
	return j.bind
}

// JointDef describes one joint for FromJoints.
type JointDef struct {
	// Name identifies the joint.
	Name string

	// Parent is the index of the parent definition, or -1 for the root.
	Parent int

	// Transform is the joint's bind-time local transform.
	Transform model.Transform
}

// Skeleton holds a joint array ordered so that every parent precedes its children.
// A Skeleton belongs to a single model instance and is not safe for concurrent use.
type Skeleton struct {
	joints   []Joint
	jointMap map[string]int

	// bound is the animation the tracks slice was resolved against.
	bound  *model.Animation
	tracks []*model.NodeTrack
}

// Build creates a Skeleton from a node hierarchy, allocating one joint per node in
// depth-first visit order.
//
// Parameters:
//   - root: the root of the authoring node tree
//
// Returns:
//   - *Skeleton: the skeleton with matrices computed for the bind pose
//   - error: an error wrapping ErrInvalidSkeleton if the tree is empty or has duplicate names
func Build(root *model.Node) (*Skeleton, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: empty node hierarchy", ErrInvalidSkeleton)
	}

	defs := make([]JointDef, 0, root.Count())
	var visit func(n *model.Node, parent int)
	visit = func(n *model.Node, parent int) {
		index := len(defs)
		defs = append(defs, JointDef{Name: n.Name, Parent: parent, Transform: n.Transform})
		for _, child := range n.Children {
			if child != nil {
				visit(child, index)
			}
		}
	}
	visit(root, -1)

	return FromJoints(defs)
}

// FromJoints creates a Skeleton from explicit joint definitions.
//
// Parameters:
//   - defs: the joints in array order; defs[0] must be the only root
//
// Returns:
//   - *Skeleton: the skeleton with matrices computed for the bind pose
//   - error: an error wrapping ErrInvalidSkeleton describing the first violation
func FromJoints(defs []JointDef) (*Skeleton, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: no joints", ErrInvalidSkeleton)
	}

	s := &Skeleton{
		joints:   make([]Joint, len(defs)),
		jointMap: make(map[string]int, len(defs)),
		tracks:   make([]*model.NodeTrack, len(defs)),
	}

	for i, d := range defs {
		switch {
		case i == 0 && d.Parent != -1:
			return nil, fmt.Errorf("%w: joint 0 %q must be the root, has parent %d", ErrInvalidSkeleton, d.Name, d.Parent)
		case i > 0 && (d.Parent < 0 || d.Parent >= i):
			return nil, fmt.Errorf("%w: joint %d %q has parent %d, want 0 <= parent < %d", ErrInvalidSkeleton, i, d.Name, d.Parent, i)
		}
		if prev, dup := s.jointMap[d.Name]; dup {
			return nil, fmt.Errorf("%w: joint name %q used by joints %d and %d", ErrInvalidSkeleton, d.Name, prev, i)
		}
		s.jointMap[d.Name] = i

		s.joints[i] = Joint{
			Name:        d.Name,
			Index:       i,
			Parent:      d.Parent,
			Translation: d.Transform.Translation,
			Rotation:    d.Transform.Rotation,
			Scale:       d.Transform.Scale,
			bind:        d.Transform,
		}
		if d.Parent >= 0 {
			p := &s.joints[d.Parent]
			p.Children = append(p.Children, i)
		}
	}

	s.updateMatrices()
	return s, nil
}

// JointCount returns the number of joints.
func (s *Skeleton) JointCount() int {
	return len(s.joints)
}

// Joints returns the joint array. The slice is owned by the Skeleton and must not be modified.
func (s *Skeleton) Joints() []Joint {
	return s.joints
}

// Joint returns the joint at index i.
//
// Parameters:
//   - i: the joint index
//
// Returns:
//   - *Joint: the joint, owned by the Skeleton
func (s *Skeleton) Joint(i int) *Joint {
	return &s.joints[i]
}

// Root returns the root joint.
func (s *Skeleton) Root() *Joint {
	return &s.joints[0]
}

// JointIndex looks up a joint by name.
//
// Parameters:
//   - name: the joint name
//
// Returns:
//   - int: the joint index
//   - bool: false if no joint has the name
func (s *Skeleton) JointIndex(name string) (int, bool) {
	i, ok := s.jointMap[name]
	return i, ok
}

// Bind resolves which joints the animation drives, so Update does not look tracks up by name.
// Update calls Bind itself when handed a different animation.
//
// Parameters:
//   - anim: the animation to resolve, or nil to unbind
//
// Returns:
//   - int: the number of joints that have a track in anim
func (s *Skeleton) Bind(anim *model.Animation) int {
	s.bound = anim
	animated := 0
	for i := range s.joints {
		s.tracks[i] = anim.Track(s.joints[i].Name)
		if s.tracks[i] != nil {
			animated++
		}
	}
	return animated
}

// Update poses the skeleton at the given time of anim and recomputes every joint matrix.
// Joints without a track keep their current local transform.
//
// Parameters:
//   - anim: the animation to sample
//   - time: the playback time in seconds
func (s *Skeleton) Update(anim *model.Animation, time float32) {
	if anim != s.bound {
		s.Bind(anim)
	}

	for i := range s.joints {
		j := &s.joints[i]
		if tr := s.tracks[i]; tr != nil {
			j.Translation = animator.SampleVector3Or(tr.Translations, time, j.Translation)
			j.Rotation = animator.SampleQuaternionOr(tr.Rotations, time, j.Rotation)
			j.Scale = animator.SampleVector3Or(tr.Scales, time, j.Scale)
		}
		s.updateJointMatrices(j)
	}
}

// Animate poses the skeleton from a playback cursor: the active animation sampled at the
// cursor's current time. Without animation data the skeleton is left untouched.
//
// Parameters:
//   - a: the animator whose cursor drives the pose
func (s *Skeleton) Animate(a animator.Animator) {
	if a == nil || !a.HasAnimation() {
		return
	}
	s.Update(a.Animation(), a.Time())
}

// ResetPose restores every joint to its bind-time local transform and recomputes the matrices.
func (s *Skeleton) ResetPose() {
	for i := range s.joints {
		j := &s.joints[i]
		j.Translation = j.bind.Translation
		j.Rotation = j.bind.Rotation
		j.Scale = j.bind.Scale
	}
	s.updateMatrices()
}

func (s *Skeleton) updateMatrices() {
	for i := range s.joints {
		s.updateJointMatrices(&s.joints[i])
	}
}

// updateJointMatrices relies on the parent having been updated earlier in the same pass.
func (s *Skeleton) updateJointMatrices(j *Joint) {
	j.LocalMatrix = common.ComposeTRS(j.Translation, j.Rotation, j.Scale)
	if j.Parent < 0 {
		j.SkeletonSpaceMatrix = j.LocalMatrix
		return
	}
	j.SkeletonSpaceMatrix = s.joints[j.Parent].SkeletonSpaceMatrix.Mul4(j.LocalMatrix)
}
