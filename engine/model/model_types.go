package model

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrInvalidAnimation is returned by Animation.Validate when a track breaks the keyframe invariants.
var ErrInvalidAnimation = errors.New("invalid animation")

// --- Transform & Node Types ---

// Transform represents a decomposed local transform.
type Transform struct {
	// Translation is the position offset.
	Translation mgl32.Vec3

	// Rotation is the orientation as a unit quaternion.
	Rotation mgl32.Quat

	// Scale is the scale factor along each axis.
	Scale mgl32.Vec3
}

// IdentityTransform returns a Transform with no translation, no rotation and unit scale.
//
// Returns:
//   - Transform: the identity transform
func IdentityTransform() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// Node is one node of the authoring hierarchy a skeleton is built from.
type Node struct {
	// Name identifies the node. Animation tracks and skin weights refer to joints by this name.
	Name string

	// Transform is the node's authored transform relative to its parent.
	Transform Transform

	// Children are the node's direct descendants, in authoring order.
	Children []*Node
}

// Count returns the number of nodes in the subtree rooted at n, including n.
//
// Returns:
//   - int: the subtree size, or 0 for a nil node
func (n *Node) Count() int {
	if n == nil {
		return 0
	}
	c := 1
	for _, child := range n.Children {
		c += child.Count()
	}
	return c
}

// --- Animation Types ---

// VectorKeyframe stores a 3D vector value at a specific time.
type VectorKeyframe struct {
	// Time is the keyframe timestamp in seconds.
	Time float32

	// Value is the 3D vector value at this keyframe.
	Value mgl32.Vec3
}

// QuaternionKeyframe stores a quaternion rotation at a specific time.
type QuaternionKeyframe struct {
	// Time is the keyframe timestamp in seconds.
	Time float32

	// Value is the unit quaternion at this keyframe.
	Value mgl32.Quat
}

// NodeTrack contains the keyframe data animating a single joint.
// The three sequences are sized independently and sorted by ascending time.
type NodeTrack struct {
	// Translations are keyframes for translation.
	Translations []VectorKeyframe

	// Rotations are keyframes for rotation.
	Rotations []QuaternionKeyframe

	// Scales are keyframes for scale.
	Scales []VectorKeyframe
}

// Animation is an immutable set of per-joint tracks sharing one timeline.
// Animations are loaded once per source and shared read-only between model instances.
type Animation struct {
	// Name is the animation identifier.
	Name string

	// Duration is the total length of the animation in seconds.
	Duration float32

	// Tracks maps a joint name to the keyframes animating that joint.
	Tracks map[string]*NodeTrack
}

// NewAnimation creates an empty Animation with the given name and duration.
//
// Parameters:
//   - name: the animation identifier
//   - duration: the length of the animation in seconds
//
// Returns:
//   - *Animation: an animation with an empty track map
func NewAnimation(name string, duration float32) *Animation {
	return &Animation{
		Name:     name,
		Duration: duration,
		Tracks:   make(map[string]*NodeTrack),
	}
}

// HasTracks reports whether the animation animates at least one joint.
//
// Returns:
//   - bool: true if at least one track exists
func (a *Animation) HasTracks() bool {
	return a != nil && len(a.Tracks) > 0
}

// Track returns the track for a joint name, or nil if the joint is not animated.
//
// Parameters:
//   - name: the joint name
//
// Returns:
//   - *NodeTrack: the joint's track or nil
func (a *Animation) Track(name string) *NodeTrack {
	if a == nil {
		return nil
	}
	return a.Tracks[name]
}

// Validate checks that every track has three non-empty sequences with non-decreasing times.
//
// Returns:
//   - error: an error wrapping ErrInvalidAnimation describing the first violation, or nil
func (a *Animation) Validate() error {
	for name, tr := range a.Tracks {
		if tr == nil {
			return fmt.Errorf("%w: track %q is nil", ErrInvalidAnimation, name)
		}
		if len(tr.Translations) == 0 || len(tr.Rotations) == 0 || len(tr.Scales) == 0 {
			return fmt.Errorf("%w: track %q has an empty channel", ErrInvalidAnimation, name)
		}
		if !vectorKeysAscending(tr.Translations) {
			return fmt.Errorf("%w: track %q translation keys are not ascending", ErrInvalidAnimation, name)
		}
		if !vectorKeysAscending(tr.Scales) {
			return fmt.Errorf("%w: track %q scale keys are not ascending", ErrInvalidAnimation, name)
		}
		for i := 1; i < len(tr.Rotations); i++ {
			if tr.Rotations[i].Time < tr.Rotations[i-1].Time {
				return fmt.Errorf("%w: track %q rotation keys are not ascending", ErrInvalidAnimation, name)
			}
		}
	}
	return nil
}

func vectorKeysAscending(keys []VectorKeyframe) bool {
	for i := 1; i < len(keys); i++ {
		if keys[i].Time < keys[i-1].Time {
			return false
		}
	}
	return true
}

// --- Skin Types ---

// VertexWeight is the influence of one joint on one vertex.
type VertexWeight struct {
	// Vertex is the index of the influenced vertex in the mesh.
	Vertex uint32

	// Weight is how strongly the joint moves the vertex.
	Weight float32
}

// JointWeights is the authored binding of a single joint to the mesh.
type JointWeights struct {
	// Name is the joint name, resolved against the skeleton at bind time.
	Name string

	// InverseBindMatrix maps a vertex from bind-pose model space into the joint's space.
	InverseBindMatrix mgl32.Mat4

	// Weights are the vertices this joint influences.
	Weights []VertexWeight
}

// SkinData is the authored joint/vertex association of one skinned mesh.
type SkinData struct {
	// Name is the skin identifier.
	Name string

	// VertexCount is the number of vertices in the skinned mesh.
	VertexCount int

	// Joints lists every joint that influences the mesh.
	Joints []JointWeights
}

// --- Import Types ---

// ImportedModel is the format-independent product of the asset importer.
type ImportedModel struct {
	// Name is the model identifier.
	Name string

	// Root is the root of the node hierarchy (nil when the source has no nodes).
	Root *Node

	// Animations are all animations bundled with the model.
	Animations []*Animation

	// Skins are the skinned meshes of the model.
	Skins []SkinData
}

// Animation returns the animation with the given name, or the first animation when name is empty.
//
// Parameters:
//   - name: the animation name, or "" for the first animation
//
// Returns:
//   - *Animation: the matching animation or nil
func (m *ImportedModel) Animation(name string) *Animation {
	if m == nil || len(m.Animations) == 0 {
		return nil
	}
	if name == "" {
		return m.Animations[0]
	}
	for _, a := range m.Animations {
		if a.Name == name {
			return a
		}
	}
	return nil
}
