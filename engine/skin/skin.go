package skin

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrInvalidSkin is returned by Bind when the skin data contradicts itself or the skeleton.
var ErrInvalidSkin = errors.New("invalid skin")

// Binding holds the bind-pose correction of one skinned mesh against one skeleton and
// produces the per-frame joint palette.
//
// The influence table is fixed at bind time. Only the palette changes per frame, and it is
// written straight into a caller-provided buffer.
type Binding struct {
	logger *slog.Logger

	renormalize bool

	jointCount      int
	inverseBindPose []mgl32.Mat4

	influences []model.GPUVertexInfluence
	slots      []uint8
	truncated  int
}

// Bind creates a Binding for the skeleton from authored skin data.
// Joints the skeleton does not know are skipped. Joints the skin never mentions keep an
// identity inverse bind pose. Each vertex keeps at most model.MaxInfluences influences in
// authoring order; further influences are dropped.
//
// Parameters:
//   - skel: the skeleton the palette is computed from
//   - data: the authored skin; nil binds a mesh without vertices
//   - options: variadic list of BindingBuilderOption functions to configure the Binding
//
// Returns:
//   - *Binding: the binding
//   - error: an error wrapping ErrInvalidSkin if skel is nil or a weight targets a vertex
//     outside data.VertexCount
func Bind(skel *skeleton.Skeleton, data *model.SkinData, options ...BindingBuilderOption) (*Binding, error) {
	if skel == nil {
		return nil, fmt.Errorf("%w: nil skeleton", ErrInvalidSkin)
	}
	if data == nil {
		data = &model.SkinData{}
	}
	if data.VertexCount < 0 {
		return nil, fmt.Errorf("%w: negative vertex count %d", ErrInvalidSkin, data.VertexCount)
	}

	b := &Binding{
		logger:          slog.Default(),
		jointCount:      skel.JointCount(),
		inverseBindPose: make([]mgl32.Mat4, skel.JointCount()),
		influences:      make([]model.GPUVertexInfluence, data.VertexCount),
		slots:           make([]uint8, data.VertexCount),
	}
	for _, opt := range options {
		opt(b)
	}
	for i := range b.inverseBindPose {
		b.inverseBindPose[i] = mgl32.Ident4()
	}

	over := make(map[uint32]struct{})
	for _, jw := range data.Joints {
		index, ok := skel.JointIndex(jw.Name)
		if !ok {
			b.logger.Debug("skin joint not in skeleton", "skin", data.Name, "joint", jw.Name)
			continue
		}
		b.inverseBindPose[index] = jw.InverseBindMatrix

		for _, w := range jw.Weights {
			if int(w.Vertex) >= data.VertexCount {
				return nil, fmt.Errorf("%w: joint %q weights vertex %d of %d", ErrInvalidSkin, jw.Name, w.Vertex, data.VertexCount)
			}
			slot := b.slots[w.Vertex]
			if slot >= model.MaxInfluences {
				over[w.Vertex] = struct{}{}
				continue
			}
			inf := &b.influences[w.Vertex]
			inf.JointIndices[slot] = uint32(index)
			inf.Weights[slot] = w.Weight
			b.slots[w.Vertex]++
		}
	}

	b.truncated = len(over)
	if b.truncated > 0 {
		if b.renormalize {
			for v := range over {
				normalizeWeights(&b.influences[v])
			}
		}
		b.logger.Warn("vertices exceed influence capacity",
			"skin", data.Name,
			"vertices", b.truncated,
			"max", model.MaxInfluences,
			"renormalized", b.renormalize,
		)
	}

	return b, nil
}

func normalizeWeights(inf *model.GPUVertexInfluence) {
	sum := inf.WeightSum()
	if sum <= 0 {
		return
	}
	for k := range inf.Weights {
		inf.Weights[k] /= sum
	}
}

// JointCount returns the number of palette entries.
func (b *Binding) JointCount() int {
	return b.jointCount
}

// PaletteSize returns the number of bytes Update writes.
//
// Returns:
//   - int: JointCount * model.JointMatricesStride
func (b *Binding) PaletteSize() int {
	return b.jointCount * model.JointMatricesStride
}

// InverseBindPose returns the inverse bind pose of joint i.
//
// Parameters:
//   - i: the joint index
//
// Returns:
//   - mgl32.Mat4: the inverse bind pose, identity for joints the skin does not reference
func (b *Binding) InverseBindPose(i int) mgl32.Mat4 {
	return b.inverseBindPose[i]
}

// Influences returns the per-vertex influence table. The slice is owned by the Binding.
func (b *Binding) Influences() []model.GPUVertexInfluence {
	return b.influences
}

// InfluenceBytes returns the influence table as a byte view for GPU upload.
// The view shares memory with the Binding and must not be modified.
//
// Returns:
//   - []byte: VertexCount * model.VertexInfluenceStride bytes, or nil without vertices
func (b *Binding) InfluenceBytes() []byte {
	return common.SliceToBytes(b.influences)
}

// TruncatedVertices returns how many vertices had influences dropped at bind time.
func (b *Binding) TruncatedVertices() int {
	return b.truncated
}

// Update computes the palette from the skeleton's current pose and encodes it into dst.
// Entry i holds the joint's skeleton-space matrix combined with its inverse bind pose, and
// the inverse-transpose of that matrix for normals.
//
// Panics if skel has a different joint count than the Binding was created for, or if dst
// is shorter than PaletteSize.
//
// Parameters:
//   - skel: the posed skeleton
//   - dst: the destination palette region, typically mapped GPU memory
func (b *Binding) Update(skel *skeleton.Skeleton, dst []byte) {
	if skel.JointCount() != b.jointCount {
		panic(fmt.Sprintf("skin: skeleton has %d joints, binding was created for %d", skel.JointCount(), b.jointCount))
	}
	if len(dst) < b.PaletteSize() {
		panic(fmt.Sprintf("skin: palette buffer holds %d bytes, need %d", len(dst), b.PaletteSize()))
	}

	var entry model.GPUJointMatrices
	for i := 0; i < b.jointCount; i++ {
		m := skel.Joint(i).SkeletonSpaceMatrix.Mul4(b.inverseBindPose[i])
		entry.SkeletonSpace = m
		entry.SkeletonSpaceInverseTranspose = common.InverseTranspose(m)
		entry.MarshalTo(dst[i*model.JointMatricesStride:])
	}
}

// Entry decodes palette entry i from a buffer written by Update.
//
// Parameters:
//   - palette: the palette buffer
//   - i: the joint index
//
// Returns:
//   - skeletonSpace: the skinning matrix
//   - inverseTranspose: the normal matrix
func Entry(palette []byte, i int) (skeletonSpace, inverseTranspose mgl32.Mat4) {
	return model.UnmarshalJointMatrices(palette[i*model.JointMatricesStride:])
}
