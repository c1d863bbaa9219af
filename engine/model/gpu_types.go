package model

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxInfluences is the fixed number of joint influences stored per vertex.
const MaxInfluences = 4

const (
	// JointMatricesStride is the byte size of one palette entry.
	JointMatricesStride = 128

	// VertexInfluenceStride is the byte size of one per-vertex influence entry.
	VertexInfluenceStride = 32
)

// GPUJointMatricesSource is the canonical WGSL definition of the JointMatrices struct.
// Matches GPUJointMatrices layout exactly (128 bytes, std430 aligned).
//
//go:embed assets/joint_matrices.wgsl
var GPUJointMatricesSource string

// GPUJointMatrices is one entry of the skinning palette.
// Matches the WGSL JointMatrices struct layout exactly (see GPUJointMatricesSource).
// Size: 128 bytes (2 × mat4x4<f32>, std430 aligned, no padding required).
type GPUJointMatrices struct {
	SkeletonSpace                 [16]float32 // offset  0: skeleton-space matrix combined with the inverse bind pose (64 bytes)
	SkeletonSpaceInverseTranspose [16]float32 // offset 64: inverse-transpose of SkeletonSpace for normals (64 bytes)
}

// Size returns the size of the GPUJointMatrices struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUJointMatrices) Size() int {
	return int(unsafe.Sizeof(*g))
}

// MarshalTo serializes the GPUJointMatrices struct into dst, which must hold at least 128 bytes.
//
// Parameters:
//   - dst: the destination region, typically a slice of a mapped GPU buffer
func (g *GPUJointMatrices) MarshalTo(dst []byte) {
	_ = dst[JointMatricesStride-1]
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(g.SkeletonSpace[i]))
		binary.LittleEndian.PutUint32(dst[64+i*4:], math.Float32bits(g.SkeletonSpaceInverseTranspose[i]))
	}
}

// Marshal serializes the GPUJointMatrices struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 128-byte buffer ready for GPU upload.
func (g *GPUJointMatrices) Marshal() []byte {
	buf := make([]byte, JointMatricesStride)
	g.MarshalTo(buf)
	return buf
}

// UnmarshalJointMatrices decodes one palette entry from src.
//
// Parameters:
//   - src: at least 128 bytes holding an encoded GPUJointMatrices
//
// Returns:
//   - skeletonSpace: the decoded skinning matrix
//   - inverseTranspose: the decoded normal matrix
func UnmarshalJointMatrices(src []byte) (skeletonSpace, inverseTranspose mgl32.Mat4) {
	_ = src[JointMatricesStride-1]
	for i := 0; i < 16; i++ {
		skeletonSpace[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
		inverseTranspose[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[64+i*4:]))
	}
	return skeletonSpace, inverseTranspose
}

// GPUVertexInfluenceSource is the canonical WGSL definition of the VertexInfluence struct.
// Matches GPUVertexInfluence layout exactly (32 bytes, std430 aligned).
//
//go:embed assets/vertex_influence.wgsl
var GPUVertexInfluenceSource string

// GPUVertexInfluence holds up to four joint influences for one vertex.
// Unused slots are zero. Matches the WGSL VertexInfluence struct (see GPUVertexInfluenceSource).
// Size: 32 bytes.
type GPUVertexInfluence struct {
	JointIndices [MaxInfluences]uint32  // offset  0: palette indices of the influencing joints (16 bytes)
	Weights      [MaxInfluences]float32 // offset 16: blend weight of each joint (16 bytes)
}

// Size returns the size of the GPUVertexInfluence struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUVertexInfluence) Size() int {
	return int(unsafe.Sizeof(*g))
}

// MarshalTo serializes the GPUVertexInfluence struct into dst, which must hold at least 32 bytes.
//
// Parameters:
//   - dst: the destination region
func (g *GPUVertexInfluence) MarshalTo(dst []byte) {
	_ = dst[VertexInfluenceStride-1]
	for i := 0; i < MaxInfluences; i++ {
		binary.LittleEndian.PutUint32(dst[i*4:], g.JointIndices[i])
		binary.LittleEndian.PutUint32(dst[16+i*4:], math.Float32bits(g.Weights[i]))
	}
}

// Marshal serializes the GPUVertexInfluence struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (g *GPUVertexInfluence) Marshal() []byte {
	buf := make([]byte, VertexInfluenceStride)
	g.MarshalTo(buf)
	return buf
}

// WeightSum returns the total of the stored weights.
//
// Returns:
//   - float32: the sum of all four weight slots
func (g *GPUVertexInfluence) WeightSum() float32 {
	return g.Weights[0] + g.Weights[1] + g.Weights[2] + g.Weights[3]
}
