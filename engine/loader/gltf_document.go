package loader

// The glTF 2.0 JSON schema, reduced to what skeletal import reads: the node tree, skins,
// animations and the accessor chain down to the raw buffers. Unknown members are ignored by
// encoding/json, so meshes keep only their vertex attribute maps and materials, textures and
// cameras are not modeled at all.
//
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html

// gltfDocument is the root object of a glTF file.
type gltfDocument struct {
	Asset struct {
		Version string `json:"version"`
	} `json:"asset"`

	// Scene is the default scene; nil means "pick one".
	Scene  *int        `json:"scene,omitempty"`
	Scenes []gltfScene `json:"scenes,omitempty"`
	Nodes  []gltfNode  `json:"nodes,omitempty"`
	Meshes []gltfMesh  `json:"meshes,omitempty"`
	Skins  []gltfSkin  `json:"skins,omitempty"`

	Animations []gltfAnimation `json:"animations,omitempty"`

	Accessors   []gltfAccessor   `json:"accessors,omitempty"`
	BufferViews []gltfBufferView `json:"bufferViews,omitempty"`
	Buffers     []gltfBuffer     `json:"buffers,omitempty"`
}

type gltfScene struct {
	Name  string `json:"name,omitempty"`
	Nodes []int  `json:"nodes,omitempty"`
}

// gltfNode carries either Matrix or the TRS triple. Absent TRS members default to identity.
type gltfNode struct {
	Name     string `json:"name,omitempty"`
	Children []int  `json:"children,omitempty"`
	Mesh     *int   `json:"mesh,omitempty"`
	Skin     *int   `json:"skin,omitempty"`

	Matrix      *[16]float32 `json:"matrix,omitempty"`
	Translation *[3]float32  `json:"translation,omitempty"`
	Rotation    *[4]float32  `json:"rotation,omitempty"` // x, y, z, w
	Scale       *[3]float32  `json:"scale,omitempty"`
}

type gltfMesh struct {
	Name       string          `json:"name,omitempty"`
	Primitives []gltfPrimitive `json:"primitives"`
}

type gltfPrimitive struct {
	// Attributes maps a semantic such as POSITION or JOINTS_0 to an accessor index.
	Attributes map[string]int `json:"attributes"`
}

type gltfSkin struct {
	Name string `json:"name,omitempty"`

	// InverseBindMatrices is a MAT4 accessor parallel to Joints; nil means identity matrices.
	InverseBindMatrices *int  `json:"inverseBindMatrices,omitempty"`
	Joints              []int `json:"joints"`
}

type gltfAnimation struct {
	Name     string            `json:"name,omitempty"`
	Channels []gltfAnimChannel `json:"channels"`
	Samplers []gltfAnimSampler `json:"samplers"`
}

type gltfAnimChannel struct {
	Sampler int `json:"sampler"`
	Target  struct {
		Node *int   `json:"node,omitempty"`
		Path string `json:"path"`
	} `json:"target"`
}

type gltfAnimSampler struct {
	Input         int    `json:"input"`  // SCALAR key times
	Output        int    `json:"output"` // key values, three per key for CUBICSPLINE
	Interpolation string `json:"interpolation,omitempty"`
}

const (
	gltfAnimPathTranslation = "translation"
	gltfAnimPathRotation    = "rotation"
	gltfAnimPathScale       = "scale"
	gltfAnimPathWeights     = "weights"

	gltfAnimInterpolationStep        = "STEP"
	gltfAnimInterpolationCubicSpline = "CUBICSPLINE"
)

type gltfAccessor struct {
	BufferView    *int   `json:"bufferView,omitempty"`
	ByteOffset    int    `json:"byteOffset,omitempty"`
	ComponentType int    `json:"componentType"`
	Count         int    `json:"count"`
	Type          string `json:"type"`

	// Sparse is only decoded far enough to reject it.
	Sparse *struct{} `json:"sparse,omitempty"`
}

type gltfBufferView struct {
	Buffer     int `json:"buffer"`
	ByteOffset int `json:"byteOffset,omitempty"`
	ByteLength int `json:"byteLength"`
	ByteStride int `json:"byteStride,omitempty"`
}

type gltfBuffer struct {
	URI        string `json:"uri,omitempty"`
	ByteLength int    `json:"byteLength"`

	data []byte
}

const (
	gltfComponentTypeByte          = 5120
	gltfComponentTypeUnsignedByte  = 5121
	gltfComponentTypeShort         = 5122
	gltfComponentTypeUnsignedShort = 5123
	gltfComponentTypeUnsignedInt   = 5125
	gltfComponentTypeFloat         = 5126

	gltfAccessorTypeScalar = "SCALAR"
	gltfAccessorTypeVec3   = "VEC3"
	gltfAccessorTypeVec4   = "VEC4"
	gltfAccessorTypeMat4   = "MAT4"
)

// gltfComponentSizes is the byte size of each component type.
var gltfComponentSizes = map[int]int{
	gltfComponentTypeByte:          1,
	gltfComponentTypeUnsignedByte:  1,
	gltfComponentTypeShort:         2,
	gltfComponentTypeUnsignedShort: 2,
	gltfComponentTypeUnsignedInt:   4,
	gltfComponentTypeFloat:         4,
}

// gltfAccessorWidths is the component count of each element type.
var gltfAccessorWidths = map[string]int{
	gltfAccessorTypeScalar: 1,
	"VEC2":                 2,
	gltfAccessorTypeVec3:   3,
	gltfAccessorTypeVec4:   4,
	"MAT2":                 4,
	"MAT3":                 9,
	gltfAccessorTypeMat4:   16,
}

// GLB container layout: a 12-byte header (magic, version, total length) followed by chunks,
// each an 8-byte header (length, type) and its payload.
const (
	glbMagic       = 0x46546C67 // "glTF"
	glbVersion     = 2
	glbHeaderSize  = 12
	glbChunkHeader = 8
	glbChunkJSON   = 0x4E4F534A // "JSON"
	glbChunkBIN    = 0x004E4942 // "BIN\0"
)
