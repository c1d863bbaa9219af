package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// gltfSkinExtractorImpl is the implementation of the gltfSkinExtractor interface.
type gltfSkinExtractorImpl struct {
	parser gltfParser
	nodes  gltfNodeExtractor
}

// gltfSkinExtractor defines the interface for extracting skin data from a parsed glTF document.
// It regroups the per-vertex JOINTS_n / WEIGHTS_n attributes of every mesh bound to a skin into
// per-joint vertex weight lists.
type gltfSkinExtractor interface {
	// ExtractSkin extracts a skin by index.
	// Primitives of all meshes bound to the skin are concatenated in document order, so vertex
	// indices address that concatenation.
	//
	// Parameters:
	//   - skinIndex: the index of the skin to extract
	//
	// Returns:
	//   - model.SkinData: the joint names, inverse bind matrices and vertex weights
	//   - error: error if extraction fails
	ExtractSkin(skinIndex int) (model.SkinData, error)

	// ExtractAllSkins extracts every skin of the document.
	//
	// Returns:
	//   - []model.SkinData: all skins
	//   - error: error if extraction fails
	ExtractAllSkins() ([]model.SkinData, error)
}

var _ gltfSkinExtractor = &gltfSkinExtractorImpl{}

// newGLTFSkinExtractor creates a new skin extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//   - nodes: the node extractor used to resolve joint names
//
// Returns:
//   - gltfSkinExtractor: the skin extractor
func newGLTFSkinExtractor(parser gltfParser, nodes gltfNodeExtractor) gltfSkinExtractor {
	return &gltfSkinExtractorImpl{parser: parser, nodes: nodes}
}

func (e *gltfSkinExtractorImpl) ExtractAllSkins() ([]model.SkinData, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}

	skins := make([]model.SkinData, len(doc.Skins))
	for i := range doc.Skins {
		skin, err := e.ExtractSkin(i)
		if err != nil {
			return nil, fmt.Errorf("skin %d: %w", i, err)
		}
		skins[i] = skin
	}
	return skins, nil
}

func (e *gltfSkinExtractorImpl) ExtractSkin(skinIndex int) (model.SkinData, error) {
	doc := e.parser.Document()
	if doc == nil {
		return model.SkinData{}, fmt.Errorf("no document loaded")
	}
	if skinIndex < 0 || skinIndex >= len(doc.Skins) {
		return model.SkinData{}, fmt.Errorf("skin index %d out of range", skinIndex)
	}

	src := &doc.Skins[skinIndex]

	// Read inverse bind matrices (optional, identity when absent)
	var inverseBindMatrices [][16]float32
	if src.InverseBindMatrices != nil {
		var err error
		inverseBindMatrices, err = e.parser.ReadMat4Accessor(*src.InverseBindMatrices)
		if err != nil {
			return model.SkinData{}, fmt.Errorf("failed to read inverse bind matrices: %w", err)
		}
	}

	data := model.SkinData{
		Name:   src.Name,
		Joints: make([]model.JointWeights, len(src.Joints)),
	}
	if data.Name == "" {
		data.Name = fmt.Sprintf("skin_%d", skinIndex)
	}

	for i, nodeIndex := range src.Joints {
		if nodeIndex < 0 || nodeIndex >= len(doc.Nodes) {
			return model.SkinData{}, fmt.Errorf("joint %d: invalid node index %d", i, nodeIndex)
		}
		jw := &data.Joints[i]
		jw.Name = e.nodes.NodeName(nodeIndex)
		jw.InverseBindMatrix = mgl32.Ident4()
		if i < len(inverseBindMatrices) {
			jw.InverseBindMatrix = mgl32.Mat4(inverseBindMatrices[i])
		}
	}

	for _, meshIndex := range e.skinnedMeshes(doc, skinIndex) {
		mesh := &doc.Meshes[meshIndex]
		for p := range mesh.Primitives {
			count, err := e.appendPrimitiveWeights(&data, &mesh.Primitives[p])
			if err != nil {
				return model.SkinData{}, fmt.Errorf("mesh %d primitive %d: %w", meshIndex, p, err)
			}
			data.VertexCount += count
		}
	}

	return data, nil
}

// skinnedMeshes returns the distinct mesh indices instanced by nodes bound to the skin.
func (e *gltfSkinExtractorImpl) skinnedMeshes(doc *gltfDocument, skinIndex int) []int {
	var meshes []int
	seen := make(map[int]bool)
	for _, node := range doc.Nodes {
		if node.Skin == nil || *node.Skin != skinIndex || node.Mesh == nil {
			continue
		}
		m := *node.Mesh
		if m < 0 || m >= len(doc.Meshes) || seen[m] {
			continue
		}
		seen[m] = true
		meshes = append(meshes, m)
	}
	return meshes
}

// appendPrimitiveWeights adds the influences of one primitive to data, offset by the vertices
// already collected. It returns the primitive's vertex count.
func (e *gltfSkinExtractorImpl) appendPrimitiveWeights(data *model.SkinData, prim *gltfPrimitive) (int, error) {
	base := uint32(data.VertexCount)
	vertexCount := 0
	if pos, ok := prim.Attributes["POSITION"]; ok {
		acc, err := e.accessorCount(pos)
		if err != nil {
			return 0, err
		}
		vertexCount = acc
	}

	for set := 0; ; set++ {
		jointsIdx, hasJoints := prim.Attributes[fmt.Sprintf("JOINTS_%d", set)]
		weightsIdx, hasWeights := prim.Attributes[fmt.Sprintf("WEIGHTS_%d", set)]
		if !hasJoints || !hasWeights {
			break
		}

		joints, err := e.parser.ReadJointsAccessor(jointsIdx)
		if err != nil {
			return 0, fmt.Errorf("failed to read JOINTS_%d: %w", set, err)
		}
		weights, err := e.parser.ReadWeightsAccessor(weightsIdx)
		if err != nil {
			return 0, fmt.Errorf("failed to read WEIGHTS_%d: %w", set, err)
		}

		n := min(len(joints), len(weights))
		vertexCount = max(vertexCount, n)
		for v := 0; v < n; v++ {
			for k := 0; k < 4; k++ {
				w := weights[v][k]
				if w == 0 {
					continue
				}
				j := int(joints[v][k])
				if j >= len(data.Joints) {
					return 0, fmt.Errorf("vertex %d references joint %d of %d", v, j, len(data.Joints))
				}
				data.Joints[j].Weights = append(data.Joints[j].Weights, model.VertexWeight{
					Vertex: base + uint32(v),
					Weight: w,
				})
			}
		}
	}

	return vertexCount, nil
}

func (e *gltfSkinExtractorImpl) accessorCount(accessorIndex int) (int, error) {
	doc := e.parser.Document()
	if accessorIndex < 0 || accessorIndex >= len(doc.Accessors) {
		return 0, fmt.Errorf("accessor index %d out of range", accessorIndex)
	}
	return doc.Accessors[accessorIndex].Count, nil
}
