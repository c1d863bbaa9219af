package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// gltfSyntheticRootName names the root inserted above a scene with more than one top-level node.
const gltfSyntheticRootName = "__root__"

// gltfNodeExtractorImpl is the implementation of the gltfNodeExtractor interface.
type gltfNodeExtractorImpl struct {
	parser gltfParser
}

// gltfNodeExtractor defines the interface for extracting the node hierarchy from a parsed glTF document.
// Every glTF node becomes a model.Node; joints are identified by node name, so skins and animations
// resolve against the same names the hierarchy carries.
type gltfNodeExtractor interface {
	// ExtractHierarchy builds the node tree of the default scene.
	// A scene with several root nodes is placed under a synthetic identity root.
	//
	// Returns:
	//   - *model.Node: the root of the hierarchy, or nil when the document has no nodes
	//   - error: error if a node references an invalid child or the graph has a cycle
	ExtractHierarchy() (*model.Node, error)

	// NodeName returns the name a glTF node carries in the extracted hierarchy.
	//
	// Parameters:
	//   - nodeIndex: the glTF node index
	//
	// Returns:
	//   - string: the node's authored name, or "node_<index>" when unnamed
	NodeName(nodeIndex int) string
}

var _ gltfNodeExtractor = &gltfNodeExtractorImpl{}

// newGLTFNodeExtractor creates a new node extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - gltfNodeExtractor: the node extractor
func newGLTFNodeExtractor(parser gltfParser) gltfNodeExtractor {
	return &gltfNodeExtractorImpl{parser: parser}
}

func (e *gltfNodeExtractorImpl) NodeName(nodeIndex int) string {
	doc := e.parser.Document()
	if doc != nil && nodeIndex >= 0 && nodeIndex < len(doc.Nodes) && doc.Nodes[nodeIndex].Name != "" {
		return doc.Nodes[nodeIndex].Name
	}
	return fmt.Sprintf("node_%d", nodeIndex)
}

func (e *gltfNodeExtractorImpl) ExtractHierarchy() (*model.Node, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	if len(doc.Nodes) == 0 {
		return nil, nil
	}

	roots := e.sceneRoots(doc)
	visiting := make([]bool, len(doc.Nodes))

	nodes := make([]*model.Node, 0, len(roots))
	for _, idx := range roots {
		n, err := e.extractNode(doc, idx, visiting)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}

	switch len(nodes) {
	case 0:
		return nil, nil
	case 1:
		return nodes[0], nil
	default:
		return &model.Node{
			Name:      gltfSyntheticRootName,
			Transform: model.IdentityTransform(),
			Children:  nodes,
		}, nil
	}
}

// sceneRoots returns the top-level nodes of the default scene.
// Without scenes, every node that is nobody's child is treated as a root.
func (e *gltfNodeExtractorImpl) sceneRoots(doc *gltfDocument) []int {
	if len(doc.Scenes) > 0 {
		scene := 0
		if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
			scene = *doc.Scene
		}
		return doc.Scenes[scene].Nodes
	}

	isChild := make([]bool, len(doc.Nodes))
	for _, node := range doc.Nodes {
		for _, c := range node.Children {
			if c >= 0 && c < len(isChild) {
				isChild[c] = true
			}
		}
	}

	var roots []int
	for i := range doc.Nodes {
		if !isChild[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

// extractNode converts a glTF node and its descendants depth-first.
func (e *gltfNodeExtractorImpl) extractNode(doc *gltfDocument, nodeIndex int, visiting []bool) (*model.Node, error) {
	if nodeIndex < 0 || nodeIndex >= len(doc.Nodes) {
		return nil, fmt.Errorf("invalid node index %d", nodeIndex)
	}
	if visiting[nodeIndex] {
		return nil, fmt.Errorf("node %d: cycle in node hierarchy", nodeIndex)
	}
	visiting[nodeIndex] = true
	defer func() { visiting[nodeIndex] = false }()

	src := &doc.Nodes[nodeIndex]
	n := &model.Node{
		Name:      e.NodeName(nodeIndex),
		Transform: gltfNodeTransform(src),
	}

	for _, childIndex := range src.Children {
		child, err := e.extractNode(doc, childIndex, visiting)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}

	return n, nil
}

// --- Helper Functions ---

// gltfNodeTransform extracts the TRS transform of a glTF node.
// A node matrix takes precedence and is decomposed into its components.
func gltfNodeTransform(node *gltfNode) model.Transform {
	if node.Matrix != nil {
		t, r, s := common.DecomposeMatrix(mgl32.Mat4(*node.Matrix))
		return model.Transform{Translation: t, Rotation: r, Scale: s}
	}

	transform := model.IdentityTransform()
	if node.Translation != nil {
		transform.Translation = mgl32.Vec3(*node.Translation)
	}
	if node.Rotation != nil {
		transform.Rotation = gltfQuat(*node.Rotation)
	}
	if node.Scale != nil {
		transform.Scale = mgl32.Vec3(*node.Scale)
	}
	return transform
}

// gltfQuat converts a glTF [x, y, z, w] rotation into a quaternion.
func gltfQuat(v [4]float32) mgl32.Quat {
	return mgl32.Quat{W: v[3], V: mgl32.Vec3{v[0], v[1], v[2]}}
}
