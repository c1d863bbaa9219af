package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testGLTF assembles a glTF document whose accessors each get their own buffer view
// into a single base64 buffer.
type testGLTF struct {
	buf         bytes.Buffer
	accessors   []map[string]any
	bufferViews []map[string]any
}

func (g *testGLTF) add(data any, count, componentType int, accessorType string) int {
	offset := g.buf.Len()
	_ = binary.Write(&g.buf, binary.LittleEndian, data)
	g.bufferViews = append(g.bufferViews, map[string]any{
		"buffer":     0,
		"byteOffset": offset,
		"byteLength": g.buf.Len() - offset,
	})
	// keep every view 4-byte aligned
	for g.buf.Len()%4 != 0 {
		g.buf.WriteByte(0)
	}
	g.accessors = append(g.accessors, map[string]any{
		"bufferView":    len(g.bufferViews) - 1,
		"count":         count,
		"componentType": componentType,
		"type":          accessorType,
	})
	return len(g.accessors) - 1
}

func (g *testGLTF) json(t *testing.T, doc map[string]any) []byte {
	t.Helper()
	doc["asset"] = map[string]any{"version": "2.0"}
	doc["accessors"] = g.accessors
	doc["bufferViews"] = g.bufferViews
	doc["buffers"] = []map[string]any{{
		"byteLength": g.buf.Len(),
		"uri":        "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(g.buf.Bytes()),
	}}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return data
}

// riggedChain builds Root -> Spine -> Head with a skinned three-vertex mesh and a "Walk"
// animation moving Spine from y=1 to y=2 over one second.
func riggedChain(t *testing.T) []byte {
	t.Helper()
	g := &testGLTF{}

	times := g.add([]float32{0, 1}, 2, gltfComponentTypeFloat, gltfAccessorTypeScalar)
	translations := g.add([][3]float32{{0, 1, 0}, {0, 2, 0}}, 2, gltfComponentTypeFloat, gltfAccessorTypeVec3)

	ident := mgl32.Ident4()
	spineIBM := mgl32.Translate3D(0, -1, 0)
	headIBM := mgl32.Translate3D(0, -2, 0)
	ibm := g.add([][16]float32{ident, spineIBM, headIBM}, 3, gltfComponentTypeFloat, gltfAccessorTypeMat4)

	positions := g.add([][3]float32{{0, 0, 0}, {0, 1, 0}, {0, 2, 0}}, 3, gltfComponentTypeFloat, gltfAccessorTypeVec3)
	joints := g.add([][4]uint8{{0, 0, 0, 0}, {1, 2, 0, 0}, {2, 0, 0, 0}}, 3, gltfComponentTypeUnsignedByte, gltfAccessorTypeVec4)
	weights := g.add([][4]float32{{1, 0, 0, 0}, {0.5, 0.5, 0, 0}, {1, 0, 0, 0}}, 3, gltfComponentTypeFloat, gltfAccessorTypeVec4)

	return g.json(t, map[string]any{
		"scene":  0,
		"scenes": []map[string]any{{"nodes": []int{0, 3}}},
		"nodes": []map[string]any{
			{"name": "Root", "children": []int{1}},
			{"name": "Spine", "translation": []float32{0, 1, 0}, "children": []int{2}},
			{"name": "Head", "translation": []float32{0, 1, 0}},
			{"name": "Body", "mesh": 0, "skin": 0},
		},
		"meshes": []map[string]any{{
			"primitives": []map[string]any{{
				"attributes": map[string]int{"POSITION": positions, "JOINTS_0": joints, "WEIGHTS_0": weights},
			}},
		}},
		"skins": []map[string]any{{
			"name":                "Armature",
			"inverseBindMatrices": ibm,
			"joints":              []int{0, 1, 2},
		}},
		"animations": []map[string]any{{
			"name":     "Walk",
			"samplers": []map[string]any{{"input": times, "output": translations}},
			"channels": []map[string]any{{"sampler": 0, "target": map[string]any{"node": 1, "path": "translation"}}},
		}},
	})
}

func TestGLTFImporterHierarchy(t *testing.T) {
	imported, err := newGLTFImporter().ImportReader(bytes.NewReader(riggedChain(t)), false)
	require.NoError(t, err)

	root := imported.Root
	require.NotNil(t, root)
	assert.Equal(t, gltfSyntheticRootName, root.Name)
	require.Len(t, root.Children, 2)
	assert.Equal(t, "Root", root.Children[0].Name)
	assert.Equal(t, "Body", root.Children[1].Name)
	assert.Equal(t, 5, root.Count())

	spine := root.Children[0].Children[0]
	assert.Equal(t, "Spine", spine.Name)
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, spine.Transform.Translation)
	assert.Equal(t, mgl32.QuatIdent(), spine.Transform.Rotation)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, spine.Transform.Scale)
	require.Len(t, spine.Children, 1)
	assert.Equal(t, "Head", spine.Children[0].Name)
}

func TestGLTFImporterAnimation(t *testing.T) {
	imported, err := newGLTFImporter().ImportReader(bytes.NewReader(riggedChain(t)), false)
	require.NoError(t, err)
	require.Len(t, imported.Animations, 1)

	walk := imported.Animation("Walk")
	require.NotNil(t, walk)
	assert.Same(t, walk, imported.Animation(""))
	assert.Equal(t, float32(1), walk.Duration)
	require.Len(t, walk.Tracks, 1)

	spine := walk.Track("Spine")
	require.NotNil(t, spine)
	assert.Equal(t, []model.VectorKeyframe{
		{Time: 0, Value: mgl32.Vec3{0, 1, 0}},
		{Time: 1, Value: mgl32.Vec3{0, 2, 0}},
	}, spine.Translations)

	// channels the source leaves out hold the rest pose
	assert.Equal(t, []model.QuaternionKeyframe{{Value: mgl32.QuatIdent()}}, spine.Rotations)
	assert.Equal(t, []model.VectorKeyframe{{Value: mgl32.Vec3{1, 1, 1}}}, spine.Scales)
	assert.NoError(t, walk.Validate())
}

func TestGLTFImporterSkin(t *testing.T) {
	imported, err := newGLTFImporter().ImportReader(bytes.NewReader(riggedChain(t)), false)
	require.NoError(t, err)
	require.Len(t, imported.Skins, 1)

	skin := imported.Skins[0]
	assert.Equal(t, "Armature", skin.Name)
	assert.Equal(t, 3, skin.VertexCount)
	require.Len(t, skin.Joints, 3)

	assert.Equal(t, "Root", skin.Joints[0].Name)
	assert.Equal(t, mgl32.Ident4(), skin.Joints[0].InverseBindMatrix)
	assert.Equal(t, []model.VertexWeight{{Vertex: 0, Weight: 1}}, skin.Joints[0].Weights)

	assert.Equal(t, "Spine", skin.Joints[1].Name)
	assert.Equal(t, mgl32.Translate3D(0, -1, 0), skin.Joints[1].InverseBindMatrix)
	assert.Equal(t, []model.VertexWeight{{Vertex: 1, Weight: 0.5}}, skin.Joints[1].Weights)

	assert.Equal(t, "Head", skin.Joints[2].Name)
	assert.Equal(t, []model.VertexWeight{{Vertex: 1, Weight: 0.5}, {Vertex: 2, Weight: 1}}, skin.Joints[2].Weights)
}

func TestGLTFImporterRejectsBadVersion(t *testing.T) {
	_, err := newGLTFImporter().ImportReader(bytes.NewReader([]byte(`{"asset":{"version":"1.0"}}`)), false)
	assert.ErrorIs(t, err, errInvalidGLTFVersion)
}

func TestGLTFImporterGLB(t *testing.T) {
	jsonChunk := []byte(`{"asset":{"version":"2.0"},"nodes":[{"name":"Only"}]}`)
	for len(jsonChunk)%4 != 0 {
		jsonChunk = append(jsonChunk, ' ')
	}

	var glb bytes.Buffer
	require.NoError(t, binary.Write(&glb, binary.LittleEndian, []uint32{
		glbMagic, glbVersion, uint32(glbHeaderSize + glbChunkHeader + len(jsonChunk)),
		uint32(len(jsonChunk)), glbChunkJSON,
	}))
	glb.Write(jsonChunk)

	data := glb.Bytes()

	imported, err := newGLTFImporter().ImportReader(bytes.NewReader(data), true)
	require.NoError(t, err)
	require.NotNil(t, imported.Root)
	assert.Equal(t, "Only", imported.Root.Name)
	assert.Empty(t, imported.Animations)
	assert.Empty(t, imported.Skins)

	badMagic := bytes.Clone(data)
	badMagic[0] = 'x'
	_, err = newGLTFImporter().ImportReader(bytes.NewReader(badMagic), true)
	assert.ErrorIs(t, err, errInvalidGLB)

	_, err = newGLTFImporter().ImportReader(bytes.NewReader(data[:len(data)-4]), true)
	assert.ErrorIs(t, err, errInvalidGLB)
}

func TestGLTFNodeExtractorUnnamedAndMatrix(t *testing.T) {
	p := newGLTFParser()
	doc := `{"asset":{"version":"2.0"},"nodes":[
		{"children":[1]},
		{"matrix":[2,0,0,0, 0,2,0,0, 0,0,2,0, 3,4,5,1]}
	]}`
	require.NoError(t, p.ParseReader(bytes.NewReader([]byte(doc)), false))

	e := newGLTFNodeExtractor(p)
	root, err := e.ExtractHierarchy()
	require.NoError(t, err)
	assert.Equal(t, "node_0", root.Name)
	require.Len(t, root.Children, 1)

	child := root.Children[0]
	assert.Equal(t, "node_1", child.Name)
	assert.Equal(t, mgl32.Vec3{3, 4, 5}, child.Transform.Translation)
	assert.Equal(t, mgl32.Vec3{2, 2, 2}, child.Transform.Scale)
	assert.InDelta(t, 1, child.Transform.Rotation.W, 1e-6)
}

func TestGLTFNodeExtractorCycle(t *testing.T) {
	p := newGLTFParser()
	doc := `{"asset":{"version":"2.0"},"scenes":[{"nodes":[0]}],"nodes":[{"children":[1]},{"children":[0]}]}`
	require.NoError(t, p.ParseReader(bytes.NewReader([]byte(doc)), false))

	_, err := newGLTFNodeExtractor(p).ExtractHierarchy()
	assert.ErrorContains(t, err, "cycle")
}

func TestGLTFParserWeightsNormalized(t *testing.T) {
	g := &testGLTF{}
	idx := g.add([][4]uint8{{255, 0, 0, 0}, {128, 127, 0, 0}}, 2, gltfComponentTypeUnsignedByte, gltfAccessorTypeVec4)
	data := g.json(t, map[string]any{})

	p := newGLTFParser()
	require.NoError(t, p.ParseReader(bytes.NewReader(data), false))

	weights, err := p.ReadWeightsAccessor(idx)
	require.NoError(t, err)
	require.Len(t, weights, 2)
	assert.Equal(t, [4]float32{1, 0, 0, 0}, weights[0])
	assert.InDelta(t, 1, weights[1][0]+weights[1][1], 1e-6)

	_, err = p.ReadVec3Accessor(idx)
	assert.Error(t, err)
	_, err = p.ReadScalarAccessor(42)
	assert.ErrorContains(t, err, "out of range")
}

func TestGLTFSplineAndStepKeys(t *testing.T) {
	spline := gltfSplineValues([][3]float32{{9, 9, 9}, {1, 1, 1}, {9, 9, 9}, {8, 8, 8}, {2, 2, 2}, {8, 8, 8}}, 2, gltfAnimInterpolationCubicSpline)
	assert.Equal(t, [][3]float32{{1, 1, 1}, {2, 2, 2}}, spline)

	linear := [][3]float32{{1, 1, 1}}
	assert.Equal(t, linear, gltfSplineValues(linear, 1, ""))

	step := gltfStepVectorKeys([]model.VectorKeyframe{
		{Time: 0, Value: mgl32.Vec3{1, 0, 0}},
		{Time: 1, Value: mgl32.Vec3{2, 0, 0}},
	})
	assert.Equal(t, []model.VectorKeyframe{
		{Time: 0, Value: mgl32.Vec3{1, 0, 0}},
		{Time: 1, Value: mgl32.Vec3{1, 0, 0}},
		{Time: 1, Value: mgl32.Vec3{2, 0, 0}},
	}, step)
}
