package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// gltfAnimationExtractorImpl is the implementation of the gltfAnimationExtractor interface.
type gltfAnimationExtractorImpl struct {
	parser gltfParser
	nodes  gltfNodeExtractor
}

// gltfAnimationExtractor defines the interface for extracting animation data from a parsed glTF document.
// Channels are grouped per target node and keyed by the node's name in the extracted hierarchy.
type gltfAnimationExtractor interface {
	// ExtractAnimation extracts a single animation by index.
	// Every animated node receives all three channels; channels the source leaves out hold the
	// node's rest value as a single key at time 0.
	//
	// Parameters:
	//   - animIndex: the index of the animation in the document
	//
	// Returns:
	//   - *model.Animation: the extracted animation
	//   - error: error if extraction fails
	ExtractAnimation(animIndex int) (*model.Animation, error)

	// ExtractAllAnimations extracts every animation from the document.
	//
	// Returns:
	//   - []*model.Animation: all extracted animations
	//   - error: error if extraction fails
	ExtractAllAnimations() ([]*model.Animation, error)
}

var _ gltfAnimationExtractor = &gltfAnimationExtractorImpl{}

// newGLTFAnimationExtractor creates a new animation extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//   - nodes: the node extractor used to resolve target names
//
// Returns:
//   - gltfAnimationExtractor: the animation extractor
func newGLTFAnimationExtractor(parser gltfParser, nodes gltfNodeExtractor) gltfAnimationExtractor {
	return &gltfAnimationExtractorImpl{parser: parser, nodes: nodes}
}

func (e *gltfAnimationExtractorImpl) ExtractAnimation(animIndex int) (*model.Animation, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	if animIndex < 0 || animIndex >= len(doc.Animations) {
		return nil, fmt.Errorf("animation index %d out of range", animIndex)
	}

	src := &doc.Animations[animIndex]

	name := src.Name
	if name == "" {
		name = fmt.Sprintf("animation_%d", animIndex)
	}
	anim := model.NewAnimation(name, 0)

	// targets remembers the node index behind each track so rest values can fill gaps.
	targets := make(map[string]int)

	for i := range src.Channels {
		ch := &src.Channels[i]

		// Skip channels with no target node and morph target weights
		if ch.Target.Node == nil || ch.Target.Path == gltfAnimPathWeights {
			continue
		}
		nodeIndex := *ch.Target.Node
		if nodeIndex < 0 || nodeIndex >= len(doc.Nodes) {
			return nil, fmt.Errorf("animation %q channel %d: invalid node index %d", name, i, nodeIndex)
		}

		if ch.Sampler < 0 || ch.Sampler >= len(src.Samplers) {
			return nil, fmt.Errorf("animation %q channel %d: invalid sampler index %d", name, i, ch.Sampler)
		}
		sampler := &src.Samplers[ch.Sampler]

		times, err := e.parser.ReadScalarAccessor(sampler.Input)
		if err != nil {
			return nil, fmt.Errorf("animation %q channel %d: failed to read timestamps: %w", name, i, err)
		}
		if len(times) == 0 {
			continue
		}
		if last := times[len(times)-1]; last > anim.Duration {
			anim.Duration = last
		}

		target := e.nodes.NodeName(nodeIndex)
		track, ok := anim.Tracks[target]
		if !ok {
			track = &model.NodeTrack{}
			anim.Tracks[target] = track
			targets[target] = nodeIndex
		}

		switch ch.Target.Path {
		case gltfAnimPathTranslation, gltfAnimPathScale:
			values, err := e.parser.ReadVec3Accessor(sampler.Output)
			if err != nil {
				return nil, fmt.Errorf("animation %q channel %d: failed to read %s values: %w", name, i, ch.Target.Path, err)
			}
			values = gltfSplineValues(values, len(times), sampler.Interpolation)
			keys := make([]model.VectorKeyframe, 0, len(times))
			for j := 0; j < min(len(times), len(values)); j++ {
				keys = append(keys, model.VectorKeyframe{Time: times[j], Value: mgl32.Vec3(values[j])})
			}
			if sampler.Interpolation == gltfAnimInterpolationStep {
				keys = gltfStepVectorKeys(keys)
			}
			if ch.Target.Path == gltfAnimPathTranslation {
				track.Translations = keys
			} else {
				track.Scales = keys
			}

		case gltfAnimPathRotation:
			values, err := e.parser.ReadVec4Accessor(sampler.Output)
			if err != nil {
				return nil, fmt.Errorf("animation %q channel %d: failed to read rotation values: %w", name, i, err)
			}
			values = gltfSplineValues(values, len(times), sampler.Interpolation)
			keys := make([]model.QuaternionKeyframe, 0, len(times))
			for j := 0; j < min(len(times), len(values)); j++ {
				keys = append(keys, model.QuaternionKeyframe{Time: times[j], Value: gltfQuat(values[j]).Normalize()})
			}
			if sampler.Interpolation == gltfAnimInterpolationStep {
				keys = gltfStepQuaternionKeys(keys)
			}
			track.Rotations = keys
		}
	}

	for target, track := range anim.Tracks {
		rest := gltfNodeTransform(&doc.Nodes[targets[target]])
		if len(track.Translations) == 0 {
			track.Translations = []model.VectorKeyframe{{Value: rest.Translation}}
		}
		if len(track.Rotations) == 0 {
			track.Rotations = []model.QuaternionKeyframe{{Value: rest.Rotation}}
		}
		if len(track.Scales) == 0 {
			track.Scales = []model.VectorKeyframe{{Value: rest.Scale}}
		}
	}

	if err := anim.Validate(); err != nil {
		return nil, fmt.Errorf("animation %q: %w", name, err)
	}
	return anim, nil
}

func (e *gltfAnimationExtractorImpl) ExtractAllAnimations() ([]*model.Animation, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}

	anims := make([]*model.Animation, len(doc.Animations))
	for i := range doc.Animations {
		anim, err := e.ExtractAnimation(i)
		if err != nil {
			return nil, fmt.Errorf("animation %d: %w", i, err)
		}
		anims[i] = anim
	}

	return anims, nil
}

// --- Helper Functions ---

// gltfSplineValues reduces CUBICSPLINE output (in-tangent, value, out-tangent per key) to the key values.
// Other interpolation modes pass through unchanged.
func gltfSplineValues[T any](values []T, keyCount int, interpolation string) []T {
	if interpolation != gltfAnimInterpolationCubicSpline || len(values) < keyCount*3 {
		return values
	}
	out := make([]T, keyCount)
	for i := range out {
		out[i] = values[i*3+1]
	}
	return out
}

// gltfStepVectorKeys rewrites STEP keys for a linear sampler by holding each value
// until the instant the next key starts.
func gltfStepVectorKeys(keys []model.VectorKeyframe) []model.VectorKeyframe {
	if len(keys) < 2 {
		return keys
	}
	out := make([]model.VectorKeyframe, 0, len(keys)*2-1)
	out = append(out, keys[0])
	for i := 1; i < len(keys); i++ {
		out = append(out, model.VectorKeyframe{Time: keys[i].Time, Value: keys[i-1].Value}, keys[i])
	}
	return out
}

// gltfStepQuaternionKeys is the rotation counterpart of gltfStepVectorKeys.
func gltfStepQuaternionKeys(keys []model.QuaternionKeyframe) []model.QuaternionKeyframe {
	if len(keys) < 2 {
		return keys
	}
	out := make([]model.QuaternionKeyframe, 0, len(keys)*2-1)
	out = append(out, keys[0])
	for i := 1; i < len(keys); i++ {
		out = append(out, model.QuaternionKeyframe{Time: keys[i].Time, Value: keys[i-1].Value}, keys[i])
	}
	return out
}
