package loader

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingBackend returns a fixed model and counts imports.
type countingBackend struct {
	calls   atomic.Int32
	release chan struct{}
	model   *model.ImportedModel
	err     error
}

func (b *countingBackend) Import(path string) (*model.ImportedModel, error) {
	b.calls.Add(1)
	if b.release != nil {
		<-b.release
	}
	return b.model, b.err
}

func (b *countingBackend) ImportReader(r io.Reader, isGLB bool) (*model.ImportedModel, error) {
	return b.Import("")
}

func walkModel() *model.ImportedModel {
	walk := model.NewAnimation("Walk", 1)
	walk.Tracks["Spine"] = &model.NodeTrack{
		Translations: []model.VectorKeyframe{{Value: mgl32.Vec3{0, 1, 0}}},
		Rotations:    []model.QuaternionKeyframe{{Value: mgl32.QuatIdent()}},
		Scales:       []model.VectorKeyframe{{Value: mgl32.Vec3{1, 1, 1}}},
	}
	run := model.NewAnimation("Run", 0.5)
	run.Tracks["Spine"] = walk.Tracks["Spine"]
	return &model.ImportedModel{
		Name:       "hero",
		Root:       &model.Node{Name: "Spine", Transform: model.IdentityTransform()},
		Animations: []*model.Animation{walk, run},
	}
}

func TestSplitAnimationKey(t *testing.T) {
	path, clip := SplitAnimationKey("models/hero.glb#Run")
	assert.Equal(t, "models/hero.glb", path)
	assert.Equal(t, "Run", clip)

	path, clip = SplitAnimationKey("models/hero.glb")
	assert.Equal(t, "models/hero.glb", path)
	assert.Empty(t, clip)
}

func TestLoaderLoadAnimationCaches(t *testing.T) {
	backend := &countingBackend{model: walkModel()}
	l := NewLoader(withBackend(".fake", backend))

	first, err := l.LoadAnimation("hero.fake")
	require.NoError(t, err)
	assert.Equal(t, "Walk", first.Name)

	again, err := l.LoadAnimation("hero.fake")
	require.NoError(t, err)
	assert.Same(t, first, again)

	run, err := l.LoadAnimation("hero.fake#Run")
	require.NoError(t, err)
	assert.Equal(t, "Run", run.Name)

	assert.Equal(t, int32(1), backend.calls.Load())
	assert.Equal(t, 2, l.Len())
	assert.NotNil(t, l.Model("hero.fake"))
	assert.Same(t, run, l.Animation("hero.fake#Run"))
}

func TestLoaderConcurrentFirstLoad(t *testing.T) {
	backend := &countingBackend{model: walkModel(), release: make(chan struct{})}
	l := NewLoader(withBackend(".fake", backend))

	const callers = 16
	results := make([]*model.Animation, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			anim, err := l.LoadAnimation("hero.fake")
			assert.NoError(t, err)
			results[i] = anim
		}(i)
	}
	close(backend.release)
	wg.Wait()

	assert.Equal(t, int32(1), backend.calls.Load())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestLoaderEmptySourceIsCached(t *testing.T) {
	backend := &countingBackend{model: &model.ImportedModel{Name: "static"}}
	l := NewLoader(withBackend(".fake", backend))

	anim, err := l.LoadAnimation("static.fake")
	require.NoError(t, err)
	assert.False(t, anim.HasTracks())
	assert.Equal(t, 1, l.Len())

	_, err = l.LoadAnimation("static.fake")
	require.NoError(t, err)
	assert.Equal(t, int32(1), backend.calls.Load())
}

func TestLoaderFailuresAreNotCached(t *testing.T) {
	backend := &countingBackend{err: errors.New("disk on fire")}
	l := NewLoader(withBackend(".fake", backend))

	_, err := l.LoadAnimation("broken.fake")
	assert.ErrorContains(t, err, "disk on fire")
	_, err = l.LoadAnimation("broken.fake")
	assert.Error(t, err)

	assert.Equal(t, int32(2), backend.calls.Load())
	assert.Zero(t, l.Len())
	assert.Nil(t, l.Model("broken.fake"))
}

func TestLoaderUnknownClipAndFormat(t *testing.T) {
	l := NewLoader(WithModel("hero.glb", walkModel()))

	_, err := l.LoadAnimation("hero.glb#Dance")
	assert.ErrorContains(t, err, `"Dance" not found`)

	_, err = l.LoadModel("hero.obj")
	assert.ErrorContains(t, err, "unsupported model format")
}

func TestLoaderPreseededAnimationAndClear(t *testing.T) {
	anim := walkModel().Animations[0]
	l := NewLoader(WithAnimation("preseeded", anim))

	got, err := l.LoadAnimation("preseeded")
	require.NoError(t, err)
	assert.Same(t, anim, got)

	l.Clear()
	assert.Zero(t, l.Len())
	assert.Nil(t, l.Animation("preseeded"))
}

func TestDefaultLifecycle(t *testing.T) {
	anim := walkModel().Animations[0]
	installed := Init(WithAnimation("hero", anim))
	assert.Same(t, installed, Default())

	got, err := Default().LoadAnimation("hero")
	require.NoError(t, err)
	assert.Same(t, anim, got)

	Shutdown()
	assert.Zero(t, installed.Len())
	assert.NotSame(t, installed, Default())
	Shutdown()
}
