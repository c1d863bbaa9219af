package model_animation

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-anim/engine/animator"
	"github.com/Carmen-Shannon/oxy-anim/engine/loader"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/engine/profiler"
	"github.com/Carmen-Shannon/oxy-anim/engine/renderer/upload"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/Carmen-Shannon/oxy-anim/engine/skin"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrPaletteTooSmall is returned when a caller-provided palette buffer cannot hold every joint.
var ErrPaletteTooSmall = errors.New("palette buffer too small")

// modelAnimation is the implementation of the ModelAnimation interface.
type modelAnimation struct {
	mu *sync.Mutex

	logger   *slog.Logger
	profiler *profiler.Profiler

	imported *model.ImportedModel

	animator      animator.Animator
	loader        loader.Loader
	animationPath string
	animation     *model.Animation

	loop        bool
	skinIndex   int
	renormalize bool

	skeleton *skeleton.Skeleton
	binding  *skin.Binding
	palette  []byte

	uploader         upload.Uploader
	paletteBuffer    *wgpu.Buffer
	influenceBuffer  *wgpu.Buffer
	influencesStaged bool

	released bool
}

// ModelAnimation drives the skeletal animation of one model instance.
// Each frame it advances the playback cursor, poses the skeleton and rewrites the joint palette,
// in that order. An instance without animation data never builds a skeleton and never touches
// its palette.
type ModelAnimation interface {
	// Update advances the instance by deltaTime and rewrites the palette.
	// Does nothing without animation data or after Release.
	//
	// Parameters:
	//   - deltaTime: elapsed time since the last frame in seconds
	Update(deltaTime float32)

	// HasAnimation reports whether the instance is animated.
	//
	// Returns:
	//   - bool: true if an animation with at least one track is active and its skeleton is built
	HasAnimation() bool

	// Palette returns the joint palette, model.JointMatricesStride bytes per joint.
	//
	// Returns:
	//   - []byte: the palette, the buffer given to WithPaletteBuffer, or nil
	Palette() []byte

	// Influences returns the per-vertex influence table.
	//
	// Returns:
	//   - []model.GPUVertexInfluence: the table, or nil without animation
	Influences() []model.GPUVertexInfluence

	// InfluenceBytes returns the influence table laid out for GPU upload.
	//
	// Returns:
	//   - []byte: model.VertexInfluenceStride bytes per vertex, or nil without animation
	InfluenceBytes() []byte

	// Animator returns the playback cursor.
	Animator() animator.Animator

	// Skeleton returns the posed skeleton, or nil while the instance has no animation.
	Skeleton() *skeleton.Skeleton

	// Binding returns the skin binding, or nil while the instance has no animation.
	Binding() *skin.Binding

	// SetLoop sets whether playback wraps at the end of the animation.
	// Enabling looping on a playback that already ran to its end restarts it from time 0.
	//
	// Parameters:
	//   - loop: true to loop
	SetLoop(loop bool)

	// Loop reports whether playback wraps at the end of the animation.
	Loop() bool

	// PlayAnimation switches to the animation resolved from path through the animation cache.
	// A path without animation data leaves the instance unanimated.
	//
	// Parameters:
	//   - path: the animation source path, optionally suffixed with "#clip"
	//
	// Returns:
	//   - error: an error if the skeleton or skin binding cannot be built, in which case the
	//     instance is left unanimated
	PlayAnimation(path string) error

	// SetAnimation switches to an already-parsed animation.
	//
	// Parameters:
	//   - anim: the animation to play
	//
	// Returns:
	//   - error: an error if the skeleton or skin binding cannot be built
	SetAnimation(anim *model.Animation) error

	// Release detaches the instance from its buffers. Later calls to Update do nothing.
	Release()
}

var _ ModelAnimation = &modelAnimation{}

// NewModelAnimation creates the animation state of one model instance.
// The active animation is, in order of preference, the one given by WithAnimation, the one
// resolved from WithAnimationPath, or the first animation bundled with the model.
//
// Parameters:
//   - imported: the imported model providing the node hierarchy and skins
//   - options: variadic list of ModelAnimationBuilderOption functions to configure the instance
//
// Returns:
//   - ModelAnimation: the instance
//   - error: an error if the skeleton, the skin binding or the palette buffer is invalid
func NewModelAnimation(imported *model.ImportedModel, options ...ModelAnimationBuilderOption) (ModelAnimation, error) {
	if imported == nil {
		imported = &model.ImportedModel{}
	}
	m := &modelAnimation{
		mu:       &sync.Mutex{},
		logger:   slog.Default(),
		imported: imported,
		loop:     true,
	}
	for _, opt := range options {
		opt(m)
	}

	m.animator = animator.NewAnimator(
		animator.WithLoader(m.loader),
		animator.WithLogger(m.logger),
	)

	var err error
	switch {
	case m.animation != nil:
		err = m.SetAnimation(m.animation)
	case m.animationPath != "":
		err = m.PlayAnimation(m.animationPath)
	default:
		err = m.SetAnimation(imported.Animation(""))
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *modelAnimation) Update(deltaTime float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released || m.skeleton == nil || !m.animator.HasAnimation() {
		return
	}

	stop := m.begin(profiler.StageAdvance)
	m.animator.Advance(deltaTime, m.loop)
	stop()

	m.poseLocked()
}

// poseLocked samples the skeleton at the cursor and rewrites the palette.
func (m *modelAnimation) poseLocked() {
	stop := m.begin(profiler.StageSkeleton)
	m.skeleton.Animate(m.animator)
	stop()

	stop = m.begin(profiler.StageSkin)
	m.binding.Update(m.skeleton, m.palette)
	stop()

	if m.uploader == nil {
		return
	}
	stop = m.begin(profiler.StageUpload)
	if !m.influencesStaged {
		m.uploader.Stage(upload.BufferWrite{
			Label:  m.imported.Name + " influences",
			Buffer: m.influenceBuffer,
			Data:   m.binding.InfluenceBytes(),
		})
		m.influencesStaged = true
	}
	m.uploader.Stage(upload.BufferWrite{
		Label:  m.imported.Name + " palette",
		Buffer: m.paletteBuffer,
		Data:   m.palette[:m.binding.PaletteSize()],
	})
	stop()
}

func (m *modelAnimation) begin(stage profiler.Stage) func() {
	if m.profiler == nil {
		return func() {}
	}
	return m.profiler.Begin(stage)
}

func (m *modelAnimation) PlayAnimation(path string) error {
	m.animator.Load(path)

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activateLocked()
}

func (m *modelAnimation) SetAnimation(anim *model.Animation) error {
	m.animator.SetAnimation(anim)

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activateLocked()
}

// activateLocked builds the skeleton and binding the first time the instance has animation
// data, then poses the new animation at time 0.
func (m *modelAnimation) activateLocked() error {
	if !m.animator.HasAnimation() {
		m.logger.Debug("model has no animation", "model", m.imported.Name)
		return nil
	}

	if m.skeleton == nil {
		if err := m.buildRigLocked(); err != nil {
			// without a rig the animation can never be posed, so the instance stays unanimated
			m.animator.SetAnimation(nil)
			return err
		}
	}
	m.skeleton.ResetPose()
	if !m.released {
		m.poseLocked()
	}
	return nil
}

func (m *modelAnimation) buildRigLocked() error {
	skel, err := skeleton.Build(m.imported.Root)
	if err != nil {
		return fmt.Errorf("failed to build skeleton for %q: %w", m.imported.Name, err)
	}

	var data *model.SkinData
	if m.skinIndex >= 0 && m.skinIndex < len(m.imported.Skins) {
		data = &m.imported.Skins[m.skinIndex]
	} else {
		m.logger.Debug("model has no skin", "model", m.imported.Name, "skin", m.skinIndex)
	}

	binding, err := skin.Bind(skel, data,
		skin.WithRenormalizeWeights(m.renormalize),
		skin.WithLogger(m.logger),
	)
	if err != nil {
		return fmt.Errorf("failed to bind skin for %q: %w", m.imported.Name, err)
	}

	switch {
	case m.palette == nil:
		m.palette = make([]byte, binding.PaletteSize())
	case len(m.palette) < binding.PaletteSize():
		return fmt.Errorf("%w: %q needs %d bytes, buffer holds %d", ErrPaletteTooSmall, m.imported.Name, binding.PaletteSize(), len(m.palette))
	}

	m.skeleton = skel
	m.binding = binding
	m.logger.Info("model animation ready",
		"model", m.imported.Name,
		"joints", skel.JointCount(),
		"vertices", len(binding.Influences()),
		"truncated", binding.TruncatedVertices(),
	)
	return nil
}

func (m *modelAnimation) HasAnimation() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.skeleton != nil && m.animator.HasAnimation()
}

func (m *modelAnimation) Palette() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.palette
}

func (m *modelAnimation) Influences() []model.GPUVertexInfluence {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.binding == nil {
		return nil
	}
	return m.binding.Influences()
}

func (m *modelAnimation) InfluenceBytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.binding == nil {
		return nil
	}
	return m.binding.InfluenceBytes()
}

func (m *modelAnimation) Animator() animator.Animator {
	return m.animator
}

func (m *modelAnimation) Skeleton() *skeleton.Skeleton {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.skeleton
}

func (m *modelAnimation) Binding() *skin.Binding {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.binding
}

func (m *modelAnimation) SetLoop(loop bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loop = loop
	if loop && m.animator.HasAnimation() && !m.animator.Playing() {
		m.animator.Reset()
	}
}

func (m *modelAnimation) Loop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loop
}

func (m *modelAnimation) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = true
	m.uploader = nil
	m.paletteBuffer = nil
	m.influenceBuffer = nil
}
