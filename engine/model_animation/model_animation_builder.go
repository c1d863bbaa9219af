package model_animation

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-anim/engine/loader"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/engine/profiler"
	"github.com/Carmen-Shannon/oxy-anim/engine/renderer/upload"
	"github.com/cogentcore/webgpu/wgpu"
)

// ModelAnimationBuilderOption is a functional option for configuring a ModelAnimation during construction.
type ModelAnimationBuilderOption func(*modelAnimation)

// WithAnimationPath is an option builder that resolves the animation from a path through
// the animation cache.
//
// Parameters:
//   - path: the animation source path, optionally suffixed with "#clip"
//
// Returns:
//   - ModelAnimationBuilderOption: a function that applies the path option
func WithAnimationPath(path string) ModelAnimationBuilderOption {
	return func(m *modelAnimation) {
		m.animationPath = path
	}
}

// WithAnimation is an option builder that plays an already-parsed animation.
//
// Parameters:
//   - anim: the animation to play
//
// Returns:
//   - ModelAnimationBuilderOption: a function that applies the animation option
func WithAnimation(anim *model.Animation) ModelAnimationBuilderOption {
	return func(m *modelAnimation) {
		m.animation = anim
	}
}

// WithLoop is an option builder that sets whether playback wraps. Defaults to true.
//
// Parameters:
//   - loop: true to loop
//
// Returns:
//   - ModelAnimationBuilderOption: a function that applies the loop option
func WithLoop(loop bool) ModelAnimationBuilderOption {
	return func(m *modelAnimation) {
		m.loop = loop
	}
}

// WithSkinIndex is an option builder that selects which skin of the model is bound.
// Defaults to 0.
//
// Parameters:
//   - index: the skin index
//
// Returns:
//   - ModelAnimationBuilderOption: a function that applies the skin option
func WithSkinIndex(index int) ModelAnimationBuilderOption {
	return func(m *modelAnimation) {
		m.skinIndex = index
	}
}

// WithRenormalizeWeights is an option builder that renormalizes vertices whose influences
// were truncated.
//
// Parameters:
//   - renormalize: true to renormalize
//
// Returns:
//   - ModelAnimationBuilderOption: a function that applies the option
func WithRenormalizeWeights(renormalize bool) ModelAnimationBuilderOption {
	return func(m *modelAnimation) {
		m.renormalize = renormalize
	}
}

// WithPaletteBuffer is an option builder that makes Update write the palette into buf,
// typically mapped GPU memory.
//
// Parameters:
//   - buf: the destination; it must hold model.JointMatricesStride bytes per joint
//
// Returns:
//   - ModelAnimationBuilderOption: a function that applies the buffer option
func WithPaletteBuffer(buf []byte) ModelAnimationBuilderOption {
	return func(m *modelAnimation) {
		m.palette = buf
	}
}

// WithAnimationLoader is an option builder that sets the Loader animation paths resolve through.
// Defaults to loader.Default().
//
// Parameters:
//   - l: the loader
//
// Returns:
//   - ModelAnimationBuilderOption: a function that applies the loader option
func WithAnimationLoader(l loader.Loader) ModelAnimationBuilderOption {
	return func(m *modelAnimation) {
		m.loader = l
	}
}

// WithUploader is an option builder that stages the palette into paletteBuffer after every
// Update and the influence table into influenceBuffer once. Flushing the Uploader is left to
// the caller so several instances can share one submission.
//
// Parameters:
//   - u: the uploader
//   - paletteBuffer: the GPU storage buffer holding the palette
//   - influenceBuffer: the GPU storage buffer holding the influence table
//
// Returns:
//   - ModelAnimationBuilderOption: a function that applies the uploader option
func WithUploader(u upload.Uploader, paletteBuffer, influenceBuffer *wgpu.Buffer) ModelAnimationBuilderOption {
	return func(m *modelAnimation) {
		m.uploader = u
		m.paletteBuffer = paletteBuffer
		m.influenceBuffer = influenceBuffer
	}
}

// WithProfiler is an option builder that records per-stage timings.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - ModelAnimationBuilderOption: a function that applies the profiler option
func WithProfiler(p *profiler.Profiler) ModelAnimationBuilderOption {
	return func(m *modelAnimation) {
		m.profiler = p
	}
}

// WithLogger is an option builder that sets the structured logger.
//
// Parameters:
//   - logger: the logger; nil keeps slog.Default()
//
// Returns:
//   - ModelAnimationBuilderOption: a function that applies the logger option
func WithLogger(logger *slog.Logger) ModelAnimationBuilderOption {
	return func(m *modelAnimation) {
		if logger != nil {
			m.logger = logger
		}
	}
}
