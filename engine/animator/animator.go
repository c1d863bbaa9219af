package animator

import (
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/loader"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/tanema/gween"
)

// animator is the implementation of the Animator interface.
type animator struct {
	mu *sync.Mutex

	loader loader.Loader
	logger *slog.Logger

	animation    *model.Animation
	hasAnimation bool

	time    float32
	playing bool

	// clamp drives the cursor for non-looping playback; it saturates at the animation duration.
	clamp *gween.Tween
}

// exactEase is a linear gween easing that returns the elapsed time unchanged, so the clamped
// cursor is the plain sum of the deltas until it reaches the duration.
func exactEase(t, b, _, _ float32) float32 {
	return b + t
}

// Animator owns the playback cursor of one model instance over the active Animation.
// Keyframes are sampled by the skeleton (skeleton.Animate), which reads Animation and Time
// once per frame and samples its pre-bound tracks with SampleVector3Or and SampleQuaternionOr.
//
// An Animator without animation data is a valid, inert state: Advance is a no-op and
// Animation returns an empty Animation. Load never fails loudly; a missing or empty animation simply leaves
// HasAnimation false.
type Animator interface {
	// Load resolves an animation through the animation cache and makes it active.
	// The path may select a named clip with a "#name" suffix. On failure, or when the source
	// holds no tracks, the Animator is left without animation and the problem is logged.
	//
	// Parameters:
	//   - path: the animation source path, optionally suffixed with "#clip"
	Load(path string)

	// SetAnimation installs an already-parsed animation and rewinds the cursor.
	// A nil animation or one without tracks leaves the Animator without animation.
	//
	// Parameters:
	//   - anim: the animation to play
	SetAnimation(anim *model.Animation)

	// Advance moves the playback cursor forward by deltaTime.
	// When loop is true the cursor wraps into [0, duration). When loop is false the cursor
	// clamps at the duration and playback stops; later calls do nothing until Reset.
	//
	// Parameters:
	//   - deltaTime: elapsed time since the last frame in seconds
	//   - loop: whether playback wraps at the end of the animation
	Advance(deltaTime float32, loop bool)

	// Reset rewinds the cursor to 0 and resumes playback.
	Reset()

	// SetTime moves the cursor to t, clamped to [0, duration]. No-op without animation.
	//
	// Parameters:
	//   - t: the playback time in seconds
	SetTime(t float32)

	// Time returns the current playback time.
	//
	// Returns:
	//   - float32: the cursor position in seconds
	Time() float32

	// Duration returns the length of the active animation, or 0 without animation.
	//
	// Returns:
	//   - float32: the animation duration in seconds
	Duration() float32

	// Playing reports whether Advance still moves the cursor.
	//
	// Returns:
	//   - bool: false once a non-looping playback reached its end, or without animation
	Playing() bool

	// HasAnimation reports whether an animation with at least one track is active.
	//
	// Returns:
	//   - bool: true if the Animator has animation data
	HasAnimation() bool

	// Animation returns the active animation. Without animation an empty Animation is returned.
	//
	// Returns:
	//   - *model.Animation: the active animation, never nil
	Animation() *model.Animation
}

var _ Animator = &animator{}

// NewAnimator creates a new Animator with no animation and applies the given options.
// Animations are resolved through loader.Default() unless WithLoader is supplied.
//
// Parameters:
//   - options: variadic list of AnimatorBuilderOption functions to configure the Animator
//
// Returns:
//   - Animator: a new Animator
func NewAnimator(options ...AnimatorBuilderOption) Animator {
	a := &animator{
		mu:        &sync.Mutex{},
		logger:    slog.Default(),
		animation: model.NewAnimation("", 0),
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

func (a *animator) Load(path string) {
	l := a.loader
	if l == nil {
		l = loader.Default()
	}

	anim, err := l.LoadAnimation(path)
	if err != nil {
		a.logger.Warn("animation unavailable", "path", path, "error", err)
		anim = nil
	}

	a.SetAnimation(anim)
	if !a.HasAnimation() {
		a.logger.Debug("model has no animation", "path", path)
	}
}

func (a *animator) SetAnimation(anim *model.Animation) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setAnimationLocked(anim)
}

func (a *animator) setAnimationLocked(anim *model.Animation) {
	a.time = 0
	if !anim.HasTracks() {
		a.animation = model.NewAnimation("", 0)
		a.hasAnimation = false
		a.playing = false
		a.clamp = nil
		return
	}

	a.animation = anim
	a.hasAnimation = true
	a.playing = true
	a.clamp = gween.New(0, anim.Duration, anim.Duration, exactEase)
}

func (a *animator) Advance(deltaTime float32, loop bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.hasAnimation || !a.playing {
		return
	}

	if loop {
		a.time = common.WrapTime(a.time+deltaTime, a.animation.Duration)
		return
	}

	current, finished := a.clamp.Set(a.time + deltaTime)
	a.time = current
	if finished {
		a.time = a.animation.Duration
		a.playing = false
	}
}

func (a *animator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.time = 0
	a.playing = a.hasAnimation
	if a.clamp != nil {
		a.clamp.Reset()
	}
}

func (a *animator) SetTime(t float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.hasAnimation {
		return
	}
	a.time = common.Clamp(t, 0, a.animation.Duration)
}

func (a *animator) Time() float32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.time
}

func (a *animator) Duration() float32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.animation.Duration
}

func (a *animator) Playing() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.playing
}

func (a *animator) HasAnimation() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hasAnimation
}

func (a *animator) Animation() *model.Animation {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.animation
}
