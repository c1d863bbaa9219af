package animator

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-anim/engine/loader"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
)

// AnimatorBuilderOption is a functional option for configuring an Animator during construction.
type AnimatorBuilderOption func(*animator)

// WithLoader is an option builder that sets the Loader used to resolve animation paths.
//
// Parameters:
//   - l: the loader whose animation cache backs Load
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the loader option to an animator
func WithLoader(l loader.Loader) AnimatorBuilderOption {
	return func(a *animator) {
		a.loader = l
	}
}

// WithAnimation is an option builder that installs an animation during construction.
//
// Parameters:
//   - anim: the animation to play
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the animation option to an animator
func WithAnimation(anim *model.Animation) AnimatorBuilderOption {
	return func(a *animator) {
		a.setAnimationLocked(anim)
	}
}

// WithLogger is an option builder that sets the structured logger used by the Animator.
//
// Parameters:
//   - logger: the logger; nil keeps slog.Default()
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the logger option to an animator
func WithLogger(logger *slog.Logger) AnimatorBuilderOption {
	return func(a *animator) {
		if logger != nil {
			a.logger = logger
		}
	}
}
