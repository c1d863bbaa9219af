package loader

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-anim/engine/model"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithLogger is an option builder that sets the structured logger used by the Loader.
//
// Parameters:
//   - logger: the logger; nil keeps slog.Default()
//
// Returns:
//   - LoaderBuilderOption: a function that applies the logger option to a loader
func WithLogger(logger *slog.Logger) LoaderBuilderOption {
	return func(l *loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithModel is an option builder that pre-populates the model cache with an imported model.
//
// Parameters:
//   - path: the cache key for the model
//   - m: the imported model to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the model option to a loader
func WithModel(path string, m *model.ImportedModel) LoaderBuilderOption {
	return func(l *loader) {
		l.modelCache[path] = m
	}
}

// WithAnimation is an option builder that pre-populates the animation cache.
//
// Parameters:
//   - key: the animation key, "path" or "path#clip"
//   - anim: the animation to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the animation option to a loader
func WithAnimation(key string, anim *model.Animation) LoaderBuilderOption {
	return func(l *loader) {
		l.animationCache[key] = anim
	}
}

// withBackend registers a backend for a file extension, replacing any existing one.
func withBackend(ext string, backend importBackend) LoaderBuilderOption {
	return func(l *loader) {
		l.backends[ext] = backend
	}
}
