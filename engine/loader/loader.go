package loader

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"golang.org/x/sync/singleflight"
)

// ClipSeparator separates a source path from a clip name in an animation key ("walk.glb#Run").
const ClipSeparator = "#"

// loader is the implementation of the Loader interface.
type loader struct {
	mu *sync.RWMutex

	logger *slog.Logger

	modelCache     map[string]*model.ImportedModel
	animationCache map[string]*model.Animation

	// inflight collapses concurrent first loads of the same key into one import.
	inflight *singleflight.Group

	backends map[string]importBackend
}

// Loader defines the public-facing interface for importing model files and caching their
// animations. Imported models are cached by path and animations by key, where a key is a
// source path optionally followed by ClipSeparator and a clip name.
//
// Entries are never evicted while the process runs. A Loader is safe for concurrent use.
type Loader interface {
	// LoadModel imports a model file and caches the result.
	// If the model is already cached (by file path), the cached version is returned.
	// The backend is selected based on the file extension (.gltf/.glb → glTF backend).
	//
	// Parameters:
	//   - path: the file path to the model file
	//
	// Returns:
	//   - *model.ImportedModel: the loaded and cached model
	//   - error: error if loading fails
	LoadModel(path string) (*model.ImportedModel, error)

	// LoadModelReader imports a model from a reader stream and caches it by the given name.
	//
	// Parameters:
	//   - name: the cache key for the loaded model
	//   - r: the reader providing model data
	//   - isGLB: true if the reader provides GLB binary data
	//
	// Returns:
	//   - *model.ImportedModel: the loaded model
	//   - error: error if loading fails
	LoadModelReader(name string, r io.Reader, isGLB bool) (*model.ImportedModel, error)

	// LoadAnimation resolves an animation key through the cache, importing the source on a miss.
	// A key without a clip name selects the first animation of the source. A source without
	// animations yields an empty Animation, which is cached like any other result. Failures are
	// returned and not cached, so a later call retries.
	//
	// Parameters:
	//   - key: the source path, optionally suffixed with "#clip"
	//
	// Returns:
	//   - *model.Animation: the shared, read-only animation
	//   - error: error if the source cannot be imported or the clip does not exist
	LoadAnimation(key string) (*model.Animation, error)

	// Model retrieves a cached model by path. Returns nil if not found.
	//
	// Parameters:
	//   - path: the cache key to look up
	//
	// Returns:
	//   - *model.ImportedModel: the cached model or nil
	Model(path string) *model.ImportedModel

	// Animation retrieves a cached animation by key. Returns nil if not found.
	//
	// Parameters:
	//   - key: the animation key to look up
	//
	// Returns:
	//   - *model.Animation: the cached animation or nil
	Animation(key string) *model.Animation

	// Len returns the number of cached animations.
	//
	// Returns:
	//   - int: the animation cache size
	Len() int

	// Clear drops every cached model and animation.
	Clear()
}

var _ Loader = &loader{}

// NewLoader creates a new Loader with the glTF backend registered for .gltf and .glb files
// and applies the given options.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new Loader instance
func NewLoader(options ...LoaderBuilderOption) Loader {
	gltf := newGLTFImporter()
	l := &loader{
		mu:             &sync.RWMutex{},
		logger:         slog.Default(),
		modelCache:     make(map[string]*model.ImportedModel),
		animationCache: make(map[string]*model.Animation),
		inflight:       &singleflight.Group{},
		backends: map[string]importBackend{
			".gltf": gltf,
			".glb":  gltf,
		},
	}

	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) LoadModel(path string) (*model.ImportedModel, error) {
	if m := l.Model(path); m != nil {
		return m, nil
	}

	v, err, _ := l.inflight.Do("model:"+path, func() (any, error) {
		if m := l.Model(path); m != nil {
			return m, nil
		}

		backend, err := l.resolveBackend(path)
		if err != nil {
			return nil, err
		}

		imported, err := backend.Import(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}

		l.storeModel(path, imported)
		return imported, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.ImportedModel), nil
}

func (l *loader) LoadModelReader(name string, r io.Reader, isGLB bool) (*model.ImportedModel, error) {
	if m := l.Model(name); m != nil {
		return m, nil
	}

	ext := ".gltf"
	if isGLB {
		ext = ".glb"
	}
	backend, ok := l.backends[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported model format: %s", ext)
	}

	imported, err := backend.ImportReader(r, isGLB)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}

	l.storeModel(name, imported)
	return imported, nil
}

func (l *loader) LoadAnimation(key string) (*model.Animation, error) {
	if a := l.Animation(key); a != nil {
		return a, nil
	}

	v, err, shared := l.inflight.Do("animation:"+key, func() (any, error) {
		if a := l.Animation(key); a != nil {
			return a, nil
		}

		path, clip := SplitAnimationKey(key)
		imported, err := l.LoadModel(path)
		if err != nil {
			return nil, err
		}

		anim := imported.Animation(clip)
		switch {
		case anim == nil && clip != "":
			return nil, fmt.Errorf("animation %q not found in %s", clip, path)
		case anim == nil:
			l.logger.Debug("source has no animations", "path", path)
			anim = model.NewAnimation(key, 0)
		}

		l.mu.Lock()
		if existing, ok := l.animationCache[key]; ok {
			anim = existing
		} else {
			l.animationCache[key] = anim
		}
		l.mu.Unlock()

		return anim, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		l.logger.Debug("animation load shared", "key", key)
	}
	return v.(*model.Animation), nil
}

func (l *loader) Model(path string) *model.ImportedModel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modelCache[path]
}

func (l *loader) Animation(key string) *model.Animation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.animationCache[key]
}

func (l *loader) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.animationCache)
}

func (l *loader) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.modelCache = make(map[string]*model.ImportedModel)
	l.animationCache = make(map[string]*model.Animation)
}

// storeModel caches an imported model unless another caller stored one first.
func (l *loader) storeModel(path string, imported *model.ImportedModel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.modelCache[path]; ok {
		return
	}
	l.modelCache[path] = imported
	l.logger.Info("model imported",
		"path", path,
		"nodes", imported.Root.Count(),
		"animations", len(imported.Animations),
		"skins", len(imported.Skins),
	)
}

// resolveBackend selects an appropriate loader backend based on the file extension.
func (l *loader) resolveBackend(path string) (importBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	backend, ok := l.backends[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported model format: %q", ext)
	}
	return backend, nil
}

// SplitAnimationKey splits an animation key into its source path and clip name.
//
// Parameters:
//   - key: the animation key, "path" or "path#clip"
//
// Returns:
//   - path: the source path
//   - clip: the clip name, or "" for the first animation
func SplitAnimationKey(key string) (path, clip string) {
	i := strings.LastIndex(key, ClipSeparator)
	if i < 0 {
		return key, ""
	}
	return key[:i], key[i+len(ClipSeparator):]
}

// --- Process-wide cache ---

var (
	defaultMu     sync.Mutex
	defaultLoader Loader
)

// Init installs the process-wide Loader. It is called once at engine start; a later call
// replaces the previous Loader and its cache.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: the installed Loader
func Init(options ...LoaderBuilderOption) Loader {
	l := NewLoader(options...)
	defaultMu.Lock()
	defaultLoader = l
	defaultMu.Unlock()
	return l
}

// Default returns the process-wide Loader, creating one with default options if Init was not called.
//
// Returns:
//   - Loader: the process-wide Loader
func Default() Loader {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLoader == nil {
		defaultLoader = NewLoader()
	}
	return defaultLoader
}

// Shutdown clears and releases the process-wide Loader. It is called at engine shutdown.
func Shutdown() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLoader != nil {
		defaultLoader.Clear()
		defaultLoader = nil
	}
}
