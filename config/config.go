package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/pelletier/go-toml/v2"
)

const (
	// DefaultFrameRate is the simulation rate in frames per second when none is configured.
	DefaultFrameRate = 60

	// DefaultFrames is the number of simulated frames when none is configured.
	DefaultFrames = 60

	// DefaultLogLevel is the log level when none is configured.
	DefaultLogLevel = "info"
)

// ErrInvalidConfig is returned by Validate for unusable settings.
var ErrInvalidConfig = errors.New("invalid config")

// Instance configures one animated model instance.
type Instance struct {
	// Name labels the instance in logs. Defaults to the model file name.
	Name string `toml:"name"`

	// Model is the path of the glTF/GLB model providing the skeleton and skin.
	Model string `toml:"model"`

	// Animation is the animation key, "path" or "path#clip". Empty plays the model's first animation.
	Animation string `toml:"animation"`

	// Loop sets whether playback wraps. Defaults to true.
	Loop *bool `toml:"loop"`

	// Skin selects which skin of the model is bound.
	Skin int `toml:"skin"`

	// RenormalizeWeights rescales vertices whose influences were truncated.
	RenormalizeWeights bool `toml:"renormalize_weights"`
}

// Looping reports whether the instance loops, applying the default.
func (i Instance) Looping() bool {
	return i.Loop == nil || *i.Loop
}

// Config is the rig configuration read from a TOML file.
type Config struct {
	// FrameRate is the simulation rate in frames per second.
	FrameRate float64 `toml:"frame_rate"`

	// Frames is the number of frames to simulate.
	Frames int `toml:"frames"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `toml:"log_level"`

	// Instances are the animated model instances.
	Instances []Instance `toml:"instance"`
}

// Load reads and validates a TOML config file. Relative model and animation paths are
// resolved against the file's directory.
//
// Parameters:
//   - path: the config file path
//
// Returns:
//   - *Config: the config with defaults applied
//   - error: error if the file cannot be read, decoded or validated
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for i := range cfg.Instances {
		inst := &cfg.Instances[i]
		inst.Model = resolve(dir, inst.Model)
		inst.Animation = resolve(dir, inst.Animation)
	}
	return cfg, nil
}

// Parse decodes and validates a TOML config. Unknown keys are rejected.
//
// Parameters:
//   - r: the TOML source
//
// Returns:
//   - *Config: the config with defaults applied
//   - error: error if decoding or validation fails
func Parse(r io.Reader) (*Config, error) {
	var cfg Config
	if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	c.FrameRate = common.Coalesce(c.FrameRate, DefaultFrameRate)
	c.Frames = common.Coalesce(c.Frames, DefaultFrames)
	c.LogLevel = common.Coalesce(strings.ToLower(c.LogLevel), DefaultLogLevel)
	for i := range c.Instances {
		inst := &c.Instances[i]
		base := filepath.Base(inst.Model)
		inst.Name = common.Coalesce(inst.Name, strings.TrimSuffix(base, filepath.Ext(base)))
	}
}

// Validate checks the settings.
//
// Returns:
//   - error: an error wrapping ErrInvalidConfig describing the first problem, or nil
func (c *Config) Validate() error {
	if c.FrameRate <= 0 {
		return fmt.Errorf("%w: frame_rate must be positive, got %v", ErrInvalidConfig, c.FrameRate)
	}
	if c.Frames < 0 {
		return fmt.Errorf("%w: frames must not be negative, got %d", ErrInvalidConfig, c.Frames)
	}
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	for i, inst := range c.Instances {
		if inst.Model == "" {
			return fmt.Errorf("%w: instance %d has no model", ErrInvalidConfig, i)
		}
		if inst.Skin < 0 {
			return fmt.Errorf("%w: instance %d has negative skin index %d", ErrInvalidConfig, i, inst.Skin)
		}
	}
	return nil
}

// Level returns the configured log level.
//
// Returns:
//   - slog.Level: the level
//   - error: error if LogLevel is not a known level name
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(common.Coalesce(c.LogLevel, DefaultLogLevel))); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// FrameDelta returns the simulated time step in seconds.
func (c *Config) FrameDelta() float32 {
	return float32(1 / c.FrameRate)
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
