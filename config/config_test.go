package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rig = `
frame_rate = 30.0
frames = 90
log_level = "DEBUG"

[[instance]]
model = "hero.glb"
animation = "hero.glb#Run"
loop = false
renormalize_weights = true

[[instance]]
name = "extra"
model = "/abs/crowd.gltf"
skin = 1
`

func TestParse(t *testing.T) {
	cfg, err := Parse(strings.NewReader(rig))
	require.NoError(t, err)

	assert.Equal(t, 30.0, cfg.FrameRate)
	assert.Equal(t, 90, cfg.Frames)
	assert.InDelta(t, 1.0/30, cfg.FrameDelta(), 1e-7)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	require.Len(t, cfg.Instances, 2)
	hero := cfg.Instances[0]
	assert.Equal(t, "hero", hero.Name)
	assert.False(t, hero.Looping())
	assert.True(t, hero.RenormalizeWeights)

	extra := cfg.Instances[1]
	assert.Equal(t, "extra", extra.Name)
	assert.True(t, extra.Looping())
	assert.Equal(t, 1, extra.Skin)
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, float64(DefaultFrameRate), cfg.FrameRate)
	assert.Equal(t, DefaultFrames, cfg.Frames)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Empty(t, cfg.Instances)
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"negative rate": "frame_rate = -1.0",
		"bad level":     `log_level = "loud"`,
		"no model":      "[[instance]]\nname = \"ghost\"",
		"negative skin": "[[instance]]\nmodel = \"a.glb\"\nskin = -2",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(src))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := Parse(strings.NewReader("fps = 60"))
	assert.Error(t, err)
}

func TestLoadResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rig.toml")
	require.NoError(t, os.WriteFile(path, []byte(rig), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "hero.glb"), cfg.Instances[0].Model)
	assert.Equal(t, filepath.Join(dir, "hero.glb#Run"), cfg.Instances[0].Animation)
	assert.Equal(t, "/abs/crowd.gltf", cfg.Instances[1].Model)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}
