package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const staticModel = `{"asset":{"version":"2.0"},"scene":0,"scenes":[{"nodes":[0]}],"nodes":[{"name":"Root"}]}`

func writeRig(t *testing.T, rig string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "static.gltf"), []byte(staticModel), 0o644))
	path := filepath.Join(dir, "rig.toml")
	require.NoError(t, os.WriteFile(path, []byte(rig), 0o644))
	return path
}

func TestRunStaticModel(t *testing.T) {
	path := writeRig(t, "frames = 3\nlog_level = \"error\"\n\n[[instance]]\nmodel = \"static.gltf\"\n")
	assert.NoError(t, run(path))
}

func TestRunMissingModel(t *testing.T) {
	path := writeRig(t, "log_level = \"error\"\n\n[[instance]]\nmodel = \"absent.glb\"\n")
	assert.Error(t, run(path))
}

func TestRunInvalidConfig(t *testing.T) {
	path := writeRig(t, "frame_rate = 0.0\nframes = -1\n")
	assert.ErrorIs(t, run(path), config.ErrInvalidConfig)
}
