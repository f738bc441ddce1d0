package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 3002, cfg.Port)
	assert.False(t, cfg.Debug)
	assert.Equal(t, 0.5, cfg.ConfidenceThreshold)
	assert.Equal(t, 640, cfg.InputHeight)
	assert.Equal(t, 640, cfg.InputWidth)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8123")
	t.Setenv("DEBUG", "true")
	t.Setenv("CONFIDENCE_THRESHOLD", "0.25")
	t.Setenv("MODEL_PATH", "custom/model.onnx")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8123, cfg.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 0.25, cfg.ConfidenceThreshold)
	assert.Equal(t, "custom/model.onnx", cfg.ModelPath)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "port: 9000\nconfidence_threshold: 0.35\nmodel_path: file/model.onnx\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 0.35, cfg.ConfidenceThreshold)
	assert.Equal(t, "file/model.onnx", cfg.ModelPath)
}

func TestLoadConfigEnvWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9000\n"), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9001")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 9001, cfg.Port)
}

func TestLoadConfigRejectsBadThreshold(t *testing.T) {
	t.Setenv("CONFIDENCE_THRESHOLD", "1.5")

	_, err := LoadConfig()
	assert.Error(t, err)
}
