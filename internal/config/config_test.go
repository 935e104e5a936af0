package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gramophone.yaml"), []byte(body), 0o644))
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `
listen: "0.0.0.0:9000"
channels:
  - out_L
  - out_R
sample_rate: 48000
files:
  bell:
    uri: file.wav
`)

	t.Setenv("GRAMOPHONE_SHUTDOWN_SECS", "5")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.Equal(t, []string{"out_L", "out_R"}, cfg.Channels)
	assert.Equal(t, 48000, cfg.SampleRate)
	assert.Equal(t, 5, cfg.ShutdownSecs)
	require.Contains(t, cfg.Files, "bell")
	assert.Equal(t, "file.wav", cfg.Files["bell"].URI)
}

func TestValidateRejectsEmptyChannels(t *testing.T) {
	cfg := Config{Listen: "0.0.0.0:9000", SampleRate: 48000}
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsBadSampleRate(t *testing.T) {
	cfg := Config{Listen: "0.0.0.0:9000", Channels: []string{"a"}, SampleRate: 0}
	require.Error(t, cfg.Validate())
}

func TestValidateAcceptsMinimalConfig(t *testing.T) {
	cfg := Config{Listen: "0.0.0.0:9000", Channels: []string{"a"}, SampleRate: 48000}
	require.NoError(t, cfg.Validate())
}
