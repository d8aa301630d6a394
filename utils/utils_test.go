package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConf = `
[Server]
Address = "0.0.0.0:9000"
TickInterval = 20

[Mixer]
Workers = 8

[Log]
Level = "debug"
Development = true
`

func TestReadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(testConf), 0o600))

	cfg, err := ReadTOML(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Address)
	assert.Equal(t, 20*time.Millisecond, Millis(cfg.Server.TickInterval))
	assert.Equal(t, 8, cfg.Mixer.Workers)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Development)

	// untouched keys keep their defaults
	assert.Equal(t, DefaultConfig().Server.ReadTimeout, cfg.Server.ReadTimeout)
	assert.Equal(t, DefaultConfig().Mixer.MaxFrameBytes, cfg.Mixer.MaxFrameBytes)
}

func TestReadTOMLMissingFile(t *testing.T) {
	cfg, err := ReadTOML(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestReadTOMLMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[Server\n"), 0o600))

	_, err := ReadTOML(path)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LogConfig{Level: "warn"})
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = NewLogger(LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestAlmostEqual(t *testing.T) {
	assert.True(t, AlmostEqual(1.0, 1.0+1e-10, 1e-9))
	assert.False(t, AlmostEqual(1.0, 1.1, 1e-9))
}
