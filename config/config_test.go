package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvRequiredValues(t *testing.T) {
	t.Setenv(BadgerPathEnv, "")
	t.Setenv(GeminiAPIKeyEnv, "secret")

	e := &Env{}

	_, err := e.BadgerPath()
	require.ErrorIs(t, err, ErrEnvVariableNotSet)

	key, err := e.GeminiAPIKey()
	require.NoError(t, err)
	assert.Equal(t, "secret", key)
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv(GeminiModelEnv, "")
	t.Setenv(CheckIntervalEnv, "")
	t.Setenv(ListenAddrEnv, "")
	t.Setenv(LogLevelEnv, "")

	e := &Env{}

	model, err := e.GeminiModel()
	require.NoError(t, err)
	assert.Equal(t, DefaultGeminiModel, model)

	interval, err := e.CheckInterval()
	require.NoError(t, err)
	assert.Equal(t, DefaultCheckInterval, interval)

	addr, err := e.ListenAddr()
	require.NoError(t, err)
	assert.Equal(t, DefaultListenAddr, addr)

	level, err := e.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, "info", level)
}

func TestEnvCheckInterval(t *testing.T) {
	e := &Env{}

	t.Setenv(CheckIntervalEnv, "15s")
	interval, err := e.CheckInterval()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, interval)

	t.Setenv(CheckIntervalEnv, "soon")
	_, err = e.CheckInterval()
	require.ErrorIs(t, err, ErrInvalidValue)

	t.Setenv(CheckIntervalEnv, "10ms")
	_, err = e.CheckInterval()
	require.ErrorIs(t, err, ErrInvalidValue)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medilens.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
badger:
  path: /var/lib/medilens
gemini:
  api_key: from-file
  model: gemini-test
scheduler:
  interval: 45s
`), 0o600))

	t.Setenv("MEDILENS_GEMINI_API_KEY", "from-env")

	f, err := LoadFile(path)
	require.NoError(t, err)

	badgerPath, err := f.BadgerPath()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/medilens", badgerPath)

	key, err := f.GeminiAPIKey()
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)

	model, err := f.GeminiModel()
	require.NoError(t, err)
	assert.Equal(t, "gemini-test", model)

	interval, err := f.CheckInterval()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, interval)

	_, err = f.PushoverAPIToken()
	require.ErrorIs(t, err, ErrEnvVariableNotSet)

	addr, err := f.ListenAddr()
	require.NoError(t, err)
	assert.Equal(t, DefaultListenAddr, addr)
}

func TestLoadFileMissing(t *testing.T) {
	f, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	_, err = f.BadgerPath()
	require.ErrorIs(t, err, ErrEnvVariableNotSet)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "scheduler.interval", envKey("MEDILENS_SCHEDULER_INTERVAL"))
	assert.Equal(t, "pushover.api_token", envKey("MEDILENS_PUSHOVER_API_TOKEN"))
	assert.Equal(t, "debug", envKey("MEDILENS_DEBUG"))
}
