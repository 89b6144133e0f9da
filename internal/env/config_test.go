package env

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/pior/beanstalk"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("BEANSTALK_HOST", "queue")
	t.Setenv("BEANSTALK_PORT", "11301")
	t.Setenv("BEANSTALK_TIMEOUT", "3s")

	config, err := LoadConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "queue", config.Host)
	assert.Equal(t, 11301, config.Port)
	assert.Equal(t, 3*time.Second, config.Timeout)
	assert.Equal(t, "warn", config.LogLevel)
}

func TestLoadConfig_InvalidPort(t *testing.T) {
	t.Setenv("BEANSTALK_PORT", "not-a-port")

	_, err := LoadConfig(context.Background())
	require.Error(t, err)
}

func TestConfig_ClientConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beanstalk.toml")
	require.NoError(t, os.WriteFile(path, []byte("host = \"file-host\"\nport = 11400\ntimeout = 1\n"), 0o600))

	config := &Config{File: path, Port: 11500}
	clientConfig, err := config.ClientConfig()
	require.NoError(t, err)
	assert.Equal(t, "file-host", clientConfig.Host)
	assert.Equal(t, 11500, clientConfig.Port)
	assert.Equal(t, time.Second, clientConfig.Timeout)
}

func TestConfig_ClientConfigInvalid(t *testing.T) {
	_, err := (&Config{Port: 99999}).ClientConfig()

	var configErr *beanstalk.ConfigError
	require.ErrorAs(t, err, &configErr)
}

func TestMakeLogger(t *testing.T) {
	log, err := MakeLogger("debug")
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))

	log, err = MakeLogger("error")
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.WarnLevel))

	_, err = MakeLogger("loud")
	require.Error(t, err)
}
