package beanstalk

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		field  string
	}{
		{name: "zero value", config: Config{}},
		{name: "explicit", config: Config{Host: "10.0.0.1", Port: 11301, Timeout: time.Second}},
		{name: "blank host", config: Config{Host: "   "}, field: "host"},
		{name: "host with space", config: Config{Host: "bad host"}, field: "host"},
		{name: "port too large", config: Config{Port: 65536}, field: "port"},
		{name: "negative port", config: Config{Port: -1}, field: "port"},
		{name: "negative timeout", config: Config{Timeout: -time.Second}, field: "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.field == "" {
				require.NoError(t, err)
				return
			}

			var configErr *ConfigError
			require.ErrorAs(t, err, &configErr)
			assert.Equal(t, tt.field, configErr.Field)
		})
	}
}

func TestConfig_Addr(t *testing.T) {
	assert.Equal(t, "localhost:11300", Config{}.Addr())
	assert.Equal(t, "queue:1234", Config{Host: "queue", Port: 1234}.Addr())
	assert.Equal(t, "[::1]:11300", Config{Host: "::1"}.Addr())
}

func TestConfig_Defaults(t *testing.T) {
	c := Config{}.withDefaults()

	assert.Equal(t, DefaultHost, c.Host)
	assert.Equal(t, DefaultPort, c.Port)
	assert.Equal(t, DefaultTimeout, c.Timeout)
	require.NotNil(t, c.Dialer)
	assert.Equal(t, DefaultTimeout, c.Dialer.Timeout)
	assert.NotNil(t, c.Logger)
}

func TestParseConfig(t *testing.T) {
	config, err := ParseConfig([]byte(`
host = "queue.internal"
port = 11301
timeout = 2.5
`))
	require.NoError(t, err)
	assert.Equal(t, "queue.internal", config.Host)
	assert.Equal(t, 11301, config.Port)
	assert.Equal(t, 2500*time.Millisecond, config.Timeout)

	config, err = ParseConfig([]byte(`port = 11302`))
	require.NoError(t, err)
	assert.Equal(t, "localhost:11302", config.Addr())
}

func TestParseConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "syntax", data: `host = `},
		{name: "type", data: `port = "eleven"`},
		{name: "unknown key", data: `hots = "typo"`},
		{name: "negative timeout", data: `timeout = -1`},
		{name: "port out of range", data: `port = 0x1ffff`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.data))
			var configErr *ConfigError
			require.ErrorAs(t, err, &configErr)
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beanstalk.toml")
	require.NoError(t, os.WriteFile(path, []byte("host = \"127.0.0.1\"\n"), 0o600))

	config, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:11300", config.Addr())

	_, err = LoadConfigFile(filepath.Join(t.TempDir(), "missing.toml"))
	var configErr *ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
