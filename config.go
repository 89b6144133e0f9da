package beanstalk

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
)

const (
	DefaultHost    = "localhost"
	DefaultPort    = 11300
	DefaultTimeout = 10 * time.Second
)

// Config holds the connection settings of a Client.
// Zero values are replaced by the defaults.
type Config struct {
	// Host is the beanstalkd host name or IP.
	// Default: "localhost"
	Host string

	// Port is the beanstalkd TCP port.
	// Default: 11300
	Port int

	// Timeout bounds each request/response exchange, including the dial.
	// Reserve commands get their own wait added on top.
	// Default: 10s
	Timeout time.Duration

	// Dialer is the net.Dialer used to create new connections.
	// If nil, a net.Dialer with Timeout is used.
	Dialer *net.Dialer

	// Logger receives debug logs for every exchange and warnings for transport failures.
	// If nil, logging is disabled.
	Logger *zap.Logger
}

// ConfigError is returned when a Config is not usable.
// No connection is attempted.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	msg := "beanstalk: invalid config"
	if e.Field != "" {
		msg += " " + e.Field
	}
	msg += ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Validate reports the first invalid field of c, after defaults are applied.
func (c Config) Validate() error {
	c = c.withDefaults()

	if strings.TrimSpace(c.Host) == "" || strings.ContainsAny(c.Host, " \t\r\n") {
		return &ConfigError{Field: "host", Message: fmt.Sprintf("malformed host %q", c.Host)}
	}
	if c.Port < 1 || c.Port > 65535 {
		return &ConfigError{Field: "port", Message: fmt.Sprintf("port %d out of range 1-65535", c.Port)}
	}
	if c.Timeout < 0 {
		return &ConfigError{Field: "timeout", Message: fmt.Sprintf("negative timeout %s", c.Timeout)}
	}
	return nil
}

// Addr returns the host:port address to dial.
func (c Config) Addr() string {
	c = c.withDefaults()
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Dialer == nil {
		c.Dialer = &net.Dialer{Timeout: c.Timeout}
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// fileConfig is the on-disk representation of Config.
type fileConfig struct {
	Host    string  `toml:"host"`
	Port    int     `toml:"port"`
	Timeout float64 `toml:"timeout"` // seconds
}

// LoadConfigFile reads a TOML file with the keys host, port and timeout
// (seconds). Missing keys keep their defaults.
//
//	host = "queue.internal"
//	port = 11300
//	timeout = 2.5
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &ConfigError{Message: fmt.Sprintf("load failed (%s)", path), Err: err}
	}
	return ParseConfig(data)
}

// ParseConfig decodes a TOML document as described by LoadConfigFile.
func ParseConfig(data []byte) (Config, error) {
	var fc fileConfig
	md, err := toml.Decode(string(data), &fc)
	if err != nil {
		return Config{}, &ConfigError{Message: "parse failed", Err: err}
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, &ConfigError{Field: undecoded[0].String(), Message: "unknown key"}
	}
	if fc.Timeout < 0 {
		return Config{}, &ConfigError{Field: "timeout", Message: fmt.Sprintf("negative timeout %v", fc.Timeout)}
	}

	cfg := Config{
		Host:    fc.Host,
		Port:    fc.Port,
		Timeout: time.Duration(fc.Timeout * float64(time.Second)),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
