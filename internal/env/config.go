package env

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/pior/beanstalk"
)

// Config is the environment of the command line tools.
type Config struct {
	Host     string        `env:"BEANSTALK_HOST"`
	Port     int           `env:"BEANSTALK_PORT"`
	Timeout  time.Duration `env:"BEANSTALK_TIMEOUT"`
	File     string        `env:"BEANSTALK_CONFIG"`
	LogLevel string        `env:"BEANSTALK_LOG_LEVEL,default=warn"`
}

// LoadConfig reads .env.local when present, then the process environment.
func LoadConfig(ctx context.Context) (*Config, error) {
	config := Config{}

	if err := godotenv.Load(".env.local"); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, err
	}

	return &config, nil
}

// ClientConfig builds the client config: the TOML file named by File first,
// then the non-zero environment values on top.
func (c *Config) ClientConfig() (beanstalk.Config, error) {
	var config beanstalk.Config

	if c.File != "" {
		loaded, err := beanstalk.LoadConfigFile(c.File)
		if err != nil {
			return beanstalk.Config{}, err
		}
		config = loaded
	}

	if c.Host != "" {
		config.Host = c.Host
	}
	if c.Port != 0 {
		config.Port = c.Port
	}
	if c.Timeout != 0 {
		config.Timeout = c.Timeout
	}

	return config, config.Validate()
}
