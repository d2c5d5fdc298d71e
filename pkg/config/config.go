package config

import (
	"errors"
	"fmt"
	"io/ioutil"
	"time"

	"github.com/JJ-Intelligence/SR-Lobby-Backend/pkg/lobby"
	"gopkg.in/yaml.v2"
)

// Config holds the runtime settings of the lobby server.
type Config struct {
	Port string `yaml:"port"`
	// FrontendHost must appear in a websocket request's Origin. Empty allows
	// any origin.
	FrontendHost string `yaml:"frontendHost"`

	DefaultTargetScore int `yaml:"defaultTargetScore"`

	// Per-connection transport limits
	SendBufferSize int           `yaml:"sendBufferSize"`
	MaxMessageSize int64         `yaml:"maxMessageSize"`
	PongWait       time.Duration `yaml:"pongWait"`
	PingPeriod     time.Duration `yaml:"pingPeriod"`
	WriteWait      time.Duration `yaml:"writeWait"`

	StaticDir       string        `yaml:"staticDir"`
	Metrics         bool          `yaml:"metrics"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

func Default() *Config {
	return &Config{
		Port:               "10000",
		DefaultTargetScore: lobby.DefaultTargetScore,
		SendBufferSize:     64,
		MaxMessageSize:     64 * 1024,
		PongWait:           60 * time.Second,
		PingPeriod:         54 * time.Second,
		WriteWait:          10 * time.Second,
		Metrics:            true,
		ShutdownTimeout:    10 * time.Second,
	}
}

// ParseConfig reads a YAML config file over the defaults. Fields missing from
// the file keep their default values.
func ParseConfig(path string) (*Config, error) {
	configFile, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read config %s: %w", path, err)
	}
	return Parse(configFile)
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("unable to parse yaml config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Port == "":
		return errors.New("config: port must be set")
	case c.DefaultTargetScore <= 0:
		return errors.New("config: defaultTargetScore must be positive")
	case c.SendBufferSize <= 0:
		return errors.New("config: sendBufferSize must be positive")
	case c.MaxMessageSize <= 0:
		return errors.New("config: maxMessageSize must be positive")
	case c.WriteWait <= 0:
		return errors.New("config: writeWait must be positive")
	case c.PingPeriod <= 0 || c.PingPeriod >= c.PongWait:
		return fmt.Errorf("config: pingPeriod %s must be positive and shorter than pongWait %s", c.PingPeriod, c.PongWait)
	case c.ShutdownTimeout <= 0:
		return errors.New("config: shutdownTimeout must be positive")
	}
	return nil
}
