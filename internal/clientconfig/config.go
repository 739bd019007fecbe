// Package clientconfig loads the capture client configuration from a YAML
// file, with sensible defaults when no file exists.
package clientconfig

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harlley/mekane-share/internal/types"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Capture CaptureConfig `yaml:"capture"`
}

type ServerConfig struct {
	// BaseURL of the storage server; a pasted upload endpoint is accepted
	// and normalized.
	BaseURL        string `yaml:"baseUrl"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

type CaptureConfig struct {
	// RetentionDays requested per upload, 0 leaves the server default.
	RetentionDays int `yaml:"retentionDays"`
	// Source label stamped into upload metadata.
	Source string `yaml:"source"`
	// SettleDelayMillis between hiding the selection UI and capturing.
	SettleDelayMillis int `yaml:"settleDelayMillis"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			BaseURL:        "http://localhost:8080",
			TimeoutSeconds: 30,
		},
		Capture: CaptureConfig{
			Source: "mekane-share",
		},
	}
}

// Load reads the YAML file at path. A missing file yields the defaults; an
// unreadable or malformed file is an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Server.BaseURL = types.NormalizeBaseURL(c.Server.BaseURL)
	if c.Server.TimeoutSeconds <= 0 {
		c.Server.TimeoutSeconds = Default().Server.TimeoutSeconds
	}
	if c.Capture.Source == "" {
		c.Capture.Source = Default().Capture.Source
	}
}

func (c Config) validate() error {
	if c.Server.BaseURL == "" {
		return errors.New("server.baseUrl must not be empty")
	}
	if r := c.Capture.RetentionDays; r != 0 && (r < types.MinRetentionDays || r > types.MaxRetentionDays) {
		return fmt.Errorf("capture.retentionDays must be between %d and %d", types.MinRetentionDays, types.MaxRetentionDays)
	}
	if c.Capture.SettleDelayMillis < 0 {
		return errors.New("capture.settleDelayMillis must not be negative")
	}
	return nil
}

// Timeout returns the upload timeout as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.Server.TimeoutSeconds) * time.Second
}

// SettleDelay returns the configured repaint delay, 0 meaning the default.
func (c Config) SettleDelay() time.Duration {
	return time.Duration(c.Capture.SettleDelayMillis) * time.Millisecond
}
