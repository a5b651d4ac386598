// Package config parses the snapdeck YAML configuration file and applies
// defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level snapdeck configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Browser BrowserConfig `yaml:"browser"`
	Capture CaptureConfig `yaml:"capture"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// StoreConfig locates the project store on disk.
type StoreConfig struct {
	Dir string `yaml:"dir"`
}

// BrowserConfig controls the Chrome lifecycle.
type BrowserConfig struct {
	Remote          string        `yaml:"remote"`
	MemoryLimit     int64         `yaml:"memory_limit"`
	RecycleInterval time.Duration `yaml:"recycle_interval"`
	Mode            string        `yaml:"mode"` // headless | headful
	XvfbDisplay     string        `yaml:"xvfb_display"`
}

// CaptureConfig tunes the capture orchestrator.
type CaptureConfig struct {
	RuleSetID string `yaml:"rule_set_id"`
	RuleFile  string `yaml:"rule_file"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

// LoadFile reads a YAML configuration file. A missing path yields the
// defaults.
func LoadFile(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8090"
	}
	if c.Store.Dir == "" {
		c.Store.Dir = "data"
	}
	if c.Browser.MemoryLimit <= 0 {
		c.Browser.MemoryLimit = 1 << 30
	}
	if c.Browser.RecycleInterval <= 0 {
		c.Browser.RecycleInterval = 4 * time.Hour
	}
	if c.Browser.Mode == "" {
		c.Browser.Mode = "headless"
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) validate() error {
	switch c.Browser.Mode {
	case "headless", "headful":
	default:
		return fmt.Errorf("config: browser.mode must be headless or headful, got %q", c.Browser.Mode)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	return nil
}
