package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/livedoc-dev/livedoc/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "livedoc.json"

	// DefaultPort is the default preview server port.
	DefaultPort = 4848

	// DefaultHost is the default preview server host.
	DefaultHost = "localhost"

	// DefaultIntervalMs is the default source poll interval in
	// milliseconds.
	DefaultIntervalMs = 500
)

// Config represents the complete livedoc.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Source is the document to preview.
	Source string `json:"source,omitempty"`

	// Renderer configures the external document compiler.
	Renderer RendererConfig `json:"renderer,omitempty"`

	// Server contains preview server settings.
	Server ServerConfig `json:"server,omitempty"`

	// Watch contains file watching settings.
	Watch WatchConfig `json:"watch,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// RendererConfig configures the external compiler invocation.
type RendererConfig struct {
	// Command is the compiler binary (e.g., "pandoc").
	Command string `json:"command,omitempty"`

	// Args are fixed arguments prepended to every invocation.
	Args []string `json:"args,omitempty"`

	// SatisfiedDeps are dependency identifiers the preview server
	// already serves, passed through to suppress duplicate assets.
	SatisfiedDeps []string `json:"satisfiedDeps,omitempty"`

	// Options is a pass-through bag of user render options.
	Options map[string]string `json:"options,omitempty"`
}

// ServerConfig contains preview server settings.
type ServerConfig struct {
	// Port is the port to listen on.
	Port int `json:"port,omitempty"`

	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// OpenBrowser opens the browser automatically on start.
	OpenBrowser bool `json:"openBrowser,omitempty"`
}

// WatchConfig contains file watching settings.
type WatchConfig struct {
	// IntervalMs is the poll interval in milliseconds.
	IntervalMs int `json:"intervalMs,omitempty"`

	// Disabled turns auto-reload off: the document renders once per
	// session and never again.
	Disabled bool `json:"disabled,omitempty"`
}

// Default returns a config with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.CodeConfigInvalid).Wrap(err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New(errors.CodeConfigInvalid).
			WithDetail(fmt.Sprintf("%s is not valid JSON", path)).
			Wrap(err)
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromWorkingDir loads livedoc.json from the current directory, or
// returns defaults when no config file exists.
func LoadFromWorkingDir() (*Config, error) {
	if _, err := os.Stat(ConfigFileName); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(ConfigFileName)
}

// applyDefaults fills in defaults for any unset fields.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Watch.IntervalMs == 0 {
		c.Watch.IntervalMs = DefaultIntervalMs
	}
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.New(errors.CodeConfigInvalid).
			WithDetail(fmt.Sprintf("port %d out of range", c.Server.Port))
	}
	if c.Watch.IntervalMs < 0 {
		return errors.New(errors.CodeConfigInvalid).
			WithDetail(fmt.Sprintf("poll interval %dms is negative", c.Watch.IntervalMs))
	}
	return nil
}

// Address returns the listen address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// URL returns the browser-facing URL.
func (c *Config) URL() string {
	return fmt.Sprintf("http://%s", c.Address())
}

// PollInterval returns the watch interval as a duration; zero when
// auto-reload is disabled.
func (c *Config) PollInterval() time.Duration {
	if c.Watch.Disabled {
		return 0
	}
	return time.Duration(c.Watch.IntervalMs) * time.Millisecond
}

// Path returns where the config was loaded from, or "" for defaults.
func (c *Config) Path() string {
	return c.configPath
}
