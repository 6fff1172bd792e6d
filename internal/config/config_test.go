package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/livedoc-dev/livedoc/internal/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Server.Host != DefaultHost {
		t.Errorf("Host = %q, want %q", cfg.Server.Host, DefaultHost)
	}
	if cfg.Watch.IntervalMs != DefaultIntervalMs {
		t.Errorf("IntervalMs = %d, want %d", cfg.Watch.IntervalMs, DefaultIntervalMs)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	data := `{
	"name": "my-doc",
	"source": "doc.md",
	"renderer": {
		"command": "pandoc",
		"args": ["--standalone"],
		"satisfiedDeps": ["katex"],
		"options": {"toc": "true"}
	},
	"server": {"port": 9000},
	"watch": {"intervalMs": 250}
}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Name != "my-doc" {
		t.Errorf("Name = %q", cfg.Name)
	}
	if cfg.Source != "doc.md" {
		t.Errorf("Source = %q", cfg.Source)
	}
	if cfg.Renderer.Command != "pandoc" {
		t.Errorf("Renderer.Command = %q", cfg.Renderer.Command)
	}
	if len(cfg.Renderer.Args) != 1 || cfg.Renderer.Args[0] != "--standalone" {
		t.Errorf("Renderer.Args = %v", cfg.Renderer.Args)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Server.Port)
	}
	// Unset fields still get defaults.
	if cfg.Server.Host != DefaultHost {
		t.Errorf("Host = %q, want default %q", cfg.Server.Host, DefaultHost)
	}
	if cfg.Watch.IntervalMs != 250 {
		t.Errorf("IntervalMs = %d, want 250", cfg.Watch.IntervalMs)
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q, want %q", cfg.Path(), path)
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.IsCode(err, errors.CodeConfigInvalid) {
		t.Errorf("error = %v, want code %s", err, errors.CodeConfigInvalid)
	}
}

func TestLoad_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if !errors.IsCode(err, errors.CodeConfigInvalid) {
		t.Errorf("error = %v, want code %s", err, errors.CodeConfigInvalid)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, true},
		{"port negative", func(c *Config) { c.Server.Port = -1 }, true},
		{"negative interval", func(c *Config) { c.Watch.IntervalMs = -5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.IsCode(err, errors.CodeConfigInvalid) {
				t.Errorf("error = %v, want code %s", err, errors.CodeConfigInvalid)
			}
		})
	}
}

func TestAddressAndURL(t *testing.T) {
	cfg := Default()
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080

	if got := cfg.Address(); got != "0.0.0.0:8080" {
		t.Errorf("Address() = %q", got)
	}
	if got := cfg.URL(); got != "http://0.0.0.0:8080" {
		t.Errorf("URL() = %q", got)
	}
}

func TestPollInterval(t *testing.T) {
	cfg := Default()
	if got := cfg.PollInterval(); got != 500*time.Millisecond {
		t.Errorf("PollInterval() = %v, want 500ms", got)
	}

	cfg.Watch.Disabled = true
	if got := cfg.PollInterval(); got != 0 {
		t.Errorf("PollInterval() = %v, want 0 when disabled", got)
	}
}
