package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rendis/bpmnflow/internal/diagram"
	"github.com/rendis/bpmnflow/internal/logging"
)

// Config holds the CLI configuration.
// Priority: flags > env vars > settings.yaml > defaults.
type Config struct {
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	DiagramFormat string `yaml:"diagram_format"`
	OutputFormat  string `yaml:"output_format"`
}

func defaultConfig() Config {
	return Config{
		LogLevel:      "info",
		LogFormat:     "text",
		DiagramFormat: string(diagram.FormatMermaid),
		OutputFormat:  "json",
	}
}

func bpmnflowDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bpmnflow"
	}
	return filepath.Join(home, ".bpmnflow")
}

func settingsPath() string {
	return filepath.Join(bpmnflowDir(), "settings.yaml")
}

// loadConfig layers the settings file and env vars over the defaults. An
// explicit path must exist; the default settings file is optional.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	explicit := path != ""
	if !explicit {
		path = settingsPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case explicit || !errors.Is(err, fs.ErrNotExist):
		return cfg, fmt.Errorf("read settings: %w", err)
	}

	if v := os.Getenv("BPMNFLOW_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("BPMNFLOW_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("BPMNFLOW_DIAGRAM_FORMAT"); v != "" {
		cfg.DiagramFormat = v
	}
	if v := os.Getenv("BPMNFLOW_OUTPUT_FORMAT"); v != "" {
		cfg.OutputFormat = v
	}
	return cfg, nil
}

// validate normalizes and checks every field.
func (c *Config) validate() error {
	c.LogLevel = strings.ToLower(c.LogLevel)
	c.LogFormat = strings.ToLower(c.LogFormat)
	c.OutputFormat = strings.ToLower(c.OutputFormat)

	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log format %q (want text or json)", c.LogFormat)
	}
	f, err := diagram.ParseFormat(c.DiagramFormat)
	if err != nil {
		return err
	}
	c.DiagramFormat = string(f)
	if c.OutputFormat != "json" && c.OutputFormat != "yaml" {
		return fmt.Errorf("invalid output format %q (want json or yaml)", c.OutputFormat)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// newLogger builds the process logger. Records carry the conversion
// correlation attributes found in their context.
func newLogger(cfg Config, w io.Writer) *slog.Logger {
	level, _ := parseLevel(cfg.LogLevel)
	opts := &slog.HandlerOptions{Level: level}

	var inner slog.Handler
	if cfg.LogFormat == "json" {
		inner = slog.NewJSONHandler(w, opts)
	} else {
		inner = slog.NewTextHandler(w, opts)
	}
	return slog.New(logging.NewCorrelationHandler(inner))
}
