// Package config loads playrec settings from a YAML file, the environment
// and built-in defaults, in increasing order of precedence: defaults, file,
// environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/ormasoftchile/playrec/pkg/execution"
)

// Defaults.
const (
	DefaultBaseURL  = "http://127.0.0.1:8000"
	DefaultTimeout  = 30 * time.Second
	DefaultLogLevel = "info"
)

// Environment variables that override the file.
const (
	EnvBaseURL  = "PLAYREC_BASE_URL"
	EnvLogLevel = "PLAYREC_LOG_LEVEL"
)

// File is the on-disk form. Durations are Go duration strings.
type File struct {
	BaseURL       string `yaml:"base_url,omitempty"       json:"base_url,omitempty"       jsonschema:"description=Backend root URL,pattern=^https?://"`
	Timeout       string `yaml:"timeout,omitempty"        json:"timeout,omitempty"        jsonschema:"description=Per-request timeout,pattern=^([0-9]+(\\.[0-9]+)?(ns|us|ms|s|m|h))+$"`
	ResetDelay    string `yaml:"reset_delay,omitempty"    json:"reset_delay,omitempty"    jsonschema:"description=How long an execute control shows its outcome,pattern=^([0-9]+(\\.[0-9]+)?(ns|us|ms|s|m|h))+$"`
	FavorableWhen string `yaml:"favorable_when,omitempty" json:"favorable_when,omitempty" jsonschema:"description=expr-lang boolean over total/success/failed/status/message; must reference failed"`
	LogLevel      string `yaml:"log_level,omitempty"      json:"log_level,omitempty"      jsonschema:"enum=debug,enum=info,enum=warn,enum=error,enum=off"`
	LogFile       string `yaml:"log_file,omitempty"       json:"log_file,omitempty"       jsonschema:"description=Write logs here instead of stderr"`
}

// Config is the resolved configuration.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	ResetDelay time.Duration
	Favorable  *execution.Predicate
	LogLevel   string
	LogFile    string
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := resolve(File{})
	if err != nil {
		panic(err) // defaults are constant
	}
	return cfg
}

// Load reads path (skipped when empty), applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	var f File
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		f, err = Parse(data)
		if err != nil {
			return nil, err
		}
	}
	applyEnv(&f)
	return resolve(f)
}

// Parse strictly decodes and schema-validates a config document.
func Parse(data []byte) (File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("decode config: %w", err)
	}
	if errs := Validate(f); len(errs) > 0 {
		return File{}, errs
	}
	return f, nil
}

func applyEnv(f *File) {
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		f.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		f.LogLevel = v
	}
}

func resolve(f File) (*Config, error) {
	cfg := &Config{
		BaseURL:    strings.TrimRight(f.BaseURL, "/"),
		Timeout:    DefaultTimeout,
		ResetDelay: execution.DefaultResetDelay,
		LogLevel:   strings.ToLower(f.LogLevel),
		LogFile:    f.LogFile,
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.LogLevel != "off" {
		if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
			return nil, fmt.Errorf("log_level: %w", err)
		}
	}

	var err error
	if cfg.Timeout, err = duration("timeout", f.Timeout, DefaultTimeout); err != nil {
		return nil, err
	}
	if cfg.ResetDelay, err = duration("reset_delay", f.ResetDelay, execution.DefaultResetDelay); err != nil {
		return nil, err
	}
	if cfg.Favorable, err = execution.CompilePredicate(f.FavorableWhen); err != nil {
		return nil, fmt.Errorf("favorable_when: %w", err)
	}
	return cfg, nil
}

func duration(field, s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", field, s)
	}
	return d, nil
}
