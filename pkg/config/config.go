// Package config loads devenv settings from flags, DEVENV_* environment
// variables and devenv.yaml, in that order of precedence.
package config

import (
	"runtime"
	"strings"

	"github.com/esafeeds/devenv/pkg/telemetry"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read by devenv, e.g.
// DEVENV_VENV_TOOL for venv.tool
const EnvPrefix = "DEVENV"

// FileName is the config file name without extension
const FileName = "devenv"

// Config is the full devenv configuration
type Config struct {
	Venv    VenvConfig       `mapstructure:"venv"`
	Extract ExtractConfig    `mapstructure:"extract"`
	Scan    ScanConfig       `mapstructure:"scan"`
	Tracing telemetry.Config `mapstructure:"tracing"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// Profile names the entry of Profiles merged on top of the base config
	Profile  string                    `mapstructure:"profile"`
	Profiles map[string]map[string]any `mapstructure:"profiles"`
}

// VenvConfig configures the environment bootstrap
type VenvConfig struct {
	Path string `mapstructure:"path"`
	// Tool is uv, python or auto
	Tool   string `mapstructure:"tool"`
	Python string `mapstructure:"python"`
	Prompt string `mapstructure:"prompt"`
	// UVPath and PythonPath skip the PATH lookup when set
	UVPath     string `mapstructure:"uv_path"`
	PythonPath string `mapstructure:"python_path"`
}

// ExtractConfig configures `devenv extract`
type ExtractConfig struct {
	OutputDir   string `mapstructure:"output_dir"`
	File        string `mapstructure:"file"`
	JJPath      string `mapstructure:"jj_path"`
	Revset      string `mapstructure:"revset"`
	Concurrency int    `mapstructure:"concurrency"`
}

// ScanConfig configures `devenv scan`
type ScanConfig struct {
	Format  string   `mapstructure:"format"`
	Exclude []string `mapstructure:"exclude"`
	// Concurrency of 0 means GOMAXPROCS
	Concurrency int `mapstructure:"concurrency"`
}

// SetDefaults registers every key with its default. Keys must be known to
// viper for AutomaticEnv to apply during Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("venv.path", "venv")
	v.SetDefault("venv.tool", "uv")
	v.SetDefault("venv.python", "3.12")
	v.SetDefault("venv.prompt", "")
	v.SetDefault("venv.uv_path", "")
	v.SetDefault("venv.python_path", "")

	v.SetDefault("extract.output_dir", "/tmp/esa-feeds")
	v.SetDefault("extract.file", "feed.json")
	v.SetDefault("extract.jj_path", "jj")
	v.SetDefault("extract.revset", "root()..@")
	v.SetDefault("extract.concurrency", 50)

	v.SetDefault("scan.format", "text")
	v.SetDefault("scan.exclude", []string{})
	v.SetDefault("scan.concurrency", 0)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "fmt")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.sampler", "always")
	v.SetDefault("tracing.ratio", 1.0)

	v.SetDefault("profile", "")
}

// DefaultSearchPaths returns the directories searched for devenv.yaml
func DefaultSearchPaths() []string {
	return []string{".", "$HOME/.devenv"}
}

// Init sets up environment binding and defaults on v and reads devenv.yaml
// from the first search path that has one. A missing file is not an error.
func Init(v *viper.Viper, searchPaths ...string) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errors.Wrap(err, "failed to read config file")
	}
	return nil
}

// Load unmarshals v, merges the selected profile and validates the result
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal configuration")
	}

	if name := cfg.Profile; name != "" && name != "default" {
		profile, ok := cfg.Profiles[name]
		if !ok {
			return nil, errors.Errorf("profile %q not found in configuration", name)
		}
		if err := applyProfile(&cfg, profile); err != nil {
			return nil, errors.Wrapf(err, "failed to apply profile %q", name)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyProfile(cfg *Config, profile map[string]any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ZeroFields:       false,
		ErrorUnused:      true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create profile decoder")
	}
	return decoder.Decode(profile)
}

// Validate checks enumerations and bounds
func (c *Config) Validate() error {
	switch c.Venv.Tool {
	case "uv", "python", "auto":
	default:
		return errors.Errorf("invalid venv.tool %q (supported: uv, python, auto)", c.Venv.Tool)
	}
	if c.Venv.Path == "" {
		return errors.New("venv.path must not be empty")
	}

	if c.Extract.Concurrency < 1 {
		return errors.Errorf("extract.concurrency must be at least 1, got %d", c.Extract.Concurrency)
	}
	if c.Extract.File == "" {
		return errors.New("extract.file must not be empty")
	}

	switch c.Scan.Format {
	case "text", "json", "yaml", "jsonschema":
	default:
		return errors.Errorf("invalid scan.format %q (supported: text, json, yaml, jsonschema)", c.Scan.Format)
	}
	if c.Scan.Concurrency < 0 {
		return errors.Errorf("scan.concurrency must not be negative, got %d", c.Scan.Concurrency)
	}

	switch c.LogFormat {
	case "fmt", "json", "text":
	default:
		return errors.Errorf("invalid log_format %q (supported: fmt, json)", c.LogFormat)
	}
	return nil
}

// ScanWorkers resolves the scan concurrency, 0 meaning one worker per CPU
func (c *Config) ScanWorkers() int {
	if c.Scan.Concurrency > 0 {
		return c.Scan.Concurrency
	}
	return runtime.GOMAXPROCS(0)
}
