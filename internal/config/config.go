// config.go — Daemon configuration loaded through viper.
// A YAML file supplies the listen address, output directory, and the initial
// trace budget/flags; every key has a default so the daemon runs with no file
// at all.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/frametrace/frametrace/internal/trace"
)

// Config is the complete daemon configuration.
type Config struct {
	// Listen is the address the control-plane HTTP server binds.
	Listen string       `mapstructure:"listen" yaml:"listen"`
	Output OutputConfig `mapstructure:"output" yaml:"output"`
	Trace  TraceConfig  `mapstructure:"trace" yaml:"trace"`
}

// OutputConfig controls where persisted trace files land.
type OutputConfig struct {
	// Dir is the directory trace files are written into. Created on startup
	// if missing.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// TraceConfig holds the tracer settings applied at startup.
type TraceConfig struct {
	// BufferSizeBytes is the byte budget applied at the next enable.
	BufferSizeBytes int64 `mapstructure:"buffer_size_bytes" yaml:"buffer_size_bytes"`
	// AlwaysCapture records every latch, not just dirty frames.
	AlwaysCapture bool `mapstructure:"always_capture" yaml:"always_capture"`
	// IncludeHwcText attaches the hardware-composer dump to entries.
	IncludeHwcText bool `mapstructure:"include_hwc_text" yaml:"include_hwc_text"`
	// IncludeCompositionState captures full composition state.
	IncludeCompositionState bool `mapstructure:"include_composition_state" yaml:"include_composition_state"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		Listen: "127.0.0.1:8474",
		Output: OutputConfig{Dir: "traces"},
		Trace: TraceConfig{
			BufferSizeBytes:         trace.DefaultBufferSizeBytes,
			IncludeCompositionState: true,
		},
	}
}

// Load reads the configuration file at path. An empty path looks for
// frametrace.yaml in the working directory; a missing file in either case
// falls back to defaults rather than failing.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("frametrace")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		// Running without a config file is fine; a file that was named
		// explicitly or exists but cannot be parsed is not.
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("listen", d.Listen)
	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("trace.buffer_size_bytes", d.Trace.BufferSizeBytes)
	v.SetDefault("trace.always_capture", d.Trace.AlwaysCapture)
	v.SetDefault("trace.include_hwc_text", d.Trace.IncludeHwcText)
	v.SetDefault("trace.include_composition_state", d.Trace.IncludeCompositionState)
}

// Validate rejects configurations the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir must not be empty")
	}
	if c.Trace.BufferSizeBytes <= 0 {
		return fmt.Errorf("trace.buffer_size_bytes must be positive, got %d", c.Trace.BufferSizeBytes)
	}
	return nil
}

// Flags converts the configured capture settings into tracer flags.
func (c *Config) Flags() trace.Flags {
	return trace.Flags{
		AlwaysCapture:           c.Trace.AlwaysCapture,
		IncludeHwcText:          c.Trace.IncludeHwcText,
		IncludeCompositionState: c.Trace.IncludeCompositionState,
	}
}

// WriteDefault writes a starter configuration file with every key at its
// default value. Refuses to overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}
	d := Default()
	data, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}
