/*
Package config loads transcoder configuration from a YAML file and the environment
and wires a body.Transcoder from it.

Values are applied in order: defaults, then the YAML file, then SPANBODY_ prefixed
environment variables:

	SPANBODY_DEFAULT_CHARSET=utf-8
	SPANBODY_LOG_LEVEL=debug
	SPANBODY_JSON_CANONICAL=true
	SPANBODY_JSON_INDENT=2
	SPANBODY_JSON_PREFER_FLOAT=false
	SPANBODY_JSON_SIGNED_INTEGER=true
	SPANBODY_JSON_HTML_CHARS_AS_IS=false
	SPANBODY_METRICS_ENABLED=true
	SPANBODY_METRICS_NAMESPACE=spanbody
*/
package config

import (
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"

	"github.com/illuscio-dev/spanbody-go/body"
	"github.com/illuscio-dev/spanbody-go/charset"
	"github.com/illuscio-dev/spanbody-go/encoding"
	"github.com/illuscio-dev/spanbody-go/metrics"
)

// Prefix of every environment variable read by Load.
const EnvPrefix = "SPANBODY_"

// MetricsConfig controls Prometheus instrumentation.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// Config for a body transcoder.
type Config struct {
	// Charset used when a Content-Type header has no charset parameter. Blank means a
	// missing charset is an error.
	DefaultCharset string `yaml:"default_charset" env:"DEFAULT_CHARSET"`

	// One of debug, info, warn or error.
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	JSON    encoding.Settings `yaml:"json" envPrefix:"JSON_"`
	Metrics MetricsConfig     `yaml:"metrics" envPrefix:"METRICS_"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		DefaultCharset: "utf-8",
		LogLevel:       "info",
		JSON:           encoding.DefaultSettings(),
		Metrics: MetricsConfig{
			Enabled:   false,
			Namespace: "spanbody",
		},
	}
}

// Load reads configuration from the YAML file at path, then applies environment
// overrides. A blank path skips the file.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, xerrors.Errorf("error reading config file: %w", err)
		}
		if err := yaml.UnmarshalStrict(data, config); err != nil {
			return nil, xerrors.Errorf("error parsing config file: %w", err)
		}
	}

	if err := env.ParseWithOptions(config, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, xerrors.Errorf("error parsing environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that the default charset and log level can be resolved.
func (config *Config) Validate() error {
	if config.DefaultCharset != "" {
		if _, err := charset.Lookup(config.DefaultCharset); err != nil {
			return xerrors.Errorf("invalid default_charset: %w", err)
		}
	}
	if _, err := config.level(); err != nil {
		return err
	}
	return nil
}

func (config *Config) level() (zapcore.Level, error) {
	level := zapcore.InfoLevel
	if config.LogLevel == "" {
		return level, nil
	}
	if err := level.UnmarshalText([]byte(config.LogLevel)); err != nil {
		return level, xerrors.Errorf("invalid log_level '%s': %w", config.LogLevel, err)
	}
	return level, nil
}

// Logger builds a production zap logger at the configured level. Debug level uses the
// development encoder.
func (config *Config) Logger() (*zap.Logger, error) {
	level, err := config.level()
	if err != nil {
		return nil, err
	}

	zapConfig := zap.NewProductionConfig()
	if level == zapcore.DebugLevel {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, xerrors.Errorf("error building logger: %w", err)
	}
	return logger, nil
}

// NewTranscoder wires a transcoder from the configuration. Metrics, when enabled, are
// registered with registerer.
func (config *Config) NewTranscoder(
	logger *zap.Logger, registerer prometheus.Registerer,
) (*body.Transcoder, error) {
	settings := config.JSON
	engine, err := encoding.NewSpanEngine(&settings)
	if err != nil {
		return nil, xerrors.Errorf("error creating json engine: %w", err)
	}

	options := []body.Option{body.WithLogger(logger)}
	if config.Metrics.Enabled {
		collectors := metrics.New(config.Metrics.Namespace, registerer)
		options = append(options, body.WithMetrics(collectors))
	}

	return body.NewTranscoder(engine, options...)
}
