// Package config provides YAML and environment configuration for treematch.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Sumatoshi-tech/treematch/pkg/matching"
	"github.com/Sumatoshi-tech/treematch/pkg/observability"
)

// Sentinel validation errors.
var (
	ErrInvalidSimilarityThreshold = errors.New("similarity threshold must be within [0, 1]")
	ErrInvalidSizeThreshold       = errors.New("size threshold must be positive")
	ErrInvalidMinHeight           = errors.New("min height must be at least 1")
	ErrUnknownSimilarity          = errors.New("unknown similarity")
	ErrUnknownAligner             = errors.New("unknown aligner")
	ErrInvalidLogLevel            = errors.New("invalid log level")
	ErrInvalidLogFormat           = errors.New("log format must be text or json")
	ErrInvalidSampleRatio         = errors.New("sample ratio must be within [0, 1]")
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config holds all treematch configuration.
type Config struct {
	Matcher   MatcherConfig   `mapstructure:"matcher"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// MatcherConfig holds the matcher tunables.
type MatcherConfig struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	SizeThreshold       int     `mapstructure:"size_threshold"`
	MinHeight           int     `mapstructure:"min_height"`
	DepthTiePolicy      string  `mapstructure:"depth_tie_policy"`
	Similarity          string  `mapstructure:"similarity"`
	Aligner             string  `mapstructure:"aligner"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds OpenTelemetry export configuration.
type TelemetryConfig struct {
	ServiceName  string  `mapstructure:"service_name"`
	Environment  string  `mapstructure:"environment"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

// Validate checks all sections and returns the first problem found.
func (c *Config) Validate() error {
	err := c.Matcher.Validate()
	if err != nil {
		return err
	}

	_, err = c.Logging.SlogLevel()
	if err != nil {
		return err
	}

	switch c.Logging.Format {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Logging.Format)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRatio, c.Telemetry.SampleRatio)
	}

	return nil
}

// Validate checks the matcher tunables.
func (m *MatcherConfig) Validate() error {
	if m.SimilarityThreshold < 0 || m.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSimilarityThreshold, m.SimilarityThreshold)
	}

	if m.SizeThreshold <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSizeThreshold, m.SizeThreshold)
	}

	if m.MinHeight < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidMinHeight, m.MinHeight)
	}

	_, err := m.Options()

	return err
}

// Options converts the matcher configuration to matching options.
func (m *MatcherConfig) Options() ([]matching.Option, error) {
	policy, err := matching.ParseDepthTiePolicy(m.DepthTiePolicy)
	if err != nil {
		return nil, err
	}

	similarity, ok := matching.SimilarityByName(m.Similarity)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSimilarity, m.Similarity)
	}

	aligner, ok := matching.AlignerByName(m.Aligner)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAligner, m.Aligner)
	}

	return []matching.Option{
		matching.WithSimilarityThreshold(m.SimilarityThreshold),
		matching.WithSizeThreshold(m.SizeThreshold),
		matching.WithMinHeight(m.MinHeight),
		matching.WithDepthTiePolicy(policy),
		matching.WithSimilarity(similarity),
		matching.WithAligner(aligner),
	}, nil
}

// MatcherOptions is shorthand for c.Matcher.Options.
func (c *Config) MatcherOptions() ([]matching.Option, error) {
	return c.Matcher.Options()
}

// SlogLevel parses the configured level name.
func (l *LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(strings.ToUpper(l.Level)))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, l.Level)
	}

	return level, nil
}

// Observability builds the telemetry configuration for a command run.
// verbose lowers the log level to debug.
func (c *Config) Observability(version, command string, verbose bool) observability.Config {
	obs := observability.DefaultConfig()

	if c.Telemetry.ServiceName != "" {
		obs.ServiceName = c.Telemetry.ServiceName
	}

	obs.ServiceVersion = version
	obs.Environment = c.Telemetry.Environment
	obs.Command = command
	obs.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	obs.OTLPHeaders = observability.ParseOTLPHeaders(c.Telemetry.OTLPHeaders)
	obs.OTLPInsecure = c.Telemetry.OTLPInsecure
	obs.SampleRatio = c.Telemetry.SampleRatio
	obs.LogJSON = c.Logging.Format == LogFormatJSON

	level, err := c.Logging.SlogLevel()
	if err == nil {
		obs.LogLevel = level
	}

	if verbose {
		obs.LogLevel = slog.LevelDebug
	}

	return obs
}
