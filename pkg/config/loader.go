package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/treematch/pkg/matching"
)

// configName is the config file name without extension.
const configName = ".treematch"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for treematch settings.
const envPrefix = "TREEMATCH"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Default values for keys without a matching package default.
const (
	DefaultDepthTiePolicy = "abort"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = LogFormatText
	DefaultServiceName    = "treematch"
)

// LoadConfig loads configuration from defaults, a YAML file and TREEMATCH_*
// environment variables, in increasing priority. An empty configPath
// searches .treematch.yaml in the working directory and $HOME; a missing file
// is not an error.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

// Default returns the configuration LoadConfig yields with no file and no
// environment overrides.
func Default() *Config {
	return &Config{
		Matcher: MatcherConfig{
			SimilarityThreshold: matching.DefaultSimilarityThreshold,
			SizeThreshold:       matching.DefaultSizeThreshold,
			MinHeight:           matching.DefaultMinHeight,
			DepthTiePolicy:      DefaultDepthTiePolicy,
			Similarity:          matching.SimilarityJaccard,
			Aligner:             matching.AlignerLCS,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Telemetry: TelemetryConfig{
			ServiceName: DefaultServiceName,
		},
	}
}

func applyDefaults(viperCfg *viper.Viper) {
	defaults := Default()

	viperCfg.SetDefault("matcher.similarity_threshold", defaults.Matcher.SimilarityThreshold)
	viperCfg.SetDefault("matcher.size_threshold", defaults.Matcher.SizeThreshold)
	viperCfg.SetDefault("matcher.min_height", defaults.Matcher.MinHeight)
	viperCfg.SetDefault("matcher.depth_tie_policy", defaults.Matcher.DepthTiePolicy)
	viperCfg.SetDefault("matcher.similarity", defaults.Matcher.Similarity)
	viperCfg.SetDefault("matcher.aligner", defaults.Matcher.Aligner)

	viperCfg.SetDefault("logging.level", defaults.Logging.Level)
	viperCfg.SetDefault("logging.format", defaults.Logging.Format)

	viperCfg.SetDefault("telemetry.service_name", defaults.Telemetry.ServiceName)
	viperCfg.SetDefault("telemetry.environment", "")
	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.sample_ratio", 0.0)
}
