package config

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	LogLevel         string
	SubAnalysisDepth int
	CommentsBelow    bool   // resource remark placement in imported sheets
	RoundOverride    string // fixed rounding step for imported analyses, e.g. "0.5"
	ExcludedLibs     []string
}

// Load loads config from env and an optional estimator.yaml in the
// working directory.
func Load() (*Config, error) {
	viper.SetConfigName("estimator")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig()

	viper.SetEnvPrefix("ESTIMATOR")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	level := viper.GetString("log_level")
	if level == "" {
		level = "info"
	}
	depth := viper.GetInt("sub_analysis_depth")
	if depth <= 0 {
		depth = 3
	}

	return &Config{
		LogLevel:         level,
		SubAnalysisDepth: depth,
		CommentsBelow:    viper.GetBool("comments_below"),
		RoundOverride:    strings.TrimSpace(viper.GetString("round_override")),
		ExcludedLibs:     viper.GetStringSlice("excluded_libraries"),
	}, nil
}

// RoundStep parses the configured rounding override; nil when unset or
// malformed.
func (c *Config) RoundStep() *decimal.Decimal {
	if c.RoundOverride == "" {
		return nil
	}
	d, err := decimal.NewFromString(c.RoundOverride)
	if err != nil {
		return nil
	}
	return &d
}
