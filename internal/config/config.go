// Package config loads process settings from flags, environment, and an
// optional config file via viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Settings holds all runtime configuration. Values are resolved in the
// usual viper order: flags over environment (TREFLE_*) over config file
// over defaults.
type Settings struct {
	// Token authenticates every API request.
	Token string `mapstructure:"token"`

	// BaseURL of the plant API.
	BaseURL string `mapstructure:"base_url"`

	// OutputDir receives written files.
	OutputDir string `mapstructure:"output_dir"`

	// Format of written files: json, json.gz, csv, txt, auto.
	Format string `mapstructure:"format"`

	// LogLevel: debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`

	// Pretty enables human-readable console logs.
	Pretty bool `mapstructure:"pretty"`

	// Enrich turns on the detail-fetch-and-flatten sub-flow.
	Enrich bool `mapstructure:"enrich"`

	// Pages caps the pagination walk; 0 walks until the API stops.
	Pages int `mapstructure:"pages"`

	// StartPage is the first page fetched.
	StartPage int `mapstructure:"start_page"`

	// DryRun skips all network and file effects.
	DryRun bool `mapstructure:"dry_run"`

	// RedisAddr enables the detail-record cache when non-empty.
	RedisAddr string `mapstructure:"redis_addr"`

	// CacheTTL bounds the life of cached detail records.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`

	// RateMinSeconds / RateMaxSeconds bound the random delay between
	// requests. Defaults keep a sequential loop under the provider's
	// 120-requests/minute limit.
	RateMinSeconds int `mapstructure:"rate_min_seconds"`
	RateMaxSeconds int `mapstructure:"rate_max_seconds"`

	// PagesPerBatch overrides the batch size (0: 5 enriched, 10 plain).
	PagesPerBatch int `mapstructure:"pages_per_batch"`
}

// SetDefaults installs defaults on a viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("base_url", "https://trefle.io/api/v1")
	v.SetDefault("output_dir", "data")
	v.SetDefault("format", "json")
	v.SetDefault("log_level", "info")
	v.SetDefault("cache_ttl", 24*time.Hour)
	v.SetDefault("rate_min_seconds", 2)
	v.SetDefault("rate_max_seconds", 5)
	v.SetDefault("start_page", 1)
}

// Load builds Settings from a prepared viper instance, reading an optional
// trefle-fetch.yaml from the working directory or ~/.config/trefle-fetch.
func Load(v *viper.Viper) (*Settings, error) {
	SetDefaults(v)

	v.SetEnvPrefix("TREFLE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("trefle-fetch")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/trefle-fetch")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	return &s, nil
}
