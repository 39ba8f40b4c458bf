// Package config handles configuration loading for kabuai.
// It supports YAML config files, a .env file and environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	JQuants   JQuantsConfig   `mapstructure:"jquants"   yaml:"jquants"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"  yaml:"analysis"`
	Scoring   ScoringConfig   `mapstructure:"scoring"   yaml:"scoring"`
	API       APIConfig       `mapstructure:"api"       yaml:"api"`
	Watchlist WatchlistConfig `mapstructure:"watchlist" yaml:"watchlist"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-" yaml:"-"`
}

// JQuantsConfig holds market-data provider access settings.
type JQuantsConfig struct {
	RefreshToken       string  `mapstructure:"refresh_token"        yaml:"refresh_token"`
	BaseURL            string  `mapstructure:"base_url"             yaml:"base_url"              validate:"required,url"`
	RateLimitDelay     float64 `mapstructure:"rate_limit_delay"     yaml:"rate_limit_delay"      validate:"gte=0"` // seconds between calls
	MaxAttempts        int     `mapstructure:"max_attempts"         yaml:"max_attempts"          validate:"gte=1,lte=10"`
	CallTimeout        int     `mapstructure:"call_timeout"         yaml:"call_timeout"          validate:"gt=0"` // seconds
	BackoffBase        float64 `mapstructure:"backoff_base"         yaml:"backoff_base"          validate:"gte=0"` // seconds
	BackoffMax         float64 `mapstructure:"backoff_max"          yaml:"backoff_max"           validate:"gtefield=BackoffBase"`
	InfoCacheTTL       int     `mapstructure:"info_cache_ttl"       yaml:"info_cache_ttl"        validate:"gte=0"` // seconds
	StatementsCacheTTL int     `mapstructure:"statements_cache_ttl" yaml:"statements_cache_ttl"  validate:"gte=0"` // seconds
}

// MinInterval returns the minimum wall-clock gap between outbound calls.
func (c JQuantsConfig) MinInterval() time.Duration {
	return time.Duration(c.RateLimitDelay * float64(time.Second))
}

// Timeout returns the per-call timeout.
func (c JQuantsConfig) Timeout() time.Duration {
	return time.Duration(c.CallTimeout) * time.Second
}

// Backoff returns the base and maximum retry delays.
func (c JQuantsConfig) Backoff() (base, max time.Duration) {
	return time.Duration(c.BackoffBase * float64(time.Second)), time.Duration(c.BackoffMax * float64(time.Second))
}

// AnalysisConfig holds analysis engine settings.
type AnalysisConfig struct {
	AnalysisYears int `mapstructure:"analysis_years" yaml:"analysis_years" validate:"gte=2,lte=10"`
	Concurrency   int `mapstructure:"concurrency"    yaml:"concurrency"    validate:"gte=1"`
	Timeout       int `mapstructure:"timeout"        yaml:"timeout"        validate:"gt=0"` // seconds per analysis request
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"         validate:"gte=1,lte=65535"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// WatchlistConfig holds the periodic re-analysis schedule.
type WatchlistConfig struct {
	Codes    []string `mapstructure:"codes"    yaml:"codes"`
	Schedule string   `mapstructure:"schedule" yaml:"schedule"` // cron spec, e.g. "0 18 * * 1-5"
	Enabled  bool     `mapstructure:"enabled"  yaml:"enabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.kabuai/config.yaml (home directory)
//  3. /etc/kabuai/config.yaml (system)
//
// A .env file in the working directory is loaded first if present.
// Environment variables override config file values.
// Format: KABUAI_<SECTION>_<KEY>, e.g., KABUAI_JQUANTS_RATE_LIMIT_DELAY.
// The provider's own variables (JQUANTS_REFRESH_TOKEN, JQUANTS_API_BASE_URL,
// JQUANTS_RATE_LIMIT_DELAY) take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".kabuai"))
	v.AddConfigPath("/etc/kabuai")

	v.SetEnvPrefix("KABUAI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found — use defaults + env vars
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("KABUAI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return decode(v)
}

// Default returns the built-in configuration without reading files or the environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := Config{Scoring: DefaultScoring()}
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return &cfg
}

func decode(v *viper.Viper) (*Config, error) {
	// Scoring tables are nested lists, so they are seeded on the struct and
	// only replaced where the file provides a value.
	cfg := Config{Scoring: DefaultScoring()}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := overrideFromEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets sensible defaults for all scalar config values.
func setDefaults(v *viper.Viper) {
	// J-Quants defaults
	v.SetDefault("jquants.refresh_token", "")
	v.SetDefault("jquants.base_url", "https://api.jquants.com")
	v.SetDefault("jquants.rate_limit_delay", 1.0)
	v.SetDefault("jquants.max_attempts", 3)
	v.SetDefault("jquants.call_timeout", 30)
	v.SetDefault("jquants.backoff_base", 1.0)
	v.SetDefault("jquants.backoff_max", 16.0)
	v.SetDefault("jquants.info_cache_ttl", 6*60*60) // 6 hours
	v.SetDefault("jquants.statements_cache_ttl", 300)

	// Analysis defaults
	v.SetDefault("analysis.analysis_years", 3)
	v.SetDefault("analysis.concurrency", 4)
	v.SetDefault("analysis.timeout", 180)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Watchlist defaults
	v.SetDefault("watchlist.codes", []string{})
	v.SetDefault("watchlist.schedule", "0 18 * * 1-5") // weekdays after the close
	v.SetDefault("watchlist.enabled", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv reads the provider's conventional environment variables.
func overrideFromEnv(cfg *Config) error {
	if token := os.Getenv("JQUANTS_REFRESH_TOKEN"); token != "" {
		cfg.JQuants.RefreshToken = token
	}
	if baseURL := os.Getenv("JQUANTS_API_BASE_URL"); baseURL != "" {
		cfg.JQuants.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if delay := os.Getenv("JQUANTS_RATE_LIMIT_DELAY"); delay != "" {
		secs, err := strconv.ParseFloat(delay, 64)
		if err != nil {
			return fmt.Errorf("invalid JQUANTS_RATE_LIMIT_DELAY %q: %w", delay, err)
		}
		cfg.JQuants.RateLimitDelay = secs
	}
	return nil
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
