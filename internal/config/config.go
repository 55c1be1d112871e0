package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Backend   BackendConfig   `mapstructure:"backend"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// BackendConfig points at the scarlet home-automation backend
type BackendConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	Timeout   string `mapstructure:"timeout"`
	UserAgent string `mapstructure:"user_agent"`
}

// DashboardConfig defines the web dashboard listener
type DashboardConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	BindAddress     string   `mapstructure:"bind_address"`
	Port            int      `mapstructure:"port"`
	MaxViews        int      `mapstructure:"max_views"`
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	RateLimit       int      `mapstructure:"rate_limit"`
	RateLimitWindow string   `mapstructure:"rate_limit_window"`
	ScoreRefresh    string   `mapstructure:"score_refresh"`
	SecureCookie    bool     `mapstructure:"secure_cookie"`
}

// MetricsConfig defines the prometheus listener
type MetricsConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BindAddress string `mapstructure:"bind_address"`
	Port        int    `mapstructure:"port"`
}

// StorageConfig defines where the action journal lives
type StorageConfig struct {
	Type          string      `mapstructure:"type"`
	Redis         RedisConfig `mapstructure:"redis"`
	RetentionDays int         `mapstructure:"retention_days"`
	PruneTime     string      `mapstructure:"prune_time"`
}

// RedisConfig defines the redis connection used by the journal
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	KeyPrefix    string `mapstructure:"key_prefix"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// BackendTimeout returns the per-request backend timeout.
func (c *Config) BackendTimeout() time.Duration {
	return mustDuration(c.Backend.Timeout, 10*time.Second)
}

// RateLimitWindow returns the dashboard rate limiting window.
func (c *Config) RateLimitWindow() time.Duration {
	return mustDuration(c.Dashboard.RateLimitWindow, time.Minute)
}

// ScoreRefresh returns how often the dashboard refreshes the weather score.
// Zero disables the refresh.
func (c *Config) ScoreRefresh() time.Duration {
	return mustDuration(c.Dashboard.ScoreRefresh, 0)
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	}
	v.SetEnvPrefix("SCARLETDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// UnknownKeys reads the config file and returns every key the
// configuration does not define.
func UnknownKeys(configPath string) ([]string, error) {
	file := viper.New()
	file.SetConfigFile(configPath)
	if err := file.ReadInConfig(); err != nil {
		return nil, err
	}

	known := viper.New()
	setDefaults(known)
	valid := make(map[string]bool)
	for _, key := range known.AllKeys() {
		valid[key] = true
	}

	unknown := []string{}
	for _, key := range file.AllKeys() {
		if !valid[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	return unknown, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Backend defaults
	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.timeout", "10s")
	v.SetDefault("backend.user_agent", "scarletdash")

	// Dashboard defaults
	v.SetDefault("dashboard.enabled", true)
	v.SetDefault("dashboard.bind_address", "0.0.0.0")
	v.SetDefault("dashboard.port", 8080)
	v.SetDefault("dashboard.max_views", 256)
	v.SetDefault("dashboard.allowed_origins", []string{})
	v.SetDefault("dashboard.rate_limit", 120)
	v.SetDefault("dashboard.rate_limit_window", "1m")
	v.SetDefault("dashboard.score_refresh", "5m")
	v.SetDefault("dashboard.secure_cookie", false)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.bind_address", "0.0.0.0")
	v.SetDefault("metrics.port", 9090)

	// Storage defaults
	v.SetDefault("storage.type", "memory")
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.pool_size", 10)
	v.SetDefault("storage.redis.min_idle_conns", 2)
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")
	v.SetDefault("storage.redis.key_prefix", "scarletdash:")
	v.SetDefault("storage.retention_days", 30)
	v.SetDefault("storage.prune_time", "03:00")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "scarletdash-tui.log")
}

// validate validates the configuration
func validate(cfg *Config) error {
	u, err := url.Parse(cfg.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid backend base URL: %q", cfg.Backend.BaseURL)
	}
	if _, err := time.ParseDuration(cfg.Backend.Timeout); err != nil {
		return fmt.Errorf("invalid backend timeout %q: %w", cfg.Backend.Timeout, err)
	}

	if cfg.Dashboard.Port <= 0 || cfg.Dashboard.Port > 65535 {
		return fmt.Errorf("invalid dashboard port: %d", cfg.Dashboard.Port)
	}
	if cfg.Dashboard.MaxViews <= 0 {
		return fmt.Errorf("dashboard max_views must be positive: %d", cfg.Dashboard.MaxViews)
	}
	if cfg.Dashboard.RateLimit < 0 {
		return fmt.Errorf("dashboard rate_limit must not be negative: %d", cfg.Dashboard.RateLimit)
	}
	if _, err := time.ParseDuration(cfg.Dashboard.RateLimitWindow); err != nil {
		return fmt.Errorf("invalid dashboard rate_limit_window %q: %w", cfg.Dashboard.RateLimitWindow, err)
	}
	if cfg.Dashboard.ScoreRefresh != "" {
		if _, err := time.ParseDuration(cfg.Dashboard.ScoreRefresh); err != nil {
			return fmt.Errorf("invalid dashboard score_refresh %q: %w", cfg.Dashboard.ScoreRefresh, err)
		}
	}

	if cfg.Metrics.Enabled && (cfg.Metrics.Port <= 0 || cfg.Metrics.Port > 65535) {
		return fmt.Errorf("invalid metrics port: %d", cfg.Metrics.Port)
	}

	switch cfg.Storage.Type {
	case "":
		cfg.Storage.Type = "memory"
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported storage type: %s (must be memory or redis)", cfg.Storage.Type)
	}
	if cfg.Storage.RetentionDays < 0 {
		return fmt.Errorf("storage retention_days must not be negative: %d", cfg.Storage.RetentionDays)
	}
	if _, err := time.Parse("15:04", cfg.Storage.PruneTime); err != nil {
		return fmt.Errorf("invalid storage prune_time %q (expected HH:MM)", cfg.Storage.PruneTime)
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid logging format: %s (must be json or text)", cfg.Logging.Format)
	}

	return nil
}

func mustDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
