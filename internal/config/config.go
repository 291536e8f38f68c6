package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/newthinker/signaldeck/internal/core"
	"github.com/spf13/viper"
)

type Config struct {
	API         APIConfig         `mapstructure:"api" yaml:"api"`
	Poll        PollConfig        `mapstructure:"poll" yaml:"poll"`
	Dashboard   DashboardConfig   `mapstructure:"dashboard" yaml:"dashboard"`
	Preferences PreferencesConfig `mapstructure:"preferences" yaml:"preferences"`
	Metrics     MetricsConfig     `mapstructure:"metrics" yaml:"metrics"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
}

type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Limit     int           `mapstructure:"limit" yaml:"limit"`
	Portfolio bool          `mapstructure:"portfolio" yaml:"portfolio"` // fetch portfolio/trade resources
	Stream    StreamConfig  `mapstructure:"stream" yaml:"stream"`
}

// StreamConfig holds the optional websocket update feed settings.
type StreamConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

type PollConfig struct {
	Interval     time.Duration `mapstructure:"interval" yaml:"interval"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" yaml:"fetch_timeout"`
}

type DashboardConfig struct {
	Market          string        `mapstructure:"market" yaml:"market"`
	System          string        `mapstructure:"system" yaml:"system"`
	CopiedIndicator time.Duration `mapstructure:"copied_indicator" yaml:"copied_indicator"`
}

// PreferencesConfig selects where watchlist and theme are persisted.
type PreferencesConfig struct {
	Backend string       `mapstructure:"backend" yaml:"backend"` // "localfs", "s3", "redis", "sqlite" or "memory"
	Path    string       `mapstructure:"path" yaml:"path"`       // For localfs
	S3      S3Config     `mapstructure:"s3" yaml:"s3"`
	Redis   RedisConfig  `mapstructure:"redis" yaml:"redis"`
	SQLite  SQLiteConfig `mapstructure:"sqlite" yaml:"sqlite"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	Region    string `mapstructure:"region" yaml:"region"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"-"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"-"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix"`
}

type SQLiteConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
	Path    string `mapstructure:"path" yaml:"path"`
}

type LogConfig struct {
	File  string `mapstructure:"file" yaml:"file"`
	Debug bool   `mapstructure:"debug" yaml:"debug"`
}

// Load reads configuration from file. An empty path yields defaults with
// environment overrides applied.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	// Support environment variable overrides
	v.SetEnvPrefix("SIGNALDECK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := v.BindEnv("api.base_url", "SIGNALDECK_API_URL", "SIGNALDECK_API_BASE_URL"); err != nil {
		return nil, fmt.Errorf("binding env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.limit", d.API.Limit)
	v.SetDefault("api.portfolio", d.API.Portfolio)
	v.SetDefault("api.stream.enabled", d.API.Stream.Enabled)
	v.SetDefault("api.stream.path", d.API.Stream.Path)
	v.SetDefault("poll.interval", d.Poll.Interval)
	v.SetDefault("poll.fetch_timeout", d.Poll.FetchTimeout)
	v.SetDefault("dashboard.market", d.Dashboard.Market)
	v.SetDefault("dashboard.system", d.Dashboard.System)
	v.SetDefault("dashboard.copied_indicator", d.Dashboard.CopiedIndicator)
	v.SetDefault("preferences.backend", d.Preferences.Backend)
	v.SetDefault("preferences.path", d.Preferences.Path)
	v.SetDefault("preferences.s3.region", d.Preferences.S3.Region)
	v.SetDefault("preferences.s3.prefix", d.Preferences.S3.Prefix)
	v.SetDefault("preferences.redis.addr", d.Preferences.Redis.Addr)
	v.SetDefault("preferences.redis.prefix", d.Preferences.Redis.Prefix)
	v.SetDefault("preferences.sqlite.dsn", d.Preferences.SQLite.DSN)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
	v.SetDefault("metrics.path", d.Metrics.Path)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.debug", d.Log.Debug)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   "http://localhost:8000",
			Timeout:   12 * time.Second,
			Limit:     20,
			Portfolio: true,
			Stream: StreamConfig{
				Path: "/ws",
			},
		},
		Poll: PollConfig{
			Interval:     5 * time.Second,
			FetchTimeout: 12 * time.Second,
		},
		Dashboard: DashboardConfig{
			Market:          core.MarketCrypto,
			System:          core.All,
			CopiedIndicator: 2 * time.Second,
		},
		Preferences: PreferencesConfig{
			Backend: "localfs",
			Path:    defaultPrefsPath(),
			S3: S3Config{
				Region: "us-east-1",
				Prefix: "signaldeck",
			},
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "signaldeck:",
			},
			SQLite: SQLiteConfig{
				DSN: "signaldeck.db",
			},
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
			Path:    "/metrics",
		},
		Log: LogConfig{
			File: "signaldeck.log",
		},
	}
}

func defaultPrefsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".signaldeck"
	}
	return dir + string(os.PathSeparator) + "signaldeck"
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// API validation
	if c.API.BaseURL == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("api.base_url is required"))
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("api.base_url must be an absolute http(s) URL, got %q", c.API.BaseURL))
	}
	if c.API.Limit < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("api.limit must be positive, got %d", c.API.Limit))
	}
	if c.API.Timeout <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("api.timeout must be positive, got %s", c.API.Timeout))
	}

	// Poll validation
	if c.Poll.Interval <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("poll.interval must be positive, got %s", c.Poll.Interval))
	}
	if c.Poll.FetchTimeout <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("poll.fetch_timeout must be positive, got %s", c.Poll.FetchTimeout))
	}

	// Dashboard validation
	if !contains(core.Markets, c.Dashboard.Market) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("dashboard.market must be one of %v, got %q", core.Markets, c.Dashboard.Market))
	}
	if !contains(core.Systems, c.Dashboard.System) {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("dashboard.system must be one of %v, got %q", core.Systems, c.Dashboard.System))
	}

	// Preferences backend - check the selected backend has what it needs
	switch c.Preferences.Backend {
	case "localfs":
		if c.Preferences.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("preferences.path required when backend is localfs"))
		}
	case "s3":
		if c.Preferences.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("preferences.s3.bucket required when backend is s3"))
		}
	case "redis":
		if c.Preferences.Redis.Addr == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("preferences.redis.addr required when backend is redis"))
		}
	case "sqlite":
		if c.Preferences.SQLite.DSN == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("preferences.sqlite.dsn required when backend is sqlite"))
		}
	case "memory":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown preferences backend: %q", c.Preferences.Backend))
	}

	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
