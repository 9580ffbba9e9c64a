// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Download DownloadConfig `mapstructure:"download"`
	DB       DBConfig       `mapstructure:"db"`
	Mail     MailConfig     `mapstructure:"mail"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// CrawlerConfig governs session and worker pool behavior.
type CrawlerConfig struct {
	Concurrency    int               `mapstructure:"concurrency"`
	UserAgent      string            `mapstructure:"user_agent"`
	RequestsPerSec float64           `mapstructure:"requests_per_sec"`
	Burst          int               `mapstructure:"burst"`
	// Proxies maps site keys to proxy URLs applied at session creation.
	Proxies map[string]string `mapstructure:"proxies"`
}

// HTTPConfig configures the per-request transport budget.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// CacheConfig bounds crawler instance reuse.
type CacheConfig struct {
	TTLSeconds int `mapstructure:"ttl_seconds"`
}

// DownloadConfig controls the image acquisition pipeline.
type DownloadConfig struct {
	Dir          string `mapstructure:"dir"`
	MaxRetries   int    `mapstructure:"max_retries"`
	RetryDelayMs int    `mapstructure:"retry_delay_ms"`
}

// DBConfig controls access to the task store. An empty DSN selects the
// in-memory store.
type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// MailConfig holds SMTP settings for task completion notices.
type MailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("COMICDL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("crawler.concurrency", 4)
	v.SetDefault("crawler.user_agent", "Mozilla/5.0 (X11; Linux x86_64) comicdl/1.0")
	v.SetDefault("crawler.requests_per_sec", 0)
	v.SetDefault("crawler.burst", 1)
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("cache.ttl_seconds", 600)
	v.SetDefault("download.dir", "download")
	v.SetDefault("download.max_retries", 3)
	v.SetDefault("download.retry_delay_ms", 1000)
	v.SetDefault("mail.port", 465)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("cache.ttl_seconds must be > 0")
	}
	if c.Download.Dir == "" {
		return fmt.Errorf("download.dir must be set")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Mail.Enabled && (c.Mail.Host == "" || c.Mail.From == "") {
		return fmt.Errorf("mail.host and mail.from must be set when mail is enabled")
	}
	return nil
}

// HTTPTimeout converts the transport budget into a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// CacheTTL converts the cache window into a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// RetryDelay converts the download retry pause into a duration.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.Download.RetryDelayMs) * time.Millisecond
}
