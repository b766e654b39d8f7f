package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Listing source
	Source SourceConfig `mapstructure:"source"`

	// Page fetching and catalog building
	Crawler CrawlerConfig `mapstructure:"crawler"`

	// HTTP server for the serve command
	Server ServerConfig `mapstructure:"server"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// SourceConfig holds the catalog source location
type SourceConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// CrawlerConfig holds fetch and build configuration
type CrawlerConfig struct {
	UserAgent         string        `mapstructure:"user_agent"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	MaxWorkers        int           `mapstructure:"max_workers"`
	FollowRobotsTxt   bool          `mapstructure:"follow_robots_txt"`
	Strict            bool          `mapstructure:"strict"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // "json" or "console"
	OutputPath string `mapstructure:"output_path"`
}

// Load loads configuration from file, .env and environment.
// An empty configPath searches the default locations.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.mapharvest")
	}

	setDefaults(v)
	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not an error, we'll use defaults and env
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("source.base_url", "https://download.geofabrik.de/")

	v.SetDefault("crawler.user_agent", "mapharvest/1.0 (+https://github.com/amosWeiskopf/mapharvest)")
	v.SetDefault("crawler.timeout", "30s")
	v.SetDefault("crawler.max_retries", 3)
	v.SetDefault("crawler.requests_per_second", 4)
	v.SetDefault("crawler.max_workers", 4)
	v.SetDefault("crawler.follow_robots_txt", true)
	v.SetDefault("crawler.strict", false)

	v.SetDefault("server.addr", "localhost:8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_path", "stderr")
}

// bindEnvVars binds MAPHARVEST_* environment variables, e.g.
// MAPHARVEST_CRAWLER_MAX_WORKERS
func bindEnvVars(v *viper.Viper) {
	v.SetEnvPrefix("MAPHARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Validate validates the configuration
func (c *Config) Validate() error {
	u, err := url.Parse(c.Source.BaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("source.base_url must be an absolute URL, got %q", c.Source.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("source.base_url must use http or https, got %q", u.Scheme)
	}
	if c.Crawler.Timeout <= 0 {
		return fmt.Errorf("crawler.timeout must be positive")
	}
	if c.Crawler.MaxRetries < 0 {
		return fmt.Errorf("crawler.max_retries must not be negative")
	}
	if c.Crawler.RequestsPerSecond <= 0 {
		return fmt.Errorf("crawler.requests_per_second must be positive")
	}
	if c.Crawler.MaxWorkers <= 0 {
		return fmt.Errorf("crawler.max_workers must be positive")
	}
	return nil
}
