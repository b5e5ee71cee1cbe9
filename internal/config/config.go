package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	SourceRemote = "remote"
	SourceLocal  = "local"
)

// Config holds all configuration for the application.
type Config struct {
	Backend  Backend  `mapstructure:"backend"`
	Journal  Journal  `mapstructure:"journal"`
	Mirror   Mirror   `mapstructure:"mirror"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
}

// Backend holds the configuration for the hosted data backend.
type Backend struct {
	URL            string        `mapstructure:"url"`
	APIKey         string        `mapstructure:"api_key"`
	Table          string        `mapstructure:"table"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the local database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Journal holds the configuration for the journal service.
type Journal struct {
	// Source is where trades are read from and written to: "remote" for the
	// hosted backend, "local" for the SQLite database.
	Source       string        `mapstructure:"source"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	PageSize     int           `mapstructure:"page_size"`
	Timezone     string        `mapstructure:"timezone"`
	CalendarMode string        `mapstructure:"calendar_mode"`
}

// Mirror holds the configuration for copying remote trades into the local
// database.
type Mirror struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables. A .env
// file in the working directory, when present, is loaded into the
// environment first.
func LoadConfig(path string) (config Config, err error) {
	if err = godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return config, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("failed to decode config: %w", err)
	}
	err = config.Validate()
	return
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("database.dsn", "journal.db")
	v.SetDefault("backend.url", "")
	v.SetDefault("backend.api_key", "")
	v.SetDefault("backend.table", "trades")
	v.SetDefault("backend.timeout", 10*time.Second)
	v.SetDefault("backend.rate_limit", 10)      // requests per second
	v.SetDefault("backend.rate_limit_burst", 5) // burst size
	v.SetDefault("journal.source", SourceRemote)
	v.SetDefault("journal.cache_ttl", 30*time.Second)
	v.SetDefault("journal.page_size", 10)
	v.SetDefault("journal.timezone", "Local")
	v.SetDefault("journal.calendar_mode", "last")
	v.SetDefault("mirror.enabled", false)
	v.SetDefault("mirror.interval", 5*time.Minute)
}

// Validate checks values that have a fixed set of options.
func (c Config) Validate() error {
	switch c.Journal.Source {
	case SourceRemote:
		if c.Backend.URL == "" {
			return errors.New("backend.url is required when journal.source is remote")
		}
	case SourceLocal:
	default:
		return fmt.Errorf("invalid journal.source %q: must be %q or %q", c.Journal.Source, SourceRemote, SourceLocal)
	}
	switch strings.ToLower(c.Journal.CalendarMode) {
	case "", "last", "sum":
	default:
		return fmt.Errorf("invalid journal.calendar_mode %q: must be \"last\" or \"sum\"", c.Journal.CalendarMode)
	}
	if c.Mirror.Enabled {
		if c.Backend.URL == "" {
			return errors.New("backend.url is required when mirror is enabled")
		}
		if c.Mirror.Interval <= 0 {
			return fmt.Errorf("mirror.interval must be positive, got %s", c.Mirror.Interval)
		}
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves journal.timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Journal.Timezone == "" || c.Journal.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Journal.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid journal.timezone %q: %w", c.Journal.Timezone, err)
	}
	return loc, nil
}
