package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig
	Ingest   IngestConfig
	Server   ServerConfig
	Log      LogConfig
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// IngestConfig describes the source workbook layout.
type IngestConfig struct {
	// Columns are the source positions of type, gwan, hang, mok, semok,
	// summary, amount, account and reg_date.
	Columns    []int
	Sheet      string
	HeaderRows int `mapstructure:"header_rows"`
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Addr string
}

// LogConfig selects level and output format ("console" or "json").
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from .env, file and env. Env var overrides use
// prefix JANGBU_.
func Load() (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "jangbu", "jangbu.db"))
	v.SetDefault("ingest.columns", []int{0, 1, 2, 3, 4, 6, 7, 8, 9})
	v.SetDefault("ingest.sheet", "")
	v.SetDefault("ingest.header_rows", 1)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetConfigType("toml")
	if p := os.Getenv("JANGBU_CONFIG"); p != "" {
		v.SetConfigFile(p)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "jangbu"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("JANGBU")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings the ingester or logger cannot use.
func (c Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("config: database.path is empty")
	}
	if len(c.Ingest.Columns) != 9 {
		return fmt.Errorf("config: ingest.columns needs 9 positions, got %d", len(c.Ingest.Columns))
	}
	if c.Ingest.HeaderRows < 0 {
		return fmt.Errorf("config: ingest.header_rows must not be negative")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("config: log.format %q: want console or json", c.Log.Format)
	}
	return nil
}

// Save writes cfg to the config file, creating its directory if needed.
func Save(cfg Config) error {
	path := os.Getenv("JANGBU_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "jangbu", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("ingest.columns", cfg.Ingest.Columns)
	v.Set("ingest.sheet", cfg.Ingest.Sheet)
	v.Set("ingest.header_rows", cfg.Ingest.HeaderRows)
	v.Set("server.addr", cfg.Server.Addr)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
