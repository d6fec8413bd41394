package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration values.
type Config struct {
	HTTPPort           string
	Secret             string
	DBDriver           string
	DatabaseDSN        string
	MongoURI           string
	MongoDatabase      string
	RedisAddr          string
	LowStockThreshold  int
	DefaultExpiryHours int
	FrontendURL        string
	SeedAccounts       string
	LogLevel           string
}

// Load reads configuration from the environment and, when present, from
// configFile. Environment variables win over the file.
func Load(configFile string) (Config, error) {
	v := viper.New()
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("SECRET", "dev_secret")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "file:bloodfinder.db")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "bloodfinder")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("LOW_STOCK_THRESHOLD", 10)
	v.SetDefault("DEFAULT_EXPIRY_HOURS", 24)
	v.SetDefault("FRONTEND_URL", "http://localhost:5173")
	v.SetDefault("SEED_ACCOUNTS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := Config{
		HTTPPort:           v.GetString("HTTP_PORT"),
		Secret:             v.GetString("SECRET"),
		DBDriver:           strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseDSN:        v.GetString("DATABASE_DSN"),
		MongoURI:           v.GetString("MONGO_URI"),
		MongoDatabase:      v.GetString("MONGO_DATABASE"),
		RedisAddr:          v.GetString("REDIS_ADDR"),
		LowStockThreshold:  v.GetInt("LOW_STOCK_THRESHOLD"),
		DefaultExpiryHours: v.GetInt("DEFAULT_EXPIRY_HOURS"),
		FrontendURL:        v.GetString("FRONTEND_URL"),
		SeedAccounts:       v.GetString("SEED_ACCOUNTS"),
		LogLevel:           v.GetString("LOG_LEVEL"),
	}
	return cfg, cfg.Validate()
}

// Validate checks values that would otherwise fail later at startup.
func (c Config) Validate() error {
	if _, err := strconv.Atoi(c.HTTPPort); err != nil {
		return fmt.Errorf("invalid HTTP_PORT value %q", c.HTTPPort)
	}
	switch c.DBDriver {
	case "sqlite", "pgx", "mongo":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.Secret == "" {
		return errors.New("SECRET must not be empty")
	}
	if c.LowStockThreshold < 0 {
		return fmt.Errorf("LOW_STOCK_THRESHOLD must not be negative, got %d", c.LowStockThreshold)
	}
	if c.DefaultExpiryHours <= 0 {
		return fmt.Errorf("DEFAULT_EXPIRY_HOURS must be positive, got %d", c.DefaultExpiryHours)
	}
	return nil
}
