package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the runtime configuration of the server and the db tool.
type Config struct {
	Port            string
	DBDriver        string
	DBPath          string
	DatabaseURL     string
	RedisURL        string
	LogMode         string
	SeedPath        string
	RouteMaxDepth   int
	SequenceLockTTL time.Duration
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// LoadDotEnv loads a .env file into the environment if one exists.
// It reports whether a file was found.
func LoadDotEnv() bool {
	return godotenv.Load() == nil
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	cfg := Config{
		Port:        Get("PORT", "8080"),
		DBDriver:    strings.ToLower(Get("DB_DRIVER", DriverSQLite)),
		DBPath:      Get("DB_PATH", "data/app.db"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		LogMode:     Get("LOG_MODE", "development"),
		SeedPath:    os.Getenv("SEED_PATH"),
	}

	var err error
	if cfg.RouteMaxDepth, err = GetInt("ROUTE_MAX_DEPTH", 256); err != nil {
		return Config{}, err
	}
	if cfg.SequenceLockTTL, err = GetDuration("SEQUENCE_LOCK_TTL", 10*time.Second); err != nil {
		return Config{}, err
	}

	switch cfg.DBDriver {
	case DriverSQLite:
	case DriverPostgres:
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return Config{}, fmt.Errorf("load config: DATABASE_URL is required when DB_DRIVER=%s", DriverPostgres)
		}
	default:
		return Config{}, fmt.Errorf("load config: unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	if cfg.RouteMaxDepth < 1 {
		return Config{}, fmt.Errorf("load config: ROUTE_MAX_DEPTH must be positive, got %d", cfg.RouteMaxDepth)
	}

	return cfg, nil
}

// Get returns the environment value for key, or fallback when unset or empty.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func GetInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("load config: %s: %w", key, err)
	}
	return n, nil
}

func GetDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("load config: %s: %w", key, err)
	}
	return d, nil
}
