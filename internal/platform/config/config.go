package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration. Values come from an optional YAML file
// (WAYFARER_CONFIG) with environment variables taking precedence, so local
// compose setups can check in a file while deployments stay env-driven.
type Config struct {
	Port           string        `yaml:"port"`
	StorageBackend string        `yaml:"storageBackend"`
	DatabaseURL    string        `yaml:"databaseUrl"`
	LedgerTTL      time.Duration `yaml:"ledgerTtl"`
	ReaperInterval time.Duration `yaml:"reaperInterval"`
	AuthMode       string        `yaml:"authMode"`
	DevUser        string        `yaml:"devUser"`
}

// Defaults per the mutation-layer contract: 24h ledger TTL.
func defaults() Config {
	return Config{
		Port:           "8080",
		StorageBackend: "memory",
		LedgerTTL:      24 * time.Hour,
		ReaperInterval: time.Hour,
		AuthMode:       "dev",
		DevUser:        "dev-local",
	}
}

// Load builds the configuration from the optional file plus environment.
func Load() (Config, error) {
	cfg := defaults()
	if path := os.Getenv("WAYFARER_CONFIG"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Port, "PORT")
	setString(&cfg.StorageBackend, "STORAGE_BACKEND")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	if err := setDuration(&cfg.LedgerTTL, "LEDGER_TTL"); err != nil {
		return err
	}
	if err := setDuration(&cfg.ReaperInterval, "REAPER_INTERVAL"); err != nil {
		return err
	}
	setString(&cfg.AuthMode, "AUTH_MODE")
	setString(&cfg.DevUser, "DEV_USER")
	return nil
}

func (c Config) validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid port %q", c.Port)
	}
	switch c.StorageBackend {
	case "memory", "postgres":
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
	if c.StorageBackend == "postgres" && c.DatabaseURL == "" {
		return fmt.Errorf("postgres backend requires DATABASE_URL")
	}
	if c.LedgerTTL <= 0 {
		return fmt.Errorf("ledger TTL must be positive")
	}
	if c.ReaperInterval <= 0 {
		return fmt.Errorf("reaper interval must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = d
	return nil
}
