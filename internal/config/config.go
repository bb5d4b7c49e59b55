package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env              string        `mapstructure:"ENV"`
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
	DBPoolInitial    int           `mapstructure:"DB_POOL_INITIAL"`
	DBPoolMax        int           `mapstructure:"DB_POOL_MAX"`
	DBAcquireTimeout time.Duration `mapstructure:"DB_ACQUIRE_TIMEOUT"`
	MongoURI         string        `mapstructure:"MONGO_URI"`
	MongoDatabase    string        `mapstructure:"MONGO_DATABASE"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_POOL_INITIAL", 5)
	v.SetDefault("DB_POOL_MAX", 10)
	v.SetDefault("DB_ACQUIRE_TIMEOUT", "30s")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "hospital_medical_records")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_POOL_INITIAL")
	v.BindEnv("DB_POOL_MAX")
	v.BindEnv("DB_ACQUIRE_TIMEOUT")
	v.BindEnv("MONGO_URI")
	v.BindEnv("MONGO_DATABASE")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the pool settings make sense before any connection is
// dialed. The initial size may not exceed the maximum and the acquire timeout
// must be positive, since Acquire blocks on it.
func (c *Config) Validate() error {
	if c.DBPoolMax < 1 {
		return fmt.Errorf("DB_POOL_MAX must be at least 1, got %d", c.DBPoolMax)
	}
	if c.DBPoolInitial < 0 || c.DBPoolInitial > c.DBPoolMax {
		return fmt.Errorf("DB_POOL_INITIAL must be between 0 and DB_POOL_MAX (%d), got %d", c.DBPoolMax, c.DBPoolInitial)
	}
	if c.DBAcquireTimeout <= 0 {
		return fmt.Errorf("DB_ACQUIRE_TIMEOUT must be positive, got %s", c.DBAcquireTimeout)
	}
	return nil
}
