// Package config loads process configuration from the environment, an optional .env file
// and an optional config file named by CONFIG_FILE.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	StoreDriver    string `mapstructure:"STORE_DRIVER"`
	ServerPort     string `mapstructure:"SERVER_PORT"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
	OTLPEndpoint   string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName    string `mapstructure:"SERVICE_NAME"`
	DBMaxConns     int32  `mapstructure:"DB_MAX_CONNS"`
}

var keys = []string{
	"DATABASE_URL", "STORE_DRIVER", "SERVER_PORT", "ALLOWED_ORIGINS", "JWT_SECRET",
	"LOG_LEVEL", "OTEL_EXPORTER_OTLP_ENDPOINT", "SERVICE_NAME", "DB_MAX_CONNS",
}

// Load reads .env (if present) and then the environment. Environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetDefault("STORE_DRIVER", DriverPostgres)
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERVICE_NAME", "coconut-erp")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.AutomaticEnv()
	// AutomaticEnv only covers keys viper already knows about when unmarshalling.
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable not set")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want %s or %s)", c.StoreDriver, DriverPostgres, DriverMemory)
	}
	if c.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive, got %d", c.DBMaxConns)
	}
	return nil
}
