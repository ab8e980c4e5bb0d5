package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "coconut-erp", cfg.ServiceName)
	assert.Equal(t, int32(10), cfg.DBMaxConns)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://erp@localhost/erp")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_MAX_CONNS", "25")
	t.Setenv("JWT_SECRET", "s3cr3t")

	cfg, err := load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, "postgres://erp@localhost/erp", cfg.DatabaseURL)
	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, int32(25), cfg.DBMaxConns)
	assert.Equal(t, "s3cr3t", cfg.JWTSecret)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "erp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("STORE_DRIVER: memory\nLOG_LEVEL: debug\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("STORE_DRIVER", "")

	cfg, err := load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("postgres without url", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "postgres")
		t.Setenv("DATABASE_URL", "")
		_, err := load(viper.New())
		assert.ErrorContains(t, err, "DATABASE_URL")
	})
	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "mongo")
		_, err := load(viper.New())
		assert.ErrorContains(t, err, "unknown STORE_DRIVER")
	})
}
