package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REPAIR_INTERVAL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8787", cfg.Port)
	assert.Equal(t, 6*time.Hour, cfg.RepairInterval)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoadSQLiteRequiresURL(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "mongo")

	_, err := Load()
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5433", User: "u", Name: "views", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u dbname=views sslmode=disable", d.DSN())

	d.Password = "secret"
	assert.Contains(t, d.DSN(), "password=secret")

	d.URL = "postgres://override"
	assert.Equal(t, "postgres://override", d.DSN())
}

func TestLoadRequiredServices(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("REQUIRED_SERVICES", "database,redis")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"database", "redis"}, cfg.RequiredServices)
}
