package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, int64(10*1024*1024), cfg.Storage.MaxBytes)
	assert.Contains(t, cfg.Storage.AllowedTypes, "image/png")
	assert.Equal(t, 5*time.Minute, cfg.App.RoleCacheTTL())
	assert.Equal(t, 14*24*time.Hour, cfg.Session.TTL())
	require.NoError(t, cfg.Validate())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("MIGRATIONS", "yes")
	t.Setenv("STORAGE_ALLOWED_TYPES", "image/png, application/pdf,,")
	t.Setenv("STORAGE_PUBLIC_BASE_URL", "https://cdn.example.com/files/")

	cfg := Load()
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.True(t, cfg.App.Migrations)
	assert.Equal(t, []string{"image/png", "application/pdf"}, cfg.Storage.AllowedTypes)
	assert.Equal(t, "https://cdn.example.com/files", cfg.Storage.PublicBaseURL)
}

func TestDatabaseConfig_URL(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "n", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/n?sslmode=disable", d.URL())
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", d.DSN())
}

func TestValidate(t *testing.T) {
	cfg := Load()
	cfg.Database.Driver = "mysql"
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.App.Dev = false
	assert.Error(t, cfg.Validate(), "default secret must be refused outside dev")

	cfg = Load()
	cfg.Storage.Backend = "ftp"
	assert.Error(t, cfg.Validate())
}
