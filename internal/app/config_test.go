package app

import (
	"testing"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestConfig(t *testing.T) (*Config, error) {
	t.Helper()
	return loadConfig(aconfig.Config{SkipFiles: true, SkipFlags: true})
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("CATALOG_STORE_DRIVER", "memory")

	cfg, err := loadTestConfig(t)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, BlobFS, cfg.Blob.Driver)
	assert.Equal(t, "data/images", cfg.Blob.Dir)
	assert.Equal(t, 20, cfg.RateLimit.Max)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, []string{"*"}, cfg.CORS.Origins)
	assert.Equal(t, 3*time.Second, cfg.Graceful.ReadinessDelay)
	assert.Equal(t, 15*time.Second, cfg.Graceful.ShutdownTimeout)
}

func TestLoadConfig_PlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://catalog@db/catalog")
	t.Setenv("PORT", "9000")

	cfg, err := loadTestConfig(t)
	require.NoError(t, err)
	assert.Equal(t, StorePostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://catalog@db/catalog", cfg.Store.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
}

func TestLoadConfig_PrefixedWins(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("CATALOG_STORE_DATABASE_URL", "postgres://explicit/db")
	t.Setenv("CATALOG_ADDR", "127.0.0.1:7000")
	t.Setenv("PORT", "9000")

	cfg, err := loadTestConfig(t)
	require.NoError(t, err)
	assert.Equal(t, "postgres://explicit/db", cfg.Store.DatabaseURL)
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Store: StoreConfig{Driver: StoreSQLite, SQLitePath: "catalog.db"},
			Blob:  BlobConfig{Driver: BlobFS, Dir: "images"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"postgres without url", func(c *Config) { c.Store.Driver = StorePostgres }, "database URL is required"},
		{"sqlite without path", func(c *Config) { c.Store.SQLitePath = "" }, "sqlite path is required"},
		{"unknown store", func(c *Config) { c.Store.Driver = "mongo" }, `unknown store driver "mongo"`},
		{"unknown blob", func(c *Config) { c.Blob.Driver = "s3" }, `unknown blob driver "s3"`},
		{"fs without dir", func(c *Config) { c.Blob.Dir = "" }, "image directory is required"},
		{"redis", func(c *Config) { c.Blob = BlobConfig{Driver: BlobRedis} }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
