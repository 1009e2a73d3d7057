package app

import (
	"io/fs"
	"os"
	"slices"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
)

// Record store drivers.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

// Blob store drivers.
const (
	BlobFS    = "fs"
	BlobRedis = "redis"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (CATALOG_ prefix), flags, or YAML config files.
type Config struct {
	Addr      string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Store     StoreConfig
	Blob      BlobConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// StoreConfig selects and configures the record store.
type StoreConfig struct {
	Driver      string `default:"postgres" usage:"Record store: postgres, sqlite or memory"`
	DatabaseURL string `usage:"PostgreSQL connection URL (CATALOG_STORE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	SQLitePath  string `default:"catalog.db" usage:"SQLite database file" flag:"sqlite-path"`
}

// BlobConfig selects and configures the image store.
type BlobConfig struct {
	Driver    string `default:"fs" usage:"Image store: fs or redis"`
	Dir       string `default:"data/images" usage:"Image directory for the fs driver" flag:"image-dir"`
	RedisAddr string `default:"localhost:6379" usage:"Redis address for the redis driver" flag:"redis-addr"`
	RedisDB   int    `default:"0" usage:"Redis database number"`
	Prefix    string `default:"catalog:image:" usage:"Redis key prefix for images"`
	BaseURL   string `default:"" usage:"Base URL for product image links (e.g. https://cdn.example.com/images/)" flag:"image-base-url"`
}

// RateLimitConfig limits image uploads per client.
type RateLimitConfig struct {
	Max    int           `default:"20" usage:"Uploads allowed per window"`
	Window time.Duration `default:"1m" usage:"Upload rate limit window"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from a .env file, environment variables,
// YAML config files and flags, then applies platform defaults.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}
	return loadConfig(aconfig.Config{
		Files: []string{"config.yaml", "/etc/catalog/config.yaml"},
	})
}

func loadConfig(base aconfig.Config) (*Config, error) {
	var cfg Config
	base.EnvPrefix = "CATALOG"
	base.FileDecoders = map[string]aconfig.FileDecoder{
		".yaml": aconfigyaml.New(),
	}
	if err := aconfig.LoaderFor(&cfg, base).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks driver names and driver-specific settings.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			return errors.New("database URL is required: set CATALOG_STORE_DATABASE_URL or DATABASE_URL")
		}
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("sqlite path is required")
		}
	case StoreMemory:
	default:
		return errors.Errorf("unknown store driver %q", c.Store.Driver)
	}

	if !slices.Contains([]string{BlobFS, BlobRedis}, c.Blob.Driver) {
		return errors.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	if c.Blob.Driver == BlobFS && c.Blob.Dir == "" {
		return errors.New("image directory is required for the fs blob driver")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) such as DATABASE_URL and PORT onto the config.
func (c *Config) applyPlatformDefaults() {
	if c.Store.DatabaseURL == "" {
		c.Store.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
