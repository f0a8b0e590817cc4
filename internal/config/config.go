package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	GoEnv string `env:"GO_ENV" default:"development"`

	// HTTP surface
	HTTPPort    int      `env:"HTTP_PORT" default:"8080"`
	CORSOrigins []string `env:"CORS_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`

	// Upstream catalogs
	MangaDexAPIURL     string        `env:"MANGADEX_API_URL" default:"https://api.mangadex.org"`
	MangaDexUploadsURL string        `env:"MANGADEX_UPLOADS_URL" default:"https://uploads.mangadex.org"`
	AniListAPIURL      string        `env:"ANILIST_API_URL" default:"https://graphql.anilist.co"`
	UpstreamTimeout    time.Duration `env:"UPSTREAM_TIMEOUT" default:"15s"`

	// Enrichment policy. Prefix and delay track the undocumented AniList
	// rate ceiling, so they are tunable rather than hard-coded.
	EnrichPrefix      int           `env:"ENRICH_PREFIX" default:"5"`
	EnrichDelay       time.Duration `env:"ENRICH_DELAY" default:"350ms"`
	EnrichConcurrency int           `env:"ENRICH_CONCURRENCY" default:"3"`

	// Query cache
	CacheBackend string        `env:"CACHE_BACKEND" default:"memory"`
	RedisURL     string        `env:"REDIS_URL" default:"redis://localhost:6379"`
	TTLSearch    time.Duration `env:"CACHE_TTL_SEARCH" default:"5m"`
	TTLDetail    time.Duration `env:"CACHE_TTL_DETAIL" default:"30m"`
	TTLFeed      time.Duration `env:"CACHE_TTL_FEED" default:"2m"`
	TTLTrending  time.Duration `env:"CACHE_TTL_TRENDING" default:"1h"`
	TTLTags      time.Duration `env:"CACHE_TTL_TAGS" default:"24h"`

	// Library persistence
	LibraryBackend string        `env:"LIBRARY_BACKEND" default:"file"`
	LibraryPath    string        `env:"LIBRARY_PATH" default:"./data/library"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	SyncDebounce   time.Duration `env:"SYNC_DEBOUNCE" default:"2s"`

	// Auth, only enforced when a remote library backend is selected
	JWTSecret string        `env:"JWT_SECRET"`
	JWTExpiry time.Duration `env:"JWT_EXPIRY" default:"720h"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Missing .env is fine; system env vars still apply.
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		fmt.Printf("Warning: .env file not loaded: %v\n", err)
	}

	config := &Config{}

	if err := loadEnvString(&config.GoEnv, "GO_ENV", "development"); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.HTTPPort, "HTTP_PORT", 8080); err != nil {
		return nil, err
	}
	if err := loadEnvStringSlice(&config.CORSOrigins, "CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}); err != nil {
		return nil, err
	}

	// Upstreams
	if err := loadEnvString(&config.MangaDexAPIURL, "MANGADEX_API_URL", "https://api.mangadex.org"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.MangaDexUploadsURL, "MANGADEX_UPLOADS_URL", "https://uploads.mangadex.org"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.AniListAPIURL, "ANILIST_API_URL", "https://graphql.anilist.co"); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.UpstreamTimeout, "UPSTREAM_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}

	// Enrichment
	if err := loadEnvInt(&config.EnrichPrefix, "ENRICH_PREFIX", 5); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.EnrichDelay, "ENRICH_DELAY", 350*time.Millisecond); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.EnrichConcurrency, "ENRICH_CONCURRENCY", 3); err != nil {
		return nil, err
	}

	// Cache
	if err := loadEnvString(&config.CacheBackend, "CACHE_BACKEND", "memory"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.RedisURL, "REDIS_URL", "redis://localhost:6379"); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.TTLSearch, "CACHE_TTL_SEARCH", 5*time.Minute); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.TTLDetail, "CACHE_TTL_DETAIL", 30*time.Minute); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.TTLFeed, "CACHE_TTL_FEED", 2*time.Minute); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.TTLTrending, "CACHE_TTL_TRENDING", time.Hour); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.TTLTags, "CACHE_TTL_TAGS", 24*time.Hour); err != nil {
		return nil, err
	}

	// Library
	if err := loadEnvString(&config.LibraryBackend, "LIBRARY_BACKEND", "file"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.LibraryPath, "LIBRARY_PATH", "./data/library"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.DatabaseURL, "DATABASE_URL", ""); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.SyncDebounce, "SYNC_DEBOUNCE", 2*time.Second); err != nil {
		return nil, err
	}

	// Auth
	if err := loadEnvString(&config.JWTSecret, "JWT_SECRET", ""); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.JWTExpiry, "JWT_EXPIRY", 720*time.Hour); err != nil {
		return nil, err
	}

	return config, nil
}

// Helper functions for type conversion and validation
func loadEnvString(target *string, key, defaultValue string) error {
	if value := os.Getenv(key); value != "" {
		*target = value
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvInt(target *int, key string, defaultValue int) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvDuration(target *time.Duration, key string, defaultValue time.Duration) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvStringSlice(target *[]string, key string, defaultValue []string) error {
	if value := os.Getenv(key); value != "" {
		*target = strings.Split(value, ",")
		for i, v := range *target {
			(*target)[i] = strings.TrimSpace(v)
		}
	} else {
		*target = defaultValue
	}
	return nil
}

// Validate performs validation on the loaded configuration
func (c *Config) Validate() error {
	var errors []string

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errors = append(errors, "HTTP_PORT must be between 1 and 65535")
	}

	validCacheBackends := []string{"memory", "redis"}
	if !contains(validCacheBackends, c.CacheBackend) {
		errors = append(errors, fmt.Sprintf("CACHE_BACKEND must be one of: %s", strings.Join(validCacheBackends, ", ")))
	}

	validLibraryBackends := []string{"file", "redis", "postgres"}
	if !contains(validLibraryBackends, c.LibraryBackend) {
		errors = append(errors, fmt.Sprintf("LIBRARY_BACKEND must be one of: %s", strings.Join(validLibraryBackends, ", ")))
	}

	if c.LibraryBackend == "postgres" && c.DatabaseURL == "" {
		errors = append(errors, "DATABASE_URL is required when LIBRARY_BACKEND=postgres")
	}

	// Remote sync mode authenticates clients; the local demo mode does not.
	if c.RemoteMode() && len(c.JWTSecret) < 32 {
		errors = append(errors, "JWT_SECRET must be at least 32 characters when a remote library backend is selected")
	}

	if c.EnrichPrefix < 0 {
		errors = append(errors, "ENRICH_PREFIX must not be negative")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}
	return nil
}

// RemoteMode reports whether the library lives in a shared backend rather
// than the local demo store.
func (c *Config) RemoteMode() bool {
	return c.LibraryBackend == "redis" || c.LibraryBackend == "postgres"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// Helper function to check if slice contains a string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
