// Package config loads the process configuration from environment variables.
//
// Load is called once in main; the resulting Config is passed by value into
// every component that needs it. Nothing reads the environment after that.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the immutable startup configuration.
type Config struct {
	Port           int
	DBPath         string
	JWTSecret      string
	TokenTTL       time.Duration
	LogLevel       slog.Level
	RequestTimeout time.Duration
	Version        string
	Asset          AssetConfig
}

// AssetConfig configures the object storage backing problem images.
// Enabled reports false when no endpoint is set; image uploads are then
// rejected and deletes are no-ops.
type AssetConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Namespace string
	// PublicURL is the base URL clients fetch objects from. Defaults to the
	// endpoint itself.
	PublicURL string
	MaxWidth  int
	MaxHeight int
	// MaxPixels caps the declared width*height of an upload. It is checked
	// from the image header before any pixel data is decoded.
	MaxPixels int
	Quality   int
	Timeout   time.Duration
}

func (a AssetConfig) Enabled() bool {
	return a.Endpoint != ""
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	return load(os.Getenv)
}

// load takes the lookup function so tests don't have to touch the real
// environment.
func load(getenv func(string) string) (Config, error) {
	env := reader{getenv: getenv}

	cfg := Config{
		Port:           env.lookupInt("PORT", 8080),
		DBPath:         env.lookupString("DB_PATH", "data/problemhub.db"),
		JWTSecret:      getenv("JWT_SECRET"),
		TokenTTL:       env.lookupDuration("TOKEN_TTL", 24*time.Hour),
		LogLevel:       env.lookupLevel("LOG_LEVEL", slog.LevelInfo),
		RequestTimeout: env.lookupDuration("REQUEST_TIMEOUT", 15*time.Second),
		Version:        env.lookupString("APP_VERSION", "1.0.0"),
		Asset: AssetConfig{
			Endpoint:  getenv("MINIO_ENDPOINT"),
			AccessKey: getenv("MINIO_ACCESS_KEY"),
			SecretKey: getenv("MINIO_SECRET_KEY"),
			UseSSL:    env.lookupBool("MINIO_USE_SSL", false),
			Bucket:    env.lookupString("MINIO_BUCKET", "problem-hub"),
			Namespace: env.lookupString("ASSET_NAMESPACE", "problems"),
			PublicURL: getenv("ASSET_PUBLIC_URL"),
			MaxWidth:  env.lookupInt("ASSET_MAX_WIDTH", 1000),
			MaxHeight: env.lookupInt("ASSET_MAX_HEIGHT", 1000),
			MaxPixels: env.lookupInt("ASSET_MAX_PIXELS", 40_000_000),
			Quality:   env.lookupInt("ASSET_QUALITY", 80),
			Timeout:   env.lookupDuration("ASSET_TIMEOUT", 30*time.Second),
		},
	}

	if len(env.errs) > 0 {
		return Config{}, fmt.Errorf("config: %s", strings.Join(env.errs, "; "))
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("config: JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("config: JWT_SECRET must be at least 16 characters")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("config: TOKEN_TTL must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("config: REQUEST_TIMEOUT must be positive")
	}
	if c.Asset.Quality < 1 || c.Asset.Quality > 100 {
		return fmt.Errorf("config: ASSET_QUALITY must be between 1 and 100")
	}
	if c.Asset.MaxWidth <= 0 || c.Asset.MaxHeight <= 0 {
		return fmt.Errorf("config: ASSET_MAX_WIDTH and ASSET_MAX_HEIGHT must be positive")
	}
	if c.Asset.MaxPixels <= 0 {
		return fmt.Errorf("config: ASSET_MAX_PIXELS must be positive")
	}
	if c.Asset.Enabled() && (c.Asset.AccessKey == "" || c.Asset.SecretKey == "") {
		return fmt.Errorf("config: MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when MINIO_ENDPOINT is set")
	}
	return nil
}

// reader collects parse errors so Load can report all of them at once.
type reader struct {
	getenv func(string) string
	errs   []string
}

func (r *reader) lookupString(key, def string) string {
	if v := r.getenv(key); v != "" {
		return v
	}
	return def
}

func (r *reader) lookupInt(key string, def int) int {
	v := r.getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("invalid %s value %q", key, v))
		return def
	}
	return n
}

func (r *reader) lookupBool(key string, def bool) bool {
	v := r.getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("invalid %s value %q", key, v))
		return def
	}
	return b
}

func (r *reader) lookupDuration(key string, def time.Duration) time.Duration {
	v := r.getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("invalid %s value %q", key, v))
		return def
	}
	return d
}

func (r *reader) lookupLevel(key string, def slog.Level) slog.Level {
	v := r.getenv(key)
	if v == "" {
		return def
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		r.errs = append(r.errs, fmt.Sprintf("invalid %s value %q", key, v))
		return def
	}
	return lvl
}
