// Package config loads gradlab settings from a TOML file and the environment.
//
// Lookup order for the file is: the explicit path given to [Load], then
// $XDG_CONFIG_HOME/gradlab/config.toml (or ~/.config/gradlab/config.toml).
// A missing default file is not an error; defaults apply. GRADLAB_API_URL
// overrides api.base_url after the file is read.
//
// Example file:
//
//	[api]
//	base_url = "http://localhost:8000"
//	timeout = "30s"
//
//	[cache]
//	backend = "redis"
//	ttl = "24h"
//
//	[redis]
//	addr = "localhost:6379"
//
//	[brush]
//	radius = 12
//	strength = 0.3
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/gradlab/pkg/brush"
	"github.com/matzehuels/gradlab/pkg/cache"
	"github.com/matzehuels/gradlab/pkg/composite"
	"github.com/matzehuels/gradlab/pkg/errors"
	"github.com/matzehuels/gradlab/pkg/integrations/lab"
)

// AppName names the config and cache directories.
const AppName = "gradlab"

// EnvAPIURL overrides the lab service origin.
const EnvAPIURL = "GRADLAB_API_URL"

// Config is the complete gradlab configuration.
type Config struct {
	API     APIConfig     `toml:"api"`
	Cache   CacheConfig   `toml:"cache"`
	Redis   RedisConfig   `toml:"redis"`
	Mongo   MongoConfig   `toml:"mongo"`
	Brush   BrushConfig   `toml:"brush"`
	Display DisplayConfig `toml:"display"`
	Server  ServerConfig  `toml:"server"`

	// Source is the file the configuration was read from, "" for defaults.
	Source string `toml:"-"`
}

// APIConfig locates the lab service.
type APIConfig struct {
	BaseURL string        `toml:"base_url"`
	Timeout time.Duration `toml:"timeout"`
	Mode    string        `toml:"mode"` // reconstruction mode: full or patch
}

// CacheConfig selects the response cache backend.
type CacheConfig struct {
	Backend string        `toml:"backend"` // file, redis, mongo or none
	Dir     string        `toml:"dir"`
	TTL     time.Duration `toml:"ttl"`
}

// RedisConfig configures the redis cache backend.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
}

// MongoConfig configures the mongo cache backend.
type MongoConfig struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// BrushConfig holds the initial brush and compositing settings.
type BrushConfig struct {
	Radius   int     `toml:"radius"`
	Strength float64 `toml:"strength"`
	Spacing  float64 `toml:"spacing"` // > 0 interpolates samples along the stroke
	Blend    string  `toml:"blend"`   // overlay, additive or normal
}

// DisplayConfig is the viewport that stroke scripts and previews lay the
// image out in.
type DisplayConfig struct {
	Width  float64 `toml:"width"`
	Height float64 `toml:"height"`
}

// ServerConfig configures `gradlab serve`.
type ServerConfig struct {
	Addr       string        `toml:"addr"`
	SessionTTL time.Duration `toml:"session_ttl"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: lab.DefaultBaseURL,
			Timeout: 30 * time.Second,
			Mode:    string(lab.ModeFull),
		},
		Cache: CacheConfig{
			Backend: cache.BackendFile,
			TTL:     24 * time.Hour,
		},
		Redis: RedisConfig{Addr: "localhost:6379", Prefix: AppName + ":"},
		Mongo: MongoConfig{URI: "mongodb://localhost:27017", Database: AppName, Collection: "cache"},
		Brush: BrushConfig{
			Radius:   brush.DefaultRadius,
			Strength: brush.DefaultStrength,
			Blend:    composite.ModeOverlay.String(),
		},
		Display: DisplayConfig{Width: 800, Height: 600},
		Server:  ServerConfig{Addr: "127.0.0.1:8080", SessionTTL: 2 * time.Hour},
	}
}

// Load reads the configuration. An explicit path must exist; with path == ""
// the default location is tried and silently skipped when absent.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if p, err := DefaultPath(); err == nil {
			path = p
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse %s", path)
			}
			cfg.Source = path
		case explicit || !os.IsNotExist(err):
			return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "read config")
		}
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv applies environment overrides.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		c.API.BaseURL = v
	}
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return errors.New(errors.ErrCodeInvalidInput, "api.base_url %q is not an http(s) URL", c.API.BaseURL)
	}
	switch lab.Mode(c.API.Mode) {
	case lab.ModeFull, lab.ModePatch:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "api.mode %q must be full or patch", c.API.Mode)
	}
	switch c.Cache.Backend {
	case cache.BackendFile, cache.BackendRedis, cache.BackendMongo, cache.BackendNone:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "cache.backend %q must be file, redis, mongo or none", c.Cache.Backend)
	}
	if err := (brush.Spec{Tool: brush.ToolDX, Radius: c.Brush.Radius, Strength: c.Brush.Strength}).Validate(); err != nil {
		return fmt.Errorf("brush: %w", err)
	}
	if c.Brush.Spacing < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "brush.spacing must not be negative")
	}
	if _, err := composite.ParseMode(c.Brush.Blend); err != nil {
		return fmt.Errorf("brush: %w", err)
	}
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "display size %gx%g must be positive", c.Display.Width, c.Display.Height)
	}
	return nil
}

// BlendMode returns the configured composite blend.
func (c *Config) BlendMode() composite.Mode {
	m, err := composite.ParseMode(c.Brush.Blend)
	if err != nil {
		return composite.ModeOverlay
	}
	return m
}

// CacheOptions converts the cache sections for [cache.Open]. An empty dir
// falls back to the XDG cache directory.
func (c *Config) CacheOptions() (cache.Options, error) {
	dir := c.Cache.Dir
	if dir == "" && c.Cache.Backend == cache.BackendFile {
		d, err := CacheDir()
		if err != nil {
			return cache.Options{}, err
		}
		dir = d
	}
	return cache.Options{
		Backend: c.Cache.Backend,
		Dir:     dir,
		Redis: cache.RedisConfig{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			Prefix:   c.Redis.Prefix,
		},
		Mongo: cache.MongoConfig{
			URI:        c.Mongo.URI,
			Database:   c.Mongo.Database,
			Collection: c.Mongo.Collection,
		},
	}, nil
}

// DefaultPath returns the config file location per XDG.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName, "config.toml"), nil
}

// CacheDir returns the cache directory per XDG (~/.cache/gradlab/).
func CacheDir() (string, error) {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", AppName), nil
}

// Encode writes c as TOML.
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
