package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/gradlab/pkg/cache"
	"github.com/matzehuels/gradlab/pkg/composite"
	"github.com/matzehuels/gradlab/pkg/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaultsWhenAbsent(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(EnvAPIURL, "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source != "" {
		t.Errorf("Source = %q, want defaults", cfg.Source)
	}
	if cfg.API.BaseURL != "http://localhost:8000" || cfg.Brush.Radius != 20 || cfg.Brush.Strength != 0.5 {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	path := writeConfig(t, `
[api]
base_url = "https://lab.example.com"
timeout = "5s"
mode = "patch"

[cache]
backend = "redis"
ttl = "1h"

[redis]
addr = "redis:6379"
db = 2

[brush]
radius = 12
strength = 0.3
spacing = 2.0
blend = "additive"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source != path {
		t.Errorf("Source = %q", cfg.Source)
	}
	if cfg.API.BaseURL != "https://lab.example.com" || cfg.API.Timeout != 5*time.Second || cfg.API.Mode != "patch" {
		t.Errorf("api = %+v", cfg.API)
	}
	if cfg.Cache.Backend != cache.BackendRedis || cfg.Cache.TTL != time.Hour {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Redis.Addr != "redis:6379" || cfg.Redis.DB != 2 || cfg.Redis.Prefix != "gradlab:" {
		t.Errorf("redis = %+v", cfg.Redis)
	}
	if cfg.Brush.Radius != 12 || cfg.Brush.Spacing != 2 || cfg.BlendMode() != composite.ModeAdditive {
		t.Errorf("brush = %+v", cfg.Brush)
	}
	// Untouched sections keep their defaults.
	if cfg.Display.Width != 800 || cfg.Server.Addr == "" {
		t.Errorf("defaults lost: display=%+v server=%+v", cfg.Display, cfg.Server)
	}

	opts, err := cfg.CacheOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Backend != cache.BackendRedis || opts.Redis.Addr != "redis:6379" || opts.Redis.DB != 2 {
		t.Errorf("CacheOptions = %+v", opts)
	}
}

func TestEnvOverride(t *testing.T) {
	path := writeConfig(t, "[api]\nbase_url = \"http://file:1\"\n")
	t.Setenv(EnvAPIURL, "http://env:2")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.API.BaseURL != "http://env:2" {
		t.Errorf("BaseURL = %q, want env override", cfg.API.BaseURL)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	tests := []struct {
		name string
		body string
		code errors.Code
	}{
		{"syntax", "[api\n", errors.ErrCodeInvalidFormat},
		{"bad url", "[api]\nbase_url = \"ftp://x\"\n", errors.ErrCodeInvalidInput},
		{"bad mode", "[api]\nmode = \"partial\"\n", errors.ErrCodeInvalidInput},
		{"bad backend", "[cache]\nbackend = \"memcached\"\n", errors.ErrCodeInvalidInput},
		{"radius", "[brush]\nradius = 0\n", errors.ErrCodeInvalidInput},
		{"strength", "[brush]\nstrength = 2.0\n", errors.ErrCodeInvalidInput},
		{"blend", "[brush]\nblend = \"screen\"\n", errors.ErrCodeInvalidInput},
		{"display", "[display]\nwidth = 0\n", errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("missing explicit file err = %v", err)
	}
}

func TestPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_CACHE_HOME", "/cache")

	if p, _ := DefaultPath(); p != filepath.Join("/cfg", "gradlab", "config.toml") {
		t.Errorf("DefaultPath = %q", p)
	}
	if p, _ := CacheDir(); p != filepath.Join("/cache", "gradlab") {
		t.Errorf("CacheDir = %q", p)
	}

	opts, err := Default().CacheOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Dir != filepath.Join("/cache", "gradlab") {
		t.Errorf("file cache dir = %q", opts.Dir)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	var b strings.Builder
	if err := Default().Encode(&b); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), "[brush]") {
		t.Errorf("encoded config lacks [brush]:\n%s", b.String())
	}
	cfg, err := Load(writeConfig(t, b.String()))
	if err != nil {
		t.Fatalf("reload encoded defaults: %v", err)
	}
	if cfg.Cache.TTL != 24*time.Hour || cfg.API.Timeout != 30*time.Second {
		t.Errorf("durations did not survive: cache=%v api=%v", cfg.Cache.TTL, cfg.API.Timeout)
	}
}
