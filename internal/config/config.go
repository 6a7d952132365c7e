// Package config loads trip log settings.
//
// Sources are layered, later ones winning:
//
//	defaults < YAML file < .env files < process environment < CLI flags
//
// CLI flags are applied by the cli package; everything else happens here.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/triplog/internal/geocode"
	"github.com/roach88/triplog/internal/record"
	"github.com/roach88/triplog/internal/remote"
)

// Config holds every tunable.
type Config struct {
	APIURL     string        `yaml:"api_url"`
	GeocodeURL string        `yaml:"geocode_url"`
	Timeout    time.Duration `yaml:"timeout"`

	RedisAddr string        `yaml:"redis_addr"`
	RedisDB   int           `yaml:"redis_db"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`

	// GeoIPDB and PublicIP enable the MaxMind locator.
	GeoIPDB  string `yaml:"geoip_db"`
	PublicIP string `yaml:"public_ip"`

	// Home is a fixed "lat,lng" used as the geolocation fix when set.
	Home string `yaml:"home"`

	Journal string `yaml:"journal"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		APIURL:     remote.DefaultBaseURL,
		GeocodeURL: geocode.DefaultBaseURL,
		Timeout:    10 * time.Second,
		CacheTTL:   geocode.DefaultCacheTTL,
		LogLevel:   "info",
		LogFormat:  "text",
	}
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load reads the YAML file at path (skipped when empty), then the given .env
// files that exist, then the process environment.
func Load(path string, envFiles ...string) (Config, error) {
	return LoadWith(path, envFiles, os.LookupEnv)
}

// LoadWith is Load with an explicit environment lookup.
func LoadWith(path string, envFiles []string, lookup LookupFunc) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	dotenv, err := readEnvFiles(envFiles)
	if err != nil {
		return Config{}, err
	}
	merged := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	cfg, err = FromEnv(cfg, merged)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeYAML rejects unknown keys so typos do not silently fall back to defaults.
func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func readEnvFiles(files []string) (map[string]string, error) {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return map[string]string{}, nil
	}
	env, err := godotenv.Read(existing...)
	if err != nil {
		return nil, fmt.Errorf("read env files: %w", err)
	}
	return env, nil
}

// FromEnv overlays environment variables onto cfg.
func FromEnv(cfg Config, lookup LookupFunc) (Config, error) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str("TRIPLOG_API_URL", &cfg.APIURL)
	str("TRIPLOG_GEOCODE_URL", &cfg.GeocodeURL)
	str("TRIPLOG_REDIS_ADDR", &cfg.RedisAddr)
	str("TRIPLOG_GEOIP_DB", &cfg.GeoIPDB)
	str("TRIPLOG_PUBLIC_IP", &cfg.PublicIP)
	str("TRIPLOG_HOME", &cfg.Home)
	str("TRIPLOG_JOURNAL", &cfg.Journal)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)

	if err := dur("TRIPLOG_TIMEOUT", &cfg.Timeout); err != nil {
		return Config{}, err
	}
	if err := dur("TRIPLOG_CACHE_TTL", &cfg.CacheTTL); err != nil {
		return Config{}, err
	}
	if v, ok := lookup("TRIPLOG_REDIS_DB"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("TRIPLOG_REDIS_DB: %w", err)
		}
		cfg.RedisDB = n
	}
	return cfg, nil
}

// Validate checks URLs, durations and enumerations.
func (c Config) Validate() error {
	for name, raw := range map[string]string{"api_url": c.APIURL, "geocode_url": c.GeocodeURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid config: %s %q is not an absolute URL", name, raw)
		}
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid config: timeout must be positive, got %s", c.Timeout)
	}
	if c.RedisDB < 0 {
		return fmt.Errorf("invalid config: redis_db must not be negative")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid config: log_format %q (must be 'text' or 'json')", c.LogFormat)
	}
	if c.Home != "" {
		if _, err := c.HomePosition(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}
	if (c.GeoIPDB == "") != (c.PublicIP == "") {
		return fmt.Errorf("invalid config: geoip_db and public_ip must be set together")
	}
	return nil
}

// HomePosition parses Home.
func (c Config) HomePosition() (record.Position, error) {
	lat, lng, ok := strings.Cut(c.Home, ",")
	if !ok {
		return record.Position{}, fmt.Errorf("home %q: want \"lat,lng\"", c.Home)
	}
	p := record.Position{}
	var err error
	if p.Lat, err = record.ParseDegrees(lat); err != nil {
		return record.Position{}, fmt.Errorf("home: %w", err)
	}
	if p.Lng, err = record.ParseDegrees(lng); err != nil {
		return record.Position{}, fmt.Errorf("home: %w", err)
	}
	if !p.Valid() {
		return record.Position{}, fmt.Errorf("home %q: out of range", c.Home)
	}
	return p, nil
}

// ParseLevel maps a level name onto slog.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// NewLogger builds the process logger. verbose forces debug level.
func (c Config) NewLogger(w io.Writer, verbose bool) *slog.Logger {
	lvl, err := ParseLevel(c.LogLevel)
	if err != nil {
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
