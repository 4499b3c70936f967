// Package config loads image-scanner settings from defaults, an optional
// YAML file, a .env file and IMAGE_SCANNER_* environment variables, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "IMAGE_SCANNER_"

// Model backends.
const (
	BackendRemote    = "remote"
	BackendTesseract = "tesseract"
)

// Config is the full application configuration.
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`
	Model  ModelConfig  `yaml:"model"`
	Camera CameraConfig `yaml:"camera"`
	Cache  CacheConfig  `yaml:"cache"`
	Render RenderConfig `yaml:"render"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	NoColor bool   `yaml:"no_color"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	StaticRoot      string        `yaml:"static_root"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type ModelConfig struct {
	Backend        string        `yaml:"backend"`
	URL            string        `yaml:"url"`
	Timeout        time.Duration `yaml:"timeout"`
	Language       string        `yaml:"language"`
	TessdataPrefix string        `yaml:"tessdata_prefix"`
}

type CameraConfig struct {
	SnapshotURL string        `yaml:"snapshot_url"`
	FacingMode  string        `yaml:"facing_mode"`
	Timeout     time.Duration `yaml:"timeout"`
}

type CacheConfig struct {
	Driver     string      `yaml:"driver"`
	Version    string      `yaml:"version"`
	Assets     []string    `yaml:"assets"`
	SQLitePath string      `yaml:"sqlite_path"`
	Redis      RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// RenderConfig holds annotation colors as hex strings. Empty values keep
// the built-in palette.
type RenderConfig struct {
	Stroke       string `yaml:"stroke"`
	Tag          string `yaml:"tag"`
	Text         string `yaml:"text"`
	ColorByClass bool   `yaml:"color_by_class"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Model: ModelConfig{
			Backend:  BackendRemote,
			URL:      "http://localhost:9000",
			Timeout:  30 * time.Second,
			Language: "eng",
		},
		Camera: CameraConfig{
			FacingMode: "environment",
			Timeout:    10 * time.Second,
		},
		Cache: CacheConfig{
			Driver:     "memory",
			Version:    "image-scanner-pwa-v1",
			SQLitePath: "image-scanner-cache.db",
			Redis:      RedisConfig{Prefix: "assetcache:"},
		},
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment apply. A named file that does not exist is
// an error.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files (".env" if none)
// into the process environment. Missing files are ignored and existing
// variables are never overwritten.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Model.Backend {
	case BackendRemote:
		if c.Model.URL == "" {
			return errors.New("model.url is required for the remote backend")
		}
	case BackendTesseract:
	default:
		return fmt.Errorf("unknown model backend %q", c.Model.Backend)
	}

	switch c.Cache.Driver {
	case "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("unknown cache driver %q", c.Cache.Driver)
	}
	if c.Cache.Driver == "redis" && c.Cache.Redis.Addr == "" {
		return errors.New("cache.redis.addr is required for the redis driver")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	var errs []error
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			var out []string
			for _, item := range strings.Split(v, ",") {
				if item = strings.TrimSpace(item); item != "" {
					out = append(out, item)
				}
			}
			*dst = out
		}
	}

	str("LOG_LEVEL", &c.Log.Level)
	boolean("LOG_NO_COLOR", &c.Log.NoColor)

	str("SERVER_ADDR", &c.Server.Addr)
	str("STATIC_ROOT", &c.Server.StaticRoot)
	list("CORS_ORIGINS", &c.Server.CORSOrigins)
	duration("SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)

	str("MODEL_BACKEND", &c.Model.Backend)
	str("MODEL_URL", &c.Model.URL)
	duration("MODEL_TIMEOUT", &c.Model.Timeout)
	str("OCR_LANGUAGE", &c.Model.Language)
	str("TESSDATA_PREFIX", &c.Model.TessdataPrefix)

	str("CAMERA_SNAPSHOT_URL", &c.Camera.SnapshotURL)
	str("CAMERA_FACING_MODE", &c.Camera.FacingMode)
	duration("CAMERA_TIMEOUT", &c.Camera.Timeout)

	str("CACHE_DRIVER", &c.Cache.Driver)
	str("CACHE_VERSION", &c.Cache.Version)
	list("CACHE_ASSETS", &c.Cache.Assets)
	str("CACHE_SQLITE_PATH", &c.Cache.SQLitePath)
	str("REDIS_ADDR", &c.Cache.Redis.Addr)
	str("REDIS_USERNAME", &c.Cache.Redis.Username)
	str("REDIS_PASSWORD", &c.Cache.Redis.Password)
	integer("REDIS_DB", &c.Cache.Redis.DB)
	str("REDIS_PREFIX", &c.Cache.Redis.Prefix)

	str("RENDER_STROKE", &c.Render.Stroke)
	str("RENDER_TAG", &c.Render.Tag)
	str("RENDER_TEXT", &c.Render.Text)
	boolean("RENDER_COLOR_BY_CLASS", &c.Render.ColorByClass)

	return errors.Join(errs...)
}
