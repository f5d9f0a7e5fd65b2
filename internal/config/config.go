// Package config loads the service configuration from YAML, .env and the
// process environment.
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

// Engine names accepted by OCRConfig.Engine.
const (
	EngineMock   = "mock"
	EnginePaddle = "paddle"
)

// Config holds everything the service needs at startup.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	OCR     OCRConfig     `yaml:"ocr"`
	Cache   CacheConfig   `yaml:"cache"`
	History HistoryConfig `yaml:"history"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         string `yaml:"port"`
	Mode         string `yaml:"mode"` // debug, release or test
	APIKey       string `yaml:"api_key"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
}

// StorageConfig controls where uploads land and how long orphans survive.
type StorageConfig struct {
	UploadDir         string        `yaml:"upload_dir"`
	AllowedExtensions []string      `yaml:"allowed_extensions"`
	SweepInterval     time.Duration `yaml:"sweep_interval"`
	OrphanTTL         time.Duration `yaml:"orphan_ttl"`
}

// OCRConfig selects and tunes the OCR engine.
type OCRConfig struct {
	Engine      string        `yaml:"engine"`
	Binary      string        `yaml:"binary"`
	Args        []string      `yaml:"args"`
	Language    string        `yaml:"language"`
	UseAngleCls bool          `yaml:"use_angle_cls"`
	Timeout     time.Duration `yaml:"timeout"`
}

// CacheConfig enables the Redis result cache when Addr is set.
type CacheConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// HistoryConfig enables the SQLite parse history when Path is set.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// Default returns the configuration the service ships with.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         "5000",
			Mode:         "debug",
			MaxBodyBytes: 10 << 20,
		},
		Storage: StorageConfig{
			UploadDir:         "uploads",
			AllowedExtensions: []string{"png", "jpg", "jpeg", "webp"},
			SweepInterval:     15 * time.Minute,
			OrphanTTL:         time.Hour,
		},
		OCR: OCRConfig{
			Engine:      EngineMock,
			Binary:      "paddleocr-json",
			Language:    "en",
			UseAngleCls: true,
			Timeout:     2 * time.Minute,
		},
		Cache: CacheConfig{
			Prefix: "timetable:",
			TTL:    24 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads .env (if any), then the YAML file at path (or CONFIG_PATH, or
// ./config.yaml), then applies environment overrides. A missing file is not an
// error; defaults are used instead.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(c); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Host, "HOST")
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.Mode, "MODE")
	setString(&c.Server.APIKey, "API_KEY")
	setString(&c.Storage.UploadDir, "UPLOAD_DIR")
	setString(&c.OCR.Engine, "OCR_ENGINE")
	setString(&c.OCR.Binary, "OCR_BINARY")
	setString(&c.Cache.Addr, "REDIS_ADDR")
	setString(&c.Cache.Password, "REDIS_PASSWORD")
	setString(&c.History.Path, "HISTORY_PATH")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")

	if v := os.Getenv("MAX_BODY_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_BODY_BYTES: %w", err)
		}
		c.Server.MaxBodyBytes = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// Validate reports the first setting the service cannot start with.
func (c *Config) Validate() error {
	switch c.OCR.Engine {
	case EngineMock, EnginePaddle:
	default:
		return fmt.Errorf("unknown ocr engine %q", c.OCR.Engine)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unknown server mode %q", c.Server.Mode)
	}
	if c.OCR.Engine == EnginePaddle && c.OCR.Binary == "" {
		return errors.New("ocr binary is required for the paddle engine")
	}
	if strings.TrimSpace(c.Storage.UploadDir) == "" {
		return errors.New("storage upload_dir is required")
	}
	if len(c.Storage.AllowedExtensions) == 0 {
		return errors.New("storage allowed_extensions is empty")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.New("server max_body_bytes must be positive")
	}
	return nil
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// AllowedSet returns the extension allow-list lowercased, without dots.
func (s StorageConfig) AllowedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.AllowedExtensions))
	for _, ext := range s.AllowedExtensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			set[ext] = struct{}{}
		}
	}
	return set
}
