package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "0.0.0.0:5000", cfg.Server.Addr())
	assert.Equal(t, int64(10<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, "uploads", cfg.Storage.UploadDir)
	assert.Equal(t, EngineMock, cfg.OCR.Engine)
	assert.Equal(t, "en", cfg.OCR.Language)
	assert.True(t, cfg.OCR.UseAngleCls)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: "7000"
storage:
  upload_dir: /tmp/tt
  orphan_ttl: 30m
ocr:
  engine: paddle
  binary: /usr/local/bin/paddle
  args: ["--det_limit_side_len", "960"]
history:
  path: history.db
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("PORT", "7100")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7100", cfg.Server.Port)
	assert.Equal(t, "/tmp/tt", cfg.Storage.UploadDir)
	assert.Equal(t, 30*time.Minute, cfg.Storage.OrphanTTL)
	assert.Equal(t, EnginePaddle, cfg.OCR.Engine)
	assert.Equal(t, []string{"--det_limit_side_len", "960"}, cfg.OCR.Args)
	assert.Equal(t, "history.db", cfg.History.Path)
	assert.Equal(t, "localhost:6379", cfg.Cache.Addr)
	// untouched keys keep their defaults
	assert.Equal(t, []string{"png", "jpg", "jpeg", "webp"}, cfg.Storage.AllowedExtensions)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_BadMaxBody(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("MAX_BODY_BYTES", "ten")
	wd, wdErr := os.Getwd()
	require.NoError(t, wdErr)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	_, err := Load("")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown mode", func(c *Config) { c.Server.Mode = "prod" }},
		{"unknown engine", func(c *Config) { c.OCR.Engine = "tesseract" }},
		{"paddle without binary", func(c *Config) { c.OCR.Engine = EnginePaddle; c.OCR.Binary = "" }},
		{"empty upload dir", func(c *Config) { c.Storage.UploadDir = " " }},
		{"no extensions", func(c *Config) { c.Storage.AllowedExtensions = nil }},
		{"zero body limit", func(c *Config) { c.Server.MaxBodyBytes = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestAllowedSet(t *testing.T) {
	s := StorageConfig{AllowedExtensions: []string{"PNG", ".jpg", " webp ", ""}}
	set := s.AllowedSet()

	assert.Len(t, set, 3)
	assert.Contains(t, set, "png")
	assert.Contains(t, set, "jpg")
	assert.Contains(t, set, "webp")
}

func TestLoad_ExampleMatchesDefaults(t *testing.T) {
	for _, key := range []string{"HOST", "PORT", "MODE", "API_KEY", "UPLOAD_DIR", "OCR_ENGINE", "MAX_BODY_BYTES", "REDIS_ADDR", "REDIS_PASSWORD", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load(filepath.Join("..", "..", "config.example.yaml"))
	require.NoError(t, err)
	def := Default()

	assert.Equal(t, def.Server, cfg.Server)
	assert.Equal(t, def.Storage, cfg.Storage)
	assert.Equal(t, def.OCR.Engine, cfg.OCR.Engine)
	assert.Equal(t, def.OCR.Timeout, cfg.OCR.Timeout)
	assert.Equal(t, def.Cache, cfg.Cache)
	assert.Equal(t, def.Log, cfg.Log)
}
