package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timetable-parser/internal/config"
)

func TestParseImage_Mock(t *testing.T) {
	img := filepath.Join(t.TempDir(), "week.PNG")
	require.NoError(t, os.WriteFile(img, []byte("not really a png"), 0o644))

	var out bytes.Buffer
	require.NoError(t, parseImage(context.Background(), config.Default(), zerolog.Nop(), img, &out))

	var got struct {
		Rows   []map[string]string `json:"rows"`
		Status string              `json:"status"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "success", got.Status)
	require.Len(t, got.Rows, 3)
	assert.Equal(t, "Math", got.Rows[0]["subject"])
}

func TestParseImage_Rejects(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0o644))
	asDir := filepath.Join(dir, "folder.png")
	require.NoError(t, os.Mkdir(asDir, 0o755))

	tests := map[string]string{
		"wrong extension": txt,
		"missing file":    filepath.Join(dir, "gone.jpg"),
		"directory":       asDir,
	}
	for name, path := range tests {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			err := parseImage(context.Background(), config.Default(), zerolog.Nop(), path, &out)
			assert.Error(t, err)
			assert.Empty(t, out.String())
		})
	}
}

func TestParseImage_PaddleFailure(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "fake-paddle")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nexit 3\n"), 0o755))
	img := filepath.Join(dir, "scan.jpg")
	require.NoError(t, os.WriteFile(img, []byte("x"), 0o644))

	cfg := config.Default()
	cfg.OCR.Engine = config.EnginePaddle
	cfg.OCR.Binary = script

	var out bytes.Buffer
	err := parseImage(context.Background(), cfg, zerolog.Nop(), img, &out)
	assert.Error(t, err)
	assert.Empty(t, out.String())
}
