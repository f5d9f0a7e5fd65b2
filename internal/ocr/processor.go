package ocr

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const defaultBinary = "paddleocr-json"

// Options controls the OCR command invocation.
type Options struct {
	Language    string
	UseAngleCls bool
}

// Processor wraps a PaddleOCR command that prints the raw result for one
// image as JSON on stdout.
type Processor struct {
	Binary  string
	Args    []string
	Options Options
	Timeout time.Duration
}

// NewProcessor returns a Processor with sane defaults.
func NewProcessor() *Processor {
	return &Processor{
		Binary:  defaultBinary,
		Options: Options{Language: "en", UseAngleCls: true},
		Timeout: 2 * time.Minute,
	}
}

func (p *Processor) Name() string { return "paddle" }

// CacheKey identifies the invocation settings, so results recognized under a
// different language, angle setting or argument list are never reused.
func (p *Processor) CacheKey() string {
	h := sha256.New()
	for _, a := range p.args("") {
		h.Write([]byte(a))
		h.Write([]byte{0})
	}
	return p.Name() + ":" + hex.EncodeToString(h.Sum(nil))[:16]
}

// Parse runs OCR on imagePath and returns the flattened text lines.
func (p *Processor) Parse(ctx context.Context, imagePath string) (Timetable, error) {
	res, err := p.Recognize(ctx, imagePath)
	if err != nil {
		return Timetable{}, err
	}
	return res.Timetable(), nil
}

// Recognize runs the command against imagePath and decodes its output.
func (p *Processor) Recognize(ctx context.Context, imagePath string) (Result, error) {
	if imagePath == "" {
		return nil, errors.New("image path is required")
	}
	binary := p.Binary
	if binary == "" {
		binary = defaultBinary
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, binary, p.args(imagePath)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("paddleocr: %w - %s", err, strings.TrimSpace(stderr.String()))
	}

	return parseOutput(stdout.Bytes())
}

func (p *Processor) args(imagePath string) []string {
	args := append([]string{}, p.Args...)
	args = append(args, "--image", imagePath)
	if p.Options.Language != "" {
		args = append(args, "--lang", p.Options.Language)
	}
	args = append(args, fmt.Sprintf("--use_angle_cls=%t", p.Options.UseAngleCls))
	return args
}

// parseOutput decodes the engine's JSON. Some PaddleOCR versions wrap the
// per-image result in an extra list, one entry per page; both forms are
// accepted.
func parseOutput(data []byte) (Result, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Result{}, nil
	}

	var res Result
	if err := json.Unmarshal(data, &res); err == nil {
		return res, nil
	}

	var pages []Result
	if err := json.Unmarshal(data, &pages); err != nil {
		return nil, fmt.Errorf("decode paddleocr output: %w", err)
	}
	var merged Result
	for _, page := range pages {
		merged = append(merged, page...)
	}
	return merged, nil
}

// ResolveBinary returns the absolute binary path if available on PATH.
func ResolveBinary(binary string) (string, error) {
	if binary == "" {
		binary = defaultBinary
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return "", err
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs, nil
	}
	return path, nil
}
