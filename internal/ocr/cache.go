package ocr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"timetable-parser/internal/cache"
)

// CachedEngine memoizes an Engine by image content, so re-uploading the same
// picture skips OCR. Cache failures are logged and never fail a parse.
type CachedEngine struct {
	next  Engine
	cache cache.Client
	ttl   time.Duration
	log   zerolog.Logger
}

// NewCachedEngine wraps next with c.
func NewCachedEngine(next Engine, c cache.Client, ttl time.Duration, log zerolog.Logger) *CachedEngine {
	return &CachedEngine{next: next, cache: c, ttl: ttl, log: log}
}

func (e *CachedEngine) Name() string { return e.next.Name() }

// Parse serves from cache when the image was seen before.
func (e *CachedEngine) Parse(ctx context.Context, imagePath string) (Timetable, error) {
	sum, err := hashFile(imagePath)
	if err != nil {
		return Timetable{}, err
	}
	key := cacheKey(e.next) + ":" + sum

	if data, err := e.cache.Get(ctx, key); err == nil {
		var tt Timetable
		if err := json.Unmarshal(data, &tt); err == nil {
			e.log.Debug().Str("key", key).Msg("ocr cache hit")
			return tt, nil
		}
		e.log.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		e.log.Warn().Err(err).Msg("ocr cache read")
	}

	tt, err := e.next.Parse(ctx, imagePath)
	if err != nil {
		return Timetable{}, err
	}

	if data, err := json.Marshal(tt); err == nil {
		if err := e.cache.Set(ctx, key, data, e.ttl); err != nil {
			e.log.Warn().Err(err).Msg("ocr cache write")
		}
	}
	return tt, nil
}

// keyer is implemented by engines whose output depends on settings beyond
// their name.
type keyer interface {
	CacheKey() string
}

func cacheKey(e Engine) string {
	if k, ok := e.(keyer); ok {
		return k.CacheKey()
	}
	return e.Name()
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash image: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
