package storage

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper removes uploads left behind by a crashed or killed request.
type Sweeper struct {
	Dir      string
	TTL      time.Duration
	Interval time.Duration
	Log      zerolog.Logger
}

// Run sweeps every Interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	if s.Interval <= 0 || s.TTL <= 0 {
		return
	}
	s.Log.Info().Dur("interval", s.Interval).Dur("ttl", s.TTL).Msg("upload sweeper started")

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(time.Now())
		}
	}
}

// Sweep removes regular files older than TTL and returns how many it deleted.
func (s *Sweeper) Sweep(now time.Time) int {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		s.Log.Error().Err(err).Str("dir", s.Dir).Msg("read upload dir")
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= s.TTL {
			continue
		}

		path := filepath.Join(s.Dir, entry.Name())
		if err := os.Remove(path); err != nil {
			s.Log.Warn().Err(err).Str("path", path).Msg("remove orphaned upload")
			continue
		}
		removed++
	}

	if removed > 0 {
		s.Log.Info().Int("removed", removed).Msg("swept orphaned uploads")
	}
	return removed
}
