package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"timetable-parser/internal/cache"
	"timetable-parser/internal/config"
	"timetable-parser/internal/history"
	"timetable-parser/internal/ocr"
	"timetable-parser/internal/server/handler"
	"timetable-parser/internal/server/router"
	"timetable-parser/internal/server/service"
	"timetable-parser/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// NewEngine builds the configured OCR engine, wrapped with the Redis cache
// when one is configured. The returned close func releases the cache.
func NewEngine(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ocr.Engine, func(), error) {
	var engine ocr.Engine
	switch cfg.OCR.Engine {
	case config.EnginePaddle:
		path, err := ocr.ResolveBinary(cfg.OCR.Binary)
		if err != nil {
			return nil, nil, fmt.Errorf("ocr binary not found (%s): %w", cfg.OCR.Binary, err)
		}
		proc := ocr.NewProcessor()
		proc.Binary = path
		proc.Args = cfg.OCR.Args
		proc.Options = ocr.Options{Language: cfg.OCR.Language, UseAngleCls: cfg.OCR.UseAngleCls}
		proc.Timeout = cfg.OCR.Timeout
		engine = proc
		log.Info().Str("binary", path).Str("lang", cfg.OCR.Language).Msg("using paddle ocr engine")
	default:
		engine = ocr.NewMockEngine()
		log.Info().Msg("using mock ocr engine")
	}

	if cfg.Cache.Addr == "" {
		return engine, func() {}, nil
	}
	rc, err := cache.NewRedisClient(ctx, cache.RedisConfig{
		Addr:     cfg.Cache.Addr,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
		Prefix:   cfg.Cache.Prefix,
	})
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("addr", cfg.Cache.Addr).Dur("ttl", cfg.Cache.TTL).Msg("ocr result cache enabled")
	return ocr.NewCachedEngine(engine, rc, cfg.Cache.TTL, log), func() { rc.Close() }, nil
}

// Handler assembles the full HTTP handler. The returned close func releases
// the engine cache and the history database.
func Handler(ctx context.Context, cfg *config.Config, log zerolog.Logger) (http.Handler, func(), error) {
	store, err := storage.New(cfg.Storage.UploadDir)
	if err != nil {
		return nil, nil, err
	}

	engine, closeEngine, err := NewEngine(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	var (
		recorder     service.Recorder
		historyStore handler.HistoryStore
		closeHistory = func() {}
	)
	if cfg.History.Path != "" {
		hs, err := history.Open(cfg.History.Path)
		if err != nil {
			closeEngine()
			return nil, nil, err
		}
		recorder, historyStore = hs, hs
		closeHistory = func() { hs.Close() }
		log.Info().Str("path", cfg.History.Path).Msg("parse history enabled")
	}

	svc := service.NewTimetableService(store, engine, recorder, log)
	timetableHandler := handler.NewTimetableHandler(svc, handler.Config{
		MaxBodyBytes:      cfg.Server.MaxBodyBytes,
		AllowedExtensions: cfg.Storage.AllowedSet(),
	}, log)
	historyHandler := handler.NewHistoryHandler(historyStore, log)

	r := router.New(cfg.Server.APIKey, log, timetableHandler, historyHandler)
	return r, func() {
		closeHistory()
		closeEngine()
	}, nil
}

// Run starts the HTTP server and blocks until ctx is cancelled or the server
// fails.
func Run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	gin.SetMode(cfg.Server.Mode)

	h, closeAll, err := Handler(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeAll()

	sweeper := &storage.Sweeper{
		Dir:      cfg.Storage.UploadDir,
		TTL:      cfg.Storage.OrphanTTL,
		Interval: cfg.Storage.SweepInterval,
		Log:      log,
	}
	go sweeper.Run(ctx)

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: h,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("mode", cfg.Server.Mode).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
