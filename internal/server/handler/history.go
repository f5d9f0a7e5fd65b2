package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"timetable-parser/internal/history"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// HistoryStore lists recorded parses.
type HistoryStore interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// HistoryHandler serves the parse history.
type HistoryHandler struct {
	store HistoryStore
	log   zerolog.Logger
}

// NewHistoryHandler builds the handler. A nil store disables the endpoint.
func NewHistoryHandler(store HistoryStore, log zerolog.Logger) *HistoryHandler {
	return &HistoryHandler{store: store, log: log}
}

// HandleHistory returns the most recent parses, newest first.
func (h *HistoryHandler) HandleHistory(c *gin.Context) {
	if h.store == nil {
		abortError(c, http.StatusNotFound, "history disabled")
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			abortError(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	entries, err := h.store.Recent(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("list history")
		abortError(c, http.StatusInternalServerError, "failed to load history")
		return
	}
	c.JSON(http.StatusOK, entries)
}
