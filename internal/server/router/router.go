package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"timetable-parser/internal/server/middleware"
)

// HealthMessage is the body served on GET /.
const HealthMessage = "✅ UniSync Timetable Parser is up and running!"

// TimetableHandler defines the interface for the upload handler.
type TimetableHandler interface {
	HandleParse(c *gin.Context)
}

// HistoryHandler defines the interface for the history handler.
type HistoryHandler interface {
	HandleHistory(c *gin.Context)
}

// New wires up handlers to the Gin engine.
func New(apiKey string, log zerolog.Logger, timetable TimetableHandler, history HistoryHandler) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(log), middleware.Recovery(log))

	// Health checks (no auth)
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, HealthMessage)
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	api := r.Group("/", middleware.WithAPIKey(apiKey))
	{
		api.POST("/parse-timetable", timetable.HandleParse)
		api.GET("/history", history.HandleHistory)
	}

	return r
}
