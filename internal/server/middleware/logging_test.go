package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	_, r := gin.CreateTestContext(httptest.NewRecorder())
	r.Use(RequestLogger(log))
	r.GET("/missing", func(c *gin.Context) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image file part"})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	out := buf.String()
	for _, want := range []string{`"level":"warn"`, `"path":"/missing"`, `"status":400`, `"method":"GET"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log line missing %s: %s", want, out)
		}
	}
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer

	_, r := gin.CreateTestContext(httptest.NewRecorder())
	r.Use(Recovery(zerolog.New(&buf)))
	r.POST("/parse-timetable", func(c *gin.Context) {
		panic("engine exploded")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/parse-timetable", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", w.Code)
	}
	if body := w.Body.String(); body != `{"error":"Internal server error"}` {
		t.Fatalf("unexpected body: %s", body)
	}
	if !strings.Contains(buf.String(), "engine exploded") {
		t.Fatalf("panic not logged: %s", buf.String())
	}
}
