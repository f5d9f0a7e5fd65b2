package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"timetable-parser/internal/ocr"
	"timetable-parser/internal/storage"
)

// Error messages returned to clients.
const (
	ErrNoImagePart     = "No image file part"
	ErrNoFileSelected  = "No file selected"
	ErrInvalidFileType = "Invalid file type"
	ErrFileTooLarge    = "File too large"
	ErrProcessing      = "Failed to process image"
)

const imageField = "image"

// TimetableService defines the behavior consumed by the handler.
type TimetableService interface {
	Process(ctx context.Context, file io.Reader, filename string) (ocr.Timetable, error)
}

// Config holds the upload limits enforced by the handler.
type Config struct {
	MaxBodyBytes      int64
	AllowedExtensions map[string]struct{}
}

// TimetableHandler manages timetable upload HTTP interactions.
type TimetableHandler struct {
	service TimetableService
	cfg     Config
	log     zerolog.Logger
}

// NewTimetableHandler builds the handler.
func NewTimetableHandler(svc TimetableService, cfg Config, log zerolog.Logger) *TimetableHandler {
	return &TimetableHandler{service: svc, cfg: cfg, log: log}
}

// HandleParse validates the uploaded image and returns the parsed timetable.
func (h *TimetableHandler) HandleParse(c *gin.Context) {
	if c.Request.ContentLength > h.cfg.MaxBodyBytes {
		abortError(c, http.StatusRequestEntityTooLarge, ErrFileTooLarge)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxBodyBytes)

	up, err := readImagePart(c.Request)
	if err != nil {
		if isTooLarge(err) {
			abortError(c, http.StatusRequestEntityTooLarge, ErrFileTooLarge)
			return
		}
		// Anything that is not a readable multipart body has no image part.
		abortError(c, http.StatusBadRequest, ErrNoImagePart)
		return
	}
	if up == nil {
		abortError(c, http.StatusBadRequest, ErrNoImagePart)
		return
	}
	if up.filename == "" {
		abortError(c, http.StatusBadRequest, ErrNoFileSelected)
		return
	}
	if !storage.HasAllowedExtension(up.filename, h.cfg.AllowedExtensions) {
		abortError(c, http.StatusBadRequest, ErrInvalidFileType)
		return
	}

	tt, err := h.service.Process(c.Request.Context(), bytes.NewReader(up.data), up.filename)
	if err != nil {
		h.log.Error().Err(err).Str("filename", up.filename).Msg("parse timetable")
		abortError(c, http.StatusInternalServerError, ErrProcessing)
		return
	}

	c.JSON(http.StatusOK, tt)
}

type upload struct {
	filename string
	data     []byte
}

// readImagePart consumes the whole multipart body and returns the first file
// part named "image", or nil when there is none. A part is a file part only
// when its Content-Disposition carries a filename parameter, even an empty one.
func readImagePart(r *http.Request) (*upload, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}

	var up *upload
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return up, nil
		}
		if err != nil {
			return nil, err
		}

		filename, isFile := fileName(part)
		if up == nil && isFile && part.FormName() == imageField {
			var buf bytes.Buffer
			if _, err := io.Copy(&buf, part); err != nil {
				part.Close()
				return nil, err
			}
			up = &upload{filename: filename, data: buf.Bytes()}
		} else if _, err := io.Copy(io.Discard, part); err != nil {
			part.Close()
			return nil, err
		}
		part.Close()
	}
}

func fileName(part *multipart.Part) (string, bool) {
	_, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
	if err != nil {
		return "", false
	}
	name, ok := params["filename"]
	return name, ok
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func abortError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
