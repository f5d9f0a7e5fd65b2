package service

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"timetable-parser/internal/history"
	"timetable-parser/internal/ocr"
)

// Storage persists an upload and hands back a cleanup func.
type Storage interface {
	Save(r io.Reader, filename string) (string, func(), error)
}

// Recorder keeps a log of completed parses.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) (history.Entry, error)
}

// TimetableService orchestrates store -> OCR -> record.
type TimetableService struct {
	storage  Storage
	engine   ocr.Engine
	recorder Recorder
	log      zerolog.Logger
}

// NewTimetableService creates TimetableService. recorder may be nil.
func NewTimetableService(storage Storage, engine ocr.Engine, recorder Recorder, log zerolog.Logger) *TimetableService {
	return &TimetableService{storage: storage, engine: engine, recorder: recorder, log: log}
}

// Process persists the upload, runs the engine and removes the stored file on
// every exit path.
func (s *TimetableService) Process(ctx context.Context, file io.Reader, filename string) (ocr.Timetable, error) {
	path, cleanup, err := s.storage.Save(file, filename)
	if err != nil {
		return ocr.Timetable{}, fmt.Errorf("persist upload (%s): %w", filename, err)
	}
	defer cleanup()

	tt, err := s.engine.Parse(ctx, path)
	if err != nil {
		return ocr.Timetable{}, fmt.Errorf("%s engine: %w", s.engine.Name(), err)
	}

	s.record(ctx, filename, tt)
	return tt, nil
}

func (s *TimetableService) record(ctx context.Context, filename string, tt ocr.Timetable) {
	if s.recorder == nil {
		return
	}
	items := len(tt.Lines)
	if tt.Rows != nil {
		items = len(tt.Rows)
	}
	_, err := s.recorder.Record(ctx, history.Entry{
		Filename: filename,
		Engine:   s.engine.Name(),
		Status:   tt.Status,
		Items:    items,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("filename", filename).Msg("record parse history")
	}
}
