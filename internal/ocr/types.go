package ocr

import (
	"context"
	"encoding/json"
	"fmt"
)

// Result statuses.
const (
	StatusSuccess  = "success"
	StatusNotFound = "no timetable found"
)

// Engine turns a stored image into a timetable payload.
type Engine interface {
	Name() string
	Parse(ctx context.Context, imagePath string) (Timetable, error)
}

// Row is one structured timetable entry.
type Row struct {
	Time    string `json:"time"`
	Subject string `json:"subject"`
	Teacher string `json:"teacher"`
}

// Timetable is the body returned for a parsed image. Engines fill either Rows
// (structured) or Lines (raw OCR text), never both.
type Timetable struct {
	Rows   []Row    `json:"rows"`
	Lines  []string `json:"lines"`
	Status string   `json:"status"`
}

// MarshalJSON emits {rows, status} for structured results and
// {lines, status} otherwise. Lines is always an array, never null.
func (t Timetable) MarshalJSON() ([]byte, error) {
	if t.Rows != nil {
		return json.Marshal(struct {
			Rows   []Row  `json:"rows"`
			Status string `json:"status"`
		}{t.Rows, t.Status})
	}

	lines := t.Lines
	if lines == nil {
		lines = []string{}
	}
	return json.Marshal(struct {
		Lines  []string `json:"lines"`
		Status string   `json:"status"`
	}{lines, t.Status})
}

// Point is one corner of a detection box, in pixels.
type Point [2]float64

// Detection is a single recognized text region.
type Detection struct {
	Box        [4]Point
	Text       string
	Confidence float64
}

// UnmarshalJSON decodes the PaddleOCR tuple form
// [[[x,y],[x,y],[x,y],[x,y]], ["text", confidence]].
func (d *Detection) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("detection: %w", err)
	}
	if err := json.Unmarshal(raw[0], &d.Box); err != nil {
		return fmt.Errorf("detection box: %w", err)
	}

	var rec [2]json.RawMessage
	if err := json.Unmarshal(raw[1], &rec); err != nil {
		return fmt.Errorf("detection text: %w", err)
	}
	if err := json.Unmarshal(rec[0], &d.Text); err != nil {
		return fmt.Errorf("detection text: %w", err)
	}
	if err := json.Unmarshal(rec[1], &d.Confidence); err != nil {
		return fmt.Errorf("detection confidence: %w", err)
	}
	return nil
}

// Result is the raw engine output: line groups of detections. A null group
// (PaddleOCR emits one for a blank page) decodes to an empty group.
type Result [][]Detection

// Flatten returns the detected texts in emission order.
func (r Result) Flatten() []string {
	lines := []string{}
	for _, group := range r {
		for _, det := range group {
			lines = append(lines, det.Text)
		}
	}
	return lines
}

// Timetable wraps the flattened lines with a status.
func (r Result) Timetable() Timetable {
	lines := r.Flatten()
	status := StatusSuccess
	if len(lines) == 0 {
		status = StatusNotFound
	}
	return Timetable{Lines: lines, Status: status}
}
