package ocr

import "context"

// MockEngine returns a fixed timetable without reading the image. It stands
// in for a real engine during development.
type MockEngine struct{}

// NewMockEngine returns the stub engine.
func NewMockEngine() *MockEngine { return &MockEngine{} }

func (*MockEngine) Name() string { return "mock" }

// Parse ignores imagePath.
func (*MockEngine) Parse(ctx context.Context, imagePath string) (Timetable, error) {
	return Timetable{
		Rows: []Row{
			{Time: "9:00", Subject: "Math", Teacher: "Dr. Sinha"},
			{Time: "10:00", Subject: "Physics", Teacher: "Prof. Iyer"},
			{Time: "11:00", Subject: "CS", Teacher: "Mr. Adil 😎"},
		},
		Status: StatusSuccess,
	}, nil
}
