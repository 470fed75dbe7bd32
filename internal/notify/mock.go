package notify

import "context"

// MockSink records notifications for test assertions.
type MockSink struct {
	Errors []string
	Infos  []string
}

// NewMockSink creates a recording sink.
func NewMockSink() *MockSink {
	return &MockSink{}
}

func (s *MockSink) Error(_ context.Context, message string) {
	s.Errors = append(s.Errors, message)
}

func (s *MockSink) Info(_ context.Context, message string) {
	s.Infos = append(s.Infos, message)
}
