package testutil

import (
	"context"
	"image"
	"sync"

	"github.com/itsChris/qrgen/internal/history"
)

// MockCall records a method invocation with its arguments.
type MockCall struct {
	Method string
	Args   []any
}

// MockEncoder implements qr.Encoder for testing.
type MockEncoder struct {
	mu    sync.Mutex
	Calls []MockCall

	EncodeFn func(content string) (image.Image, error)
}

func (m *MockEncoder) Encode(content string) (image.Image, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "Encode", Args: []any{content}})
	m.mu.Unlock()
	if m.EncodeFn != nil {
		return m.EncodeFn(content)
	}
	return image.NewGray(image.Rect(0, 0, 29, 29)), nil
}

// CallCount returns the number of recorded calls to method.
func (m *MockEncoder) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// MockRecorder implements generator.Recorder for testing.
type MockRecorder struct {
	mu      sync.Mutex
	Entries []history.Entry

	RecordFn func(ctx context.Context, e *history.Entry) (int64, error)
}

func (m *MockRecorder) Record(ctx context.Context, e *history.Entry) (int64, error) {
	m.mu.Lock()
	m.Entries = append(m.Entries, *e)
	n := int64(len(m.Entries))
	m.mu.Unlock()
	if m.RecordFn != nil {
		return m.RecordFn(ctx, e)
	}
	return n, nil
}
