package crptapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
)

// MockLimiter is a mock implementation of ratelimiter.Limiter.
type MockLimiter struct {
	AdmitFunc func(ctx context.Context) error
	CloseFunc func() error

	admits atomic.Int64
}

func (m *MockLimiter) Admit(ctx context.Context) error {
	m.admits.Add(1)
	if m.AdmitFunc != nil {
		return m.AdmitFunc(ctx)
	}
	return nil
}

func (m *MockLimiter) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// roundTripFunc lets a test stand in for the network.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
