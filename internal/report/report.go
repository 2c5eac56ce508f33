// Package report routes invariant violations to a diagnostics sink.
// Violations are logic bugs rather than runtime races; they must reach
// developers instead of being swallowed with the recoverable errors.
package report

import (
	"log/slog"
	"sync"
)

// Sink receives invariant violations.
type Sink interface {
	Broken(err error)
}

// LogSink reports violations through a structured logger at error level
// and keeps a count for tests and health reporting.
type LogSink struct {
	logger *slog.Logger

	mu    sync.Mutex
	count int
}

// NewLogSink returns a sink writing to logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Broken implements Sink.
func (s *LogSink) Broken(err error) {
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
	s.logger.Error("cache invariant violated", "error", err)
}

// Count returns the number of violations reported so far.
func (s *LogSink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
