// Package diag carries recoverable diagnostics out of the conversion core.
//
// Library code never prints. Anything worth telling the user about, but not worth
// aborting generation for, is reported to a Sink; the CLI wires a Sink backed by
// slog, tests use a Recorder.
package diag

import (
	"context"
	"log/slog"
	"sync"
)

// Code identifies a diagnostic category.
type Code string

const (
	// CodeInvalidConfigurationValue marks a value the target toolchain cannot
	// express. The value is dropped and generation continues.
	CodeInvalidConfigurationValue Code = "INVALID_CONFIGURATION_VALUE"
)

// Diagnostic is a single recoverable finding.
type Diagnostic struct {
	Code    Code              `json:"code"`
	Message string            `json:"message"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

// Sink receives warnings emitted during conversion and rendering.
type Sink interface {
	Warn(d Diagnostic)
}

// Discard drops every diagnostic.
var Discard Sink = discard{}

type discard struct{}

func (discard) Warn(Diagnostic) {}

// LogSink forwards diagnostics to a structured logger at warn level.
type LogSink struct {
	Logger *slog.Logger
}

// NewLogSink returns a LogSink; a nil logger means slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{Logger: logger}
}

// Warn implements Sink.
func (s *LogSink) Warn(d Diagnostic) {
	attrs := make([]slog.Attr, 0, len(d.Attrs)+1)
	attrs = append(attrs, slog.String("code", string(d.Code)))
	for k, v := range d.Attrs {
		attrs = append(attrs, slog.String(k, v))
	}
	s.Logger.LogAttrs(context.Background(), slog.LevelWarn, d.Message, attrs...)
}

// Recorder collects diagnostics in order and optionally forwards them.
//
// Thread-safety: all methods are safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	items []Diagnostic
	next  Sink
}

// NewRecorder returns a Recorder forwarding to next (may be nil).
func NewRecorder(next Sink) *Recorder {
	return &Recorder{next: next}
}

// Warn implements Sink.
func (r *Recorder) Warn(d Diagnostic) {
	r.mu.Lock()
	r.items = append(r.items, d)
	r.mu.Unlock()
	if r.next != nil {
		r.next.Warn(d)
	}
}

// Diagnostics returns a copy of everything recorded so far.
func (r *Recorder) Diagnostics() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Diagnostic, len(r.items))
	copy(out, r.items)
	return out
}

// Len returns the number of recorded diagnostics.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
}
