package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// LogRecord is one captured log record with its attributes flattened
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// recordStore is shared by a LogRecorder and every handler derived from it
type recordStore struct {
	mu      sync.Mutex
	records []LogRecord
}

// LogRecorder is a slog.Handler that keeps every record for assertions.
// Records are also echoed through t.Logf so they show up in failing tests.
type LogRecorder struct {
	store *recordStore
	attrs []slog.Attr
	t     *testing.T
}

// NewTestLogger returns a logger backed by a LogRecorder
func NewTestLogger(t *testing.T) (*slog.Logger, *LogRecorder) {
	recorder := &LogRecorder{store: &recordStore{}, t: t}
	return slog.New(recorder), recorder
}

// Enabled captures all levels
func (h *LogRecorder) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle stores r together with the attributes of derived loggers
func (h *LogRecorder) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	h.store.mu.Lock()
	h.store.records = append(h.store.records, LogRecord{Level: r.Level, Message: r.Message, Attrs: attrs})
	h.store.mu.Unlock()

	if h.t != nil {
		h.t.Logf("[%s] %s %v", r.Level, r.Message, attrs)
	}
	return nil
}

// WithAttrs returns a handler writing to the same store
func (h *LogRecorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &LogRecorder{store: h.store, attrs: merged, t: h.t}
}

// WithGroup flattens groups
func (h *LogRecorder) WithGroup(string) slog.Handler {
	return h
}

// Records returns a copy of the captured records
func (h *LogRecorder) Records() []LogRecord {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return append([]LogRecord(nil), h.store.records...)
}

// RecordsAt returns the captured records of one level
func (h *LogRecorder) RecordsAt(level slog.Level) []LogRecord {
	var out []LogRecord
	for _, r := range h.Records() {
		if r.Level == level {
			out = append(out, r)
		}
	}
	return out
}

// AssertLogContains fails t unless a record at level contains message
func AssertLogContains(t *testing.T, logs *LogRecorder, level slog.Level, message string) {
	t.Helper()

	records := logs.RecordsAt(level)
	for _, r := range records {
		if strings.Contains(r.Message, message) {
			return
		}
	}
	t.Errorf("no %s record contains %q; got %d records at that level", level, message, len(records))
}

// AssertLogAttr fails t unless some record carries key=value
func AssertLogAttr(t *testing.T, logs *LogRecorder, key string, value any) {
	t.Helper()

	for _, r := range logs.Records() {
		if got, ok := r.Attrs[key]; ok && got == value {
			return
		}
	}
	t.Errorf("no record carries %s=%v", key, value)
}

// AssertNoErrors fails t for every error-level record
func AssertNoErrors(t *testing.T, logs *LogRecorder) {
	t.Helper()

	for _, r := range logs.RecordsAt(slog.LevelError) {
		t.Errorf("unexpected error log: %s %v", r.Message, r.Attrs)
	}
}
