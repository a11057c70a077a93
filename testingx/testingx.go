// Package testingx provides testing utilities for the partner client packages.
//
// Overview:
//   - Responsibility: Testing helpers, mocks, throwaway PKI and mTLS fixtures
//   - Key Types: MockLogger, PKI
//   - Concurrency Model: MockLogger is safe for concurrent use
//   - Error Semantics: Test failures via testing.T
//   - Performance Notes: Keys are ECDSA P-256 so fixture generation stays fast
//
// Usage:
//
//	logger := testingx.NewMockLogger(t)
//	pki := testingx.NewPKI(t)
//	srv := testingx.NewMTLSServer(t, pki, handler)
package testingx

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"go.eggybyte.com/evss/core/errors"
	"go.eggybyte.com/evss/core/identity"
	"go.eggybyte.com/evss/core/log"
)

// MockLogger is a mock logger for testing.
// Loggers derived through With share the parent's entry store.
type MockLogger struct {
	t      testing.TB
	store  *entryStore
	fields []any
}

type entryStore struct {
	mu      sync.Mutex
	entries []LogEntry
}

// LogEntry represents a single log entry.
type LogEntry struct {
	Level   string
	Message string
	Fields  []any // flattened key/value pairs, bound fields first
	Error   error
}

// Field returns the value logged under key.
func (e LogEntry) Field(key string) (any, bool) {
	for i := 0; i+1 < len(e.Fields); i += 2 {
		if fmt.Sprint(e.Fields[i]) == key {
			return e.Fields[i+1], true
		}
	}
	return nil, false
}

// NewMockLogger creates a new mock logger.
func NewMockLogger(t testing.TB) *MockLogger {
	return &MockLogger{t: t, store: &entryStore{}}
}

// With returns a logger that adds kv to every entry.
func (m *MockLogger) With(kv ...any) log.Logger {
	fields := append(append([]any{}, m.fields...), flatten(kv)...)
	return &MockLogger{t: m.t, store: m.store, fields: fields}
}

// Debug logs a debug message.
func (m *MockLogger) Debug(msg string, kv ...any) {
	m.log("DEBUG", msg, nil, kv)
}

// Info logs an info message.
func (m *MockLogger) Info(msg string, kv ...any) {
	m.log("INFO", msg, nil, kv)
}

// Warn logs a warning message.
func (m *MockLogger) Warn(msg string, kv ...any) {
	m.log("WARN", msg, nil, kv)
}

// Error logs an error message.
func (m *MockLogger) Error(err error, msg string, kv ...any) {
	m.log("ERROR", msg, err, kv)
}

func (m *MockLogger) log(level, msg string, err error, kv []any) {
	fields := append(append([]any{}, m.fields...), flatten(kv)...)
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.entries = append(m.store.entries, LogEntry{
		Level:   level,
		Message: msg,
		Fields:  fields,
		Error:   err,
	})
}

// flatten expands the two-element pairs built by the core/log helpers.
func flatten(kv []any) []any {
	out := make([]any, 0, len(kv))
	for _, item := range kv {
		if pair, ok := item.([]any); ok && len(pair) == 2 {
			out = append(out, pair[0], pair[1])
			continue
		}
		out = append(out, item)
	}
	return out
}

// Entries returns all log entries.
func (m *MockLogger) Entries() []LogEntry {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	entries := make([]LogEntry, len(m.store.entries))
	copy(entries, m.store.entries)
	return entries
}

// Find returns the first entry with the given level and message.
func (m *MockLogger) Find(level, msg string) (LogEntry, bool) {
	for _, entry := range m.Entries() {
		if entry.Level == level && entry.Message == msg {
			return entry, true
		}
	}
	return LogEntry{}, false
}

// AssertLogged asserts that a message was logged.
func (m *MockLogger) AssertLogged(level, msg string) {
	m.t.Helper()
	if _, ok := m.Find(level, msg); !ok {
		m.t.Errorf("Expected log message not found: level=%s msg=%q", level, msg)
	}
}

// Clear clears all log entries.
func (m *MockLogger) Clear() {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.entries = nil
}

// NewContextWithMeta creates a context with request metadata for testing.
func NewContextWithMeta(t testing.TB, meta *identity.RequestMeta) context.Context {
	t.Helper()
	ctx := context.Background()
	if meta != nil {
		ctx = identity.WithMeta(ctx, meta)
	}
	return ctx
}

// AssertCode asserts that an error has the expected code.
func AssertCode(t testing.TB, err error, expectedCode errors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected error with code %s, got nil", expectedCode)
	}

	if code := errors.CodeOf(err); code != expectedCode {
		t.Errorf("Expected error code %s, got %s (%v)", expectedCode, code, err)
	}
}

// AssertNoError asserts that no error occurred.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}
