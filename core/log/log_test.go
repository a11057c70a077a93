package log

import (
	"errors"
	"testing"
	"time"
)

func TestPairs(t *testing.T) {
	tests := []struct {
		name string
		kv   any
		key  string
		val  any
	}{
		{"Str", Str("operation", "get_forms"), "operation", "get_forms"},
		{"Int", Int("status", 200), "status", 200},
		{"Dur", Dur("duration", 5*time.Second), "duration", 5 * time.Second},
		{"Bool", Bool("timeout", true), "timeout", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slice, ok := tt.kv.([]any)
			if !ok {
				t.Fatalf("%s should return []any", tt.name)
			}
			if len(slice) != 2 {
				t.Fatalf("%s should return slice with 2 elements, got %d", tt.name, len(slice))
			}
			if slice[0] != tt.key || slice[1] != tt.val {
				t.Fatalf("%s should return [%q, %v], got %v", tt.name, tt.key, tt.val, slice)
			}
		})
	}
}

func TestNop(t *testing.T) {
	logger := Nop()
	if logger == nil {
		t.Fatal("Nop should return non-nil logger")
	}

	// Must not panic and must keep returning a usable logger.
	child := logger.With("service", "MHVCF")
	child.Debug("debug")
	child.Info("info", Str("k", "v"))
	child.Warn("warn")
	child.Error(errors.New("boom"), "error")

	if child == nil {
		t.Fatal("With should return non-nil logger")
	}
}
