package identity

import (
	"context"
	"testing"
)

func TestWithMeta(t *testing.T) {
	ctx := WithMeta(context.Background(), &RequestMeta{RequestID: "req-123", Origin: "forms-api"})

	meta, ok := MetaFrom(ctx)
	if !ok {
		t.Fatal("Meta should be found in context")
	}
	if meta.RequestID != "req-123" {
		t.Errorf("Expected RequestID %q, got %q", "req-123", meta.RequestID)
	}
	if meta.Origin != "forms-api" {
		t.Errorf("Expected Origin %q, got %q", "forms-api", meta.Origin)
	}
}

func TestMetaFromEmpty(t *testing.T) {
	if _, ok := MetaFrom(context.Background()); ok {
		t.Error("Meta should not be found in empty context")
	}

	ctx := WithMeta(context.Background(), nil)
	if _, ok := MetaFrom(ctx); ok {
		t.Error("Nil meta should be reported as absent")
	}
}

func TestEnsureMeta(t *testing.T) {
	t.Run("keeps existing id", func(t *testing.T) {
		ctx := WithMeta(context.Background(), &RequestMeta{RequestID: "req-1"})
		got, meta := EnsureMeta(ctx)
		if got != ctx {
			t.Error("Context should be returned unchanged")
		}
		if meta.RequestID != "req-1" {
			t.Errorf("Expected RequestID %q, got %q", "req-1", meta.RequestID)
		}
	})

	t.Run("generates id", func(t *testing.T) {
		ctx, meta := EnsureMeta(context.Background())
		if meta.RequestID == "" {
			t.Fatal("RequestID should be generated")
		}
		stored, ok := MetaFrom(ctx)
		if !ok || stored.RequestID != meta.RequestID {
			t.Error("Generated meta should be stored in the returned context")
		}
	})

	t.Run("keeps origin when id missing", func(t *testing.T) {
		ctx := WithMeta(context.Background(), &RequestMeta{Origin: "worker"})
		_, meta := EnsureMeta(ctx)
		if meta.Origin != "worker" {
			t.Errorf("Expected Origin %q, got %q", "worker", meta.Origin)
		}
		if meta.RequestID == "" {
			t.Error("RequestID should be generated")
		}
	})

	t.Run("ids are unique", func(t *testing.T) {
		_, a := EnsureMeta(context.Background())
		_, b := EnsureMeta(context.Background())
		if a.RequestID == b.RequestID {
			t.Error("Generated ids should differ")
		}
	})
}
