package services_test

import (
	"context"
	"testing"

	"longbox/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithSessionID(ctx, "sess-1")
	ctx = services.WithFileID(ctx, "file-9")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.SessionIDFromContext(ctx); !ok || id != "sess-1" {
		t.Fatalf("unexpected session id: %v %v", id, ok)
	}
	if id, ok := services.FileIDFromContext(ctx); !ok || id != "file-9" {
		t.Fatalf("unexpected file id: %v %v", id, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithSessionID(ctx, "")
	ctx = services.WithFileID(ctx, "")
	if _, ok := services.SessionIDFromContext(ctx); ok {
		t.Fatal("expected no session value")
	}
	if _, ok := services.FileIDFromContext(ctx); ok {
		t.Fatal("expected no file value")
	}
}
