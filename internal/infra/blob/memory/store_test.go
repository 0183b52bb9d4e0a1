package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"roomtrack/internal/blob/core"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	store := New()
	ctx := context.Background()
	md := map[string]string{"items": "8"}
	info, err := store.Put(ctx, "exports/1.json", strings.NewReader("{}"), core.PutOptions{ContentType: "application/json", Metadata: md})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	md["items"] = "mutated"
	if info.Size != 2 || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := store.Put(ctx, "exports/1.json", strings.NewReader("{}"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	head, err := store.Head(ctx, "exports/1.json")
	if err != nil || head.Metadata["items"] != "8" {
		t.Fatalf("expected stored metadata isolated, got %+v (%v)", head, err)
	}
	_, rc, err := store.Get(ctx, "exports/1.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	if string(body) != "{}" {
		t.Fatalf("unexpected body %q", body)
	}
	_, _ = store.Put(ctx, "exports/0.json", strings.NewReader("{}"), core.PutOptions{})
	infos, _ := store.List(ctx, "exports/")
	if len(infos) != 2 || infos[0].Key != "exports/0.json" {
		t.Fatalf("unexpected listing %+v", infos)
	}
	if ok, _ := store.Delete(ctx, "exports/0.json"); !ok {
		t.Fatalf("expected delete to report existing key")
	}
	if ok, _ := store.Delete(ctx, "exports/0.json"); ok {
		t.Fatalf("expected second delete to report missing key")
	}
}

func TestMemoryStoreMissingAndUnsupported(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Head(ctx, "x"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := store.Get(ctx, "x"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.PresignURL(ctx, "x", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if _, err := store.Put(ctx, "", strings.NewReader(""), core.PutOptions{}); err == nil {
		t.Fatalf("expected empty key rejected")
	}
	if store.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
}
