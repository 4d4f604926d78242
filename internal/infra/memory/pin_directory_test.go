package memory

import (
	"context"
	"testing"
)

func TestPinDirectoryLifecycle(t *testing.T) {
	ctx := context.Background()
	dir := NewPinDirectory()

	if _, ok := dir.Lookup(ctx, "quiz-1"); ok {
		t.Fatalf("expected no pin before assignment")
	}
	dir.Assign(ctx, "quiz-1", "123456")
	dir.MarkLive(ctx, "123456")

	pin, ok := dir.Lookup(ctx, "quiz-1")
	if !ok || pin != "123456" {
		t.Fatalf("expected pin 123456, got %q (%v)", pin, ok)
	}
	if !dir.IsLive(ctx, "123456") {
		t.Fatalf("expected pin to be live")
	}

	dir.Release(ctx, "123456")
	if dir.IsLive(ctx, "123456") {
		t.Fatalf("expected pin released")
	}
	if pin, _ := dir.Lookup(ctx, "quiz-1"); pin != "123456" {
		t.Fatalf("expected quiz mapping to survive release, got %q", pin)
	}
}
