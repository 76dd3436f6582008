package local

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestSaveOpenDelete(t *testing.T) {
	ctx := context.Background()
	store := New(t.TempDir())

	key, size, err := store.Save(ctx, "statement.pdf", strings.NewReader("document body"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if size != int64(len("document body")) {
		t.Errorf("size: got %d", size)
	}
	if !strings.HasSuffix(key, "_statement.pdf") {
		t.Errorf("key: got %q", key)
	}

	body, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, err := io.ReadAll(body)
	_ = body.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "document body" {
		t.Errorf("contents: got %q", data)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Open(ctx, key); err == nil {
		t.Fatal("open after delete should fail")
	}
	// Idempotent.
	if err := store.Delete(ctx, key); err != nil {
		t.Errorf("repeat delete: %v", err)
	}
}

func TestSaveDistinctKeysForSameName(t *testing.T) {
	ctx := context.Background()
	store := New(t.TempDir())

	key1, _, err := store.Save(ctx, "statement.pdf", strings.NewReader("first"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	key2, _, err := store.Save(ctx, "statement.pdf", strings.NewReader("second"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if key1 == key2 {
		t.Fatalf("identical keys for concurrent name reuse: %q", key1)
	}
}

func TestSaveRejectsTraversal(t *testing.T) {
	store := New(t.TempDir())
	if _, _, err := store.Save(context.Background(), "../escape.txt", strings.NewReader("x")); err == nil {
		t.Fatal("expected traversal rejection")
	}
}

func TestOpenRejectsTraversalKey(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.Open(context.Background(), "../../etc/passwd"); err == nil {
		t.Fatal("expected traversal rejection")
	}
}

func TestSaveSanitizesSeparators(t *testing.T) {
	ctx := context.Background()
	store := New(t.TempDir())

	key, _, err := store.Save(ctx, "reports/q4.txt", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if strings.Contains(key, "/") {
		t.Errorf("key contains separator: %q", key)
	}
}
