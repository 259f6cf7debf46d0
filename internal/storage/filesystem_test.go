package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreWrite(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(filepath.Join(dir, "out"))
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}

	path, err := store.Write(context.Background(), "batch/sketch.colorized.png", []byte("png"))
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if want := filepath.Join(dir, "out", "batch", "sketch.colorized.png"); path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
	got, err := os.ReadFile(path)
	if err != nil || string(got) != "png" {
		t.Fatalf("read back %q, %v", got, err)
	}
}

func TestFileStoreRejectsBadInput(t *testing.T) {
	store, _ := NewFileStore(t.TempDir())
	for _, key := range []string{"", "..", "../escape.png", "a/../../escape.png"} {
		if _, err := store.Write(context.Background(), key, []byte("x")); err == nil {
			t.Errorf("key %q accepted", key)
		}
	}
	if _, err := store.Write(context.Background(), "empty.png", nil); err == nil {
		t.Error("empty data accepted")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Write(ctx, "late.png", []byte("x")); err == nil {
		t.Error("canceled context accepted")
	}
	if _, err := NewFileStore("  "); err == nil {
		t.Error("blank base path accepted")
	}
}

func TestResultKey(t *testing.T) {
	tests := []struct{ source, mime, want string }{
		{"sketch.png", "image/png", "sketch.colorized.png"},
		{"/tmp/dir.v2/sketch", "image/jpeg", "sketch.colorized.jpg"},
		{"a/b/line.art.jpeg", "image/webp", "line.art.colorized.webp"},
	}
	for _, tc := range tests {
		if got := ResultKey(tc.source, tc.mime); got != tc.want {
			t.Errorf("ResultKey(%q, %q) = %q, want %q", tc.source, tc.mime, got, tc.want)
		}
	}
}
