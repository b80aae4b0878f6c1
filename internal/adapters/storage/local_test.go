package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/playnatela/volante-express/internal/domain"
)

func TestLocalEvidenceStorePutAndDelete(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalEvidenceStore(root, "https://cdn.example.com/evidence/", 1024)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	url, err := store.Put(context.Background(), "appointments/a1/after.jpg", "image/jpeg", strings.NewReader("jpeg-bytes"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if url != "https://cdn.example.com/evidence/appointments/a1/after.jpg" {
		t.Fatalf("unexpected url: %s", url)
	}
	raw, err := os.ReadFile(filepath.Join(root, "appointments", "a1", "after.jpg"))
	if err != nil || string(raw) != "jpeg-bytes" {
		t.Fatalf("expected stored bytes, got %q err=%v", raw, err)
	}

	if err := store.Delete(context.Background(), "appointments/a1/after.jpg"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(context.Background(), "appointments/a1/after.jpg"); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
}

func TestLocalEvidenceStoreRejectsEscapesAndOversize(t *testing.T) {
	store, err := NewLocalEvidenceStore(t.TempDir(), "/evidence", 4)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := store.Put(context.Background(), "../outside.jpg", "image/jpeg", strings.NewReader("x")); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected traversal rejection, got %v", err)
	}
	if _, err := store.Put(context.Background(), "big.jpg", "image/jpeg", strings.NewReader("too large")); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected size rejection, got %v", err)
	}
}
