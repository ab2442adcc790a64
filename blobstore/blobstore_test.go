package blobstore_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/mlevan/docqa/blobstore"
)

func TestLocalStorePutAndDelete(t *testing.T) {
	ctx := context.Background()
	store, err := blobstore.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fileID := uuid.New()
	url, err := store.Put(ctx, fileID, "report.pdf", []byte("%PDF-fake"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(url, "file://") {
		t.Fatalf("expected file:// URL, got %q", url)
	}

	path := strings.TrimPrefix(url, "file://")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("blob not written: %v", err)
	}

	if err := store.Delete(ctx, fileID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("blob still present after delete")
	}
}

func TestLocalStoreDeleteUnknownBlob(t *testing.T) {
	store, err := blobstore.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Delete(context.Background(), uuid.New()); err != nil {
		t.Fatalf("deleting an unknown blob must not fail: %v", err)
	}
}
