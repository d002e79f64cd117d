package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestContentTypeFallsBackToExtension(t *testing.T) {
	if got := ContentType("", "receipt.png"); got != "image/png" {
		t.Fatalf("expected image/png, got %q", got)
	}
	if got := ContentType("application/octet-stream", "photo.jpg"); got != "image/jpeg" {
		t.Fatalf("expected image/jpeg, got %q", got)
	}
	if got := ContentType("application/pdf", "x.bin"); got != "application/pdf" {
		t.Fatalf("declared type should win, got %q", got)
	}
	if got := ContentType("", "noext"); got != "application/octet-stream" {
		t.Fatalf("expected octet-stream, got %q", got)
	}
}

func TestObjectKeyKeepsExtension(t *testing.T) {
	now := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	key := ObjectKey(now, "Invoice.PDF")
	if !strings.HasPrefix(key, "attachments/2024/05/02/") || !strings.HasSuffix(key, ".pdf") {
		t.Fatalf("unexpected key %q", key)
	}
}

func TestMemoryStorePut(t *testing.T) {
	store := NewMemoryStore()
	att, err := store.Put(context.Background(), "menu.txt", "", bytes.NewBufferString("tea 500"), 7)
	if err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if att.MimeType != "text/plain; charset=utf-8" || att.Size != 7 || att.Name != "menu.txt" {
		t.Fatalf("unexpected attachment: %#v", att)
	}
	data, ok := store.Get(att.Key)
	if !ok || string(data) != "tea 500" {
		t.Fatalf("stored data mismatch: %q", data)
	}
}

func TestMemoryStoreRejectsLargeFiles(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Put(context.Background(), "big.bin", "", bytes.NewReader(nil), MaxAttachmentSize+1)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestMemoryStoreSignsFreshURLs(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	att, err := store.Put(ctx, "receipt.png", "", bytes.NewBufferString("png"), 3)
	if err != nil {
		t.Fatalf("Put error: %v", err)
	}
	want := fmt.Sprintf("memory://%s?expires=%d", att.Key, now.Add(signedURLTTL).Unix())
	if att.URL != want {
		t.Fatalf("expected %q, got %q", want, att.URL)
	}

	now = now.Add(30 * 24 * time.Hour)
	url, err := store.SignedURL(ctx, att.Key)
	if err != nil {
		t.Fatalf("SignedURL error: %v", err)
	}
	if url == att.URL || !strings.HasSuffix(url, fmt.Sprintf("expires=%d", now.Add(signedURLTTL).Unix())) {
		t.Fatalf("expected a link valid from the new time, got %q", url)
	}

	if err := store.Delete(ctx, att.Key); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := store.SignedURL(ctx, att.Key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
