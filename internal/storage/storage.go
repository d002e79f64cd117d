// Package storage keeps chat attachments in object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"sync"
	"time"

	"botpos-chat-backend/internal/model"

	"github.com/google/uuid"
)

const MaxAttachmentSize = 20 << 20

// signedURLTTL is how long a download link stays valid. Messages keep the
// object key and links are signed again on every read.
const signedURLTTL = 7 * 24 * time.Hour

var (
	ErrTooLarge = errors.New("attachment exceeds size limit")
	ErrNotFound = errors.New("attachment not found")
)

// AttachmentStore persists an uploaded file and describes it for a message.
type AttachmentStore interface {
	Put(ctx context.Context, name, contentType string, body io.Reader, size int64) (model.Attachment, error)
	SignedURL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// ObjectKey builds a collision-free key that keeps the original extension.
func ObjectKey(now time.Time, name string) string {
	ext := strings.ToLower(path.Ext(name))
	return fmt.Sprintf("attachments/%s/%s%s", now.UTC().Format("2006/01/02"), uuid.NewString(), ext)
}

// ContentType prefers the declared type and falls back to the extension.
func ContentType(declared, name string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func checkSize(size int64) error {
	if size > MaxAttachmentSize {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, size)
	}
	return nil
}

// MemoryStore keeps attachments in process memory for local runs.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte), now: time.Now}
}

func (m *MemoryStore) Put(ctx context.Context, name, contentType string, body io.Reader, size int64) (model.Attachment, error) {
	if err := checkSize(size); err != nil {
		return model.Attachment{}, err
	}
	data, err := io.ReadAll(io.LimitReader(body, MaxAttachmentSize+1))
	if err != nil {
		return model.Attachment{}, fmt.Errorf("read attachment: %w", err)
	}
	if err := checkSize(int64(len(data))); err != nil {
		return model.Attachment{}, err
	}

	key := ObjectKey(m.now(), name)
	m.mu.Lock()
	m.objects[key] = data
	m.mu.Unlock()

	url, err := m.SignedURL(ctx, key)
	if err != nil {
		return model.Attachment{}, err
	}
	return model.Attachment{
		URL:      url,
		MimeType: ContentType(contentType, name),
		Name:     path.Base(name),
		Size:     int64(len(data)),
		Key:      key,
	}, nil
}

// Len reports how many objects are stored.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

func (m *MemoryStore) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	return data, ok
}

// SignedURL mimics a presigned link: the expiry is part of the URL.
func (m *MemoryStore) SignedURL(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	_, ok := m.objects[key]
	m.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return fmt.Sprintf("memory://%s?expires=%d", key, m.now().Add(signedURLTTL).Unix()), nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}
