package auth

import (
	"context"
	"strings"
	"sync"

	"botpos-chat-backend/internal/model"
)

type MemoryRepository struct {
	mu     sync.Mutex
	admins map[string]model.AdminItem
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{admins: make(map[string]model.AdminItem)}
}

func (m *MemoryRepository) CreateAdmin(ctx context.Context, admin model.AdminItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.admins {
		if strings.EqualFold(a.Email, admin.Email) {
			return ErrExists
		}
	}
	if _, ok := m.admins[admin.AdminID]; ok {
		return ErrExists
	}
	m.admins[admin.AdminID] = admin
	return nil
}

func (m *MemoryRepository) GetAdmin(ctx context.Context, adminID string) (model.AdminItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.admins[adminID]
	if !ok {
		return model.AdminItem{}, ErrNotFound
	}
	return a, nil
}

func (m *MemoryRepository) FindAdminByEmail(ctx context.Context, email string) (model.AdminItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.admins {
		if strings.EqualFold(a.Email, email) {
			return a, nil
		}
	}
	return model.AdminItem{}, ErrNotFound
}
