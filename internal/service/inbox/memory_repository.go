package inbox

import (
	"context"
	"sync"

	"botpos-chat-backend/internal/model"
)

type MemoryRepository struct {
	mu        sync.Mutex
	templates map[string]model.TemplateItem
	notes     map[string]model.NoteItem
	customers map[string]struct{}
	// CustomerLookup, when set, answers CustomerExists instead of the
	// local set. Local runs point it at the chat repository.
	CustomerLookup func(ctx context.Context, customerID string) (bool, error)
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		templates: make(map[string]model.TemplateItem),
		notes:     make(map[string]model.NoteItem),
		customers: make(map[string]struct{}),
	}
}

// AddCustomer registers a customer id for CustomerExists.
func (m *MemoryRepository) AddCustomer(customerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[customerID] = struct{}{}
}

func (m *MemoryRepository) ListTemplates(ctx context.Context) ([]model.TemplateItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.TemplateItem, 0, len(m.templates))
	for _, t := range m.templates {
		out = append(out, t)
	}
	return out, nil
}

func (m *MemoryRepository) GetTemplate(ctx context.Context, templateID string) (model.TemplateItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[templateID]
	if !ok {
		return model.TemplateItem{}, ErrNotFound
	}
	return t, nil
}

func (m *MemoryRepository) PutTemplate(ctx context.Context, template model.TemplateItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[template.TemplateID] = template
	return nil
}

func (m *MemoryRepository) DeleteTemplate(ctx context.Context, templateID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.templates, templateID)
	return nil
}

func (m *MemoryRepository) IncrementTemplateUsage(ctx context.Context, templateID, at string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[templateID]
	if !ok {
		return ErrNotFound
	}
	t.UsageCount++
	t.UpdatedAt = at
	m.templates[templateID] = t
	return nil
}

func (m *MemoryRepository) CustomerExists(ctx context.Context, customerID string) (bool, error) {
	if m.CustomerLookup != nil {
		return m.CustomerLookup(ctx, customerID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.customers[customerID]
	return ok, nil
}

func (m *MemoryRepository) ListNotes(ctx context.Context, customerID string) ([]model.NoteItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.NoteItem
	for _, n := range m.notes {
		if n.CustomerID == customerID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *MemoryRepository) GetNote(ctx context.Context, noteID string) (model.NoteItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[noteID]
	if !ok {
		return model.NoteItem{}, ErrNotFound
	}
	return n, nil
}

func (m *MemoryRepository) PutNote(ctx context.Context, note model.NoteItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes[note.NoteID] = note
	return nil
}

func (m *MemoryRepository) DeleteNote(ctx context.Context, noteID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.notes, noteID)
	return nil
}
