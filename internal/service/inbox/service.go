// Package inbox holds the admin's canned replies and private customer notes.
package inbox

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"botpos-chat-backend/internal/apperror"
	"botpos-chat-backend/internal/database"
	"botpos-chat-backend/internal/logging"
	"botpos-chat-backend/internal/model"
	"botpos-chat-backend/internal/service/chat"

	"github.com/google/uuid"
)

// Messenger is the part of the chat service templates are sent through.
type Messenger interface {
	SendAdminMessage(ctx context.Context, p chat.SendParams) (chat.SendResult, error)
}

type Service struct {
	repo      Repository
	messenger Messenger
	logger    *slog.Logger
	now       func() time.Time
}

func New(db *database.Database, messenger Messenger, logger *slog.Logger) *Service {
	return NewWithRepository(NewDynamoRepository(db), messenger, logger, time.Now)
}

func NewWithRepository(repo Repository, messenger Messenger, logger *slog.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:      repo,
		messenger: messenger,
		logger:    logging.OrDefault(logger),
		now:       now,
	}
}

type CreateTemplateParams struct {
	Name     string
	Content  string
	Shortcut string
}

// ListTemplates returns the most used templates first.
func (s *Service) ListTemplates(ctx context.Context) ([]model.TemplateItem, error) {
	templates, err := s.repo.ListTemplates(ctx)
	if err != nil {
		return nil, apperror.Internal("failed to list templates", err)
	}
	sort.Slice(templates, func(i, j int) bool {
		if templates[i].UsageCount != templates[j].UsageCount {
			return templates[i].UsageCount > templates[j].UsageCount
		}
		return strings.ToLower(templates[i].Name) < strings.ToLower(templates[j].Name)
	})
	return templates, nil
}

func (s *Service) CreateTemplate(ctx context.Context, p CreateTemplateParams) (model.TemplateItem, error) {
	name := strings.TrimSpace(p.Name)
	content := strings.TrimSpace(p.Content)
	if name == "" || content == "" {
		return model.TemplateItem{}, apperror.Validation("template name and content are required")
	}
	shortcut := normalizeShortcut(p.Shortcut)

	if shortcut != "" {
		existing, err := s.repo.ListTemplates(ctx)
		if err != nil {
			return model.TemplateItem{}, apperror.Internal("failed to list templates", err)
		}
		for _, t := range existing {
			if t.Shortcut == shortcut {
				return model.TemplateItem{}, apperror.Conflict("shortcut is already used by "+t.Name, nil)
			}
		}
	}

	at := s.now().UTC().Format(time.RFC3339)
	template := model.TemplateItem{
		TemplateID: uuid.NewString(),
		Name:       name,
		Content:    content,
		Shortcut:   shortcut,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
	if err := s.repo.PutTemplate(ctx, template); err != nil {
		return model.TemplateItem{}, apperror.PersistFailed("failed to store template", err)
	}
	return template, nil
}

// normalizeShortcut lowercases and drops a leading slash, so "/Thanks" and
// "thanks" are the same shortcut.
func normalizeShortcut(raw string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), "/"))
}

func (s *Service) DeleteTemplate(ctx context.Context, templateID string) error {
	if _, err := s.template(ctx, templateID); err != nil {
		return err
	}
	if err := s.repo.DeleteTemplate(ctx, templateID); err != nil {
		return apperror.PersistFailed("failed to delete template", err)
	}
	return nil
}

func (s *Service) template(ctx context.Context, templateID string) (model.TemplateItem, error) {
	template, err := s.repo.GetTemplate(ctx, strings.TrimSpace(templateID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.TemplateItem{}, apperror.NotFound("template not found", err)
		}
		return model.TemplateItem{}, apperror.Internal("failed to load template", err)
	}
	return template, nil
}

// ApplyTemplate sends the template content to the customer. Usage is only
// counted once the send went through.
func (s *Service) ApplyTemplate(ctx context.Context, templateID, customerID, ch, adminID string) (chat.SendResult, error) {
	template, err := s.template(ctx, templateID)
	if err != nil {
		return chat.SendResult{}, err
	}
	if s.messenger == nil {
		return chat.SendResult{}, apperror.Internal("template sending is not configured", nil)
	}

	result, err := s.messenger.SendAdminMessage(ctx, chat.SendParams{
		CustomerID: customerID,
		Channel:    ch,
		AdminID:    adminID,
		Text:       template.Content,
	})
	if !result.Delivered {
		return result, err
	}

	at := s.now().UTC().Format(time.RFC3339)
	if incErr := s.repo.IncrementTemplateUsage(ctx, template.TemplateID, at); incErr != nil {
		s.logger.Warn("failed to count template usage", "templateId", template.TemplateID, "error", incErr)
	}
	return result, err
}

type CreateNoteParams struct {
	CustomerID string
	AuthorID   string
	Content    string
}

// ListNotes returns a customer's notes, newest first.
func (s *Service) ListNotes(ctx context.Context, customerID string) ([]model.NoteItem, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, apperror.Validation("customerId is required")
	}
	notes, err := s.repo.ListNotes(ctx, customerID)
	if err != nil {
		return nil, apperror.Internal("failed to list notes", err)
	}
	sort.Slice(notes, func(i, j int) bool {
		ti, tj := parseTime(notes[i].CreatedAt), parseTime(notes[j].CreatedAt)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return notes[i].NoteID < notes[j].NoteID
	})
	return notes, nil
}

func (s *Service) AddNote(ctx context.Context, p CreateNoteParams) (model.NoteItem, error) {
	customerID := strings.TrimSpace(p.CustomerID)
	content := strings.TrimSpace(p.Content)
	if customerID == "" {
		return model.NoteItem{}, apperror.Validation("customerId is required")
	}
	if content == "" {
		return model.NoteItem{}, apperror.Validation("note content is required")
	}

	exists, err := s.repo.CustomerExists(ctx, customerID)
	if err != nil {
		return model.NoteItem{}, apperror.Internal("failed to load customer", err)
	}
	if !exists {
		return model.NoteItem{}, apperror.NotFound("customer not found", ErrNotFound)
	}

	note := model.NoteItem{
		NoteID:     uuid.NewString(),
		CustomerID: customerID,
		AuthorID:   p.AuthorID,
		Content:    content,
		CreatedAt:  s.now().UTC().Format(time.RFC3339Nano),
	}
	if err := s.repo.PutNote(ctx, note); err != nil {
		return model.NoteItem{}, apperror.PersistFailed("failed to store note", err)
	}
	return note, nil
}

func (s *Service) DeleteNote(ctx context.Context, customerID, noteID string) error {
	note, err := s.repo.GetNote(ctx, strings.TrimSpace(noteID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperror.NotFound("note not found", err)
		}
		return apperror.Internal("failed to load note", err)
	}
	if customerID != "" && note.CustomerID != customerID {
		return apperror.NotFound("note not found", ErrNotFound)
	}
	if err := s.repo.DeleteNote(ctx, note.NoteID); err != nil {
		return apperror.PersistFailed("failed to delete note", err)
	}
	return nil
}

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
