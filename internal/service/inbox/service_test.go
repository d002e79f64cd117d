package inbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"botpos-chat-backend/internal/apperror"
	"botpos-chat-backend/internal/logging"
	"botpos-chat-backend/internal/service/chat"
)

type stubMessenger struct {
	calls  []chat.SendParams
	result chat.SendResult
	err    error
}

func (m *stubMessenger) SendAdminMessage(ctx context.Context, p chat.SendParams) (chat.SendResult, error) {
	m.calls = append(m.calls, p)
	return m.result, m.err
}

func newTestService(messenger Messenger) (*Service, *MemoryRepository, *time.Time) {
	repo := NewMemoryRepository()
	now := time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)
	svc := NewWithRepository(repo, messenger, logging.Discard(), func() time.Time { return now })
	return svc, repo, &now
}

func TestTemplatesOrderedByUsage(t *testing.T) {
	messenger := &stubMessenger{result: chat.SendResult{Delivered: true}}
	svc, _, _ := newTestService(messenger)
	ctx := context.Background()

	greet, err := svc.CreateTemplate(ctx, CreateTemplateParams{Name: "Greeting", Content: "Mingalaba!"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	thanks, err := svc.CreateTemplate(ctx, CreateTemplateParams{Name: "Thanks", Content: "Thank you", Shortcut: "/Thanks"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if thanks.Shortcut != "thanks" {
		t.Fatalf("expected normalized shortcut, got %q", thanks.Shortcut)
	}

	if _, err := svc.ApplyTemplate(ctx, thanks.TemplateID, "cust-1", "telegram", "admin-1"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(messenger.calls) != 1 || messenger.calls[0].Text != "Thank you" || messenger.calls[0].AdminID != "admin-1" {
		t.Fatalf("unexpected send: %#v", messenger.calls)
	}

	templates, err := svc.ListTemplates(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(templates) != 2 || templates[0].TemplateID != thanks.TemplateID || templates[1].TemplateID != greet.TemplateID {
		t.Fatalf("unexpected order: %#v", templates)
	}
	if templates[0].UsageCount != 1 {
		t.Fatalf("expected usage 1, got %d", templates[0].UsageCount)
	}
}

func TestApplyTemplateNotSentKeepsUsage(t *testing.T) {
	messenger := &stubMessenger{err: apperror.ChannelUnavailable("adapter down", errors.New("502"))}
	svc, repo, _ := newTestService(messenger)
	ctx := context.Background()

	tpl, err := svc.CreateTemplate(ctx, CreateTemplateParams{Name: "Hours", Content: "We open at 9"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = svc.ApplyTemplate(ctx, tpl.TemplateID, "cust-1", "", "admin-1")
	if !apperror.IsCode(err, apperror.CodeChannelUnavailable) {
		t.Fatalf("expected channel_unavailable, got %v", err)
	}
	stored, _ := repo.GetTemplate(ctx, tpl.TemplateID)
	if stored.UsageCount != 0 {
		t.Fatalf("usage should not change, got %d", stored.UsageCount)
	}
}

func TestTemplateValidation(t *testing.T) {
	svc, _, _ := newTestService(nil)
	ctx := context.Background()

	if _, err := svc.CreateTemplate(ctx, CreateTemplateParams{Name: "x"}); !apperror.IsCode(err, apperror.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.CreateTemplate(ctx, CreateTemplateParams{Name: "a", Content: "b", Shortcut: "dup"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.CreateTemplate(ctx, CreateTemplateParams{Name: "c", Content: "d", Shortcut: "/DUP"}); !apperror.IsCode(err, apperror.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := svc.DeleteTemplate(ctx, "missing"); !apperror.IsCode(err, apperror.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNotesLifecycle(t *testing.T) {
	svc, repo, now := newTestService(nil)
	ctx := context.Background()
	repo.AddCustomer("cust-9")

	if _, err := svc.AddNote(ctx, CreateNoteParams{CustomerID: "ghost", Content: "hi"}); !apperror.IsCode(err, apperror.CodeNotFound) {
		t.Fatalf("expected not found for unknown customer, got %v", err)
	}
	if _, err := svc.AddNote(ctx, CreateNoteParams{CustomerID: "cust-9"}); !apperror.IsCode(err, apperror.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	first, err := svc.AddNote(ctx, CreateNoteParams{CustomerID: "cust-9", AuthorID: "admin-1", Content: "prefers delivery"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	*now = now.Add(time.Minute)
	second, err := svc.AddNote(ctx, CreateNoteParams{CustomerID: "cust-9", AuthorID: "admin-1", Content: "owes 5000 MMK"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	notes, err := svc.ListNotes(ctx, "cust-9")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(notes) != 2 || notes[0].NoteID != second.NoteID {
		t.Fatalf("expected newest first, got %#v", notes)
	}

	if err := svc.DeleteNote(ctx, "cust-9", first.NoteID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.DeleteNote(ctx, "cust-9", first.NoteID); !apperror.IsCode(err, apperror.CodeNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if err := svc.DeleteNote(ctx, "other", second.NoteID); !apperror.IsCode(err, apperror.CodeNotFound) {
		t.Fatalf("note should not be reachable through another customer, got %v", err)
	}
}
