package endpoints

import (
	"errors"
	"net/http"
	"testing"

	"botpos-chat-backend/internal/dto"
)

func TestTemplatesCountUsageOnlyWhenSent(t *testing.T) {
	env := newTestEnv(t)
	customerID := env.openSession(t, "telegram", "tg-50", "Thida")

	tmpl := doJSONRequest[dto.TemplateResponse](t, env.handler, http.MethodPost, testPrefix+"/templates",
		dto.CreateTemplateRequest{Name: "Greeting", Content: "Thanks for contacting us!", Shortcut: "/Hi"}, env.auth(), http.StatusCreated)
	if tmpl.Shortcut != "hi" || tmpl.UsageCount != 0 {
		t.Fatalf("unexpected template %#v", tmpl)
	}
	doJSONRequest[map[string]any](t, env.handler, http.MethodPost, testPrefix+"/templates",
		dto.CreateTemplateRequest{Name: "Other", Content: "x", Shortcut: "hi"}, env.auth(), http.StatusConflict)

	applyPath := testPrefix + "/templates/" + tmpl.TemplateID + "/apply"
	sent := doJSONRequest[dto.SendMessageResponse](t, env.handler, http.MethodPost, applyPath,
		dto.ApplyTemplateRequest{CustomerID: customerID}, env.auth(), http.StatusCreated)
	if sent.Message.Text != "Thanks for contacting us!" {
		t.Fatalf("unexpected sent message %#v", sent)
	}

	env.failSends(errors.New("adapter down"))
	doJSONRequest[map[string]any](t, env.handler, http.MethodPost, applyPath,
		dto.ApplyTemplateRequest{CustomerID: customerID}, env.auth(), http.StatusBadGateway)

	list := doJSONRequest[[]dto.TemplateResponse](t, env.handler, http.MethodGet, testPrefix+"/templates", nil, env.auth(), http.StatusOK)
	if len(list) != 1 || list[0].UsageCount != 1 {
		t.Fatalf("expected usage 1 after one successful send, got %#v", list)
	}

	doJSONRequest[ApiMessageResponse](t, env.handler, http.MethodDelete, testPrefix+"/templates/"+tmpl.TemplateID, nil, env.auth(), http.StatusOK)
	doJSONRequest[map[string]any](t, env.handler, http.MethodDelete, testPrefix+"/templates/"+tmpl.TemplateID, nil, env.auth(), http.StatusNotFound)
}

func TestCustomerNotes(t *testing.T) {
	env := newTestEnv(t)
	customerID := env.openSession(t, "viber", "vb-77", "Kyaw Kyaw")
	notesPath := testPrefix + "/customers/" + customerID + "/notes"

	first := doJSONRequest[dto.NoteResponse](t, env.handler, http.MethodPost, notesPath,
		dto.CreateNoteRequest{Content: "Prefers delivery after 5pm"}, env.auth(), http.StatusCreated)
	if first.AuthorID == "" {
		t.Fatal("note should record the authoring admin")
	}
	second := doJSONRequest[dto.NoteResponse](t, env.handler, http.MethodPost, notesPath,
		dto.CreateNoteRequest{Content: "Wholesale buyer"}, env.auth(), http.StatusCreated)

	notes := doJSONRequest[[]dto.NoteResponse](t, env.handler, http.MethodGet, notesPath, nil, env.auth(), http.StatusOK)
	if len(notes) != 2 || notes[0].NoteID != second.NoteID {
		t.Fatalf("expected newest note first, got %#v", notes)
	}

	doJSONRequest[map[string]any](t, env.handler, http.MethodPost, notesPath,
		dto.CreateNoteRequest{Content: " "}, env.auth(), http.StatusBadRequest)
	doJSONRequest[map[string]any](t, env.handler, http.MethodPost, testPrefix+"/customers/nobody/notes",
		dto.CreateNoteRequest{Content: "hello"}, env.auth(), http.StatusNotFound)

	doJSONRequest[ApiMessageResponse](t, env.handler, http.MethodDelete, notesPath+"/"+first.NoteID, nil, env.auth(), http.StatusOK)
	doJSONRequest[map[string]any](t, env.handler, http.MethodDelete, notesPath+"/"+first.NoteID, nil, env.auth(), http.StatusNotFound)

	notes = doJSONRequest[[]dto.NoteResponse](t, env.handler, http.MethodGet, notesPath, nil, env.auth(), http.StatusOK)
	if len(notes) != 1 || notes[0].NoteID != second.NoteID {
		t.Fatalf("unexpected notes after delete %#v", notes)
	}
}
