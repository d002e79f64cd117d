package endpoints

import (
	"net/http"

	"botpos-chat-backend/internal/dto"
	inboxsvc "botpos-chat-backend/internal/service/inbox"
)

type InboxEndpoints interface {
	Templates(http.ResponseWriter, *http.Request) error
	Template(http.ResponseWriter, *http.Request) error
	ApplyTemplate(http.ResponseWriter, *http.Request) error
	Notes(http.ResponseWriter, *http.Request) error
	Note(http.ResponseWriter, *http.Request) error
}

type inboxEndpoints struct {
	service *inboxsvc.Service
}

func NewInboxEndpoints(service *inboxsvc.Service) InboxEndpoints {
	return &inboxEndpoints{service: service}
}

func (h *inboxEndpoints) Templates(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:  h.handleListTemplates,
		http.MethodPost: h.handleCreateTemplate,
	})
}

func (h *inboxEndpoints) Template(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodDelete: h.handleDeleteTemplate,
	})
}

func (h *inboxEndpoints) ApplyTemplate(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleApplyTemplate,
	})
}

func (h *inboxEndpoints) Notes(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:  h.handleListNotes,
		http.MethodPost: h.handleAddNote,
	})
}

func (h *inboxEndpoints) Note(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodDelete: h.handleDeleteNote,
	})
}

func (h *inboxEndpoints) handleListTemplates(w http.ResponseWriter, r *http.Request) error {
	templates, err := h.service.ListTemplates(r.Context())
	if err != nil {
		return serviceError(err)
	}

	resp := make([]dto.TemplateResponse, 0, len(templates))
	for _, t := range templates {
		resp = append(resp, dto.NewTemplateResponse(t))
	}
	return WriteJSON(w, http.StatusOK, resp)
}

func (h *inboxEndpoints) handleCreateTemplate(w http.ResponseWriter, r *http.Request) error {
	var req dto.CreateTemplateRequest
	if err := decodeJSON(r, &req, "create template"); err != nil {
		return err
	}

	template, err := h.service.CreateTemplate(r.Context(), inboxsvc.CreateTemplateParams{
		Name:     req.Name,
		Content:  req.Content,
		Shortcut: req.Shortcut,
	})
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusCreated, dto.NewTemplateResponse(template))
}

func (h *inboxEndpoints) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) error {
	id, err := pathValue(r, "templateId")
	if err != nil {
		return err
	}
	if err := h.service.DeleteTemplate(r.Context(), id); err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: "Template deleted"})
}

func (h *inboxEndpoints) handleApplyTemplate(w http.ResponseWriter, r *http.Request) error {
	adminID, err := adminFromRequest(r)
	if err != nil {
		return err
	}
	id, err := pathValue(r, "templateId")
	if err != nil {
		return err
	}

	var req dto.ApplyTemplateRequest
	if err := decodeJSON(r, &req, "apply template"); err != nil {
		return err
	}

	result, err := h.service.ApplyTemplate(r.Context(), id, req.CustomerID, req.Channel, adminID)
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusCreated, dto.SendMessageResponse{
		Message:   dto.NewMessageResponse(result.Message),
		Delivered: result.Delivered,
	})
}

func (h *inboxEndpoints) handleListNotes(w http.ResponseWriter, r *http.Request) error {
	customerID, err := pathValue(r, "customerId")
	if err != nil {
		return err
	}

	notes, err := h.service.ListNotes(r.Context(), customerID)
	if err != nil {
		return serviceError(err)
	}

	resp := make([]dto.NoteResponse, 0, len(notes))
	for _, n := range notes {
		resp = append(resp, dto.NewNoteResponse(n))
	}
	return WriteJSON(w, http.StatusOK, resp)
}

func (h *inboxEndpoints) handleAddNote(w http.ResponseWriter, r *http.Request) error {
	adminID, err := adminFromRequest(r)
	if err != nil {
		return err
	}
	customerID, err := pathValue(r, "customerId")
	if err != nil {
		return err
	}

	var req dto.CreateNoteRequest
	if err := decodeJSON(r, &req, "create note"); err != nil {
		return err
	}

	note, err := h.service.AddNote(r.Context(), inboxsvc.CreateNoteParams{
		CustomerID: customerID,
		AuthorID:   adminID,
		Content:    req.Content,
	})
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusCreated, dto.NewNoteResponse(note))
}

func (h *inboxEndpoints) handleDeleteNote(w http.ResponseWriter, r *http.Request) error {
	customerID, err := pathValue(r, "customerId")
	if err != nil {
		return err
	}
	noteID, err := pathValue(r, "noteId")
	if err != nil {
		return err
	}

	if err := h.service.DeleteNote(r.Context(), customerID, noteID); err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, ApiMessageResponse{Message: "Note deleted"})
}
