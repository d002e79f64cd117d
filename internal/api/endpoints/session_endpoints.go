package endpoints

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"botpos-chat-backend/internal/api"
	"botpos-chat-backend/internal/dto"
	"botpos-chat-backend/internal/model"
	chatsvc "botpos-chat-backend/internal/service/chat"
	"botpos-chat-backend/internal/storage"
)

// multipartOverhead leaves room for the text field and part headers on top
// of the attachment itself.
const multipartOverhead = 1 << 20

type SessionEndpoints interface {
	Sessions(http.ResponseWriter, *http.Request) error
	UnreadCount(http.ResponseWriter, *http.Request) error
	Messages(http.ResponseWriter, *http.Request) error
	Read(http.ResponseWriter, *http.Request) error
	Typing(http.ResponseWriter, *http.Request) error
	Close(http.ResponseWriter, *http.Request) error
	Export(http.ResponseWriter, *http.Request) error
	SessionTags(http.ResponseWriter, *http.Request) error
	SessionTag(http.ResponseWriter, *http.Request) error
	Tags(http.ResponseWriter, *http.Request) error
	Search(http.ResponseWriter, *http.Request) error
}

type sessionEndpoints struct {
	service *chatsvc.Service
	store   storage.AttachmentStore
}

// NewSessionEndpoints serves the admin inbox. store may be nil, in which
// case uploads are rejected.
func NewSessionEndpoints(service *chatsvc.Service, store storage.AttachmentStore) SessionEndpoints {
	return &sessionEndpoints{
		service: service,
		store:   store,
	}
}

func (h *sessionEndpoints) Sessions(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleListSessions,
	})
}

func (h *sessionEndpoints) UnreadCount(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleUnreadCount,
	})
}

func (h *sessionEndpoints) Messages(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:  h.handleListMessages,
		http.MethodPost: h.handleSendMessage,
	})
}

func (h *sessionEndpoints) Read(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleMarkRead,
	})
}

func (h *sessionEndpoints) Typing(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleTyping,
	})
}

func (h *sessionEndpoints) Close(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleClose,
	})
}

func (h *sessionEndpoints) Export(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleExport,
	})
}

func (h *sessionEndpoints) SessionTags(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:  h.handleListSessionTags,
		http.MethodPost: h.handleAttachTag,
	})
}

func (h *sessionEndpoints) SessionTag(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodDelete: h.handleDetachTag,
	})
}

func (h *sessionEndpoints) Tags(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:  h.handleListTags,
		http.MethodPost: h.handleCreateTag,
	})
}

func (h *sessionEndpoints) Search(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleSearch,
	})
}

func (h *sessionEndpoints) handleListSessions(w http.ResponseWriter, r *http.Request) error {
	sessions, err := h.service.ListSessions(r.Context())
	if err != nil {
		return serviceError(err)
	}

	resp := make([]dto.SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, toSessionResponse(s))
	}
	return WriteJSON(w, http.StatusOK, resp)
}

func (h *sessionEndpoints) handleUnreadCount(w http.ResponseWriter, r *http.Request) error {
	total, err := h.service.UnreadTotal(r.Context())
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, dto.UnreadCountResponse{Total: total})
}

func (h *sessionEndpoints) handleListMessages(w http.ResponseWriter, r *http.Request) error {
	customerID, err := pathValue(r, "customerId")
	if err != nil {
		return err
	}

	q := r.URL.Query()
	messages, err := h.service.GetMessages(r.Context(), customerID, q.Get("search"), q.Get("channel"))
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, dto.NewMessageResponses(messages))
}

func (h *sessionEndpoints) handleSendMessage(w http.ResponseWriter, r *http.Request) error {
	adminID, err := adminFromRequest(r)
	if err != nil {
		return err
	}
	customerID, err := pathValue(r, "customerId")
	if err != nil {
		return err
	}

	var (
		req        dto.SendMessageRequest
		attachment *model.Attachment
	)
	if isMultipart(r) {
		req, attachment, err = h.readMultipartMessage(r)
	} else {
		err = decodeJSON(r, &req, "send message")
	}
	if err != nil {
		return err
	}
	if req.Channel == "" {
		req.Channel = r.URL.Query().Get("channel")
	}

	result, err := h.service.SendAdminMessage(r.Context(), chatsvc.SendParams{
		CustomerID: customerID,
		Channel:    req.Channel,
		AdminID:    adminID,
		Text:       req.Text,
		Attachment: attachment,
	})
	if err != nil {
		if attachment != nil && !result.Delivered {
			return h.discardUpload(r, attachment.Key, err)
		}
		return serviceError(err)
	}

	return WriteJSON(w, http.StatusCreated, dto.SendMessageResponse{
		Message:   dto.NewMessageResponse(result.Message),
		Delivered: result.Delivered,
	})
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func (h *sessionEndpoints) readMultipartMessage(r *http.Request) (dto.SendMessageRequest, *model.Attachment, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, storage.MaxAttachmentSize+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return dto.SendMessageRequest{}, nil, attachmentTooLarge(err)
		}
		return dto.SendMessageRequest{}, nil, &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid multipart payload",
			ErrorLog:   fmt.Errorf("parse multipart message: %w", err),
		}
	}

	req := dto.SendMessageRequest{
		Text:    r.FormValue("text"),
		Channel: r.FormValue("channel"),
	}

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil, nil
	}
	if err != nil {
		return req, nil, &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid attachment",
			ErrorLog:   fmt.Errorf("read multipart file: %w", err),
		}
	}
	defer file.Close()

	if h.store == nil {
		return req, nil, &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Attachments are not enabled",
			ErrorLog:   fmt.Errorf("upload without attachment store"),
		}
	}

	attachment, err := h.store.Put(r.Context(), header.Filename, header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return req, nil, attachmentTooLarge(err)
		}
		return req, nil, &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Failed to store attachment",
			ErrorLog:   fmt.Errorf("put attachment: %w", err),
		}
	}
	return req, &attachment, nil
}

// discardUpload removes the stored file of a message that never reached the
// customer, then reports the send error.
func (h *sessionEndpoints) discardUpload(r *http.Request, key string, sendErr error) error {
	httpErr := api.ServiceError(sendErr)
	if err := h.store.Delete(context.WithoutCancel(r.Context()), key); err != nil {
		httpErr.ErrorLog = errors.Join(httpErr.ErrorLog, fmt.Errorf("remove unsent attachment %s: %w", key, err))
	}
	return httpErr
}

func attachmentTooLarge(err error) error {
	return &HTTPError{
		StatusCode: http.StatusRequestEntityTooLarge,
		Message:    fmt.Sprintf("Attachment exceeds %d MiB", storage.MaxAttachmentSize>>20),
		ErrorLog:   err,
	}
}

func (h *sessionEndpoints) handleMarkRead(w http.ResponseWriter, r *http.Request) error {
	customerID, err := pathValue(r, "customerId")
	if err != nil {
		return err
	}

	result, err := h.service.MarkRead(r.Context(), customerID, r.URL.Query().Get("channel"))
	if err != nil {
		return serviceError(err)
	}

	ids := result.MessageIDs
	if ids == nil {
		ids = []string{}
	}
	return WriteJSON(w, http.StatusOK, dto.MarkReadResponse{MessageIDs: ids, UnreadTotal: result.UnreadTotal})
}

func (h *sessionEndpoints) handleTyping(w http.ResponseWriter, r *http.Request) error {
	customerID, err := pathValue(r, "customerId")
	if err != nil {
		return err
	}

	var req dto.TypingRequest
	if err := decodeJSON(r, &req, "typing"); err != nil {
		return err
	}

	if err := h.service.SetTyping(r.Context(), customerID, req.Channel, req.IsTyping); err != nil {
		return serviceError(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *sessionEndpoints) handleClose(w http.ResponseWriter, r *http.Request) error {
	customerID, err := pathValue(r, "customerId")
	if err != nil {
		return err
	}

	session, err := h.service.CloseSession(r.Context(), customerID, r.URL.Query().Get("channel"))
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, toSessionResponse(session))
}

func (h *sessionEndpoints) handleExport(w http.ResponseWriter, r *http.Request) error {
	customerID, err := pathValue(r, "customerId")
	if err != nil {
		return err
	}

	q := r.URL.Query()
	export, err := h.service.ExportConversation(r.Context(), customerID, q.Get("channel"), q.Get("format"))
	if err != nil {
		return serviceError(err)
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": export.Filename}))
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(export.Body)
	return err
}

func (h *sessionEndpoints) handleListSessionTags(w http.ResponseWriter, r *http.Request) error {
	customerID, err := pathValue(r, "customerId")
	if err != nil {
		return err
	}

	tags, err := h.service.SessionTags(r.Context(), customerID, r.URL.Query().Get("channel"))
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, dto.NewTagResponses(tags))
}

func (h *sessionEndpoints) handleAttachTag(w http.ResponseWriter, r *http.Request) error {
	customerID, err := pathValue(r, "customerId")
	if err != nil {
		return err
	}

	var req dto.AttachTagRequest
	if err := decodeJSON(r, &req, "attach tag"); err != nil {
		return err
	}
	if strings.TrimSpace(req.TagID) == "" {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "tagId is required",
			ErrorLog:   fmt.Errorf("attach tag without tagId"),
		}
	}

	session, err := h.service.AddSessionTag(r.Context(), customerID, req.Channel, req.TagID)
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, toSessionResponse(session))
}

func (h *sessionEndpoints) handleDetachTag(w http.ResponseWriter, r *http.Request) error {
	customerID, err := pathValue(r, "customerId")
	if err != nil {
		return err
	}
	tagID, err := pathValue(r, "tagId")
	if err != nil {
		return err
	}

	session, err := h.service.RemoveSessionTag(r.Context(), customerID, r.URL.Query().Get("channel"), tagID)
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, toSessionResponse(session))
}

func (h *sessionEndpoints) handleListTags(w http.ResponseWriter, r *http.Request) error {
	tags, err := h.service.ListTags(r.Context())
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, dto.NewTagResponses(tags))
}

func (h *sessionEndpoints) handleCreateTag(w http.ResponseWriter, r *http.Request) error {
	var req dto.CreateTagRequest
	if err := decodeJSON(r, &req, "create tag"); err != nil {
		return err
	}

	tag, err := h.service.CreateTag(r.Context(), req.Name, req.Color)
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusCreated, dto.NewTagResponse(tag))
}

func (h *sessionEndpoints) handleSearch(w http.ResponseWriter, r *http.Request) error {
	results, err := h.service.SearchMessages(r.Context(), r.URL.Query().Get("q"), queryInt(r, "limit", 0))
	if err != nil {
		return serviceError(err)
	}

	resp := make([]dto.SearchResultResponse, 0, len(results))
	for _, res := range results {
		resp = append(resp, dto.SearchResultResponse{
			Message:      dto.NewMessageResponse(res.Message),
			CustomerName: res.CustomerName,
		})
	}
	return WriteJSON(w, http.StatusOK, resp)
}

func toSessionResponse(s chatsvc.Session) dto.SessionResponse {
	return dto.NewSessionResponse(s.SessionItem, s.Tags)
}
