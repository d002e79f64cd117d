package endpoints

import (
	"net/http"

	"botpos-chat-backend/internal/dto"
	"botpos-chat-backend/internal/model"
	chatsvc "botpos-chat-backend/internal/service/chat"
)

// ChannelEndpoints is the ingress used by the platform adapters.
type ChannelEndpoints interface {
	Sessions(http.ResponseWriter, *http.Request) error
	Messages(http.ResponseWriter, *http.Request) error
}

type channelEndpoints struct {
	service *chatsvc.Service
}

func NewChannelEndpoints(service *chatsvc.Service) ChannelEndpoints {
	return &channelEndpoints{service: service}
}

func (h *channelEndpoints) Sessions(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleOpenSession,
	})
}

func (h *channelEndpoints) Messages(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleInboundMessage,
	})
}

func (h *channelEndpoints) handleOpenSession(w http.ResponseWriter, r *http.Request) error {
	var req dto.OpenSessionRequest
	if err := decodeJSON(r, &req, "open session"); err != nil {
		return err
	}

	result, err := h.service.OpenSession(r.Context(), chatsvc.OpenSessionParams{
		Channel:    req.Channel,
		ExternalID: req.ExternalID,
		Name:       req.Name,
		Phone:      req.Phone,
		Email:      req.Email,
	})
	if err != nil {
		return serviceError(err)
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	return WriteJSON(w, status, toSessionResponse(result.Session))
}

func (h *channelEndpoints) handleInboundMessage(w http.ResponseWriter, r *http.Request) error {
	var req dto.InboundMessageRequest
	if err := decodeJSON(r, &req, "inbound message"); err != nil {
		return err
	}

	var attachment *model.Attachment
	if req.Attachment != nil {
		attachment = &model.Attachment{
			URL:      req.Attachment.URL,
			MimeType: req.Attachment.MimeType,
			Name:     req.Attachment.Name,
			Size:     req.Attachment.Size,
		}
	}

	message, err := h.service.OnInboundMessage(r.Context(), chatsvc.InboundParams{
		Channel:    req.Channel,
		ExternalID: req.ExternalID,
		Text:       req.Text,
		Attachment: attachment,
	})
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusCreated, dto.NewMessageResponse(message))
}
