package endpoints

import (
	"net/http"

	"botpos-chat-backend/internal/websocket"
)

type RealtimeEndpoints interface {
	Admin(http.ResponseWriter, *http.Request) error
	Rooms(http.ResponseWriter, *http.Request) error
}

type realtimeEndpoints struct {
	handler *websocket.Handler
}

func NewRealtimeEndpoints(handler *websocket.Handler) RealtimeEndpoints {
	return &realtimeEndpoints{handler: handler}
}

// Admin upgrades an authenticated admin; the client then sends join:admin.
func (h *realtimeEndpoints) Admin(w http.ResponseWriter, r *http.Request) error {
	adminID, err := adminFromRequest(r)
	if err != nil {
		return err
	}
	h.handler.ServeAdmin(w, r, adminID)
	return nil
}

func (h *realtimeEndpoints) Rooms(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: func(w http.ResponseWriter, r *http.Request) error {
			h.handler.GetRooms(w, r)
			return nil
		},
	})
}
