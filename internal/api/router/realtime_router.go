package router

import (
	"net/http"

	"botpos-chat-backend/internal/api"
	"botpos-chat-backend/internal/api/endpoints"
	"botpos-chat-backend/internal/api/middleware"
	"botpos-chat-backend/internal/websocket"
)

func RealtimeRoutes(prefix string, handler *websocket.Handler) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		e := endpoints.NewRealtimeEndpoints(handler)
		mux.HandleFunc(prefix+"/admin", s.MakeHTTPHandleFunc(e.Admin, middleware.ValidateAdminJWT))
		mux.HandleFunc(prefix+"/rooms", s.MakeHTTPHandleFunc(e.Rooms, middleware.ValidateAdminJWT))
	}
}
