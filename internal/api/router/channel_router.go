package router

import (
	"net/http"

	"botpos-chat-backend/internal/api"
	"botpos-chat-backend/internal/api/endpoints"
	"botpos-chat-backend/internal/api/middleware"
	chatsvc "botpos-chat-backend/internal/service/chat"
)

// ChannelRoutes serves the adapters. Every route requires the shared
// channel secret.
func ChannelRoutes(prefix string, service *chatsvc.Service, secret string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		e := endpoints.NewChannelEndpoints(service)
		guard := middleware.ChannelSecret(secret)

		mux.HandleFunc(prefix+"/sessions", s.MakeHTTPHandleFunc(e.Sessions, guard))
		mux.HandleFunc(prefix+"/messages", s.MakeHTTPHandleFunc(e.Messages, guard))
	}
}
