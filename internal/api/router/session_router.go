package router

import (
	"net/http"

	"botpos-chat-backend/internal/api"
	"botpos-chat-backend/internal/api/endpoints"
	"botpos-chat-backend/internal/api/middleware"
	chatsvc "botpos-chat-backend/internal/service/chat"
	"botpos-chat-backend/internal/storage"
)

func SessionRoutes(prefix string, service *chatsvc.Service, store storage.AttachmentStore) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		e := endpoints.NewSessionEndpoints(service, store)
		guard := middleware.ValidateAdminJWT

		mux.HandleFunc(prefix+"/sessions", s.MakeHTTPHandleFunc(e.Sessions, guard))
		mux.HandleFunc(prefix+"/sessions/unread-count", s.MakeHTTPHandleFunc(e.UnreadCount, guard))
		mux.HandleFunc(prefix+"/sessions/{customerId}/messages", s.MakeHTTPHandleFunc(e.Messages, guard))
		mux.HandleFunc(prefix+"/sessions/{customerId}/read", s.MakeHTTPHandleFunc(e.Read, guard))
		mux.HandleFunc(prefix+"/sessions/{customerId}/typing", s.MakeHTTPHandleFunc(e.Typing, guard))
		mux.HandleFunc(prefix+"/sessions/{customerId}/close", s.MakeHTTPHandleFunc(e.Close, guard))
		mux.HandleFunc(prefix+"/sessions/{customerId}/export", s.MakeHTTPHandleFunc(e.Export, guard))
		mux.HandleFunc(prefix+"/sessions/{customerId}/tags", s.MakeHTTPHandleFunc(e.SessionTags, guard))
		mux.HandleFunc(prefix+"/sessions/{customerId}/tags/{tagId}", s.MakeHTTPHandleFunc(e.SessionTag, guard))
		mux.HandleFunc(prefix+"/messages/search", s.MakeHTTPHandleFunc(e.Search, guard))
		mux.HandleFunc(prefix+"/tags", s.MakeHTTPHandleFunc(e.Tags, guard))
	}
}
