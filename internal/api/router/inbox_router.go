package router

import (
	"net/http"

	"botpos-chat-backend/internal/api"
	"botpos-chat-backend/internal/api/endpoints"
	"botpos-chat-backend/internal/api/middleware"
	inboxsvc "botpos-chat-backend/internal/service/inbox"
)

func InboxRoutes(prefix string, service *inboxsvc.Service) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		e := endpoints.NewInboxEndpoints(service)
		guard := middleware.ValidateAdminJWT

		mux.HandleFunc(prefix+"/templates", s.MakeHTTPHandleFunc(e.Templates, guard))
		mux.HandleFunc(prefix+"/templates/{templateId}", s.MakeHTTPHandleFunc(e.Template, guard))
		mux.HandleFunc(prefix+"/templates/{templateId}/apply", s.MakeHTTPHandleFunc(e.ApplyTemplate, guard))
		mux.HandleFunc(prefix+"/customers/{customerId}/notes", s.MakeHTTPHandleFunc(e.Notes, guard))
		mux.HandleFunc(prefix+"/customers/{customerId}/notes/{noteId}", s.MakeHTTPHandleFunc(e.Note, guard))
	}
}
