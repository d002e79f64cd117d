package router

import (
	"net/http"
	"time"

	"botpos-chat-backend/internal/api"
	"botpos-chat-backend/internal/api/endpoints"
	"botpos-chat-backend/internal/api/middleware"
	authsvc "botpos-chat-backend/internal/service/auth"
)

const (
	loginAttempts = 10
	loginWindow   = time.Minute
)

func AuthRoutes(prefix string, service *authsvc.Service) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		authEndpoints := endpoints.NewAuthEndpoints(service)
		loginLimit := middleware.NewRateLimiter(loginAttempts, loginWindow)

		mux.HandleFunc(prefix+"/auth/login", s.MakeHTTPHandleFunc(authEndpoints.Login, loginLimit.Middleware()))
		mux.HandleFunc(prefix+"/auth/me", s.MakeHTTPHandleFunc(authEndpoints.Me, middleware.ValidateAdminJWT))
		mux.HandleFunc(prefix+"/admins", s.MakeHTTPHandleFunc(authEndpoints.Admins, middleware.ValidateAdminJWT))
	}
}
