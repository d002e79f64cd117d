package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"botpos-chat-backend/internal/api/middleware"
	"botpos-chat-backend/internal/queue"
)

type apiFunc func(http.ResponseWriter, *http.Request) error

func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// MakeHTTPHandleFunc runs f on the request queue and renders its error.
// authMiddleware wraps only f, so CORS preflights never need a token.
func (s *APIServer) MakeHTTPHandleFunc(f apiFunc, authMiddleware ...middleware.Middleware) http.HandlerFunc {
	corsConfig := middleware.CORSConfig{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "OPTIONS", "DELETE"},
		AllowedHeaders:   []string{"Content-Type", "X-Requested-With", "Authorization", middleware.ChannelSecretHeader},
		AllowCredentials: true,
	}

	baseHandler := func(w http.ResponseWriter, r *http.Request) {
		errc := make(chan error, 1)

		job := queue.Job{
			Fn: func() error {
				return f(w, r)
			},
			Errc: errc,
		}

		if err := s.requestQueueManager.Enqueue(r.Context(), job); err != nil {
			s.writeError(w, r, &HTTPError{
				StatusCode: http.StatusServiceUnavailable,
				Message:    "server is busy, try again",
				ErrorLog:   err,
			})
			return
		}

		if err := <-errc; err != nil {
			s.writeError(w, r, err)
		}
	}

	middlewares := []middleware.Middleware{
		middleware.CORS(corsConfig),
		middleware.Logging(s.logger),
	}

	finalHandler := func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		authHandler := baseHandler
		for _, m := range authMiddleware {
			authHandler = m(authHandler)
		}
		authHandler(w, r)
	}

	return middleware.Chain(finalHandler, middlewares...)
}

func (s *APIServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		httpErr = ServiceError(err)
	}

	logger := s.logger.With("method", r.Method, "uri", r.URL.RequestURI(), "status", httpErr.StatusCode)
	if httpErr.StatusCode >= http.StatusInternalServerError {
		logger.Error("request failed", "error", httpErr.ErrorLog)
	} else {
		logger.Debug("request rejected", "error", httpErr.ErrorLog)
	}

	_ = WriteJSON(w, httpErr.StatusCode, ApiError{Error: httpErr.Message})
}
