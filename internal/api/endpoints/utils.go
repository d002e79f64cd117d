package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"botpos-chat-backend/internal/api"
	"botpos-chat-backend/internal/api/middleware"
)

const maxJSONBody = 1 << 20

type HTTPError = api.HTTPError

type ApiMessageResponse struct {
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) error {
	return api.WriteJSON(w, status, v)
}

func MethodHandler(
	w http.ResponseWriter,
	r *http.Request,
	allowed map[string]func(http.ResponseWriter, *http.Request) error,
) error {
	if handler, ok := allowed[r.Method]; ok {
		return handler(w, r)
	}
	return &HTTPError{
		StatusCode: http.StatusMethodNotAllowed,
		Message:    "Method not allowed.",
		ErrorLog:   fmt.Errorf("method %s not allowed on %s", r.Method, r.URL.Path),
	}
}

func serviceError(err error) error {
	if err == nil {
		return nil
	}
	return api.ServiceError(err)
}

// decodeJSON reads a single JSON object. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any, what string) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode %s request: %w", what, err),
		}
	}
	return nil
}

func pathValue(r *http.Request, name string) (string, error) {
	v := strings.TrimSpace(r.PathValue(name))
	if v == "" {
		return "", &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    name + " is required",
			ErrorLog:   fmt.Errorf("missing path value %s in %s", name, r.URL.Path),
		}
	}
	return v, nil
}

func adminFromRequest(r *http.Request) (string, error) {
	user, ok := middleware.AdminFromContext(r.Context())
	if !ok || user.Id == "" {
		return "", &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Unauthorized",
			ErrorLog:   fmt.Errorf("no admin identity on request %s", r.URL.Path),
		}
	}
	return user.Id, nil
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
