package endpoints

import (
	"net/http"
	"time"

	"botpos-chat-backend/internal/api/middleware"
	"botpos-chat-backend/internal/dto"
	authsvc "botpos-chat-backend/internal/service/auth"
)

type AuthEndpoints interface {
	Login(http.ResponseWriter, *http.Request) error
	Me(http.ResponseWriter, *http.Request) error
	Admins(http.ResponseWriter, *http.Request) error
}

type authEndpoints struct {
	service *authsvc.Service
}

func NewAuthEndpoints(service *authsvc.Service) AuthEndpoints {
	return &authEndpoints{
		service: service,
	}
}

func (h *authEndpoints) Login(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleLogin,
	})
}

func (h *authEndpoints) Me(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleMe,
	})
}

func (h *authEndpoints) Admins(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleCreateAdmin,
	})
}

func (h *authEndpoints) handleLogin(w http.ResponseWriter, r *http.Request) error {
	var req dto.LoginRequest
	if err := decodeJSON(r, &req, "login"); err != nil {
		return err
	}

	result, err := h.service.Login(r.Context(), authsvc.LoginParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, toAuthResponse(result))
}

func (h *authEndpoints) handleMe(w http.ResponseWriter, r *http.Request) error {
	user, _ := middleware.AdminFromContext(r.Context())

	admin, err := h.service.Me(r.Context(), authsvc.Identity{AdminID: user.Id, Email: user.Email})
	if err != nil {
		return serviceError(err)
	}

	return WriteJSON(w, http.StatusOK, dto.NewAdminResponse(admin))
}

func (h *authEndpoints) handleCreateAdmin(w http.ResponseWriter, r *http.Request) error {
	var req dto.CreateAdminRequest
	if err := decodeJSON(r, &req, "create admin"); err != nil {
		return err
	}

	admin, err := h.service.CreateAdmin(r.Context(), authsvc.CreateAdminParams{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return serviceError(err)
	}

	return WriteJSON(w, http.StatusCreated, dto.NewAdminResponse(admin))
}

func toAuthResponse(result authsvc.AuthResult) dto.AuthResponse {
	return dto.AuthResponse{
		AccessToken: result.Tokens.AccessToken,
		ExpiresAt:   time.Unix(result.Tokens.ExpiresAt, 0).UTC().Format(time.RFC3339),
		Admin:       dto.NewAdminResponse(result.Admin),
	}
}
