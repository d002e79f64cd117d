package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"botpos-chat-backend/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeAdminAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/admin/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req dto.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password != "right" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "invalid credentials"})
			return
		}
		json.NewEncoder(w).Encode(dto.AuthResponse{AccessToken: "tok-1", Admin: dto.AdminResponse{AdminID: "a-1"}})
	})
	mux.HandleFunc("/api/admin/v1/sessions", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "missing token"})
			return
		}
		json.NewEncoder(w).Encode([]dto.SessionResponse{
			{CustomerID: "c-1", CustomerName: "Aung Aung", Channel: "telegram", UnreadCount: 2},
		})
	})
	mux.HandleFunc("/api/admin/v1/sessions/unread-count", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(dto.UnreadCountResponse{Total: 2})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientLoginKeepsToken(t *testing.T) {
	srv := fakeAdminAPI(t)
	c := NewClient(srv.URL+"/api/admin/v1/", "")

	auth, err := c.Login(context.Background(), "owner@shop.mm", "right")
	require.NoError(t, err)
	assert.Equal(t, "a-1", auth.Admin.AdminID)
	assert.Equal(t, "tok-1", c.Token)

	sessions, err := c.Sessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "c-1", sessions[0].CustomerID)
}

func TestClientSurfacesAPIError(t *testing.T) {
	srv := fakeAdminAPI(t)
	c := NewClient(srv.URL+"/api/admin/v1", "")

	_, err := c.Login(context.Background(), "owner@shop.mm", "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid credentials", apiErr.Message)

	_, err = c.Sessions(context.Background())
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "missing token", apiErr.Message)
}

func TestResyncPrintsSnapshot(t *testing.T) {
	srv := fakeAdminAPI(t)
	c := NewClient(srv.URL+"/api/admin/v1", "tok-1")

	var out bytes.Buffer
	require.NoError(t, resync(c, &out)(context.Background()))

	text := out.String()
	assert.True(t, strings.HasPrefix(text, "-- 1 session(s), 2 unread --"), text)
	assert.Contains(t, text, `telegram/c-1 "Aung Aung" unread=2`)
}
