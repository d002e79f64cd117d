package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	internaljwt "botpos-chat-backend/internal/jwt"
)

const ChannelSecretHeader = "X-Channel-Secret"

type contextKey int

const adminKey contextKey = iota

// AdminFromContext returns the admin authenticated by ValidateAdminJWT.
func AdminFromContext(ctx context.Context) (internaljwt.User, bool) {
	user, ok := ctx.Value(adminKey).(internaljwt.User)
	return user, ok
}

// WithAdmin stores an authenticated admin on ctx.
func WithAdmin(ctx context.Context, user internaljwt.User) context.Context {
	return context.WithValue(ctx, adminKey, user)
}

// ExtractToken reads a bearer token from the Authorization header, falling
// back to the token query parameter used by websocket upgrades.
func ExtractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return r.URL.Query().Get("token")
}

func ValidateJWTMiddleware(role internaljwt.Role) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			tokenString := ExtractToken(r)
			if tokenString == "" {
				unauthorized(w, "Unauthorized")
				return
			}

			user, err := internaljwt.ParseToken(tokenString, role)
			if err != nil {
				unauthorized(w, "Unauthorized")
				return
			}

			next(w, r.WithContext(WithAdmin(r.Context(), user)))
		}
	}
}

var ValidateAdminJWT = ValidateJWTMiddleware(internaljwt.RoleAdmin)

// ChannelSecret admits requests whose X-Channel-Secret header matches
// secret. An empty secret rejects everything.
func ChannelSecret(secret string) Middleware {
	expected := []byte(secret)
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get(ChannelSecretHeader))
			if len(expected) == 0 || subtle.ConstantTimeCompare(got, expected) != 1 {
				unauthorized(w, "Invalid channel secret")
				return
			}
			next(w, r)
		}
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	writeMessage(w, http.StatusUnauthorized, message)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
