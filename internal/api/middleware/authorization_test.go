package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	internaljwt "botpos-chat-backend/internal/jwt"
)

func TestValidateAdminJWTStoresIdentity(t *testing.T) {
	internaljwt.Configure("test-admin-secret", time.Hour)

	tokens, err := internaljwt.CreateToken(internaljwt.User{Id: "admin-1", Email: "ops@example.com"}, internaljwt.RoleAdmin, 0)
	if err != nil {
		t.Fatalf("create token: %v", err)
	}

	var seen internaljwt.User
	handler := ValidateAdminJWT(func(w http.ResponseWriter, r *http.Request) {
		user, ok := AdminFromContext(r.Context())
		if !ok {
			t.Fatal("expected admin in context")
		}
		seen = user
	})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen.Id != "admin-1" || seen.Email != "ops@example.com" {
		t.Fatalf("unexpected identity %#v", seen)
	}

	wsReq := httptest.NewRequest(http.MethodGet, "/api/ws/v1/admin?token="+tokens.AccessToken, nil)
	wsRec := httptest.NewRecorder()
	handler(wsRec, wsReq)
	if wsRec.Code != http.StatusOK {
		t.Fatalf("expected query token to be accepted, got %d", wsRec.Code)
	}
}

func TestValidateAdminJWTRejectsMissingAndBadTokens(t *testing.T) {
	internaljwt.Configure("test-admin-secret", time.Hour)

	called := false
	handler := ValidateAdminJWT(func(w http.ResponseWriter, r *http.Request) { called = true })

	for _, header := range []string{"", "Bearer", "Bearer not-a-token", "Basic abc"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rec.Code)
		}
	}
	if called {
		t.Fatal("handler should not run without a valid token")
	}
}

func TestChannelSecret(t *testing.T) {
	handler := ChannelSecret("s3cret")(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	cases := map[string]int{
		"s3cret": http.StatusNoContent,
		"wrong":  http.StatusUnauthorized,
		"":       http.StatusUnauthorized,
	}
	for secret, want := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/channel/v1/messages", nil)
		if secret != "" {
			req.Header.Set(ChannelSecretHeader, secret)
		}
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != want {
			t.Fatalf("secret %q: expected %d, got %d", secret, want, rec.Code)
		}
	}

	closed := ChannelSecret("")(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("empty secret should reject")
	})
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(ChannelSecretHeader, "")
	closed(httptest.NewRecorder(), req)
}

func TestChainRunsFirstMiddlewareFirst(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.HandlerFunc) http.HandlerFunc {
			return func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next(w, r)
			}
		}
	}

	h := Chain(func(w http.ResponseWriter, r *http.Request) { order = append(order, "handler") }, mark("a"), mark("b"))
	h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "handler" {
		t.Fatalf("unexpected order %v", order)
	}
}
