package auth

import (
	"context"
	"testing"
	"time"

	"botpos-chat-backend/internal/apperror"
	internaljwt "botpos-chat-backend/internal/jwt"
)

func stubIssuer(t *testing.T) {
	t.Helper()
	SetTokenIssuer(func(u internaljwt.User, r internaljwt.Role, validUntil int64) (internaljwt.TokenResponse, error) {
		return internaljwt.TokenResponse{AccessToken: "token-" + u.Id, ExpiresAt: 42}, nil
	})
	t.Cleanup(func() { SetTokenIssuer(nil) })
}

func newTestService() *Service {
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	return NewWithRepository(NewMemoryRepository(), func() time.Time { return now })
}

func TestCreateAdminAndLogin(t *testing.T) {
	stubIssuer(t)
	svc := newTestService()
	ctx := context.Background()

	admin, err := svc.CreateAdmin(ctx, CreateAdminParams{Name: "Ops", Email: " Ops@Shop.mm ", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if admin.Email != "ops@shop.mm" {
		t.Fatalf("expected normalized email, got %q", admin.Email)
	}
	if admin.PasswordHash == "s3cret-pass" {
		t.Fatal("password must be hashed")
	}

	res, err := svc.Login(ctx, LoginParams{Email: "OPS@shop.mm", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Tokens.AccessToken != "token-"+admin.AdminID {
		t.Fatalf("unexpected token %q", res.Tokens.AccessToken)
	}

	me, err := svc.Me(ctx, Identity{AdminID: admin.AdminID})
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if me.Name != "Ops" {
		t.Fatalf("unexpected admin %#v", me)
	}
}

func TestLoginFailures(t *testing.T) {
	stubIssuer(t)
	svc := newTestService()
	ctx := context.Background()
	if _, err := svc.CreateAdmin(ctx, CreateAdminParams{Name: "Ops", Email: "ops@shop.mm", Password: "s3cret-pass"}); err != nil {
		t.Fatalf("create admin: %v", err)
	}

	if _, err := svc.Login(ctx, LoginParams{Email: "ops@shop.mm", Password: "nope-nope"}); !apperror.IsCode(err, apperror.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for bad password, got %v", err)
	}
	if _, err := svc.Login(ctx, LoginParams{Email: "who@shop.mm", Password: "s3cret-pass"}); !apperror.IsCode(err, apperror.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for unknown email, got %v", err)
	}
	if _, err := svc.Login(ctx, LoginParams{Email: "ops@shop.mm"}); !apperror.IsCode(err, apperror.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateAdminRules(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.CreateAdmin(ctx, CreateAdminParams{Name: "A", Email: "a@shop.mm", Password: "short"}); !apperror.IsCode(err, apperror.CodeValidation) {
		t.Fatalf("expected validation error for short password, got %v", err)
	}
	if _, err := svc.CreateAdmin(ctx, CreateAdminParams{Name: "A", Email: "a@shop.mm", Password: "long-enough"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.CreateAdmin(ctx, CreateAdminParams{Name: "B", Email: "A@shop.mm", Password: "long-enough"}); !apperror.IsCode(err, apperror.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	_, created, err := svc.EnsureAdmin(ctx, CreateAdminParams{Name: "A", Email: "a@shop.mm", Password: "long-enough"})
	if err != nil || created {
		t.Fatalf("ensure existing: created=%v err=%v", created, err)
	}
	_, created, err = svc.EnsureAdmin(ctx, CreateAdminParams{Name: "Root", Email: "root@shop.mm", Password: "long-enough"})
	if err != nil || !created {
		t.Fatalf("ensure new: created=%v err=%v", created, err)
	}
}
