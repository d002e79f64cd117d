// Package auth signs admins in to the dashboard.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"botpos-chat-backend/internal/apperror"
	"botpos-chat-backend/internal/database"
	internaljwt "botpos-chat-backend/internal/jwt"
	"botpos-chat-backend/internal/model"

	"github.com/google/uuid"
)

const minPasswordLength = 8

type Service struct {
	repo Repository
	now  func() time.Time
}

var createToken = internaljwt.CreateToken

// SetTokenIssuer swaps the token issuer; nil restores the default.
func SetTokenIssuer(issuer func(internaljwt.User, internaljwt.Role, int64) (internaljwt.TokenResponse, error)) {
	if issuer == nil {
		createToken = internaljwt.CreateToken
		return
	}
	createToken = issuer
}

func New(db *database.Database) *Service {
	return &Service{
		repo: NewDynamoRepository(db),
		now:  time.Now,
	}
}

func NewWithRepository(repo Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}

	return &Service{
		repo: repo,
		now:  now,
	}
}

func (s *Service) Login(ctx context.Context, params LoginParams) (AuthResult, error) {
	email := normalizeEmail(params.Email)
	password := strings.TrimSpace(params.Password)
	if email == "" || password == "" {
		return AuthResult{}, apperror.Validation("email and password are required")
	}

	admin, err := s.repo.FindAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return AuthResult{}, apperror.Unauthorized("invalid credentials", nil)
		}
		return AuthResult{}, apperror.Internal("failed to load admin", err)
	}
	if !internaljwt.ValidatePassword(admin.PasswordHash, password) {
		return AuthResult{}, apperror.Unauthorized("invalid credentials", nil)
	}

	tokens, err := createToken(internaljwt.User{Id: admin.AdminID, Email: admin.Email}, internaljwt.RoleAdmin, 0)
	if err != nil {
		return AuthResult{}, apperror.Internal("failed to issue tokens", err)
	}
	return AuthResult{Admin: admin, Tokens: tokens}, nil
}

func (s *Service) Me(ctx context.Context, identity Identity) (model.AdminItem, error) {
	if strings.TrimSpace(identity.AdminID) == "" {
		return model.AdminItem{}, apperror.Unauthorized("invalid admin identity", nil)
	}
	admin, err := s.repo.GetAdmin(ctx, identity.AdminID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.AdminItem{}, apperror.Unauthorized("admin no longer exists", err)
		}
		return model.AdminItem{}, apperror.Internal("failed to load admin", err)
	}
	return admin, nil
}

// CreateAdmin adds a dashboard account. Emails are unique ignoring case.
func (s *Service) CreateAdmin(ctx context.Context, params CreateAdminParams) (model.AdminItem, error) {
	email := normalizeEmail(params.Email)
	name := strings.TrimSpace(params.Name)
	password := strings.TrimSpace(params.Password)
	if email == "" || name == "" || password == "" {
		return model.AdminItem{}, apperror.Validation("name, email and password are required")
	}
	if !strings.Contains(email, "@") {
		return model.AdminItem{}, apperror.Validation("email is not valid")
	}
	if len(password) < minPasswordLength {
		return model.AdminItem{}, apperror.Validation("password must be at least 8 characters")
	}

	hash, err := internaljwt.HashPassword(password)
	if errors.Is(err, internaljwt.ErrPasswordTooLong) {
		return model.AdminItem{}, apperror.Validation("password must be at most 72 bytes")
	}
	if err != nil {
		return model.AdminItem{}, apperror.Internal("failed to prepare admin", err)
	}

	admin := model.AdminItem{
		AdminID:      uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC().Format(time.RFC3339),
	}
	if err := s.repo.CreateAdmin(ctx, admin); err != nil {
		if errors.Is(err, ErrExists) {
			return model.AdminItem{}, apperror.Conflict("an admin with this email already exists", err)
		}
		return model.AdminItem{}, apperror.PersistFailed("failed to save admin", err)
	}
	return admin, nil
}

// EnsureAdmin creates the bootstrap admin when no account uses email yet.
func (s *Service) EnsureAdmin(ctx context.Context, params CreateAdminParams) (model.AdminItem, bool, error) {
	if existing, err := s.repo.FindAdminByEmail(ctx, normalizeEmail(params.Email)); err == nil {
		return existing, false, nil
	}
	admin, err := s.CreateAdmin(ctx, params)
	if apperror.IsCode(err, apperror.CodeConflict) {
		existing, findErr := s.repo.FindAdminByEmail(ctx, normalizeEmail(params.Email))
		return existing, false, findErr
	}
	return admin, err == nil, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
