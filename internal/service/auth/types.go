package auth

import (
	internaljwt "botpos-chat-backend/internal/jwt"
	"botpos-chat-backend/internal/model"
)

type LoginParams struct {
	Email    string
	Password string
}

type CreateAdminParams struct {
	Name     string
	Email    string
	Password string
}

type Identity struct {
	AdminID string
	Email   string
}

type AuthResult struct {
	Admin  model.AdminItem
	Tokens internaljwt.TokenResponse
}
