package jwt

type Role int

// User is the identity carried in an access token.
type User struct {
	Id    string `json:"id"`
	Email string `json:"email"`
}

type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresAt   int64  `json:"expiresAt"`
}
