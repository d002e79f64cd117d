package dto

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AdminResponse struct {
	AdminID   string `json:"adminId"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

type AuthResponse struct {
	AccessToken string        `json:"accessToken"`
	ExpiresAt   string        `json:"expiresAt"`
	Admin       AdminResponse `json:"admin"`
}

type CreateAdminRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
