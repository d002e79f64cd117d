package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

func appendRoleChar(token string, role Role) string {
	switch role {
	case RoleAdmin:
		return token + "a"
	}
	return token
}

func expectedRoleChar(role Role) string {
	switch role {
	case RoleAdmin:
		return "a"
	}
	return ""
}

func CreateToken(user User, role Role, validUntil int64) (TokenResponse, error) {
	secret, ok := secretFor(role)
	if !ok {
		return TokenResponse{}, fmt.Errorf("no signing secret configured for role")
	}

	if validUntil == 0 {
		validUntil = time.Now().Add(currentTTL()).Unix()
	}

	claims := jwt.MapClaims{
		"id":    user.Id,
		"email": user.Email,
		"exp":   validUntil,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return TokenResponse{}, err
	}

	return TokenResponse{
		AccessToken: appendRoleChar(tokenString, role),
		ExpiresAt:   validUntil,
	}, nil
}

// ParseToken verifies an access token with its role char and returns the
// user it was issued to.
func ParseToken(tokenString string, role Role) (User, error) {
	if len(tokenString) == 0 {
		return User{}, fmt.Errorf("token string is empty")
	}

	if tokenString[len(tokenString)-1:] != expectedRoleChar(role) {
		return User{}, fmt.Errorf("invalid role character in token")
	}
	tokenString = tokenString[:len(tokenString)-1]

	secret, ok := secretFor(role)
	if !ok {
		return User{}, fmt.Errorf("no signing secret configured for role")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return User{}, fmt.Errorf("unauthorized: %v", err)
	}
	if !token.Valid {
		return User{}, fmt.Errorf("token is not valid - unauthorized")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return User{}, fmt.Errorf("claims of unauthorized type")
	}

	id, _ := claims["id"].(string)
	email, _ := claims["email"].(string)
	if id == "" {
		return User{}, fmt.Errorf("token carries no user id")
	}
	return User{Id: id, Email: email}, nil
}
