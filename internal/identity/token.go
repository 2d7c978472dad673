package identity

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type idTokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name"`
}

// UserInfoFromIDToken reads the email and name claims of an OIDC ID token.
// The signature is not checked: the token must come from a session the auth
// provider has already verified.
func UserInfoFromIDToken(token string) (*UserInfo, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNotAuthenticated
	}
	var claims idTokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("parse id token: %w", err)
	}
	if claims.Email == "" && claims.Name == "" {
		return nil, ErrNoIdentity
	}
	return &UserInfo{Email: claims.Email, Name: claims.Name}, nil
}
