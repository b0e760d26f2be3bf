package dto

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims represents the identity claims carried by Keycloak access
// tokens. Token validity is established by the authorization server during
// the permission-ticket exchange; these claims are decoded only to identify
// the caller.
type TokenClaims struct {
	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
	Name              string `json:"name"`
	jwt.RegisteredClaims
}

// UserInfo represents the authenticated caller attached to the request
// context after the token exchange
type UserInfo struct {
	Sub         string   `json:"sub"`
	Username    string   `json:"username"`
	Email       string   `json:"email,omitempty"`
	Name        string   `json:"name,omitempty"`
	Permissions []string `json:"permissions"`
}

// HasPermission reports whether the caller holds the fully-qualified scope
func (u UserInfo) HasPermission(scope string) bool {
	for _, p := range u.Permissions {
		if p == scope {
			return true
		}
	}
	return false
}
