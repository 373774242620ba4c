package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	Identity string
	Role     string
}

// AccessTokenClaims represents the identity token presented by storefront clients.
// The subject carries the identity; role defaults to customer when absent.
type AccessTokenClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Identity returns the trimmed subject of the token.
func (c *AccessTokenClaims) Identity() string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.Subject)
}

// EffectiveRole lower-cases the role claim and falls back to customer.
func (c *AccessTokenClaims) EffectiveRole() string {
	if c == nil {
		return ""
	}
	role := strings.ToLower(strings.TrimSpace(c.Role))
	if role == "" {
		return RoleCustomer
	}
	return role
}

func validRole(role string) bool {
	switch role {
	case RoleCustomer, RoleAdmin:
		return true
	default:
		return false
	}
}
