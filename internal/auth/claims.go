package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the only supported JWT claims shape for this service.
// Tenancy invariant: GroupID must be present for all non-admin activity; every
// user belongs to exactly one group and the group owns the shared balance.
type Claims struct {
	jwt.RegisteredClaims

	UserID    string    `json:"user_id"`
	GroupID   string    `json:"group_id"`
	Role      string    `json:"role"`
	TokenType TokenType `json:"token_type"`
}
