package auth

import "github.com/zfogg/sidechain/views/internal/models"

// TokenValidator resolves a bearer token to its claims. Handlers depend on
// this instead of *Service so tests can stub identity.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// TokenIssuer signs tokens for users
type TokenIssuer interface {
	IssueToken(user *models.User) (*TokenResponse, error)
}

var (
	_ TokenValidator = (*Service)(nil)
	_ TokenIssuer    = (*Service)(nil)
)
