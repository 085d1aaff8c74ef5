package port

import (
	"errors"

	"github.com/arklim/marketplace-auth/internal/core/domain"
)

var (
	// ErrTokenInvalid covers bad signatures, malformed tokens and unexpected claims.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired indicates a well-formed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// PasswordHasher hashes and verifies secrets using the configured algorithm.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password string, encoded string) (bool, error)
}

// TokenClaims is the identity carried by access and refresh tokens.
type TokenClaims struct {
	ID   string
	Role domain.Role
}

// TokenIssuer signs and verifies session tokens.
type TokenIssuer interface {
	IssueAccessToken(id string, role domain.Role) (string, error)
	IssueRefreshToken(id string, role domain.Role) (string, error)
	VerifyAccessToken(token string) (TokenClaims, error)
	VerifyRefreshToken(token string) (TokenClaims, error)
}
