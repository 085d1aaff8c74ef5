package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/arklim/marketplace-auth/internal/core/domain"
	"github.com/arklim/marketplace-auth/internal/core/port"
	"github.com/arklim/marketplace-auth/internal/infra/config"
)

var (
	ErrTokenInvalid = port.ErrTokenInvalid
	ErrTokenExpired = port.ErrTokenExpired
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// Claims is the JWT payload for both access and refresh tokens.
type Claims struct {
	ID   string      `json:"id"`
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs HS256 tokens with separate access and refresh secrets.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

var _ port.TokenIssuer = (*TokenIssuer)(nil)

// NewTokenIssuer validates the JWT settings and constructs an issuer.
func NewTokenIssuer(cfg config.JWTSettings) (*TokenIssuer, error) {
	if strings.TrimSpace(cfg.AccessSecret) == "" || strings.TrimSpace(cfg.RefreshSecret) == "" {
		return nil, fmt.Errorf("jwt: access and refresh secrets are required")
	}

	issuer := &TokenIssuer{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
		now:           func() time.Time { return time.Now().UTC() },
	}
	if issuer.accessTTL <= 0 {
		issuer.accessTTL = defaultAccessTTL
	}
	if issuer.refreshTTL <= 0 {
		issuer.refreshTTL = defaultRefreshTTL
	}
	return issuer, nil
}

// WithClock overrides the time source used for issuing and validating tokens.
func (t *TokenIssuer) WithClock(clock func() time.Time) *TokenIssuer {
	if clock != nil {
		t.now = clock
	}
	return t
}

// AccessTTL reports the lifetime of access tokens.
func (t *TokenIssuer) AccessTTL() time.Duration { return t.accessTTL }

// RefreshTTL reports the lifetime of refresh tokens.
func (t *TokenIssuer) RefreshTTL() time.Duration { return t.refreshTTL }

func (t *TokenIssuer) IssueAccessToken(id string, role domain.Role) (string, error) {
	return t.sign(id, role, t.accessSecret, t.accessTTL)
}

func (t *TokenIssuer) IssueRefreshToken(id string, role domain.Role) (string, error) {
	return t.sign(id, role, t.refreshSecret, t.refreshTTL)
}

func (t *TokenIssuer) VerifyAccessToken(token string) (port.TokenClaims, error) {
	return t.verify(token, t.accessSecret)
}

func (t *TokenIssuer) VerifyRefreshToken(token string) (port.TokenClaims, error) {
	return t.verify(token, t.refreshSecret)
}

func (t *TokenIssuer) sign(id string, role domain.Role, secret []byte, ttl time.Duration) (string, error) {
	if id == "" {
		return "", fmt.Errorf("jwt: subject id is required")
	}
	if !role.Valid() {
		return "", fmt.Errorf("jwt: invalid role %d", uint8(role))
	}

	now := t.now()
	claims := Claims{
		ID:   id,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}

func (t *TokenIssuer) verify(token string, secret []byte) (port.TokenClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return port.TokenClaims{}, ErrTokenInvalid
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)

	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return port.TokenClaims{}, ErrTokenExpired
		}
		return port.TokenClaims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !parsed.Valid || claims.ID == "" || !claims.Role.Valid() {
		return port.TokenClaims{}, ErrTokenInvalid
	}

	return port.TokenClaims{ID: claims.ID, Role: claims.Role}, nil
}
