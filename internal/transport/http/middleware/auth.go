package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arklim/marketplace-auth/internal/core/domain"
	"github.com/arklim/marketplace-auth/internal/usecase"
)

const accountKey = "account"

// Authenticator resolves an access token to the account it was issued for.
type Authenticator interface {
	Authenticate(ctx context.Context, token string, roles ...domain.Role) (domain.Account, error)
}

// ErrorResponder writes a service error to the client.
type ErrorResponder func(c *gin.Context, err error)

// RequireAccount authenticates the caller from the role's access cookie or a
// bearer header and stores the account on the context. Only tokens issued for
// one of roles are accepted.
func RequireAccount(auth Authenticator, respond ErrorResponder, roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := accessToken(c, roles)

		account, err := auth.Authenticate(c.Request.Context(), token, roles...)
		if err != nil {
			respond(c, err)
			c.Abort()
			return
		}

		c.Set(accountKey, account)
		reqCtx := GetRequestContext(c)
		reqCtx.AccountID = account.ID
		reqCtx.Role = account.Role.String()

		c.Next()
	}
}

// GetAccount returns the account stored by RequireAccount.
func GetAccount(c *gin.Context) (domain.Account, bool) {
	v, ok := c.Get(accountKey)
	if !ok {
		return domain.Account{}, false
	}
	account, ok := v.(domain.Account)
	return account, ok
}

func accessToken(c *gin.Context, roles []domain.Role) string {
	for _, role := range roles {
		if token, err := c.Cookie(role.AccessCookie()); err == nil && token != "" {
			return token
		}
	}
	return BearerToken(c.Request)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

var _ Authenticator = (*usecase.AuthService)(nil)
