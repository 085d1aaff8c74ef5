package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/marketplace-auth/internal/core/domain"
	"github.com/arklim/marketplace-auth/internal/infra/config"
	"github.com/arklim/marketplace-auth/internal/transport/http/middleware"
)

// CookieJar writes the session cookies for both roles.
type CookieJar struct {
	domain     string
	path       string
	secure     bool
	sameSite   http.SameSite
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewCookieJar builds a jar whose cookie lifetimes mirror the token lifetimes.
func NewCookieJar(cfg config.CookieSettings, accessTTL, refreshTTL time.Duration) *CookieJar {
	path := cfg.Path
	if path == "" {
		path = "/"
	}
	return &CookieJar{
		domain:     cfg.Domain,
		path:       path,
		secure:     cfg.Secure,
		sameSite:   parseSameSite(cfg.SameSite),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func parseSameSite(raw string) http.SameSite {
	switch strings.ToLower(raw) {
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteStrictMode
	}
}

// SetAccess stores an access token under the role's access cookie.
func (j *CookieJar) SetAccess(c *gin.Context, role domain.Role, token string) {
	j.set(c, role.AccessCookie(), token, j.accessTTL)
}

// SetRefresh stores a refresh token under the role's refresh cookie.
func (j *CookieJar) SetRefresh(c *gin.Context, role domain.Role, token string) {
	j.set(c, role.RefreshCookie(), token, j.refreshTTL)
}

// Clear expires the named cookies.
func (j *CookieJar) Clear(c *gin.Context, names ...string) {
	for _, name := range names {
		if name == "" {
			continue
		}
		j.write(c, &http.Cookie{Name: name, Value: "", MaxAge: -1, Expires: time.Unix(0, 0)})
	}
}

// ClearAll expires every session cookie of both roles.
func (j *CookieJar) ClearAll(c *gin.Context) {
	for _, role := range []domain.Role{domain.RoleUser, domain.RoleSeller} {
		j.Clear(c, role.AccessCookie(), role.RefreshCookie())
	}
}

func (j *CookieJar) set(c *gin.Context, name, value string, ttl time.Duration) {
	j.write(c, &http.Cookie{
		Name:    name,
		Value:   value,
		MaxAge:  int(ttl / time.Second),
		Expires: time.Now().Add(ttl),
	})
}

func (j *CookieJar) write(c *gin.Context, cookie *http.Cookie) {
	cookie.Path = j.path
	cookie.Domain = j.domain
	cookie.Secure = j.secure
	cookie.HttpOnly = true
	cookie.SameSite = j.sameSite
	http.SetCookie(c.Writer, cookie)
}

// refreshTokens collects every place a refresh token may arrive from.
func refreshTokens(c *gin.Context) (seller, user, bearer string) {
	seller, _ = c.Cookie(domain.RoleSeller.RefreshCookie())
	user, _ = c.Cookie(domain.RoleUser.RefreshCookie())
	return seller, user, middleware.BearerToken(c.Request)
}
