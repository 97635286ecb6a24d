package auth

import (
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"edumedia/apierr"
	"edumedia/common"
	"edumedia/logger"
	"edumedia/models"
)

const (
	claimsKey  = "auth_claims"
	sessionKey = "auth_token"
)

// Guard authenticates requests from a bearer header or the session cookie.
type Guard struct {
	tokens *TokenIssuer
	admin  AdminIdentity
	log    *logger.Logger
}

func NewGuard(tokens *TokenIssuer, admin AdminIdentity, log *logger.Logger) *Guard {
	return &Guard{tokens: tokens, admin: admin, log: log.With("service", "AuthGuard")}
}

func (g *Guard) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			raw = sessionToken(c)
		}
		if raw == "" {
			g.reject(c, apierr.Unauthorized("Authentication required"))
			return
		}
		claims, err := g.tokens.Verify(raw)
		if err != nil {
			g.reject(c, apierr.Unauthorized("Invalid or expired token"))
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth. The role claim alone is not
// enough; the email must be the configured admin email too.
func (g *Guard) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			g.reject(c, apierr.Unauthorized("Authentication required"))
			return
		}
		if claims.Role != models.RoleAdmin || g.admin.Email == "" || claims.Email != g.admin.Email {
			g.reject(c, apierr.Forbidden("Admin access required"))
			return
		}
		c.Next()
	}
}

// Admin is RequireAuth followed by RequireAdmin.
func (g *Guard) Admin() []gin.HandlerFunc {
	return []gin.HandlerFunc{g.RequireAuth(), g.RequireAdmin()}
}

func (g *Guard) reject(c *gin.Context, err error) {
	common.Fail(c, g.log, err)
	c.Abort()
}

func ClaimsFrom(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// session returns nil when no sessions middleware is installed.
func session(c *gin.Context) sessions.Session {
	if _, ok := c.Get(sessions.DefaultKey); !ok {
		return nil
	}
	return sessions.Default(c)
}

func sessionToken(c *gin.Context) string {
	s := session(c)
	if s == nil {
		return ""
	}
	raw, _ := s.Get(sessionKey).(string)
	return raw
}
