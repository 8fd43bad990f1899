// Package auth is the gateway trust boundary. Session issuance lives in the
// upstream gateway; this service only checks that a bearer token is present
// on API routes and reads the requester identity the gateway forwards.
package auth

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// UserHeader carries the authenticated arena user id, set by the gateway.
const UserHeader = "X-Arena-User"

const userKey = "arena_user"

// RequireBearerMiddleware guards /api/ routes. Infra endpoints and the
// websocket upgrade path stay open; spectator identity on the stream is
// optional by design. TA_AUTH_DISABLED=true turns the check off for dev.
func RequireBearerMiddleware() gin.HandlerFunc {
	disabled := strings.EqualFold(os.Getenv("TA_AUTH_DISABLED"), "true") || os.Getenv("TA_AUTH_DISABLED") == "1"

	return func(c *gin.Context) {
		user := strings.TrimSpace(c.GetHeader(UserHeader))
		if user != "" {
			c.Set(userKey, user)
		}
		if disabled {
			c.Next()
			return
		}
		p := c.Request.URL.Path
		if p == "/healthz" || p == "/readyz" || strings.HasPrefix(p, "/ws/") {
			c.Next()
			return
		}
		if strings.HasPrefix(p, "/api/") {
			token := strings.TrimSpace(c.GetHeader("Authorization"))
			if !strings.HasPrefix(token, "Bearer ") {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
				return
			}
			if user == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + UserHeader})
				return
			}
		}
		c.Next()
	}
}

// UserID returns the authenticated requester, or "" when the route allows
// anonymous access.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(userKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
