package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/grocerycompare/price-service/internal/identity"
)

const sessionKey = "session"

// SessionVerifier validates bearer tokens.
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (identity.Session, error)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Auth requires a valid session and stores it in the context.
func Auth(v SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		sess, err := v.Verify(c.Request.Context(), token)
		if errors.Is(err, identity.ErrInvalidSession) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if err != nil {
			c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong. Please try again."})
			return
		}
		c.Set(sessionKey, sess)
		c.Next()
	}
}

// Session returns the session stored by Auth.
func Session(c *gin.Context) (identity.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return identity.Session{}, false
	}
	sess, ok := v.(identity.Session)
	return sess, ok
}

// IsAdmin reports whether the signed-in user is the administrator.
func IsAdmin(c *gin.Context, adminEmail string) bool {
	sess, ok := Session(c)
	if !ok || adminEmail == "" {
		return false
	}
	return identity.NormalizeEmail(sess.Email) == identity.NormalizeEmail(adminEmail)
}

// RequireAdmin rejects requests from anyone but the administrator. It
// must run after Auth.
func RequireAdmin(adminEmail string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c, adminEmail) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Only the administrator can do this"})
			return
		}
		c.Next()
	}
}
