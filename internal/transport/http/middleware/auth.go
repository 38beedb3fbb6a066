package middleware

import (
	"net/http"
	"strings"

	"github.com/ErlanBelekov/anonbox/internal/reqctx"
	"github.com/gin-gonic/gin"
)

const (
	errUnauthorized = "Unauthorized"

	// AccountIDKey is the gin context key holding the authenticated account id.
	AccountIDKey = "accountID"
)

// TokenVerifier is satisfied by *session.Issuer.
type TokenVerifier interface {
	Verify(raw string) (string, error)
}

// Auth validates a Bearer token and sets the account id in both the gin context
// and the request context.
func Auth(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		accountID, err := tokens.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		c.Set(AccountIDKey, accountID)
		c.Request = c.Request.WithContext(reqctx.WithAccountID(c.Request.Context(), accountID))
		c.Next()
	}
}
