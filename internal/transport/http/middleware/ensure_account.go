package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/anonbox/internal/domain"
	"github.com/gin-gonic/gin"
)

type accountFinder interface {
	FindByID(ctx context.Context, id string) (*domain.Account, error)
}

// EnsureAccount runs after Auth. A token outliving its account is rejected, as
// is one for an account that never finished verification.
func EnsureAccount(accounts accountFinder, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		acct, err := accounts.FindByID(c.Request.Context(), c.GetString(AccountIDKey))
		if err != nil {
			if errors.Is(err, domain.ErrAccountNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
				return
			}
			logger.ErrorContext(c.Request.Context(), "ensure account lookup", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				gin.H{"error": "Internal server error"})
			return
		}
		if !acct.Verified {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}
		c.Next()
	}
}
