package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/anonbox/internal/domain"
	"github.com/gin-gonic/gin"
)

const errInternalServer = "Internal server error"

// Reasons let clients branch on a failure without parsing messages.
const (
	reasonInvalidCredential = "invalid_credential"
	reasonInvalidCode       = "invalid_code"
	reasonCodeExpired       = "code_expired"
	reasonAlreadyVerified   = "already_verified"
	reasonNoPending         = "no_pending_verification"
	reasonNotAccepting      = "not_accepting"
)

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindNotAccepting:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCredential):
		return reasonInvalidCredential
	case errors.Is(err, domain.ErrInvalidCode):
		return reasonInvalidCode
	case errors.Is(err, domain.ErrCodeExpired):
		return reasonCodeExpired
	case errors.Is(err, domain.ErrAlreadyVerified):
		return reasonAlreadyVerified
	case errors.Is(err, domain.ErrNoPendingVerification):
		return reasonNoPending
	case errors.Is(err, domain.ErrNotAccepting):
		return reasonNotAccepting
	default:
		return ""
	}
}

// respondError writes err using its domain kind. Internal errors are logged and
// replaced with a generic message.
func respondError(c *gin.Context, logger *slog.Logger, op string, err error) {
	kind := domain.KindOf(err)
	if kind == domain.KindInternal {
		logger.ErrorContext(c.Request.Context(), op, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	body := gin.H{"error": err.Error()}
	if reason := reasonFor(err); reason != "" {
		body["reason"] = reason
	}
	c.JSON(statusFor(kind), body)
}
