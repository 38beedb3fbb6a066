package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/anonbox/internal/domain"
	"github.com/ErlanBelekov/anonbox/internal/transport/http/middleware"
	"github.com/ErlanBelekov/anonbox/internal/usecase"
	"github.com/gin-gonic/gin"
)

type accountUsecaser interface {
	CheckHandleAvailability(ctx context.Context, handle string) (*usecase.HandleAvailability, error)
	Profile(ctx context.Context, accountID string) (*domain.PublicProfile, error)
}

type AccountHandler struct {
	accounts accountUsecaser
	logger   *slog.Logger
}

func NewAccountHandler(accounts accountUsecaser, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger.With("component", "account_handler")}
}

type handleAvailabilityResponse struct {
	Handle            string `json:"handle"`
	Available         bool   `json:"available"`
	AcceptingMessages bool   `json:"accepting_messages"`
}

// GET /handles/:handle
func (h *AccountHandler) CheckHandle(c *gin.Context) {
	avail, err := h.accounts.CheckHandleAvailability(c.Request.Context(), c.Param("handle"))
	if err != nil {
		respondError(c, h.logger, "check handle", err)
		return
	}

	c.JSON(http.StatusOK, handleAvailabilityResponse{
		Handle:            avail.Handle,
		Available:         avail.Available,
		AcceptingMessages: avail.AcceptingMessages,
	})
}

// GET /me
func (h *AccountHandler) Me(c *gin.Context) {
	p, err := h.accounts.Profile(c.Request.Context(), c.GetString(middleware.AccountIDKey))
	if err != nil {
		respondError(c, h.logger, "get profile", err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(p))
}
