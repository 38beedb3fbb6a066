package httptransport

import (
	"log/slog"

	"github.com/ErlanBelekov/anonbox/internal/repository"
	"github.com/ErlanBelekov/anonbox/internal/transport/http/handler"
	"github.com/ErlanBelekov/anonbox/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

type Handlers struct {
	Auth     *handler.AuthHandler
	Account  *handler.AccountHandler
	Messages *handler.MessageHandler
}

func NewRouter(logger *slog.Logger, h Handlers, accounts repository.AccountRepository, tokens middleware.TokenVerifier) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	// Public auth routes
	auth := r.Group("/auth")
	auth.POST("/sign-up", h.Auth.SignUp)
	auth.POST("/sign-in", h.Auth.SignIn)
	auth.POST("/verify", h.Auth.Verify)
	auth.POST("/resend", h.Auth.Resend)

	// Public sender routes
	r.GET("/handles/:handle", h.Account.CheckHandle)
	r.POST("/messages", h.Messages.Submit)

	// Recipient routes
	me := r.Group("/me", middleware.Auth(tokens), middleware.EnsureAccount(accounts, logger))
	me.GET("", h.Account.Me)
	me.GET("/messages", h.Messages.Dashboard)
	me.PUT("/accept-messages", h.Messages.SetAcceptance)

	return r
}
