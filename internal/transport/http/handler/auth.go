package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ErlanBelekov/anonbox/internal/domain"
	"github.com/ErlanBelekov/anonbox/internal/usecase"
	"github.com/gin-gonic/gin"
)

// registrationUsecaser is the subset of RegistrationUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type registrationUsecaser interface {
	Register(ctx context.Context, in usecase.RegisterInput) (*usecase.Challenge, error)
	Resend(ctx context.Context, contactAddress string) (*usecase.Challenge, error)
	Redeem(ctx context.Context, contactAddress, code string) (*domain.AutoSignIn, error)
	SignIn(ctx context.Context, contactAddress, password string) (*usecase.SignInResult, error)
}

// tokenIssuer is satisfied by *session.Issuer.
type tokenIssuer interface {
	Issue(accountID, handle string) (string, time.Time, error)
}

type AuthHandler struct {
	registration registrationUsecaser
	tokens       tokenIssuer
	logger       *slog.Logger
}

func NewAuthHandler(registration registrationUsecaser, tokens tokenIssuer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		registration: registration,
		tokens:       tokens,
		logger:       logger.With("component", "auth_handler"),
	}
}

type signUpRequest struct {
	Email    string `json:"email"    binding:"required"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type signInRequest struct {
	Email    string `json:"email"    binding:"required"`
	Password string `json:"password" binding:"required"`
}

type verifyRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code"  binding:"required"`
}

type resendRequest struct {
	Email string `json:"email" binding:"required"`
}

type challengeResponse struct {
	NeedsVerification bool      `json:"needs_verification"`
	Email             string    `json:"email"`
	Username          string    `json:"username"`
	ExpiresAt         time.Time `json:"expires_at"`
	VerifyCode        string    `json:"verify_code,omitempty"`
}

type userResponse struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	Email             string `json:"email"`
	Verified          bool   `json:"verified"`
	AcceptingMessages *bool  `json:"accepting_messages,omitempty"`
}

type sessionResponse struct {
	AutoSignIn bool         `json:"auto_sign_in,omitempty"`
	Token      string       `json:"token"`
	ExpiresAt  time.Time    `json:"expires_at"`
	User       userResponse `json:"user"`
}

func toChallengeResponse(ch *usecase.Challenge) challengeResponse {
	return challengeResponse{
		NeedsVerification: true,
		Email:             ch.ContactAddress,
		Username:          ch.Handle,
		ExpiresAt:         ch.ExpiresAt,
		VerifyCode:        ch.DevCode,
	}
}

func toUserResponse(p *domain.PublicProfile) userResponse {
	accepting := p.AcceptingMessages
	return userResponse{
		ID:                p.ID,
		Username:          p.Handle,
		Email:             p.ContactAddress,
		Verified:          p.Verified,
		AcceptingMessages: &accepting,
	}
}

// POST /auth/sign-up
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ch, err := h.registration.Register(c.Request.Context(), usecase.RegisterInput{
		ContactAddress: req.Email,
		Handle:         req.Username,
		Password:       req.Password,
	})
	if err != nil {
		respondError(c, h.logger, "sign up", err)
		return
	}

	c.JSON(http.StatusCreated, toChallengeResponse(ch))
}

// POST /auth/sign-in
// Verified accounts get a session; anything else gets a fresh code.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.registration.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, "sign in", err)
		return
	}
	if res.Challenge != nil {
		c.JSON(http.StatusOK, toChallengeResponse(res.Challenge))
		return
	}

	token, exp, err := h.tokens.Issue(res.Profile.ID, res.Profile.Handle)
	if err != nil {
		respondError(c, h.logger, "issue session", err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{
		Token:     token,
		ExpiresAt: exp,
		User:      toUserResponse(res.Profile),
	})
}

// POST /auth/verify
func (h *AuthHandler) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	auto, err := h.registration.Redeem(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		respondError(c, h.logger, "verify code", err)
		return
	}

	token, exp, err := h.tokens.Issue(auto.AccountID, auto.Handle)
	if err != nil {
		respondError(c, h.logger, "issue session", err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{
		AutoSignIn: true,
		Token:      token,
		ExpiresAt:  exp,
		User: userResponse{
			ID:       auto.AccountID,
			Username: auto.Handle,
			Email:    auto.ContactAddress,
			Verified: auto.Verified,
		},
	})
}

// POST /auth/resend
func (h *AuthHandler) Resend(c *gin.Context) {
	var req resendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ch, err := h.registration.Resend(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, h.logger, "resend code", err)
		return
	}

	c.JSON(http.StatusOK, toChallengeResponse(ch))
}
