package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ErlanBelekov/anonbox/internal/domain"
	"github.com/ErlanBelekov/anonbox/internal/stats"
	"github.com/ErlanBelekov/anonbox/internal/transport/http/middleware"
	"github.com/ErlanBelekov/anonbox/internal/usecase"
	"github.com/gin-gonic/gin"
)

type messageUsecaser interface {
	SubmitMessage(ctx context.Context, handle, content string) (*domain.Message, error)
	ToggleAcceptance(ctx context.Context, accountID string, accept bool) (*domain.PublicProfile, error)
	GetMessagesWithStats(ctx context.Context, accountID string) (*usecase.Dashboard, error)
}

type MessageHandler struct {
	messages messageUsecaser
	logger   *slog.Logger
}

func NewMessageHandler(messages messageUsecaser, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{messages: messages, logger: logger.With("component", "message_handler")}
}

type submitMessageRequest struct {
	Username string `json:"username" binding:"required"`
	Message  string `json:"message"`
}

type acceptMessagesRequest struct {
	AcceptMessages *bool `json:"accept_messages" binding:"required"`
}

type messageResponse struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type dayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type weekCount struct {
	Week  string `json:"week"`
	Count int    `json:"count"`
}

type monthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type statisticsResponse struct {
	TotalMessages     int          `json:"total_messages"`
	AvgMessagesPerDay float64      `json:"avg_messages_per_day"`
	MessagesPerDay    []dayCount   `json:"messages_per_day"`
	MessagesPerWeek   []weekCount  `json:"messages_per_week"`
	MessagesPerMonth  []monthCount `json:"messages_per_month"`
}

type dashboardResponse struct {
	Messages          []messageResponse  `json:"messages"`
	AcceptingMessages bool               `json:"accepting_messages"`
	Statistics        statisticsResponse `json:"statistics"`
}

func toStatisticsResponse(s stats.Statistics) statisticsResponse {
	out := statisticsResponse{
		TotalMessages:     s.Total,
		AvgMessagesPerDay: s.AvgPerDay,
		MessagesPerDay:    make([]dayCount, len(s.PerDay)),
		MessagesPerWeek:   make([]weekCount, len(s.PerWeek)),
		MessagesPerMonth:  make([]monthCount, len(s.PerMonth)),
	}
	for i, b := range s.PerDay {
		out.MessagesPerDay[i] = dayCount{Date: b.Label, Count: b.Count}
	}
	for i, b := range s.PerWeek {
		out.MessagesPerWeek[i] = weekCount{Week: b.Label, Count: b.Count}
	}
	for i, b := range s.PerMonth {
		out.MessagesPerMonth[i] = monthCount{Month: b.Label, Count: b.Count}
	}
	return out
}

// POST /messages
// Public. The sender is never recorded.
func (h *MessageHandler) Submit(c *gin.Context) {
	var req submitMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, err := h.messages.SubmitMessage(c.Request.Context(), req.Username, req.Message)
	if err != nil {
		respondError(c, h.logger, "submit message", err)
		return
	}

	c.JSON(http.StatusCreated, messageResponse{Content: m.Content, CreatedAt: m.CreatedAt})
}

// GET /me/messages
func (h *MessageHandler) Dashboard(c *gin.Context) {
	d, err := h.messages.GetMessagesWithStats(c.Request.Context(), c.GetString(middleware.AccountIDKey))
	if err != nil {
		respondError(c, h.logger, "get messages", err)
		return
	}

	msgs := make([]messageResponse, len(d.Messages))
	for i, m := range d.Messages {
		msgs[i] = messageResponse{Content: m.Content, CreatedAt: m.CreatedAt}
	}
	c.JSON(http.StatusOK, dashboardResponse{
		Messages:          msgs,
		AcceptingMessages: d.AcceptingMessages,
		Statistics:        toStatisticsResponse(d.Statistics),
	})
}

// PUT /me/accept-messages
func (h *MessageHandler) SetAcceptance(c *gin.Context) {
	var req acceptMessagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.messages.ToggleAcceptance(c.Request.Context(), c.GetString(middleware.AccountIDKey), *req.AcceptMessages)
	if err != nil {
		respondError(c, h.logger, "set acceptance", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"accepting_messages": p.AcceptingMessages})
}
