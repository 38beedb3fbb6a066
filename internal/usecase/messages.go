package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ErlanBelekov/anonbox/internal/domain"
	"github.com/ErlanBelekov/anonbox/internal/metrics"
	"github.com/ErlanBelekov/anonbox/internal/repository"
	"github.com/ErlanBelekov/anonbox/internal/stats"
)

// Dashboard is what an account owner sees: their messages oldest first plus
// aggregate counts.
type Dashboard struct {
	Messages          []domain.Message
	AcceptingMessages bool
	Statistics        stats.Statistics
}

type MessageUsecase struct {
	accounts repository.AccountRepository
	location *time.Location
	logger   *slog.Logger
	now      func() time.Time
}

func NewMessageUsecase(accounts repository.AccountRepository, location *time.Location, logger *slog.Logger) *MessageUsecase {
	if location == nil {
		location = time.UTC
	}
	return &MessageUsecase{
		accounts: accounts,
		location: location,
		logger:   logger.With("component", "messages"),
		now:      time.Now,
	}
}

func (u *MessageUsecase) WithClock(now func() time.Time) *MessageUsecase {
	u.now = now
	return u
}

// SubmitMessage appends an anonymous message to handle's inbox. Nothing is
// stored unless the content is within bounds and the owner accepts messages.
func (u *MessageUsecase) SubmitMessage(ctx context.Context, handle, content string) (*domain.Message, error) {
	m, err := u.submit(ctx, handle, content)
	metrics.MessagesSubmittedTotal.WithLabelValues(submitOutcome(err)).Inc()
	return m, err
}

func (u *MessageUsecase) submit(ctx context.Context, handle, content string) (*domain.Message, error) {
	body, err := normalizeContent(content)
	if err != nil {
		return nil, err
	}
	h, err := normalizeHandle(handle)
	if err != nil {
		// a malformed handle can never have been registered
		return nil, domain.ErrAccountNotFound
	}

	m, err := u.accounts.AppendMessage(ctx, h, body, u.now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) || errors.Is(err, domain.ErrNotAccepting) {
			return nil, err
		}
		return nil, fmt.Errorf("append message: %w", err)
	}
	return m, nil
}

// ToggleAcceptance sets the owner's acceptance flag. Setting the current value is
// a successful no-op.
func (u *MessageUsecase) ToggleAcceptance(ctx context.Context, accountID string, accept bool) (*domain.PublicProfile, error) {
	acct, err := u.accounts.SetAcceptingMessages(ctx, strings.TrimSpace(accountID), accept)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("set accepting messages: %w", err)
	}
	u.logger.InfoContext(ctx, "acceptance changed", "accepting_messages", accept)
	p := acct.Profile()
	return &p, nil
}

func (u *MessageUsecase) GetMessagesWithStats(ctx context.Context, accountID string) (*Dashboard, error) {
	acct, err := u.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	msgs, err := u.accounts.ListMessages(ctx, acct.ID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	return &Dashboard{
		Messages:          msgs,
		AcceptingMessages: acct.AcceptingMessages,
		Statistics:        stats.Compute(msgs, u.now(), u.location),
	}, nil
}

func submitOutcome(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, domain.ErrNotAccepting):
		return "not_accepting"
	case errors.Is(err, domain.ErrAccountNotFound):
		return "unknown_handle"
	case errors.Is(err, domain.ErrInvalidContent):
		return "invalid_content"
	default:
		return "error"
	}
}
