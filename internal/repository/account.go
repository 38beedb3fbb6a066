package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/anonbox/internal/domain"
)

// AccountRepository is the durable registry of confirmed accounts.
// Handle and contact address are each unique; implementations enforce this and
// report violations as domain.ErrDuplicateHandle / domain.ErrDuplicateAddress,
// which is what serializes concurrent promotions.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByHandle(ctx context.Context, handle string) (*domain.Account, error)
	FindByContactAddress(ctx context.Context, contactAddress string) (*domain.Account, error)
	HandleExists(ctx context.Context, handle string) (bool, error)

	// MarkVerified flips an unverified account to verified and clears its pending
	// code. Returns domain.ErrAlreadyVerified if the account was verified already.
	MarkVerified(ctx context.Context, id string) (*domain.Account, error)

	SetAcceptingMessages(ctx context.Context, id string, accept bool) (*domain.Account, error)

	// AppendMessage stores a message for handle only if the account is accepting
	// messages, as a single atomic step. Returns domain.ErrAccountNotFound or
	// domain.ErrNotAccepting otherwise.
	AppendMessage(ctx context.Context, handle, content string, createdAt time.Time) (*domain.Message, error)

	// ListMessages returns the account's messages oldest first.
	ListMessages(ctx context.Context, accountID string) ([]domain.Message, error)
}
