package repository

import (
	"context"

	"github.com/ErlanBelekov/anonbox/internal/domain"
	"github.com/ErlanBelekov/anonbox/internal/verifycode"
)

// PendingRegistrationStore stages not-yet-confirmed registrations. It does not
// consult the AccountRepository; callers check availability first.
type PendingRegistrationStore interface {
	// Stage evicts any record keyed by contactAddress or holding handle, issues a
	// fresh code, and inserts the new record as one atomic unit.
	Stage(ctx context.Context, contactAddress, handle, credentialHash string) (*domain.PendingRegistration, error)
	// Find returns domain.ErrPendingNotFound when absent or backstop-expired.
	Find(ctx context.Context, contactAddress string) (*domain.PendingRegistration, error)
	// RotateCode re-issues code and expiry in place. Returns domain.ErrPendingNotFound when absent.
	RotateCode(ctx context.Context, contactAddress string) (*domain.PendingRegistration, error)
	// Consume deletes the record. Deleting an absent record is not an error.
	Consume(ctx context.Context, contactAddress string) error
}

// CodeIssuer is the slice of verifycode.Generator the stores depend on.
type CodeIssuer interface {
	Issue() (verifycode.Code, error)
}
