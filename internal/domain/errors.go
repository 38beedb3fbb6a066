package domain

import (
	"errors"
	"fmt"
)

// ValidationError describes malformed input. Its message is safe to show to callers.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

var (
	ErrInvalidContent        = &ValidationError{Field: "content", Reason: "must be between 1 and 1000 characters"}
	ErrInvalidCodeFormat     = &ValidationError{Field: "code", Reason: "must be a 6-digit number"}
	ErrInvalidHandle         = &ValidationError{Field: "username", Reason: "must be 3-20 letters, digits or underscores"}
	ErrInvalidContactAddress = &ValidationError{Field: "email", Reason: "must be a valid email address"}
	ErrInvalidPassword       = &ValidationError{Field: "password", Reason: "must be between 1 and 72 bytes"}
)

var (
	ErrAccountNotFound       = errors.New("account not found")
	ErrPendingNotFound       = errors.New("pending registration not found")
	ErrNoPendingVerification = errors.New("no pending verification found, please sign up again")

	ErrDuplicateHandle  = errors.New("username already exists")
	ErrDuplicateAddress = errors.New("email already exists")
	ErrAlreadyVerified  = errors.New("account already verified, please sign in")

	ErrInvalidCredential = errors.New("invalid email or password")
	ErrInvalidCode       = errors.New("invalid verification code")
	ErrCodeExpired       = errors.New("verification code has expired")

	ErrNotAccepting = errors.New("user is not accepting messages at the moment")
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthorized
	KindNotAccepting
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotAccepting:
		return "not_accepting"
	default:
		return "internal"
	}
}

// KindOf classifies err. Anything unrecognised is a dependency failure and
// reported as KindInternal.
func KindOf(err error) Kind {
	var ve *ValidationError
	switch {
	case err == nil:
		return KindInternal
	case errors.As(err, &ve):
		return KindValidation
	case errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrPendingNotFound),
		errors.Is(err, ErrNoPendingVerification):
		return KindNotFound
	case errors.Is(err, ErrDuplicateHandle),
		errors.Is(err, ErrDuplicateAddress),
		errors.Is(err, ErrAlreadyVerified):
		return KindConflict
	case errors.Is(err, ErrInvalidCredential),
		errors.Is(err, ErrInvalidCode),
		errors.Is(err, ErrCodeExpired):
		return KindUnauthorized
	case errors.Is(err, ErrNotAccepting):
		return KindNotAccepting
	default:
		return KindInternal
	}
}
