package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ErlanBelekov/anonbox/internal/credential"
	"github.com/ErlanBelekov/anonbox/internal/domain"
	"github.com/ErlanBelekov/anonbox/internal/metrics"
	"github.com/ErlanBelekov/anonbox/internal/repository"
	"github.com/ErlanBelekov/anonbox/internal/verifycode"
)

const maxDerivedHandleAttempts = 1000

// CodeMailer delivers a verification code. *email.VerificationMailer satisfies it.
type CodeMailer interface {
	SendCode(ctx context.Context, to, handle, code string, expiresAt time.Time) error
}

// Challenge tells the caller a code is on its way. DevCode is set only in
// development mode when the email could not be sent.
type Challenge struct {
	ContactAddress string
	Handle         string
	ExpiresAt      time.Time
	DevCode        string
}

// SignInResult holds exactly one of Profile (signed in) or Challenge (the
// account still needs to be verified).
type SignInResult struct {
	Profile   *domain.PublicProfile
	Challenge *Challenge
}

type HandleAvailability struct {
	Handle            string
	Available         bool
	AcceptingMessages bool
}

type RegisterInput struct {
	ContactAddress string
	Handle         string
	Password       string
}

type RegistrationUsecase struct {
	accounts repository.AccountRepository
	pending  repository.PendingRegistrationStore
	hasher   credential.Hasher
	mailer   CodeMailer
	devMode  bool
	logger   *slog.Logger
	now      func() time.Time
}

func NewRegistrationUsecase(
	accounts repository.AccountRepository,
	pending repository.PendingRegistrationStore,
	hasher credential.Hasher,
	mailer CodeMailer,
	devMode bool,
	logger *slog.Logger,
) *RegistrationUsecase {
	return &RegistrationUsecase{
		accounts: accounts,
		pending:  pending,
		hasher:   hasher,
		mailer:   mailer,
		devMode:  devMode,
		logger:   logger.With("component", "registration"),
		now:      time.Now,
	}
}

// WithClock replaces the clock used for code expiry checks.
func (u *RegistrationUsecase) WithClock(now func() time.Time) *RegistrationUsecase {
	u.now = now
	return u
}

// Register stages a new registration and emails its code. An existing
// unverified account for the address is re-verified instead, provided the
// password matches.
func (u *RegistrationUsecase) Register(ctx context.Context, in RegisterInput) (*Challenge, error) {
	contact, err := normalizeContactAddress(in.ContactAddress)
	if err != nil {
		return nil, err
	}
	handle, err := normalizeHandle(in.Handle)
	if err != nil {
		return nil, err
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}

	acct, err := u.accounts.FindByContactAddress(ctx, contact)
	switch {
	case err == nil && acct.Verified:
		return nil, domain.ErrDuplicateAddress
	case err == nil:
		return u.reverify(ctx, acct, in.Password)
	case !errors.Is(err, domain.ErrAccountNotFound):
		return nil, fmt.Errorf("find account by address: %w", err)
	}

	taken, err := u.accounts.HandleExists(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("check handle: %w", err)
	}
	if taken {
		return nil, domain.ErrDuplicateHandle
	}

	return u.stageAndSend(ctx, contact, handle, in.Password)
}

// Resend rotates the code of an existing pending registration and emails it.
func (u *RegistrationUsecase) Resend(ctx context.Context, contactAddress string) (*Challenge, error) {
	contact, err := normalizeContactAddress(contactAddress)
	if err != nil {
		return nil, err
	}

	reg, err := u.pending.RotateCode(ctx, contact)
	if errors.Is(err, domain.ErrPendingNotFound) {
		if acct, findErr := u.accounts.FindByContactAddress(ctx, contact); findErr == nil && acct.Verified {
			return nil, domain.ErrAlreadyVerified
		}
		return nil, domain.ErrNoPendingVerification
	}
	if err != nil {
		return nil, fmt.Errorf("rotate code: %w", err)
	}

	return u.send(ctx, reg)
}

// Redeem checks code against the pending registration for contactAddress and,
// on a match, promotes it into a verified account. Concurrent redemptions for
// the same address are serialized by the account store's uniqueness
// constraints: exactly one promotes, the rest observe ErrAlreadyVerified.
func (u *RegistrationUsecase) Redeem(ctx context.Context, contactAddress, code string) (*domain.AutoSignIn, error) {
	result, err := u.redeem(ctx, contactAddress, code)
	metrics.VerificationOutcomesTotal.WithLabelValues(redeemOutcome(err)).Inc()
	return result, err
}

func (u *RegistrationUsecase) redeem(ctx context.Context, contactAddress, code string) (*domain.AutoSignIn, error) {
	contact, err := normalizeContactAddress(contactAddress)
	if err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if !verifycode.ValidFormat(code) {
		return nil, domain.ErrInvalidCodeFormat
	}

	reg, err := u.pending.Find(ctx, contact)
	if errors.Is(err, domain.ErrPendingNotFound) {
		if acct, findErr := u.accounts.FindByContactAddress(ctx, contact); findErr == nil && acct.Verified {
			return nil, domain.ErrAlreadyVerified
		}
		return nil, domain.ErrNoPendingVerification
	}
	if err != nil {
		return nil, fmt.Errorf("find pending registration: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(reg.Code), []byte(code)) != 1 {
		return nil, domain.ErrInvalidCode
	}
	if reg.Expired(u.now()) {
		u.consume(ctx, contact)
		return nil, domain.ErrCodeExpired
	}

	acct, err := u.promote(ctx, reg)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyVerified) || errors.Is(err, domain.ErrDuplicateHandle) {
			u.consume(ctx, contact)
		}
		return nil, err
	}
	u.consume(ctx, contact)

	u.logger.InfoContext(ctx, "account verified", "account_id", acct.ID, "handle", acct.Handle)
	return &domain.AutoSignIn{
		AccountID:      acct.ID,
		Handle:         acct.Handle,
		ContactAddress: acct.ContactAddress,
		Verified:       true,
	}, nil
}

// promote turns a redeemed pending registration into a verified account. Only an
// account found by contact address is reconciled; a different account holding
// the pending handle is a conflict, never silently merged.
func (u *RegistrationUsecase) promote(ctx context.Context, reg *domain.PendingRegistration) (*domain.Account, error) {
	acct, err := u.accounts.FindByContactAddress(ctx, reg.ContactAddress)
	switch {
	case err == nil && acct.Verified:
		return nil, domain.ErrAlreadyVerified
	case err == nil:
		verified, err := u.accounts.MarkVerified(ctx, acct.ID)
		if err != nil {
			if errors.Is(err, domain.ErrAlreadyVerified) {
				return nil, err
			}
			return nil, fmt.Errorf("mark account verified: %w", err)
		}
		return verified, nil
	case !errors.Is(err, domain.ErrAccountNotFound):
		return nil, fmt.Errorf("find account by address: %w", err)
	}

	created, err := u.accounts.Create(ctx, &domain.Account{
		Handle:            reg.Handle,
		ContactAddress:    reg.ContactAddress,
		CredentialHash:    reg.CredentialHash,
		Verified:          true,
		AcceptingMessages: true,
	})
	switch {
	case errors.Is(err, domain.ErrDuplicateAddress):
		return nil, domain.ErrAlreadyVerified
	case errors.Is(err, domain.ErrDuplicateHandle):
		return nil, domain.ErrDuplicateHandle
	case err != nil:
		return nil, fmt.Errorf("create account: %w", err)
	}
	return created, nil
}

// SignIn authenticates a verified account. Unknown addresses get a pending
// registration under a derived handle; unverified ones get a fresh code.
func (u *RegistrationUsecase) SignIn(ctx context.Context, contactAddress, password string) (*SignInResult, error) {
	contact, err := normalizeContactAddress(contactAddress)
	if err != nil {
		return nil, err
	}
	if err := checkPassword(password); err != nil {
		return nil, err
	}

	acct, err := u.accounts.FindByContactAddress(ctx, contact)
	switch {
	case err == nil && acct.Verified:
		if !u.hasher.Verify(password, acct.CredentialHash) {
			return nil, domain.ErrInvalidCredential
		}
		profile := acct.Profile()
		return &SignInResult{Profile: &profile}, nil
	case err == nil:
		ch, err := u.reverify(ctx, acct, password)
		if err != nil {
			return nil, err
		}
		return &SignInResult{Challenge: ch}, nil
	case !errors.Is(err, domain.ErrAccountNotFound):
		return nil, fmt.Errorf("find account by address: %w", err)
	}

	// An in-flight registration for this address is only re-sent to its owner.
	reg, err := u.pending.Find(ctx, contact)
	switch {
	case err == nil:
		if !u.hasher.Verify(password, reg.CredentialHash) {
			return nil, domain.ErrInvalidCredential
		}
		rotated, err := u.pending.RotateCode(ctx, contact)
		if err != nil {
			return nil, fmt.Errorf("rotate code: %w", err)
		}
		ch, err := u.send(ctx, rotated)
		if err != nil {
			return nil, err
		}
		return &SignInResult{Challenge: ch}, nil
	case !errors.Is(err, domain.ErrPendingNotFound):
		return nil, fmt.Errorf("find pending registration: %w", err)
	}

	handle, err := u.deriveHandle(ctx, contact)
	if err != nil {
		return nil, err
	}
	ch, err := u.stageAndSend(ctx, contact, handle, password)
	if err != nil {
		return nil, err
	}
	return &SignInResult{Challenge: ch}, nil
}

func (u *RegistrationUsecase) CheckHandleAvailability(ctx context.Context, handle string) (*HandleAvailability, error) {
	h, err := normalizeHandle(handle)
	if err != nil {
		return nil, err
	}
	acct, err := u.accounts.FindByHandle(ctx, h)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return &HandleAvailability{Handle: h, Available: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find account by handle: %w", err)
	}
	return &HandleAvailability{Handle: h, AcceptingMessages: acct.AcceptingMessages}, nil
}

func (u *RegistrationUsecase) Profile(ctx context.Context, accountID string) (*domain.PublicProfile, error) {
	acct, err := u.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	p := acct.Profile()
	return &p, nil
}

// reverify issues a fresh code for an unverified account. The password check
// keeps a stranger from triggering mail to someone else's address.
func (u *RegistrationUsecase) reverify(ctx context.Context, acct *domain.Account, password string) (*Challenge, error) {
	if !u.hasher.Verify(password, acct.CredentialHash) {
		return nil, domain.ErrInvalidCredential
	}

	reg, err := u.pending.RotateCode(ctx, acct.ContactAddress)
	if errors.Is(err, domain.ErrPendingNotFound) {
		reg, err = u.pending.Stage(ctx, acct.ContactAddress, acct.Handle, acct.CredentialHash)
		if err == nil {
			metrics.RegistrationsStagedTotal.Inc()
		}
	}
	if err != nil {
		return nil, fmt.Errorf("reissue code: %w", err)
	}
	return u.send(ctx, reg)
}

// stageAndSend stages a brand-new registration. Outside development mode a
// failed email consumes the record again so nothing is left unreachable.
func (u *RegistrationUsecase) stageAndSend(ctx context.Context, contact, handle, password string) (*Challenge, error) {
	hash, err := u.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash credential: %w", err)
	}

	reg, err := u.pending.Stage(ctx, contact, handle, hash)
	if err != nil {
		return nil, fmt.Errorf("stage registration: %w", err)
	}
	metrics.RegistrationsStagedTotal.Inc()

	ch, err := u.send(ctx, reg)
	if err != nil {
		u.consume(ctx, contact)
		return nil, err
	}
	return ch, nil
}

func (u *RegistrationUsecase) send(ctx context.Context, reg *domain.PendingRegistration) (*Challenge, error) {
	ch := &Challenge{
		ContactAddress: reg.ContactAddress,
		Handle:         reg.Handle,
		ExpiresAt:      reg.ExpiresAt,
	}

	err := u.mailer.SendCode(ctx, reg.ContactAddress, reg.Handle, reg.Code, reg.ExpiresAt)
	if err == nil {
		return ch, nil
	}
	if !u.devMode {
		return nil, fmt.Errorf("send verification code: %w", err)
	}

	u.logger.WarnContext(ctx, "verification email failed, surfacing code (dev mode)",
		"contact_address", reg.ContactAddress,
		"code", reg.Code,
		"error", err,
	)
	ch.DevCode = reg.Code
	return ch, nil
}

func (u *RegistrationUsecase) consume(ctx context.Context, contact string) {
	if err := u.pending.Consume(ctx, contact); err != nil {
		u.logger.ErrorContext(ctx, "consume pending registration", "contact_address", contact, "error", err)
	}
}

func (u *RegistrationUsecase) deriveHandle(ctx context.Context, contact string) (string, error) {
	base := handleBase(contact)
	candidate := base
	for n := 1; n <= maxDerivedHandleAttempts; n++ {
		taken, err := u.accounts.HandleExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check handle: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(n)
	}
	return "", fmt.Errorf("derive handle for %s: no free handle after %d attempts", contact, maxDerivedHandleAttempts)
}

func redeemOutcome(err error) string {
	switch {
	case err == nil:
		return "verified"
	case errors.Is(err, domain.ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, domain.ErrCodeExpired):
		return "expired"
	case errors.Is(err, domain.ErrAlreadyVerified):
		return "already_verified"
	case errors.Is(err, domain.ErrNoPendingVerification):
		return "no_pending"
	case errors.Is(err, domain.ErrDuplicateHandle):
		return "duplicate_handle"
	case domain.KindOf(err) == domain.KindValidation:
		return "invalid_input"
	default:
		return "error"
	}
}
