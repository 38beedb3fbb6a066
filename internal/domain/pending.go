package domain

import "time"

// PendingRegistration is a staged, unconfirmed account awaiting code redemption.
// At most one exists per ContactAddress and per Handle.
type PendingRegistration struct {
	ContactAddress string
	Handle         string
	CredentialHash string
	Code           string
	ExpiresAt      time.Time
	CreatedAt      time.Time
}

func (p *PendingRegistration) Expired(now time.Time) bool {
	return p.ExpiresAt.Before(now)
}
