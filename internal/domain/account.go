package domain

import (
	"time"
)

const (
	MaxMessageLength = 1000
	MinHandleLength  = 3
	MaxHandleLength  = 20
)

type Account struct {
	ID                string
	Handle            string
	ContactAddress    string
	CredentialHash    string
	Verified          bool
	AcceptingMessages bool

	// Set only while Verified is false; cleared on promotion.
	PendingCode       *string
	PendingCodeExpiry *time.Time

	Messages  []Message // populated only by reads that ask for them
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is owned by exactly one Account. Insertion order is chronological order.
type Message struct {
	Content   string
	CreatedAt time.Time
}

// PublicProfile is the part of an Account safe to hand back to its owner.
type PublicProfile struct {
	ID                string
	Handle            string
	ContactAddress    string
	Verified          bool
	AcceptingMessages bool
}

func (a *Account) Profile() PublicProfile {
	return PublicProfile{
		ID:                a.ID,
		Handle:            a.Handle,
		ContactAddress:    a.ContactAddress,
		Verified:          a.Verified,
		AcceptingMessages: a.AcceptingMessages,
	}
}

// AutoSignIn is handed to the session layer after a successful code redemption
// so it can mint a session without prompting for credentials again.
type AutoSignIn struct {
	AccountID      string
	Handle         string
	ContactAddress string
	Verified       bool
}
