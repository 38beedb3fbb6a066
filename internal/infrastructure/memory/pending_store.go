package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ErlanBelekov/anonbox/internal/domain"
	"github.com/ErlanBelekov/anonbox/internal/repository"
)

type pendingEntry struct {
	reg     domain.PendingRegistration
	evictAt time.Time
}

// PendingStore keeps pending registrations in process memory. Records past their
// backstop deadline are invisible to reads and removed by Sweep.
type PendingStore struct {
	codes    repository.CodeIssuer
	backstop time.Duration
	now      func() time.Time

	mu        sync.Mutex
	byContact map[string]*pendingEntry
	byHandle  map[string]string // handle -> contact address
}

func NewPendingStore(codes repository.CodeIssuer, backstop time.Duration, now func() time.Time) *PendingStore {
	if now == nil {
		now = time.Now
	}
	return &PendingStore{
		codes:     codes,
		backstop:  backstop,
		now:       now,
		byContact: make(map[string]*pendingEntry),
		byHandle:  make(map[string]string),
	}
}

func (s *PendingStore) Stage(_ context.Context, contactAddress, handle, credentialHash string) (*domain.PendingRegistration, error) {
	code, err := s.codes.Issue()
	if err != nil {
		return nil, fmt.Errorf("stage pending registration: %w", err)
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(contactAddress)
	if owner, ok := s.byHandle[handle]; ok {
		s.removeLocked(owner)
	}

	e := &pendingEntry{
		reg: domain.PendingRegistration{
			ContactAddress: contactAddress,
			Handle:         handle,
			CredentialHash: credentialHash,
			Code:           code.Value,
			ExpiresAt:      code.ExpiresAt,
			CreatedAt:      now,
		},
		evictAt: now.Add(s.backstop),
	}
	s.byContact[contactAddress] = e
	s.byHandle[handle] = contactAddress

	reg := e.reg
	return &reg, nil
}

func (s *PendingStore) Find(_ context.Context, contactAddress string) (*domain.PendingRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.liveLocked(contactAddress)
	if !ok {
		return nil, domain.ErrPendingNotFound
	}
	reg := e.reg
	return &reg, nil
}

// RotateCode also pushes the backstop deadline out so it never fires before the
// new code expires.
func (s *PendingStore) RotateCode(_ context.Context, contactAddress string) (*domain.PendingRegistration, error) {
	code, err := s.codes.Issue()
	if err != nil {
		return nil, fmt.Errorf("rotate pending code: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.liveLocked(contactAddress)
	if !ok {
		return nil, domain.ErrPendingNotFound
	}
	e.reg.Code = code.Value
	e.reg.ExpiresAt = code.ExpiresAt
	e.evictAt = s.now().Add(s.backstop)

	reg := e.reg
	return &reg, nil
}

func (s *PendingStore) Consume(_ context.Context, contactAddress string) error {
	s.mu.Lock()
	s.removeLocked(contactAddress)
	s.mu.Unlock()
	return nil
}

// Sweep evicts every record whose backstop deadline is at or before now.
func (s *PendingStore) Sweep(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for contact, e := range s.byContact {
		if !now.Before(e.evictAt) {
			s.removeLocked(contact)
			n++
		}
	}
	return n, nil
}

func (s *PendingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byContact)
}

func (s *PendingStore) liveLocked(contactAddress string) (*pendingEntry, bool) {
	e, ok := s.byContact[contactAddress]
	if !ok {
		return nil, false
	}
	if !s.now().Before(e.evictAt) {
		s.removeLocked(contactAddress)
		return nil, false
	}
	return e, true
}

func (s *PendingStore) removeLocked(contactAddress string) {
	e, ok := s.byContact[contactAddress]
	if !ok {
		return
	}
	delete(s.byContact, contactAddress)
	if s.byHandle[e.reg.Handle] == contactAddress {
		delete(s.byHandle, e.reg.Handle)
	}
}
