// Package memory holds in-process implementations of the account and pending
// registration stores, used by the local profile and by tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ErlanBelekov/anonbox/internal/domain"
	"github.com/google/uuid"
)

type accountEntry struct {
	account  domain.Account
	messages []domain.Message
}

type AccountStore struct {
	now func() time.Time

	mu        sync.RWMutex
	byID      map[string]*accountEntry
	byHandle  map[string]string // handle -> id
	byContact map[string]string // contact address -> id
}

func NewAccountStore(now func() time.Time) *AccountStore {
	if now == nil {
		now = time.Now
	}
	return &AccountStore{
		now:       now,
		byID:      make(map[string]*accountEntry),
		byHandle:  make(map[string]string),
		byContact: make(map[string]string),
	}
}

func (s *AccountStore) Create(_ context.Context, a *domain.Account) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byContact[a.ContactAddress]; ok {
		return nil, domain.ErrDuplicateAddress
	}
	if _, ok := s.byHandle[a.Handle]; ok {
		return nil, domain.ErrDuplicateHandle
	}

	now := s.now()
	e := &accountEntry{account: *a}
	e.account.ID = uuid.NewString()
	e.account.Messages = nil
	e.account.CreatedAt = now
	e.account.UpdatedAt = now

	s.byID[e.account.ID] = e
	s.byHandle[a.Handle] = e.account.ID
	s.byContact[a.ContactAddress] = e.account.ID

	out := e.account
	return &out, nil
}

func (s *AccountStore) FindByID(_ context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked(id)
}

func (s *AccountStore) FindByHandle(_ context.Context, handle string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byHandle[handle]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return s.copyLocked(id)
}

func (s *AccountStore) FindByContactAddress(_ context.Context, contactAddress string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byContact[contactAddress]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return s.copyLocked(id)
}

func (s *AccountStore) HandleExists(_ context.Context, handle string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byHandle[handle]
	return ok, nil
}

func (s *AccountStore) MarkVerified(_ context.Context, id string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	if e.account.Verified {
		return nil, domain.ErrAlreadyVerified
	}
	e.account.Verified = true
	e.account.PendingCode = nil
	e.account.PendingCodeExpiry = nil
	e.account.UpdatedAt = s.now()

	out := e.account
	return &out, nil
}

func (s *AccountStore) SetAcceptingMessages(_ context.Context, id string, accept bool) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	if e.account.AcceptingMessages != accept {
		e.account.AcceptingMessages = accept
		e.account.UpdatedAt = s.now()
	}

	out := e.account
	return &out, nil
}

func (s *AccountStore) AppendMessage(_ context.Context, handle, content string, createdAt time.Time) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byHandle[handle]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	e := s.byID[id]
	if !e.account.AcceptingMessages {
		return nil, domain.ErrNotAccepting
	}
	m := domain.Message{Content: content, CreatedAt: createdAt}
	e.messages = append(e.messages, m)
	return &m, nil
}

func (s *AccountStore) ListMessages(_ context.Context, accountID string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byID[accountID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	out := make([]domain.Message, len(e.messages))
	copy(out, e.messages)
	return out, nil
}

func (s *AccountStore) copyLocked(id string) (*domain.Account, error) {
	e, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	out := e.account
	return &out, nil
}
