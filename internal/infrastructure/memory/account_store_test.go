package memory_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ErlanBelekov/anonbox/internal/domain"
	"github.com/ErlanBelekov/anonbox/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createAccount(t *testing.T, s *memory.AccountStore, handle, contact string, verified bool) *domain.Account {
	t.Helper()
	a, err := s.Create(context.Background(), &domain.Account{
		Handle:            handle,
		ContactAddress:    contact,
		CredentialHash:    "hash",
		Verified:          verified,
		AcceptingMessages: true,
	})
	require.NoError(t, err)
	return a
}

func TestAccountStore_CreateEnforcesUniqueness(t *testing.T) {
	s := memory.NewAccountStore(nil)
	ctx := context.Background()

	a := createAccount(t, s, "alice", "a@x.io", true)
	assert.NotEmpty(t, a.ID)

	_, err := s.Create(ctx, &domain.Account{Handle: "alice", ContactAddress: "other@x.io"})
	assert.ErrorIs(t, err, domain.ErrDuplicateHandle)

	_, err = s.Create(ctx, &domain.Account{Handle: "other", ContactAddress: "a@x.io"})
	assert.ErrorIs(t, err, domain.ErrDuplicateAddress)

	exists, err := s.HandleExists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAccountStore_Lookups(t *testing.T) {
	s := memory.NewAccountStore(nil)
	ctx := context.Background()
	a := createAccount(t, s, "alice", "a@x.io", true)

	byHandle, err := s.FindByHandle(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byHandle.ID)

	byContact, err := s.FindByContactAddress(ctx, "a@x.io")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byContact.ID)

	_, err = s.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	_, err = s.FindByHandle(ctx, "bob")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestAccountStore_MarkVerifiedOnce(t *testing.T) {
	s := memory.NewAccountStore(nil)
	ctx := context.Background()
	code := "123456"
	a, err := s.Create(ctx, &domain.Account{Handle: "alice", ContactAddress: "a@x.io", PendingCode: &code})
	require.NoError(t, err)

	v, err := s.MarkVerified(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, v.Verified)
	assert.Nil(t, v.PendingCode)

	_, err = s.MarkVerified(ctx, a.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyVerified)
}

func TestAccountStore_AppendMessageGate(t *testing.T) {
	s := memory.NewAccountStore(nil)
	ctx := context.Background()
	a := createAccount(t, s, "alice", "a@x.io", true)
	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.AppendMessage(ctx, "alice", "hi", at)
	require.NoError(t, err)

	_, err = s.SetAcceptingMessages(ctx, a.ID, false)
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, "alice", "blocked", at)
	assert.ErrorIs(t, err, domain.ErrNotAccepting)

	_, err = s.AppendMessage(ctx, "nobody", "hi", at)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	msgs, err := s.ListMessages(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Content)
}

func TestAccountStore_ConcurrentAppendsAllLand(t *testing.T) {
	s := memory.NewAccountStore(nil)
	ctx := context.Background()
	a := createAccount(t, s, "alice", "a@x.io", true)

	const n = 50
	var wg sync.WaitGroup
	var failed atomic.Int32
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.AppendMessage(ctx, "alice", "m", time.Now()); err != nil {
				failed.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Zero(t, failed.Load())
	msgs, err := s.ListMessages(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, n)
}
