package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ErlanBelekov/anonbox/internal/domain"
	"github.com/ErlanBelekov/anonbox/internal/infrastructure/memory"
	"github.com/ErlanBelekov/anonbox/internal/verifycode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newPendingStore(t *testing.T) (*memory.PendingStore, *clock) {
	t.Helper()
	clk := &clock{now: time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)}
	gen := verifycode.NewGenerator(10*time.Minute, verifycode.WithClock(clk.Now))
	return memory.NewPendingStore(gen, 11*time.Minute, clk.Now), clk
}

func TestPendingStore_StageAndFind(t *testing.T) {
	s, clk := newPendingStore(t)
	ctx := context.Background()

	reg, err := s.Stage(ctx, "a@x.io", "alice", "hash")
	require.NoError(t, err)
	assert.True(t, verifycode.ValidFormat(reg.Code))
	assert.Equal(t, clk.Now().Add(10*time.Minute), reg.ExpiresAt)

	got, err := s.Find(ctx, "a@x.io")
	require.NoError(t, err)
	assert.Equal(t, *reg, *got)
}

func TestPendingStore_StageReplacesPriorRecordForAddress(t *testing.T) {
	s, _ := newPendingStore(t)
	ctx := context.Background()

	_, err := s.Stage(ctx, "a@x.io", "alice", "h1")
	require.NoError(t, err)
	_, err = s.Stage(ctx, "a@x.io", "alice2", "h2")
	require.NoError(t, err)

	got, err := s.Find(ctx, "a@x.io")
	require.NoError(t, err)
	assert.Equal(t, "alice2", got.Handle)
	assert.Equal(t, "h2", got.CredentialHash)
	assert.Equal(t, 1, s.Len())

	// the old handle is free again
	_, err = s.Stage(ctx, "b@x.io", "alice", "h3")
	require.NoError(t, err)
	_, err = s.Find(ctx, "a@x.io")
	require.NoError(t, err)
}

func TestPendingStore_StageEvictsPriorHolderOfHandle(t *testing.T) {
	s, _ := newPendingStore(t)
	ctx := context.Background()

	_, err := s.Stage(ctx, "a@x.io", "alice", "h1")
	require.NoError(t, err)
	_, err = s.Stage(ctx, "b@x.io", "alice", "h2")
	require.NoError(t, err)

	_, err = s.Find(ctx, "a@x.io")
	assert.ErrorIs(t, err, domain.ErrPendingNotFound)

	got, err := s.Find(ctx, "b@x.io")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Handle)
}

func TestPendingStore_RotateCode(t *testing.T) {
	s, clk := newPendingStore(t)
	ctx := context.Background()

	orig, err := s.Stage(ctx, "a@x.io", "alice", "hash")
	require.NoError(t, err)

	clk.Advance(5 * time.Minute)
	rotated, err := s.RotateCode(ctx, "a@x.io")
	require.NoError(t, err)
	assert.Equal(t, clk.Now().Add(10*time.Minute), rotated.ExpiresAt)
	assert.Equal(t, orig.Handle, rotated.Handle)
	assert.Equal(t, orig.CredentialHash, rotated.CredentialHash)
	assert.Equal(t, orig.CreatedAt, rotated.CreatedAt)

	// the backstop restarted at rotation, so the record outlives the original deadline
	clk.Advance(10 * time.Minute)
	_, err = s.Find(ctx, "a@x.io")
	require.NoError(t, err)
}

func TestPendingStore_RotateCodeMissing(t *testing.T) {
	s, _ := newPendingStore(t)
	_, err := s.RotateCode(context.Background(), "nobody@x.io")
	assert.ErrorIs(t, err, domain.ErrPendingNotFound)
}

func TestPendingStore_ConsumeIsIdempotent(t *testing.T) {
	s, _ := newPendingStore(t)
	ctx := context.Background()

	_, err := s.Stage(ctx, "a@x.io", "alice", "hash")
	require.NoError(t, err)

	require.NoError(t, s.Consume(ctx, "a@x.io"))
	require.NoError(t, s.Consume(ctx, "a@x.io"))

	_, err = s.Find(ctx, "a@x.io")
	assert.ErrorIs(t, err, domain.ErrPendingNotFound)
}

func TestPendingStore_BackstopHidesAndSweepRemoves(t *testing.T) {
	s, clk := newPendingStore(t)
	ctx := context.Background()

	_, err := s.Stage(ctx, "a@x.io", "alice", "h1")
	require.NoError(t, err)
	clk.Advance(2 * time.Minute)
	_, err = s.Stage(ctx, "b@x.io", "bob", "h2")
	require.NoError(t, err)

	clk.Advance(9 * time.Minute)
	n, err := s.Sweep(ctx, clk.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.Find(ctx, "a@x.io")
	assert.ErrorIs(t, err, domain.ErrPendingNotFound)
	_, err = s.Find(ctx, "b@x.io")
	require.NoError(t, err)

	clk.Advance(2 * time.Minute)
	_, err = s.Find(ctx, "b@x.io")
	assert.ErrorIs(t, err, domain.ErrPendingNotFound)
	assert.Equal(t, 0, s.Len())
}
