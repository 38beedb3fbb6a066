// Package redisstore keeps pending registrations in Redis. Each record is a hash
// keyed by contact address, with a secondary key mapping the reserved handle back
// to its contact address. Both carry the backstop TTL so Redis drops abandoned
// registrations on its own.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ErlanBelekov/anonbox/internal/domain"
	"github.com/ErlanBelekov/anonbox/internal/repository"
	"github.com/redis/go-redis/v9"
)

// stageScript replaces any record held by the contact address and evicts any
// other contact's record that reserved the same handle.
var stageScript = redis.NewScript(`
local prefix = ARGV[8]
local prev = redis.call('HGET', KEYS[1], 'handle')
if prev then
  local prevIdx = prefix .. ':handle:' .. prev
  if redis.call('GET', prevIdx) == ARGV[1] then
    redis.call('DEL', prevIdx)
  end
end
local owner = redis.call('GET', KEYS[2])
if owner and owner ~= ARGV[1] then
  redis.call('DEL', prefix .. ':pending:' .. owner)
end
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[1], 'contact', ARGV[1], 'handle', ARGV[2], 'credential_hash', ARGV[3], 'code', ARGV[4], 'expires_at', ARGV[5], 'created_at', ARGV[6])
redis.call('PEXPIRE', KEYS[1], ARGV[7])
redis.call('SET', KEYS[2], ARGV[1], 'PX', ARGV[7])
return 1
`)

var rotateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {}
end
redis.call('HSET', KEYS[1], 'code', ARGV[1], 'expires_at', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
local h = redis.call('HGET', KEYS[1], 'handle')
if h then
  redis.call('PEXPIRE', ARGV[4] .. ':handle:' .. h, ARGV[3])
end
return redis.call('HGETALL', KEYS[1])
`)

var consumeScript = redis.NewScript(`
local h = redis.call('HGET', KEYS[1], 'handle')
redis.call('DEL', KEYS[1])
if h then
  local idx = ARGV[2] .. ':handle:' .. h
  if redis.call('GET', idx) == ARGV[1] then
    redis.call('DEL', idx)
  end
end
return 1
`)

const (
	fieldContact        = "contact"
	fieldHandle         = "handle"
	fieldCredentialHash = "credential_hash"
	fieldCode           = "code"
	fieldExpiresAt      = "expires_at"
	fieldCreatedAt      = "created_at"
)

type PendingStore struct {
	client    *redis.Client
	codes     repository.CodeIssuer
	keyPrefix string
	backstop  time.Duration
	now       func() time.Time
}

func NewClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     strings.TrimSpace(addr),
		Password: password,
	})
}

func NewPendingStore(client *redis.Client, codes repository.CodeIssuer, keyPrefix string, backstop time.Duration) *PendingStore {
	keyPrefix = strings.TrimSpace(keyPrefix)
	if keyPrefix == "" {
		keyPrefix = "anonbox"
	}
	return &PendingStore{
		client:    client,
		codes:     codes,
		keyPrefix: keyPrefix,
		backstop:  backstop,
		now:       time.Now,
	}
}

// WithClock overrides the clock used for CreatedAt stamps.
func (s *PendingStore) WithClock(now func() time.Time) *PendingStore {
	s.now = now
	return s
}

func (s *PendingStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *PendingStore) Stage(ctx context.Context, contactAddress, handle, credentialHash string) (*domain.PendingRegistration, error) {
	code, err := s.codes.Issue()
	if err != nil {
		return nil, fmt.Errorf("stage pending registration: %w", err)
	}
	reg := &domain.PendingRegistration{
		ContactAddress: contactAddress,
		Handle:         handle,
		CredentialHash: credentialHash,
		Code:           code.Value,
		ExpiresAt:      code.ExpiresAt.UTC(),
		CreatedAt:      s.now().UTC(),
	}

	err = stageScript.Run(ctx, s.client,
		[]string{s.recordKey(contactAddress), s.handleKey(handle)},
		contactAddress,
		handle,
		credentialHash,
		reg.Code,
		reg.ExpiresAt.UnixMilli(),
		reg.CreatedAt.UnixMilli(),
		s.backstop.Milliseconds(),
		s.keyPrefix,
	).Err()
	if err != nil {
		return nil, fmt.Errorf("stage pending registration: %w", err)
	}
	return truncateMillis(reg), nil
}

func (s *PendingStore) Find(ctx context.Context, contactAddress string) (*domain.PendingRegistration, error) {
	fields, err := s.client.HGetAll(ctx, s.recordKey(contactAddress)).Result()
	if err != nil {
		return nil, fmt.Errorf("find pending registration: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrPendingNotFound
	}
	return decode(fields)
}

func (s *PendingStore) RotateCode(ctx context.Context, contactAddress string) (*domain.PendingRegistration, error) {
	code, err := s.codes.Issue()
	if err != nil {
		return nil, fmt.Errorf("rotate pending code: %w", err)
	}

	flat, err := rotateScript.Run(ctx, s.client,
		[]string{s.recordKey(contactAddress)},
		code.Value,
		code.ExpiresAt.UTC().UnixMilli(),
		s.backstop.Milliseconds(),
		s.keyPrefix,
	).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("rotate pending code: %w", err)
	}
	if len(flat) == 0 {
		return nil, domain.ErrPendingNotFound
	}

	fields := make(map[string]string, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		fields[flat[i]] = flat[i+1]
	}
	return decode(fields)
}

func (s *PendingStore) Consume(ctx context.Context, contactAddress string) error {
	err := consumeScript.Run(ctx, s.client,
		[]string{s.recordKey(contactAddress)},
		contactAddress,
		s.keyPrefix,
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("consume pending registration: %w", err)
	}
	return nil
}

func (s *PendingStore) recordKey(contactAddress string) string {
	return s.keyPrefix + ":pending:" + contactAddress
}

func (s *PendingStore) handleKey(handle string) string {
	return s.keyPrefix + ":handle:" + handle
}

func decode(fields map[string]string) (*domain.PendingRegistration, error) {
	expiresAt, err := parseMillis(fields[fieldExpiresAt])
	if err != nil {
		return nil, fmt.Errorf("decode pending registration expires_at: %w", err)
	}
	createdAt, err := parseMillis(fields[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("decode pending registration created_at: %w", err)
	}
	return &domain.PendingRegistration{
		ContactAddress: fields[fieldContact],
		Handle:         fields[fieldHandle],
		CredentialHash: fields[fieldCredentialHash],
		Code:           fields[fieldCode],
		ExpiresAt:      expiresAt,
		CreatedAt:      createdAt,
	}, nil
}

func parseMillis(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

// truncateMillis matches the precision a record has after a round trip through Redis.
func truncateMillis(reg *domain.PendingRegistration) *domain.PendingRegistration {
	reg.ExpiresAt = reg.ExpiresAt.Truncate(time.Millisecond)
	reg.CreatedAt = reg.CreatedAt.Truncate(time.Millisecond)
	return reg
}
