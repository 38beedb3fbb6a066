// Package verifycode issues one-time numeric verification codes.
package verifycode

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"
)

const (
	Length = 6

	minCode = 100000
	maxCode = 999999
)

// Code is a freshly issued verification code and the moment it stops being valid.
type Code struct {
	Value     string
	ExpiresAt time.Time
}

type Generator struct {
	ttl  time.Duration
	now  func() time.Time
	rand io.Reader
}

type Option func(*Generator)

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func WithRand(r io.Reader) Option {
	return func(g *Generator) { g.rand = r }
}

func NewGenerator(ttl time.Duration, opts ...Option) *Generator {
	g := &Generator{
		ttl:  ttl,
		now:  time.Now,
		rand: rand.Reader,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) TTL() time.Duration {
	return g.ttl
}

// Issue draws a code uniformly from [100000, 999999]. Codes are not unique
// across calls; uniqueness only matters per contact address.
func (g *Generator) Issue() (Code, error) {
	n, err := rand.Int(g.rand, big.NewInt(maxCode-minCode+1))
	if err != nil {
		return Code{}, fmt.Errorf("generate code: %w", err)
	}
	return Code{
		Value:     fmt.Sprintf("%d", minCode+n.Int64()),
		ExpiresAt: g.now().Add(g.ttl),
	}, nil
}

// ValidFormat reports whether s looks like a code this package could have issued.
func ValidFormat(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s[0] != '0'
}
