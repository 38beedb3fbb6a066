package verifycode_test

import (
	"bytes"
	"strconv"
	"testing"
	"time"

	"github.com/ErlanBelekov/anonbox/internal/verifycode"
)

func TestIssue_CodeInRangeAndWellFormed(t *testing.T) {
	g := verifycode.NewGenerator(10 * time.Minute)

	for i := 0; i < 500; i++ {
		c, err := g.Issue()
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		n, err := strconv.Atoi(c.Value)
		if err != nil {
			t.Fatalf("code %q is not numeric", c.Value)
		}
		if n < 100000 || n > 999999 {
			t.Fatalf("code %d out of range", n)
		}
		if !verifycode.ValidFormat(c.Value) {
			t.Fatalf("ValidFormat(%q) = false", c.Value)
		}
	}
}

func TestIssue_ExpiresAtIsNowPlusTTL(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g := verifycode.NewGenerator(10*time.Minute, verifycode.WithClock(func() time.Time { return now }))

	c, err := g.Issue()
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if want := now.Add(10 * time.Minute); !c.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", c.ExpiresAt, want)
	}
}

func TestIssue_RandSourceError(t *testing.T) {
	g := verifycode.NewGenerator(time.Minute, verifycode.WithRand(bytes.NewReader(nil)))

	if _, err := g.Issue(); err == nil {
		t.Fatal("expected error from exhausted rand source")
	}
}

func TestValidFormat(t *testing.T) {
	cases := map[string]bool{
		"123456":  true,
		"999999":  true,
		"012345":  false,
		"12345":   false,
		"1234567": false,
		"12a456":  false,
		"":        false,
		" 12345":  false,
	}
	for in, want := range cases {
		if got := verifycode.ValidFormat(in); got != want {
			t.Errorf("ValidFormat(%q) = %v, want %v", in, got, want)
		}
	}
}
