package session

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testKey = "session-test-secret-at-least-32-chars"

func TestIssueThenVerify(t *testing.T) {
	iss := NewIssuer([]byte(testKey), time.Hour)

	tok, exp, err := iss.Issue("acct-1", "alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if time.Until(exp) <= 59*time.Minute {
		t.Errorf("expiry %v is not about an hour out", exp)
	}

	sub, err := iss.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if sub != "acct-1" {
		t.Errorf("sub = %q, want acct-1", sub)
	}
}

func TestVerify_Expired(t *testing.T) {
	iss := NewIssuer([]byte(testKey), time.Minute)
	tok, _, err := iss.Issue("acct-1", "alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	iss.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := iss.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_WrongKey(t *testing.T) {
	tok, _, err := NewIssuer([]byte("another-secret-that-is-32-chars!!"), time.Hour).Issue("acct-1", "alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewIssuer([]byte(testKey), time.Hour).Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_RejectsNoneAndMissingClaims(t *testing.T) {
	iss := NewIssuer([]byte(testKey), time.Hour)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "acct-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := iss.Verify(none); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("alg=none must be rejected, got %v", err)
	}

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "acct-1"}).SignedString([]byte(testKey))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := iss.Verify(noExp); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token without exp must be rejected, got %v", err)
	}

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testKey))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := iss.Verify(noSub); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token without sub must be rejected, got %v", err)
	}
}
