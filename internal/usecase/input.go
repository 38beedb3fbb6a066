package usecase

import (
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ErlanBelekov/anonbox/internal/domain"
	"github.com/go-playground/validator/v10"
)

const maxPasswordBytes = 72 // bcrypt ignores anything longer

var (
	handlePattern = regexp.MustCompile(`^[a-z0-9_]{3,20}$`)
	nonHandleChar = regexp.MustCompile(`[^a-z0-9]`)

	validate = validator.New()
)

func normalizeContactAddress(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || validate.Var(s, "email") != nil {
		return "", domain.ErrInvalidContactAddress
	}
	return s, nil
}

func normalizeHandle(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !handlePattern.MatchString(s) {
		return "", domain.ErrInvalidHandle
	}
	return s, nil
}

func checkPassword(s string) error {
	if s == "" || len(s) > maxPasswordBytes {
		return domain.ErrInvalidPassword
	}
	return nil
}

// normalizeContent trims surrounding whitespace and enforces the length bound in
// characters, not bytes.
func normalizeContent(s string) (string, error) {
	s = strings.TrimSpace(s)
	if n := utf8.RuneCountInString(s); n == 0 || n > domain.MaxMessageLength {
		return "", domain.ErrInvalidContent
	}
	return s, nil
}

// handleBase derives a handle stem from the local part of a contact address.
// The stem leaves room for a numeric suffix within MaxHandleLength.
func handleBase(contactAddress string) string {
	local, _, _ := strings.Cut(contactAddress, "@")
	base := nonHandleChar.ReplaceAllString(strings.ToLower(local), "")
	if len(base) > 16 {
		base = base[:16]
	}
	if len(base) < domain.MinHandleLength {
		base += strconv.Itoa(100 + rand.Intn(900))
	}
	return base
}
