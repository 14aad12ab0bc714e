package service

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/NiketSingh147/StoreIt/internal/common"
)

const (
	minPasswordLen = 6
	minNameLen     = 2
	maxNameLen     = 50
)

// NormalizeEmail trims and lower-cases s and checks it is a bare address.
func NormalizeEmail(s string) (string, error) {
	e := strings.ToLower(strings.TrimSpace(s))
	if e == "" {
		return "", fmt.Errorf("%w: email is required", common.ErrValidation)
	}
	addr, err := mail.ParseAddress(e)
	if err != nil || addr.Address != e || !strings.Contains(e[strings.LastIndex(e, "@"):], ".") {
		return "", fmt.Errorf("%w: invalid email %q", common.ErrValidation, s)
	}
	return e, nil
}

// ValidatePassword enforces the password policy.
func ValidatePassword(pw string) error {
	if utf8.RuneCountInString(pw) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrValidation, minPasswordLen)
	}
	return nil
}

func validateFullName(name string) (string, error) {
	n := strings.TrimSpace(name)
	if l := utf8.RuneCountInString(n); l < minNameLen || l > maxNameLen {
		return "", fmt.Errorf("%w: full name must be %d to %d characters", common.ErrValidation, minNameLen, maxNameLen)
	}
	return n, nil
}
