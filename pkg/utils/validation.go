package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 20
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_]*$`)

// ValidationError is returned for user input that fails a rule; Message is safe
// to show to the client.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateUsername: 3-20 characters, letters, numbers and underscores, not
// starting with an underscore.
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)

	switch {
	case len(username) < MinUsernameLength:
		return &ValidationError{Field: "username", Message: "Username must be at least 3 characters"}
	case len(username) > MaxUsernameLength:
		return &ValidationError{Field: "username", Message: "Username must be at most 20 characters"}
	case strings.HasPrefix(username, "_"):
		return &ValidationError{Field: "username", Message: "Username must start with a letter or number"}
	case !usernameRegex.MatchString(username):
		return &ValidationError{Field: "username", Message: "Username can only contain letters, numbers, and underscores"}
	}
	return nil
}

// NormalizeUsername converts username to lowercase for lookups
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength {
		return &ValidationError{Field: "password", Message: "Password must be at least 8 characters"}
	}
	if n > MaxPasswordLength {
		return &ValidationError{Field: "password", Message: "Password must be at most 128 characters"}
	}
	return nil
}

// TrimToLength trims surrounding space and cuts s to at most max runes.
func TrimToLength(s string, max int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
