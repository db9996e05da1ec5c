package shortener

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when no link matches the lookup.
	ErrNotFound = errors.New("link not found")

	// ErrInvalidURL is returned when a destination cannot be normalized to an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid destination url")

	// ErrInvalidAlias is returned when a custom alias fails the length or charset rules.
	ErrInvalidAlias = errors.New("custom alias must be 3-50 characters of letters, digits, '-' or '_'")

	// ErrAliasTaken is returned when a custom alias is already in use.
	ErrAliasTaken = errors.New("custom alias already taken")

	// ErrGenerationExhausted is returned when no free code was found within the attempt limit.
	ErrGenerationExhausted = errors.New("could not generate a unique short code")

	// ErrCodeConflict is returned by repositories when a write violates code uniqueness.
	ErrCodeConflict = errors.New("short code already exists")
)

// ValidationError reports field constraint failures on link input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}

	sort.Strings(parts)

	return "invalid link input: " + strings.Join(parts, "; ")
}
