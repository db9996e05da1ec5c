package shortener

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jaevor/go-nanoid"
)

const (
	// DefaultCodeLength is the length of generated codes.
	DefaultCodeLength = 6

	// MinCodeLength and MaxCodeLength bound the configurable generated code length.
	MinCodeLength = 6
	MaxCodeLength = 10

	// MaxGenerateAttempts bounds the draw loop for generated codes.
	MaxGenerateAttempts = 50

	alphanumeric = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

var aliasPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,50}$`)

// CodeSource draws a random candidate code.
type CodeSource func() string

// CodeChecker reports whether a code is already used. With foldCase the comparison
// ignores letter case.
type CodeChecker interface {
	CodeTaken(ctx context.Context, code string, foldCase bool) (bool, error)
}

// NewAlphanumericSource returns a nanoid source drawing codes of the given length from [0-9A-Za-z].
func NewAlphanumericSource(length int) (CodeSource, error) {
	gen, err := nanoid.CustomASCII(alphanumeric, length)
	if err != nil {
		return nil, fmt.Errorf("create code source: %w", err)
	}

	return CodeSource(gen), nil
}

// Generator proposes short codes that are free at the time of the check.
// It does not reserve anything; the repository's unique constraint settles races.
type Generator struct {
	checker     CodeChecker
	draw        CodeSource
	maxAttempts int
}

// NewGenerator creates a generator backed by checker and draw.
func NewGenerator(checker CodeChecker, draw CodeSource) *Generator {
	return &Generator{
		checker:     checker,
		draw:        draw,
		maxAttempts: MaxGenerateAttempts,
	}
}

// ValidAlias reports whether alias satisfies the custom alias rules.
func ValidAlias(alias string) bool {
	return aliasPattern.MatchString(alias)
}

// Generate returns customAlias when it is valid and unused, or a fresh random code when
// customAlias is empty.
func (g *Generator) Generate(ctx context.Context, customAlias string) (Code, error) {
	if customAlias != "" {
		if !ValidAlias(customAlias) {
			return "", ErrInvalidAlias
		}

		taken, err := g.checker.CodeTaken(ctx, customAlias, true)
		if err != nil {
			return "", fmt.Errorf("check alias: %w", err)
		}

		if taken {
			return "", ErrAliasTaken
		}

		return Code(customAlias), nil
	}

	for range g.maxAttempts {
		candidate := g.draw()

		taken, err := g.checker.CodeTaken(ctx, candidate, false)
		if err != nil {
			return "", fmt.Errorf("check code: %w", err)
		}

		if !taken {
			return Code(candidate), nil
		}
	}

	return "", ErrGenerationExhausted
}
