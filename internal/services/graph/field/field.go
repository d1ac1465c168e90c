// Package field validates user-supplied text and URI field values.
package field

import (
	"fmt"
	"strings"
	"unicode/utf8"

	apperrors "github.com/lumenfeed/lumenfeed/internal/platform/errors"
)

const (
	// MaxURILength bounds every stored URI reference.
	MaxURILength = 2048
	// MaxTitleLength bounds publication titles.
	MaxTitleLength = 120
	// MaxDescriptionLength bounds publication descriptions.
	MaxDescriptionLength = 1000
	// MaxCategoryLength bounds each category tag.
	MaxCategoryLength = 64
)

// URI validates one URI reference. Required values must be non-empty; all
// values are bounded and must not contain whitespace.
func URI(name string, value string, required bool) error {
	value = strings.TrimSpace(value)
	if value == "" {
		if required {
			return apperrors.New(apperrors.CodeFieldInvalid, fmt.Sprintf("%s is required", name))
		}
		return nil
	}
	if len(value) > MaxURILength {
		return apperrors.New(apperrors.CodeFieldInvalid, fmt.Sprintf("%s must be at most %d bytes", name, MaxURILength))
	}
	if strings.ContainsAny(value, " \t\n\r") {
		return apperrors.New(apperrors.CodeFieldInvalid, fmt.Sprintf("%s must not contain whitespace", name))
	}
	return nil
}

// Text validates one free-text field against a rune bound.
func Text(name string, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return apperrors.New(apperrors.CodeFieldInvalid, fmt.Sprintf("%s must be at most %d characters", name, max))
	}
	return nil
}
