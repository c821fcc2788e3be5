package validator

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// IdentifierRx matches user, account and market ids: printable, no spaces.
var IdentifierRx = regexp.MustCompile(`^[A-Za-z0-9_.:@-]{1,128}$`)

// NotBlank reports whether value has any non-space character.
func NotBlank(value string) bool {
	return strings.TrimSpace(value) != ""
}

// MaxRunes reports whether value is at most n characters long.
func MaxRunes(value string, n int) bool {
	return utf8.RuneCountInString(value) <= n
}

// In reports whether value is one of list.
func In[T comparable](value T, list ...T) bool {
	for i := range list {
		if value == list[i] {
			return true
		}
	}
	return false
}

// NoDuplicates reports whether every value occurs once.
func NoDuplicates[T comparable](values []T) bool {
	seen := make(map[T]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			return false
		}
		seen[v] = struct{}{}
	}
	return true
}

// AllIdentifiers reports whether every value is a well formed identifier.
func AllIdentifiers(values []string) bool {
	for _, v := range values {
		if !IdentifierRx.MatchString(v) {
			return false
		}
	}
	return true
}

// PositiveWhole reports whether d is a strictly positive integer amount.
func PositiveWhole(d decimal.Decimal) bool {
	return d.IsPositive() && d.IsInteger()
}
