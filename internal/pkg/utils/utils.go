// Package utils holds small helpers shared across the service.
package utils

import "strings"

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Deref returns the value behind p, or the zero value when p is nil.
func Deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// CleanText replaces non-breaking spaces and collapses runs of whitespace.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeName is the comparison key for case-insensitive names.
func NormalizeName(s string) string {
	return strings.ToLower(CleanText(s))
}

// IsBlank reports whether p is nil or holds only whitespace.
func IsBlank(p *string) bool {
	return p == nil || strings.TrimSpace(*p) == ""
}

// TrimToNil trims p and returns nil when nothing is left.
func TrimToNil(p *string) *string {
	if IsBlank(p) {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}
