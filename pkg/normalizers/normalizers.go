// Package normalizers provides string normalization functions for retailer
// identity matching.
package normalizers

import (
	"strings"
	"unicode"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	Register("lowercase", Lowercase)
	Register("trim", Trim)
	Register("letters_only", LettersOnly)
	Register("nretailer", NormalizeRetailerName)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// LettersOnly keeps only letter characters, lowercased
func LettersOnly(s string) string {
	var result strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// NormalizeRetailerName normalizes a retailer display name for matching:
// lowercase, non-letters stripped. "Amazon.ae", "Amazon US" and "amazon"
// all collapse to "amazonae"/"amazonus"/"amazon" before bucketing.
func NormalizeRetailerName(s string) string {
	return LettersOnly(strings.TrimSpace(s))
}

// BrandKey returns the dedup bucket for a retailer display name. Every name
// whose normalized form contains "amazon" folds into the canonical "amazon"
// bucket regardless of regional or storefront suffix; other names bucket by
// their full normalized form. An empty name yields an empty key, which never
// matches anything.
func BrandKey(name string) string {
	norm := NormalizeRetailerName(name)
	if strings.Contains(norm, "amazon") {
		return "amazon"
	}
	return norm
}
