package domain

import (
	"regexp"
	"strings"
)

const cacheKeyPrefix = "DISTANCE_"

var iataPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// NormalizeCode upper-cases a raw location code.
func NormalizeCode(raw string) string {
	return strings.ToUpper(raw)
}

// ValidCode reports whether code is exactly three upper-case ASCII letters.
func ValidCode(code string) bool {
	return iataPattern.MatchString(code)
}

// CanonicalPair orders two codes so that (a, b) and (b, a) share a cache key.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// CacheKey builds the cache key of an already canonical pair.
func CacheKey(a, b string) string {
	return cacheKeyPrefix + a + "_" + b
}
