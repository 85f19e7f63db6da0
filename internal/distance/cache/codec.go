package cache

import (
	"math"
	"strconv"
)

// FormatDistance renders a distance with the shortest representation that
// parses back to the same float64. The separator is always '.'.
func FormatDistance(miles float64) string {
	return strconv.FormatFloat(miles, 'g', -1, 64)
}

// ParseDistance reads a cached distance. Empty, malformed and non-finite
// values report ok=false so callers treat them as a miss.
func ParseDistance(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
