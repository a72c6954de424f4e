// Package header turns raw CSV column headers into comparable tokens,
// fingerprints header layouts and classifies headers into canonical fields.
package header

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"
	"unicode"
)

const bom = "\ufeff"

// CleanHeader strips a UTF-8 byte order mark and surrounding whitespace.
func CleanHeader(raw string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), bom))
}

// Normalize lower-cases raw and collapses every run of characters that are
// not Unicode letters or digits into a single underscore.
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}

// NormalizedSorted returns the normalized headers in ascending order.
// Duplicates are kept so that the fingerprint reflects the full layout.
func NormalizedSorted(headers []string) []string {
	out := make([]string, 0, len(headers))
	for _, h := range headers {
		out = append(out, Normalize(h))
	}
	sort.Strings(out)
	return out
}

// Fingerprint is the hex SHA-1 of the sorted normalized headers joined by "|".
func Fingerprint(headers []string) string {
	sum := sha1.Sum([]byte(strings.Join(NormalizedSorted(headers), "|")))
	return hex.EncodeToString(sum[:])
}

// Jaccard compares two header lists as sets of normalized tokens.
func Jaccard(a, b []string) float64 {
	left := make(map[string]struct{}, len(a))
	for _, h := range a {
		left[Normalize(h)] = struct{}{}
	}
	union := make(map[string]struct{}, len(a)+len(b))
	for k := range left {
		union[k] = struct{}{}
	}
	inter := 0
	seen := make(map[string]struct{}, len(b))
	for _, h := range b {
		n := Normalize(h)
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		if _, ok := left[n]; ok {
			inter++
		}
		union[n] = struct{}{}
	}
	if len(union) == 0 {
		return 0
	}
	return float64(inter) / float64(len(union))
}
