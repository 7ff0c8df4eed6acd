// Package listing implements the shared read-and-present helpers used by
// the gallery, testimonial and news-ticker features: client-style substring
// search, the dual-carousel half split, and the rotating ticker.
package listing

import (
	"strings"
)

// Search returns the items whose extracted text fields contain term,
// case-insensitively. An empty term returns all items. Order is preserved.
func Search[T any](items []T, term string, fields func(T) []string) []T {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		out := make([]T, len(items))
		copy(out, items)
		return out
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		for _, field := range fields(item) {
			if strings.Contains(strings.ToLower(field), term) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

// SplitHalves splits a list for the two parallel carousel tracks: the first
// half holds ceil(len/2) items, the second the remainder. Concatenating the
// halves reproduces the original order.
func SplitHalves[T any](items []T) (first, second []T) {
	half := (len(items) + 1) / 2
	return items[:half], items[half:]
}
