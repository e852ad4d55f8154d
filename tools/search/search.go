package search

import (
	"context"
	"errors"
	"strings"
)

// Result is a single ranked search hit with source metadata.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Provider is the interface all search backends must satisfy.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, k int) ([]Result, error)
}

// ErrUnavailable signals that a provider could not serve the query at all
// (network failure, rate limiting, bad credentials). Callers treat it as a
// cue to fall back to the next provider in the chain.
var ErrUnavailable = errors.New("search provider unavailable")

// Deduplicate merges results by URL (or title fallback), keeping first seen.
func Deduplicate(in []Result) []Result {
	seen := make(map[string]bool, len(in))
	keyOf := func(r Result) string {
		if r.URL != "" {
			return r.URL
		}
		return strings.ToLower(r.Title)
	}
	out := make([]Result, 0, len(in))
	for _, r := range in {
		k := keyOf(r)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}
