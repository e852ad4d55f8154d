package duckduckgo

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mohammad-safakhou/postcraft/tools/search"
)

// Search implements search.Provider using the keyless DuckDuckGo instant
// answer API. Coverage is thinner than a full web index but it needs no
// credentials, which makes it the default fact-check backend.
type Search struct {
	http *search.HTTPClient
}

func New(timeout time.Duration, retries int) *Search {
	return &Search{http: search.NewHTTPClient(timeout, retries, 300*time.Millisecond)}
}

func (s *Search) Name() string { return "duckduckgo" }

func (s *Search) Search(ctx context.Context, query string, k int) ([]search.Result, error) {
	// https://api.duckduckgo.com/api
	u := fmt.Sprintf("https://api.duckduckgo.com/?q=%s&format=json&no_html=1&skip_disambig=1", url.QueryEscape(query))
	var raw struct {
		AbstractText   string `json:"AbstractText"`
		AbstractURL    string `json:"AbstractURL"`
		Heading        string `json:"Heading"`
		RelatedTopics  []ddgTopic
		Results        []ddgTopic
	}
	if err := s.http.DoJSON(ctx, "GET", u, map[string]string{"Accept": "application/json"}, nil, &raw); err != nil {
		return nil, fmt.Errorf("%w: duckduckgo: %v", search.ErrUnavailable, err)
	}

	var out []search.Result
	if raw.AbstractURL != "" && raw.AbstractText != "" {
		out = append(out, search.Result{Title: raw.Heading, URL: raw.AbstractURL, Snippet: raw.AbstractText})
	}
	for _, t := range append(raw.Results, flatten(raw.RelatedTopics)...) {
		if t.FirstURL == "" || t.Text == "" {
			continue
		}
		out = append(out, search.Result{Title: titleOf(t.Text), URL: t.FirstURL, Snippet: t.Text})
		if len(out) >= k {
			break
		}
	}
	return search.Deduplicate(out), nil
}

type ddgTopic struct {
	Text     string     `json:"Text"`
	FirstURL string     `json:"FirstURL"`
	Topics   []ddgTopic `json:"Topics"`
}

// flatten expands nested topic groups into a single list
func flatten(topics []ddgTopic) []ddgTopic {
	var out []ddgTopic
	for _, t := range topics {
		if len(t.Topics) > 0 {
			out = append(out, flatten(t.Topics)...)
			continue
		}
		out = append(out, t)
	}
	return out
}

// titleOf takes the leading clause of a topic text as a title
func titleOf(text string) string {
	if i := strings.Index(text, " - "); i > 0 {
		return text[:i]
	}
	if len(text) > 80 {
		return text[:80]
	}
	return text
}
