package wikipedia

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mohammad-safakhou/postcraft/tools/search"
)

// Search implements search.Provider against the MediaWiki search API.
// Wikipedia results score well on credibility for encyclopedic claims but
// carry no fresh news coverage.
type Search struct {
	lang string
	http *search.HTTPClient
}

func New(lang string, timeout time.Duration, retries int) *Search {
	if lang == "" {
		lang = "en"
	}
	return &Search{lang: lang, http: search.NewHTTPClient(timeout, retries, 300*time.Millisecond)}
}

func (s *Search) Name() string { return "wikipedia" }

var tagRE = regexp.MustCompile(`<[^>]+>`)

func (s *Search) Search(ctx context.Context, query string, k int) ([]search.Result, error) {
	u := fmt.Sprintf("https://%s.wikipedia.org/w/api.php?action=query&list=search&format=json&srlimit=%d&srsearch=%s",
		s.lang, k, url.QueryEscape(query))
	var raw struct {
		Query struct {
			Search []struct {
				Title   string `json:"title"`
				Snippet string `json:"snippet"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := s.http.DoJSON(ctx, "GET", u, map[string]string{"Accept": "application/json"}, nil, &raw); err != nil {
		return nil, fmt.Errorf("%w: wikipedia: %v", search.ErrUnavailable, err)
	}

	var out []search.Result
	for _, r := range raw.Query.Search {
		if r.Title == "" {
			continue
		}
		pageURL := fmt.Sprintf("https://%s.wikipedia.org/wiki/%s", s.lang, url.PathEscape(strings.ReplaceAll(r.Title, " ", "_")))
		out = append(out, search.Result{
			Title:   r.Title,
			URL:     pageURL,
			Snippet: tagRE.ReplaceAllString(r.Snippet, ""),
		})
		if len(out) >= k {
			break
		}
	}
	return out, nil
}
