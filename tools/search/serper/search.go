package serper

import (
	"context"
	"fmt"
	"time"

	"github.com/mohammad-safakhou/postcraft/tools/search"
)

// Search implements search.Provider using serper.dev, the premium Google
// wrapper. It is only wired when an API key is configured.
type Search struct {
	apiKey string
	http   *search.HTTPClient
}

func New(apiKey string, timeout time.Duration, retries int) *Search {
	return &Search{apiKey: apiKey, http: search.NewHTTPClient(timeout, retries, 300*time.Millisecond)}
}

func (s *Search) Name() string { return "serper" }

func (s *Search) Search(ctx context.Context, query string, k int) ([]search.Result, error) {
	var raw struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	headers := map[string]string{"X-API-KEY": s.apiKey}
	body := map[string]any{"q": query, "num": k}
	if err := s.http.DoJSON(ctx, "POST", "https://google.serper.dev/search", headers, body, &raw); err != nil {
		return nil, fmt.Errorf("%w: serper: %v", search.ErrUnavailable, err)
	}

	var out []search.Result
	for _, r := range raw.Organic {
		if r.Link == "" {
			continue
		}
		out = append(out, search.Result{Title: r.Title, URL: r.Link, Snippet: r.Snippet})
		if len(out) >= k {
			break
		}
	}
	return out, nil
}
