package workflow

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mohammad-safakhou/postcraft/tools/search"
)

// domainBonusWeight is the share of confidence contributed by source
// credibility. The source material was internally inconsistent on this
// weight; 0.25 matches the canonical formula.
const domainBonusWeight = 0.25

const maxVerifyConcurrency = 4
const maxSourcesPerClaim = 3

// SearchCache stores search results keyed by provider and query. A nil-safe
// implementation backed by Redis lives in internal/store.
type SearchCache interface {
	GetSearchResults(ctx context.Context, provider, query string) ([]search.Result, bool)
	PutSearchResults(ctx context.Context, provider, query string, results []search.Result)
}

// Verifier resolves claims to confidence scores and source lists. Providers
// form a fallback chain: the next one is consulted only when the previous is
// exhausted across retries.
type Verifier struct {
	Providers  []search.Provider
	Embedder   Embedder
	Cache      SearchCache
	Policy     RetryPolicy
	MaxResults int
	Now        func() time.Time

	// OnSearch, when set, observes every provider call for telemetry
	OnSearch func(provider string, success bool)
}

// VerifyClaims enriches claims in place with confidence and sources. Each
// claim is verified independently and concurrently; a failed claim gets
// confidence 0 and an error note, never a run failure.
func (v *Verifier) VerifyClaims(ctx context.Context, claims []Claim, state *WorkflowState) []Claim {
	out := make([]Claim, len(claims))
	copy(out, claims)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxVerifyConcurrency)
	for i := range out {
		i := i
		g.Go(func() error {
			verified, err := v.verifyOne(gctx, out[i])
			if err != nil {
				state.AppendError(fmt.Sprintf("fact-check failed for claim %q: %v", truncate(out[i].Text, 60), err))
			}
			out[i] = verified
			return nil
		})
	}
	g.Wait()
	return out
}

func (v *Verifier) verifyOne(ctx context.Context, claim Claim) (Claim, error) {
	results, err := v.gatherResults(ctx, claim)
	if err != nil || len(results) == 0 {
		claim.Confidence = 0
		claim.Sources = nil
		if err == nil {
			err = fmt.Errorf("no search results")
		}
		return claim, err
	}

	claim.Confidence = v.scoreConfidence(ctx, claim, results)
	claim.Sources = nil
	for _, r := range results {
		claim.Sources = append(claim.Sources, ClaimSource{
			Title:       r.Title,
			URL:         r.URL,
			Credibility: credibilityFor(r.URL),
		})
		if len(claim.Sources) >= maxSourcesPerClaim {
			break
		}
	}
	return claim, nil
}

// gatherResults runs the query variants against the provider fallback chain
func (v *Verifier) gatherResults(ctx context.Context, claim Claim) ([]search.Result, error) {
	variants := queryVariants(claim.Text, v.now())
	k := v.MaxResults
	if k <= 0 {
		k = 5
	}

	var lastErr error
	for _, provider := range v.Providers {
		var results []search.Result
		failed := false
		for _, q := range variants {
			if v.Cache != nil {
				if cached, ok := v.Cache.GetSearchResults(ctx, provider.Name(), q); ok {
					results = append(results, cached...)
					continue
				}
			}
			var batch []search.Result
			err := v.Policy.Do(ctx, func(ctx context.Context) error {
				var serr error
				batch, serr = provider.Search(ctx, q, k)
				return serr
			})
			if v.OnSearch != nil {
				v.OnSearch(provider.Name(), err == nil)
			}
			if err != nil {
				lastErr = err
				failed = true
				break
			}
			if v.Cache != nil {
				v.Cache.PutSearchResults(ctx, provider.Name(), q, batch)
			}
			results = append(results, batch...)
		}
		if !failed {
			return search.Deduplicate(results), nil
		}
	}
	return nil, fmt.Errorf("all search providers exhausted: %w", lastErr)
}

func (v *Verifier) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

var entityRE = regexp.MustCompile(`\b[A-Z][a-zA-Z]{2,}(?:\s+[A-Z][a-zA-Z]{2,})*\b`)

// queryVariants builds 2-3 search queries: the literal claim, an
// entity/number-focused rephrasing, and a temporally-qualified one.
func queryVariants(claimText string, now time.Time) []string {
	variants := []string{claimText}

	numbers := numberRE.FindAllString(claimText, -1)
	entities := entityRE.FindAllString(claimText, -1)
	if len(numbers) > 0 || len(entities) > 0 {
		parts := append(append([]string{}, entities...), numbers...)
		focused := strings.Join(parts, " ")
		if focused != "" && focused != claimText {
			variants = append(variants, focused)
		}
	}

	year := yearRE.FindString(claimText)
	if year == "" {
		year = fmt.Sprintf("%d", now.Year())
	}
	temporal := claimText + " " + year
	if !strings.Contains(claimText, year) {
		variants = append(variants, temporal)
	}

	if len(variants) > 3 {
		variants = variants[:3]
	}
	return variants
}

// scoreConfidence implements the multi-factor confidence formula:
//
//	base       = min(1, 0.25 + 0.15*n)
//	domain     = mean credibility of result URLs, weighted by domainBonusWeight
//	similarity = 0.3 when the best claim/snippet cosine exceeds 0.8
//	title      = 0.2 when a claim number or quoted phrase appears verbatim in a title
func (v *Verifier) scoreConfidence(ctx context.Context, claim Claim, results []search.Result) float64 {
	base := math.Min(1.0, 0.25+0.15*float64(len(results)))

	var credSum float64
	for _, r := range results {
		credSum += credibilityFor(r.URL)
	}
	domainBonus := credSum / float64(len(results))

	simBonus := v.similarityBonus(ctx, claim.Text, results)
	title := titleBonus(claim.Text, results)

	return clamp01(base + domainBonus*domainBonusWeight + simBonus + title)
}

// similarityBonus embeds the claim alongside every snippet and awards the
// bonus when the best cosine similarity clears 0.8. Embedding failures cost
// only the bonus, never the verification.
func (v *Verifier) similarityBonus(ctx context.Context, claimText string, results []search.Result) float64 {
	if v.Embedder == nil {
		return 0
	}
	texts := []string{claimText}
	for _, r := range results {
		if r.Snippet != "" {
			texts = append(texts, r.Snippet)
		}
	}
	if len(texts) < 2 {
		return 0
	}
	vecs, err := v.Embedder.Embed(ctx, texts)
	if err != nil || len(vecs) != len(texts) {
		return 0
	}
	best := 0.0
	for _, sv := range vecs[1:] {
		if sim := cosineSimilarity(vecs[0], sv); sim > best {
			best = sim
		}
	}
	if best > 0.8 {
		return 0.3
	}
	return 0
}

var quotedPhraseRE = regexp.MustCompile(`"([^"]{3,})"|'([^']{3,})'`)

func titleBonus(claimText string, results []search.Result) float64 {
	numbers := numberRE.FindAllString(claimText, -1)
	var phrases []string
	for _, m := range quotedPhraseRE.FindAllStringSubmatch(claimText, -1) {
		if m[1] != "" {
			phrases = append(phrases, m[1])
		} else {
			phrases = append(phrases, m[2])
		}
	}
	for _, r := range results {
		titleLower := strings.ToLower(r.Title)
		for _, n := range numbers {
			if strings.Contains(r.Title, n) {
				return 0.2
			}
		}
		for _, p := range phrases {
			if strings.Contains(titleLower, strings.ToLower(p)) {
				return 0.2
			}
		}
	}
	return 0
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Domain credibility tiers. Applied per result URL, then averaged into the
// domain bonus and attached to each ClaimSource.
var credibilityTiers = []struct {
	score   float64
	markers []string
}{
	{0.95, []string{".gov", "who.int", "europa.eu", "oecd.org", "imf.org", "worldbank.org", "un.org"}},
	{0.85, []string{".edu", "nature.com", "thelancet.com", "nejm.org", "harvard.", "stanford.", "mit.edu", "oxford.", "cambridge.", "wikipedia.org"}},
	{0.75, []string{"reuters.com", "bloomberg.com", "wsj.com", "bbc.", "nytimes.com", "ft.com", "economist.com", "theguardian.com", "npr.org", "washingtonpost.com", "apnews.com"}},
	{0.6, []string{"gartner.com", "mckinsey.com", "deloitte.com", "statista.com", "forrester.com", "pewresearch.org", "weforum.org"}},
	{0.4, []string{"forbes.com", "fortune.com", "businessinsider.com", "cnbc.com", "techcrunch.com", "news."}},
}

// credibilityFor maps a source URL to its domain trust weight. Unrecognized
// domains land at 0.25.
func credibilityFor(url string) float64 {
	lower := strings.ToLower(url)
	for _, tier := range credibilityTiers {
		for _, m := range tier.markers {
			if strings.Contains(lower, m) {
				return tier.score
			}
		}
	}
	return 0.25
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
