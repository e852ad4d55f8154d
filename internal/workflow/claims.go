package workflow

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const maxClaims = 10

// Pattern pass regexes. Each match promotes the surrounding sentence to a
// candidate claim.
var (
	percentRE  = regexp.MustCompile(`\d+(?:\.\d+)?\s*(?:%|percent)`)
	currencyRE = regexp.MustCompile(`\$\d[\d,]*(?:\.\d+)?(?:\s*(?:million|billion|trillion|[mbk]))?`)
	yearRE     = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
	statRE     = regexp.MustCompile(`\b\d+(?:\.\d+)?\s*(?:million|billion|trillion|thousand)\b|\b\d+\s+(?:out\s+of|in)\s+\d+\b`)
	numberRE   = regexp.MustCompile(`\d+(?:\.\d+)?%?`)
)

// attributionWords indicate the claim names or implies a source
var attributionWords = []string{
	"according to", "report", "survey", "study", "research", "announced",
	"per ", "data from", "found that", "statistics",
}

// ExtractClaims mines factual assertions from the source text and all drafts.
// A regex pattern pass and a generation pass are merged, deduplicated under
// normalization, and capped to the top claims by severity.
func ExtractClaims(ctx context.Context, gen Generator, state *WorkflowState, temperature float64) []Claim {
	var b strings.Builder
	b.WriteString(state.SourceText)
	for _, platform := range AllPlatforms {
		if post, ok := state.Drafts[platform]; ok {
			b.WriteString("\n\n")
			b.WriteString(post.PrimaryText)
		}
	}
	combined := b.String()

	claims := patternClaims(combined)

	llmClaims, err := generationClaims(ctx, gen, combined, temperature)
	if err != nil {
		state.AppendError(fmt.Sprintf("claim extraction generation pass failed: %v", err))
	}
	claims = append(claims, llmClaims...)

	return capClaims(dedupeClaims(claims))
}

// patternClaims flags sentences carrying numeric expressions
func patternClaims(text string) []Claim {
	var claims []Claim
	for _, sentence := range sentenceSplitRE.Split(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if len(sentence) < 20 || len(sentence) > 300 {
			continue
		}
		if percentRE.MatchString(sentence) || currencyRE.MatchString(sentence) ||
			statRE.MatchString(sentence) || (yearRE.MatchString(sentence) && numberRE.MatchString(sentence)) {
			claims = append(claims, Claim{
				ID:       uuid.New().String(),
				Text:     sentence,
				Severity: classifySeverity(sentence),
			})
		}
	}
	return claims
}

func generationClaims(ctx context.Context, gen Generator, combined string, temperature float64) ([]Claim, error) {
	resp, err := gen.Generate(ctx, fmt.Sprintf(claimExtractPrompt, combined), "json", temperature)
	if err != nil {
		return nil, wrapGenerationErr(err)
	}
	var raw []struct {
		Text     string `json:"text"`
		Severity string `json:"severity"`
	}
	if err := parseJSON(resp, &raw); err != nil {
		return nil, fmt.Errorf("malformed claim extraction response: %w", err)
	}
	var claims []Claim
	for _, r := range raw {
		text := strings.TrimSpace(r.Text)
		if text == "" {
			continue
		}
		severity := ClaimSeverity(r.Severity)
		switch severity {
		case SeverityLow, SeverityMedium, SeverityHigh:
		default:
			severity = classifySeverity(text)
		}
		claims = append(claims, Claim{ID: uuid.New().String(), Text: text, Severity: severity})
	}
	return claims, nil
}

// classifySeverity: high if a statistic is paired with attribution, medium if
// numeric but unattributed, low otherwise
func classifySeverity(text string) ClaimSeverity {
	lower := strings.ToLower(text)
	hasNumber := percentRE.MatchString(lower) || currencyRE.MatchString(lower) || statRE.MatchString(lower) || numberRE.MatchString(lower)
	if !hasNumber {
		return SeverityLow
	}
	for _, w := range attributionWords {
		if strings.Contains(lower, w) {
			return SeverityHigh
		}
	}
	return SeverityMedium
}

var trailingPunctRE = regexp.MustCompile(`[.!?,;:]+$`)
var embeddedPercentRE = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(%|percent)`)

// normalizeClaim produces the canonical form used for equality: casefold,
// strip trailing punctuation, round embedded percentages to the nearest
// integer point.
func normalizeClaim(text string) string {
	norm := strings.ToLower(strings.TrimSpace(text))
	norm = trailingPunctRE.ReplaceAllString(norm, "")
	norm = embeddedPercentRE.ReplaceAllStringFunc(norm, func(m string) string {
		sub := embeddedPercentRE.FindStringSubmatch(m)
		v, err := strconv.ParseFloat(sub[1], 64)
		if err != nil {
			return m
		}
		return fmt.Sprintf("%d%%", int(v+0.5))
	})
	return strings.Join(strings.Fields(norm), " ")
}

func dedupeClaims(claims []Claim) []Claim {
	seen := make(map[string]int) // normalized text -> index in out
	var out []Claim
	for _, c := range claims {
		key := normalizeClaim(c.Text)
		if key == "" {
			continue
		}
		if i, ok := seen[key]; ok {
			// Keep the higher severity when duplicates disagree
			if c.Severity.rank() > out[i].Severity.rank() {
				out[i].Severity = c.Severity
			}
			continue
		}
		seen[key] = len(out)
		out = append(out, c)
	}
	return out
}

// capClaims keeps the top claims by severity, ties broken by order of
// appearance
func capClaims(claims []Claim) []Claim {
	sort.SliceStable(claims, func(i, j int) bool {
		return claims[i].Severity.rank() > claims[j].Severity.rank()
	})
	if len(claims) > maxClaims {
		claims = claims[:maxClaims]
	}
	return claims
}

// AssignClaims maps the unified claim list onto each platform by relevance:
// a claim belongs to a platform when its numbers or significant words appear
// in that platform's draft. Platforms with no matching claims get the full
// list so nothing escapes review.
func AssignClaims(state *WorkflowState, claims []Claim) {
	for platform, post := range state.Drafts {
		var matched []Claim
		postLower := strings.ToLower(post.PrimaryText)
		postNumbers := numberSet(post.PrimaryText)
		for _, c := range claims {
			if claimRelevant(c, postLower, postNumbers) {
				matched = append(matched, c)
			}
		}
		if len(matched) == 0 {
			matched = claims
		}
		state.Claims[platform] = matched
	}
}

func numberSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, n := range numberRE.FindAllString(text, -1) {
		set[strings.TrimSuffix(n, "%")] = true
	}
	return set
}

func claimRelevant(c Claim, postLower string, postNumbers map[string]bool) bool {
	for _, n := range numberRE.FindAllString(c.Text, -1) {
		if postNumbers[strings.TrimSuffix(n, "%")] {
			return true
		}
	}
	words := 0
	matches := 0
	for _, w := range strings.Fields(strings.ToLower(c.Text)) {
		if len(w) < 5 {
			continue
		}
		words++
		if strings.Contains(postLower, w) {
			matches++
		}
	}
	return words > 0 && float64(matches)/float64(words) > 0.3
}
