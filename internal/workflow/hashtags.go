package workflow

import (
	"regexp"
	"sort"
	"strings"
)

// genericHashtags are oversaturated tags that add no targeting value
var genericHashtags = map[string]bool{
	"#ai": true, "#tech": true, "#technology": true, "#business": true,
	"#innovation": true, "#digital": true, "#future": true, "#trends": true,
	"#news": true, "#social": true, "#marketing": true, "#content": true,
}

var hashtagStopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "with": true,
	"will": true, "can": true, "this": true, "that": true, "from": true,
	"have": true, "been": true, "more": true, "than": true, "their": true,
}

var domainHashtags = map[string][]string{
	"healthcare":     {"#HealthTech", "#DigitalHealth", "#PatientCare"},
	"travel":         {"#TravelTech", "#Tourism", "#TravelGuide"},
	"sustainability": {"#GreenTech", "#SustainableBusiness", "#ClimateAction"},
	"remote work":    {"#RemoteWork", "#FutureOfWork", "#DigitalNomad"},
	"fintech":        {"#FinTech", "#DigitalPayments", "#FinancialServices"},
}

var wordRE = regexp.MustCompile(`\b[a-zA-Z]{4,}\b`)
var camelCaseRE = regexp.MustCompile(`[A-Z][a-z]+[A-Z]`)
var digitRE = regexp.MustCompile(`\d`)

// OptimizeHashtags replaces generic tags with content-derived ones and
// enforces the per-platform caps. Applied after generation, before review.
func OptimizeHashtags(state *WorkflowState) {
	for _, post := range state.Drafts {
		post.Hashtags = optimizeFor(post.Platform, post.Hashtags, post.PrimaryText, state.TopicHint)
	}
}

func optimizeFor(platform Platform, current []string, content, topicHint string) []string {
	var filtered []string
	for _, tag := range current {
		if !genericHashtags[strings.ToLower(tag)] {
			filtered = append(filtered, tag)
		}
	}

	combined := append(filtered, targetedHashtags(content, topicHint)...)
	combined = dedupeStrings(combined)

	max := ProfileFor(platform).MaxHashtags
	if max == 0 {
		max = 5
	}
	return prioritizeHashtags(combined, max)
}

func targetedHashtags(content, topicHint string) []string {
	var out []string
	topicLower := strings.ToLower(topicHint)
	for domain, tags := range domainHashtags {
		if strings.Contains(topicLower, domain) {
			out = append(out, tags[:2]...)
		}
	}

	count := 0
	for _, w := range wordRE.FindAllString(strings.ToLower(content), -1) {
		if hashtagStopWords[w] || len(w) > 15 {
			continue
		}
		out = append(out, "#"+strings.ToUpper(w[:1])+w[1:])
		count++
		if count >= 3 {
			break
		}
	}
	return out
}

// prioritizeHashtags scores by specificity: longer compound tags beat short
// generic ones
func prioritizeHashtags(tags []string, max int) []string {
	score := func(tag string) float64 {
		s := float64(len(tag)) / 20
		if camelCaseRE.MatchString(tag) {
			s += 0.3
		}
		if digitRE.MatchString(tag) {
			s += 0.2
		}
		for _, common := range []string{"Tech", "Digital", "Future", "Smart"} {
			if strings.Contains(tag, common) {
				s -= 0.1
			}
		}
		return s
	}
	sort.SliceStable(tags, func(i, j int) bool { return score(tags[i]) > score(tags[j]) })
	if len(tags) > max {
		tags = tags[:max]
	}
	return tags
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range in {
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
