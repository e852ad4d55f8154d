package workflow

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ExtractKeyPoints turns the source text into 5-8 ranked insights. One
// malformed response earns a stricter retry; a second failure falls back to a
// naive sentence ranking so the pipeline never stalls for lack of structured
// output.
func ExtractKeyPoints(ctx context.Context, gen Generator, sourceText string, temperature float64) ([]KeyPoint, error) {
	type rawPoint struct {
		Text       string  `json:"text"`
		Importance float64 `json:"importance"`
	}

	parse := func(prompt string) ([]KeyPoint, error) {
		resp, err := gen.Generate(ctx, prompt, "json", temperature)
		if err != nil {
			return nil, wrapGenerationErr(err)
		}
		var raw []rawPoint
		if err := parseJSON(resp, &raw); err != nil {
			return nil, fmt.Errorf("malformed key points response: %w", err)
		}
		var points []KeyPoint
		for _, r := range raw {
			text := strings.TrimSpace(r.Text)
			if text == "" {
				continue
			}
			points = append(points, KeyPoint{Text: text, Importance: clamp01(r.Importance)})
		}
		if len(points) == 0 {
			return nil, fmt.Errorf("no valid key points in response")
		}
		return dedupeKeyPoints(points), nil
	}

	points, err := parse(fmt.Sprintf(keyPointsPrompt, sourceText))
	if err == nil {
		return points, nil
	}
	points, retryErr := parse(fmt.Sprintf(keyPointsStrictPrompt, sourceText))
	if retryErr == nil {
		return points, nil
	}
	return fallbackKeyPoints(sourceText), fmt.Errorf("key point extraction degraded to sentence ranking: %v", retryErr)
}

var keyPointPunctRE = regexp.MustCompile(`[^\p{L}\p{N}\s%$]`)

// normalizeKeyPoint casefolds and strips punctuation for dedup comparison
func normalizeKeyPoint(text string) string {
	norm := strings.ToLower(text)
	norm = keyPointPunctRE.ReplaceAllString(norm, "")
	return strings.Join(strings.Fields(norm), " ")
}

func dedupeKeyPoints(points []KeyPoint) []KeyPoint {
	seen := make(map[string]bool)
	var out []KeyPoint
	for _, p := range points {
		key := normalizeKeyPoint(p.Text)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	if len(out) > 8 {
		out = out[:8]
	}
	return out
}

var sentenceSplitRE = regexp.MustCompile(`[.!?]+\s+`)

// signalWords mark sentences that likely carry verifiable substance
var signalWords = []string{"percent", "%", "$", "million", "billion", "study", "report", "survey", "research", "according", "increase", "decrease", "growth"}

// fallbackKeyPoints splits into sentences and ranks by length and keyword
// density when the generation backend cannot produce structured output
func fallbackKeyPoints(sourceText string) []KeyPoint {
	sentences := sentenceSplitRE.Split(sourceText, -1)

	type scored struct {
		text  string
		score float64
		order int
	}
	var candidates []scored
	for i, s := range sentences {
		s = strings.TrimSpace(s)
		if len(s) < 30 || len(s) > 300 {
			continue
		}
		lower := strings.ToLower(s)
		score := float64(len(s)) / 300.0
		for _, w := range signalWords {
			if strings.Contains(lower, w) {
				score += 0.15
			}
		}
		candidates = append(candidates, scored{text: s, score: score, order: i})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	n := len(candidates)
	if n > 8 {
		n = 8
	}
	var points []KeyPoint
	for _, c := range candidates[:n] {
		points = append(points, KeyPoint{Text: c.text, Importance: clamp01(c.score)})
	}
	return dedupeKeyPoints(points)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
