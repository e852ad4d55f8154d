package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

const maxDraftAttempts = 3

// verifiedHandles are the only handles kept as taggable mentions; anything
// else is converted to plain brand text so drafts never tag unverified or
// non-existent accounts.
var verifiedHandles = map[string]string{
	"@deloitte":    "Deloitte",
	"@fda":         "FDA",
	"@who":         "WHO",
	"@cdc":         "CDC",
	"@gartner_inc": "Gartner",
	"@bookingcom":  "Booking.com",
	"@buffer":      "Buffer",
	"@statista":    "Statista",
}

// ctaPhrases satisfy the single call-to-action requirement check
var ctaPhrases = []string{
	"learn more", "read more", "find out", "check out", "discover", "join us",
	"sign up", "follow", "share your", "let us know", "tell us", "comment below",
	"link in bio", "visit", "explore", "get started", "don't miss", "tag someone",
	"save this", "dm us", "swipe",
}

func wrapGenerationErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrGenerationTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrGenerationProvider, err)
}

// GeneratePosts produces one draft per platform in parallel. Each platform
// gets up to maxDraftAttempts tries with adjusted instructions before the
// best available draft is accepted and a validation note recorded. Branches
// write to disjoint state keys, so no draft-level locking is needed.
func GeneratePosts(ctx context.Context, gen Generator, state *WorkflowState, temperature float64) {
	keyPointsText := renderKeyPoints(state.KeyPoints, state.SourceText)

	g, gctx := errgroup.WithContext(ctx)
	results := make([]*PlatformPost, len(AllPlatforms))
	for i, platform := range AllPlatforms {
		i, platform := i, platform
		g.Go(func() error {
			post, err := generateForPlatform(gctx, gen, platform, keyPointsText, state.TopicHint, temperature)
			if err != nil {
				state.AppendError(err.Error())
			}
			results[i] = post
			return nil
		})
	}
	g.Wait()

	for i, platform := range AllPlatforms {
		if results[i] != nil {
			state.Drafts[platform] = results[i]
		}
	}
}

func renderKeyPoints(points []KeyPoint, sourceText string) string {
	if len(points) == 0 {
		// No structured insights survived extraction; hand the model a slice
		// of the original text instead.
		if len(sourceText) > 1000 {
			sourceText = sourceText[:1000]
		}
		return "Original content (extract key insights):\n" + sourceText
	}
	var b strings.Builder
	b.WriteString("Key insights:\n")
	for _, kp := range points {
		fmt.Fprintf(&b, "- %s (importance: %.1f)\n", kp.Text, kp.Importance)
	}
	return b.String()
}

func generateForPlatform(ctx context.Context, gen Generator, platform Platform, keyPoints, topicHint string, temperature float64) (*PlatformPost, error) {
	profile := ProfileFor(platform)

	var best *PlatformPost
	var lastValidation error
	adjustment := ""
	for attempt := 0; attempt < maxDraftAttempts; attempt++ {
		prompt := fmt.Sprintf(platformPrompt, platform, adjustment, keyPoints, topicHint)
		resp, err := gen.Generate(ctx, prompt, "json", temperature)
		if err != nil {
			return best, fmt.Errorf("%s post generation failed: %v", platform, wrapGenerationErr(err))
		}

		var raw struct {
			PrimaryText string   `json:"primary_text"`
			Thread      []string `json:"thread"`
			Hashtags    []string `json:"hashtags"`
			Mentions    []string `json:"mentions"`
		}
		if err := parseJSON(resp, &raw); err != nil {
			adjustment = "\nIMPORTANT: respond with ONLY the JSON object, no markdown fences, no commentary.\n"
			lastValidation = &ValidationError{Platform: platform, Reason: "unparseable generation response"}
			continue
		}

		post := &PlatformPost{
			Platform:    platform,
			PrimaryText: strings.TrimSpace(raw.PrimaryText),
			Thread:      raw.Thread,
			Hashtags:    raw.Hashtags,
			Mentions:    validateMentions(raw.Mentions),
		}
		shapePost(post, profile)

		if err := validateDraft(post, profile); err != nil {
			lastValidation = err
			best = post
			adjustment = fmt.Sprintf("\nIMPORTANT: the previous attempt was rejected (%s). Fix this while keeping everything else.\n", err)
			continue
		}
		return post, nil
	}
	if best == nil {
		return nil, fmt.Errorf("%s post generation produced no usable draft: %v", platform, lastValidation)
	}
	return best, fmt.Errorf("%s draft accepted despite validation failure: %v", platform, lastValidation)
}

// validateMentions keeps verified handles and converts everything else to
// plain brand text
func validateMentions(mentions []string) []string {
	var out []string
	for _, m := range mentions {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		lower := strings.ToLower(m)
		if _, ok := verifiedHandles[lower]; ok {
			out = append(out, m)
			continue
		}
		if strings.HasPrefix(m, "@") && len(m) > 1 {
			out = append(out, brandText(m[1:]))
			continue
		}
		out = append(out, m)
	}
	return out
}

// brandText upcases the first rune so a stripped handle reads as a brand name
func brandText(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError && size <= 1 {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}

// shapePost applies deterministic fixes that need no regeneration: drops
// threads on platforms that forbid them and trims hashtag overflow.
func shapePost(post *PlatformPost, profile PlatformProfile) {
	if !profile.AllowThread {
		post.Thread = nil
	}
	if profile.MaxHashtags > 0 && len(post.Hashtags) > profile.MaxHashtags {
		post.Hashtags = post.Hashtags[:profile.MaxHashtags]
	}
}

// validateDraft enforces the hard platform contract
func validateDraft(post *PlatformPost, profile PlatformProfile) error {
	n := len(post.PrimaryText)
	if n < profile.MinChars || n > profile.MaxChars {
		return &ValidationError{
			Platform: post.Platform,
			Reason:   fmt.Sprintf("primary text is %d chars, bounds are [%d,%d]", n, profile.MinChars, profile.MaxChars),
		}
	}
	if profile.AllowThread && len(post.Thread) > 0 {
		if len(post.Thread) < profile.ThreadMin || len(post.Thread) > profile.ThreadMax {
			return &ValidationError{
				Platform: post.Platform,
				Reason:   fmt.Sprintf("thread has %d items, bounds are [%d,%d]", len(post.Thread), profile.ThreadMin, profile.ThreadMax),
			}
		}
		for i, t := range post.Thread {
			if len(t) > profile.MaxChars {
				return &ValidationError{
					Platform: post.Platform,
					Reason:   fmt.Sprintf("thread item %d is %d chars, max %d", i+1, len(t), profile.MaxChars),
				}
			}
		}
	}
	if profile.RequireCTA && countCTAs(post.PrimaryText) != 1 {
		return &ValidationError{
			Platform: post.Platform,
			Reason:   fmt.Sprintf("post must contain exactly one call-to-action, found %d", countCTAs(post.PrimaryText)),
		}
	}
	return nil
}

func countCTAs(text string) int {
	lower := strings.ToLower(text)
	count := 0
	for _, phrase := range ctaPhrases {
		count += strings.Count(lower, phrase)
	}
	return count
}
