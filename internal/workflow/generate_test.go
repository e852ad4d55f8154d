package workflow

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestValidateDraftLengthBounds(t *testing.T) {
	profile := ProfileFor(Twitter)

	short := &PlatformPost{Platform: Twitter, PrimaryText: ""}
	if err := validateDraft(short, profile); err == nil {
		t.Error("empty twitter draft should fail validation")
	}

	long := &PlatformPost{Platform: Twitter, PrimaryText: strings.Repeat("x", 281)}
	if err := validateDraft(long, profile); err == nil {
		t.Error("281-char twitter draft should fail validation")
	}

	ok := &PlatformPost{Platform: Twitter, PrimaryText: strings.Repeat("x", 280)}
	if err := validateDraft(ok, profile); err != nil {
		t.Errorf("280-char twitter draft should pass, got %v", err)
	}
}

func TestValidateDraftThreadBounds(t *testing.T) {
	profile := ProfileFor(Twitter)
	base := &PlatformPost{Platform: Twitter, PrimaryText: "hello"}

	base.Thread = []string{"one", "two"}
	if err := validateDraft(base, profile); err == nil {
		t.Error("2-item thread should fail, minimum is 3")
	}

	base.Thread = []string{"1", "2", "3", "4", "5", "6"}
	if err := validateDraft(base, profile); err == nil {
		t.Error("6-item thread should fail, maximum is 5")
	}

	base.Thread = []string{"one", "two", strings.Repeat("x", 281)}
	if err := validateDraft(base, profile); err == nil {
		t.Error("oversized thread item should fail")
	}

	base.Thread = []string{"one", "two", "three"}
	if err := validateDraft(base, profile); err != nil {
		t.Errorf("3-item thread should pass, got %v", err)
	}
}

func TestValidateDraftRequiresExactlyOneCTA(t *testing.T) {
	profile := ProfileFor(Instagram)
	body := strings.Repeat("lovely caption text ", 8)

	none := &PlatformPost{Platform: Instagram, PrimaryText: body}
	if err := validateDraft(none, profile); err == nil {
		t.Error("instagram draft without a call-to-action should fail")
	}

	one := &PlatformPost{Platform: Instagram, PrimaryText: body + "Check out the full story."}
	if err := validateDraft(one, profile); err != nil {
		t.Errorf("single call-to-action should pass, got %v", err)
	}

	two := &PlatformPost{Platform: Instagram, PrimaryText: body + "Check out the story and sign up today."}
	if err := validateDraft(two, profile); err == nil {
		t.Error("two calls-to-action should fail")
	}
}

func TestValidateMentions(t *testing.T) {
	out := validateMentions([]string{"@WHO", "@madeuphandle", "Gartner"})
	if len(out) != 3 {
		t.Fatalf("expected 3 mentions, got %d: %v", len(out), out)
	}
	if out[0] != "@WHO" {
		t.Errorf("verified handle should be kept as a mention, got %q", out[0])
	}
	if out[1] != "Madeuphandle" {
		t.Errorf("unverified handle should become title-cased plain text, got %q", out[1])
	}
	if out[2] != "Gartner" {
		t.Errorf("plain brand text should pass through, got %q", out[2])
	}
}

func TestShapePost(t *testing.T) {
	post := &PlatformPost{
		Platform: LinkedIn,
		Thread:   []string{"a", "b", "c"},
		Hashtags: []string{"#A", "#B", "#C", "#D", "#E", "#F", "#G"},
	}
	shapePost(post, ProfileFor(LinkedIn))
	if post.Thread != nil {
		t.Error("linkedin forbids threads, shapePost should drop them")
	}
	if len(post.Hashtags) != 5 {
		t.Errorf("expected hashtags trimmed to 5, got %d", len(post.Hashtags))
	}
}

// draftGen serves scripted draft JSON, one response per call
type draftGen struct {
	responses []string
	calls     int
}

func (g *draftGen) Generate(ctx context.Context, prompt, format string, temperature float64) (string, error) {
	i := g.calls
	g.calls++
	if i >= len(g.responses) {
		i = len(g.responses) - 1
	}
	return g.responses[i], nil
}

func draftJSON(t *testing.T, text string) string {
	t.Helper()
	b, err := json.Marshal(map[string]any{"primary_text": text})
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestGenerateForPlatformRetriesOnValidationFailure(t *testing.T) {
	gen := &draftGen{responses: []string{
		draftJSON(t, strings.Repeat("x", 300)),
		draftJSON(t, "a short post that fits"),
	}}

	post, err := generateForPlatform(context.Background(), gen, Twitter, "Key insights:\n- growth", "", 0.7)
	if err != nil {
		t.Fatalf("expected clean draft on second attempt, got %v", err)
	}
	if gen.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", gen.calls)
	}
	if post.PrimaryText != "a short post that fits" {
		t.Errorf("unexpected accepted text %q", post.PrimaryText)
	}
}

func TestGenerateForPlatformAcceptsBestDraftAfterExhaustion(t *testing.T) {
	// Every attempt is over the limit; the best draft is kept with an error
	gen := &draftGen{responses: []string{draftJSON(t, strings.Repeat("x", 300))}}

	post, err := generateForPlatform(context.Background(), gen, Twitter, "Key insights:\n- growth", "", 0.7)
	if err == nil {
		t.Fatal("expected a validation note error after exhausted attempts")
	}
	if gen.calls != maxDraftAttempts {
		t.Fatalf("expected %d attempts, got %d", maxDraftAttempts, gen.calls)
	}
	if post == nil {
		t.Fatal("best-effort draft must still be returned")
	}
}

func TestCountCTAs(t *testing.T) {
	if n := countCTAs("No action words here."); n != 0 {
		t.Errorf("expected 0, got %d", n)
	}
	if n := countCTAs("Check out the report and sign up now."); n != 2 {
		t.Errorf("expected 2, got %d", n)
	}
}
