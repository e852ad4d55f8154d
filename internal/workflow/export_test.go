package workflow

import (
	"strings"
	"testing"
	"time"
)

func sampleResult() *WorkflowResult {
	return &WorkflowResult{
		KeyPoints: []KeyPoint{{Text: "Adoption grew 42%", Importance: 0.9}},
		Posts: map[Platform]*PlatformPost{
			Instagram: {Platform: Instagram, PrimaryText: "caption", Hashtags: []string{"#HealthTech"}},
			Twitter:   {Platform: Twitter, PrimaryText: "tweet", Thread: []string{"second", "third"}},
		},
		Reviews: map[Platform]*PostReview{
			Twitter: {Status: StatusPass},
		},
		Claims: map[Platform][]Claim{
			Twitter: {{Text: "adoption grew 42%", Severity: SeverityMedium, Confidence: 0.74,
				Sources: []ClaimSource{{Title: "Agency report", URL: "https://agency.gov/r", Credibility: 0.95}}}},
		},
		Timings: []PostingTime{
			{Platform: Twitter, LocalTime: time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC), Rationale: "weekday peak"},
		},
		Errors: []string{"fact-check failed for one claim"},
	}
}

func TestRenderPlainTextDeterministic(t *testing.T) {
	r := sampleResult()
	if RenderPlainText(r) != RenderPlainText(r) {
		t.Fatal("identical results rendered differently")
	}
}

func TestRenderPlainTextPlatformOrder(t *testing.T) {
	out := RenderPlainText(sampleResult())
	ti := strings.Index(out, "--- TWITTER ---")
	ii := strings.Index(out, "--- INSTAGRAM ---")
	if ti < 0 || ii < 0 {
		t.Fatalf("missing platform sections:\n%s", out)
	}
	if ti > ii {
		t.Error("twitter section should precede instagram")
	}
}

func TestRenderPlainTextSections(t *testing.T) {
	out := RenderPlainText(sampleResult())
	for _, want := range []string{
		"Key Points:",
		"2/ second",
		"Hashtags: #HealthTech",
		"Review: pass",
		"confidence 0.74",
		"https://agency.gov/r",
		"2026-03-04T12:00:00Z",
		"Degraded stages:",
		"! fact-check failed for one claim",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendering missing %q:\n%s", want, out)
		}
	}
}
