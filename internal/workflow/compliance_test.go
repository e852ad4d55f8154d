package workflow

import (
	"context"
	"strings"
	"testing"
)

func TestCriticalIssueBlocksInBothModes(t *testing.T) {
	issues := []ComplianceIssue{{RuleID: "x", Severity: IssueCritical}}
	for _, mode := range []ComplianceMode{ModeStandard, ModeStrict} {
		if got := deriveStatus(issues, mode); got != StatusBlock {
			t.Errorf("mode %s: critical issue must block, got %s", mode, got)
		}
	}
}

func TestMajorIssueByMode(t *testing.T) {
	issues := []ComplianceIssue{{RuleID: "x", Severity: IssueMajor}}
	if got := deriveStatus(issues, ModeStandard); got != StatusFlag {
		t.Errorf("standard mode: major issue should flag, got %s", got)
	}
	if got := deriveStatus(issues, ModeStrict); got != StatusBlock {
		t.Errorf("strict mode: major issue should block, got %s", got)
	}
}

func TestMinorOnlyFlagsAndCleanPasses(t *testing.T) {
	minor := []ComplianceIssue{{RuleID: "x", Severity: IssueMinor}}
	if got := deriveStatus(minor, ModeStandard); got != StatusFlag {
		t.Errorf("minor-only should flag, got %s", got)
	}
	if got := deriveStatus(nil, ModeStandard); got != StatusPass {
		t.Errorf("no issues should pass, got %s", got)
	}
}

func TestAbsoluteClaimDetection(t *testing.T) {
	post := &PlatformPost{Platform: Twitter, PrimaryText: "We guarantee amazing outcomes for every team."}

	standard := ReviewPost(ModeStandard, post, nil)
	if standard.Status != StatusFlag {
		t.Errorf("standard mode: expected flag, got %s", standard.Status)
	}
	strict := ReviewPost(ModeStrict, post, nil)
	if strict.Status != StatusBlock {
		t.Errorf("strict mode: expected block, got %s", strict.Status)
	}

	found := false
	for _, issue := range standard.Issues {
		if issue.RuleID == "absolute_claims" {
			found = true
		}
	}
	if !found {
		t.Error("expected an absolute_claims issue")
	}
}

func TestUnsupportedNumericIsMajor(t *testing.T) {
	post := &PlatformPost{Platform: Twitter, PrimaryText: "Sales rose 37 points last quarter."}
	review := ReviewPost(ModeStandard, post, nil)

	var issue *ComplianceIssue
	for i := range review.Issues {
		if review.Issues[i].RuleID == "unsupported_numeric" {
			issue = &review.Issues[i]
		}
	}
	if issue == nil {
		t.Fatal("expected an unsupported_numeric issue")
	}
	if issue.Severity != IssueMajor {
		t.Errorf("expected major severity, got %s", issue.Severity)
	}
}

func TestNumericTraceableToVerifiedClaimPasses(t *testing.T) {
	post := &PlatformPost{Platform: Twitter, PrimaryText: "Adoption grew 42 points, according to agency data."}
	claims := []Claim{{Text: "adoption grew 42 points", Confidence: 0.85}}

	review := ReviewPost(ModeStandard, post, claims)
	for _, issue := range review.Issues {
		if issue.RuleID == "unsupported_numeric" {
			t.Fatalf("verified numeric should not be flagged: %+v", issue)
		}
	}
	if review.Status != StatusPass {
		t.Errorf("expected pass, got %s with %+v", review.Status, review.Issues)
	}
}

func TestLowConfidenceClaimNeedsConditionalPhrasing(t *testing.T) {
	claims := []Claim{{Text: "adoption grew 42 points", Confidence: 0.5}}

	bare := &PlatformPost{Platform: Twitter, PrimaryText: "Adoption grew 42 points."}
	review := ReviewPost(ModeStandard, bare, claims)
	found := false
	for _, issue := range review.Issues {
		if issue.RuleID == "low_confidence_claim" {
			found = true
		}
	}
	if !found {
		t.Error("expected low_confidence_claim issue for unhedged text")
	}

	hedged := &PlatformPost{Platform: Twitter, PrimaryText: "Reports indicate adoption grew 42 points."}
	review = ReviewPost(ModeStandard, hedged, claims)
	for _, issue := range review.Issues {
		if issue.RuleID == "low_confidence_claim" {
			t.Errorf("hedged text should not trigger low_confidence_claim: %+v", issue)
		}
	}
}

func TestStrictModeEscalatesSensitiveDomains(t *testing.T) {
	post := &PlatformPost{Platform: LinkedIn, PrimaryText: "Our treatment always helps patients recover."}

	standard := ReviewPost(ModeStandard, post, nil)
	strict := ReviewPost(ModeStrict, post, nil)

	maxSeverity := func(r *PostReview) IssueSeverity {
		max := IssueMinor
		for _, i := range r.Issues {
			if i.Severity == IssueCritical {
				return IssueCritical
			}
			if i.Severity == IssueMajor {
				max = IssueMajor
			}
		}
		return max
	}
	if maxSeverity(strict) != IssueCritical {
		t.Errorf("strict mode should escalate healthcare content to critical, got %s", maxSeverity(strict))
	}
	if maxSeverity(standard) == IssueCritical {
		t.Error("standard mode should not escalate to critical")
	}
	if strict.Status != StatusBlock {
		t.Errorf("expected block in strict mode, got %s", strict.Status)
	}
}

// remediationGen rewrites blocked posts with scripted output
type remediationGen struct {
	revised string
	calls   int
}

func (g *remediationGen) Generate(ctx context.Context, prompt, format string, temperature float64) (string, error) {
	g.calls++
	return g.revised, nil
}

func TestRemediationProducesTerminalStatus(t *testing.T) {
	state := NewWorkflowState("run", "src", "")
	state.Drafts[Twitter] = &PlatformPost{Platform: Twitter, PrimaryText: "we guarantee 100% results"}
	ReviewAll(ModeStrict, state)

	if state.Reviews[Twitter].Status != StatusBlock {
		t.Fatalf("precondition: expected block, got %s", state.Reviews[Twitter].Status)
	}

	gen := &remediationGen{revised: "Results may improve for many teams, reports indicate."}
	RemediateBlocked(context.Background(), gen, ModeStrict, state, 0.3, 1)

	status := state.Reviews[Twitter].Status
	if status == StatusBlock {
		t.Fatalf("remediation must never surface block twice, got %s", status)
	}
	if gen.calls != 1 {
		t.Fatalf("expected exactly one remediation attempt, got %d", gen.calls)
	}
	if state.Drafts[Twitter].Notes == "" {
		t.Error("remediated post should carry a revision note")
	}
}

func TestRemediationStillBlockedDowngradesToFlag(t *testing.T) {
	state := NewWorkflowState("run", "src", "")
	state.Drafts[Twitter] = &PlatformPost{Platform: Twitter, PrimaryText: "we guarantee 100% results"}
	ReviewAll(ModeStrict, state)

	// The rewrite keeps the violation, so the re-review would block again
	gen := &remediationGen{revised: "we still guarantee 100% results"}
	RemediateBlocked(context.Background(), gen, ModeStrict, state, 0.3, 1)

	if got := state.Reviews[Twitter].Status; got != StatusFlag {
		t.Fatalf("still-blocked post must downgrade to flag, got %s", got)
	}
	found := false
	for _, e := range state.Errors() {
		if strings.Contains(e, "remediation") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a remediation note in errors, got %v", state.Errors())
	}
}

func TestRemediationRejectsOutOfBoundsRewrite(t *testing.T) {
	state := NewWorkflowState("run", "src", "")
	original := "we guarantee 100% results"
	state.Drafts[Twitter] = &PlatformPost{Platform: Twitter, PrimaryText: original}
	ReviewAll(ModeStrict, state)

	if state.Reviews[Twitter].Status != StatusBlock {
		t.Fatalf("precondition: expected block, got %s", state.Reviews[Twitter].Status)
	}

	// A clean rewrite that blows the platform length bound must not be accepted
	gen := &remediationGen{revised: strings.Repeat("Results may improve for many teams, reports indicate. ", 7)}
	RemediateBlocked(context.Background(), gen, ModeStrict, state, 0.3, 1)

	if got := state.Drafts[Twitter].PrimaryText; got != original {
		t.Fatalf("oversized rewrite was accepted: %q", got)
	}
	if got := state.Reviews[Twitter].Status; got != StatusFlag {
		t.Fatalf("expected flag after rejected rewrite, got %s", got)
	}
	found := false
	for _, e := range state.Errors() {
		if strings.Contains(e, "rejected") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a rewrite-rejected note, got %v", state.Errors())
	}
}

func TestRemediationHonorsLoopBudget(t *testing.T) {
	state := NewWorkflowState("run", "src", "")
	state.Drafts[Twitter] = &PlatformPost{Platform: Twitter, PrimaryText: "we guarantee 100% results"}
	ReviewAll(ModeStrict, state)

	// First rewrite keeps the violation, second one is clean
	gen := &sequenceGen{responses: []string{
		"we still guarantee 100% results",
		"Results may improve for many teams, reports indicate.",
	}}
	RemediateBlocked(context.Background(), gen, ModeStrict, state, 0.3, 2)

	if gen.calls != 2 {
		t.Fatalf("expected 2 remediation attempts, got %d", gen.calls)
	}
	if got := state.Reviews[Twitter].Status; got != StatusPass {
		t.Fatalf("clean second rewrite should pass, got %s", got)
	}
	for _, e := range state.Errors() {
		if strings.Contains(e, "remediation exhausted") {
			t.Errorf("budget was not exhausted, got note %q", e)
		}
	}
}

func TestRemediationSkipsNonBlockedPosts(t *testing.T) {
	state := NewWorkflowState("run", "src", "")
	state.Drafts[Twitter] = &PlatformPost{Platform: Twitter, PrimaryText: "A calm and factual update for the community."}
	ReviewAll(ModeStandard, state)

	gen := &remediationGen{revised: "should not be used"}
	RemediateBlocked(context.Background(), gen, ModeStandard, state, 0.3, 1)

	if gen.calls != 0 {
		t.Fatalf("remediation ran for a non-blocked post (%d calls)", gen.calls)
	}
}
