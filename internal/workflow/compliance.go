package workflow

import (
	"context"
	"fmt"
	"strings"
)

// ComplianceMode selects how strictly content rules escalate
type ComplianceMode string

const (
	ModeStandard ComplianceMode = "standard"
	ModeStrict   ComplianceMode = "strict"
)

// Rule term lists. Substring matching against the lowercased draft.
var profanityWords = []string{
	"damn", "hell", "crap", "stupid", "idiot",
}

var absolutePhrases = []string{
	"guarantee", "guaranteed", "always", "never", "100%",
	"completely", "entirely", "impossible",
}

// conditionalPhrases satisfy the hedging requirement for mid-confidence claims
var conditionalPhrases = []string{
	"studies suggest", "reports indicate", "according to", "reportedly",
	"may ", "might ", "appears to", "suggests", "indicates", "estimated",
}

// sensitiveDomains escalate issue severity one level in strict mode
var sensitiveDomains = map[string][]string{
	"healthcare": {"hospital", "medical", "health", "patient", "doctor", "medicine", "clinical", "cure", "diagnose", "treatment", "therapy", "drug"},
	"finance":    {"bank", "financial", "investment", "trading", "crypto", "stock", "roi", "returns", "profit"},
	"legal":      {"lawsuit", "legal", "attorney", "litigation", "liability", "regulation", "contract"},
}

// ReviewPost runs the full deterministic rule set against one draft. Rules
// are order-independent: all evaluate against the same text.
func ReviewPost(mode ComplianceMode, post *PlatformPost, claims []Claim) *PostReview {
	text := post.PrimaryText
	lower := strings.ToLower(text)

	var issues []ComplianceIssue
	issues = append(issues, checkProfanity(lower)...)
	issues = append(issues, checkAbsoluteClaims(lower, mode)...)
	issues = append(issues, checkUnsupportedNumerics(text, claims)...)
	issues = append(issues, checkLowConfidenceClaims(lower, claims)...)

	if mode == ModeStrict {
		if domain := detectSensitiveDomain(lower); domain != "" {
			for i := range issues {
				issues[i].Severity = issues[i].Severity.escalate()
				issues[i].Message += fmt.Sprintf(" (escalated: %s content in strict mode)", domain)
			}
		}
	}

	return &PostReview{
		Status: deriveStatus(issues, mode),
		Issues: issues,
		Claims: claims,
	}
}

func checkProfanity(lower string) []ComplianceIssue {
	var issues []ComplianceIssue
	for _, w := range profanityWords {
		if strings.Contains(lower, w) {
			issues = append(issues, ComplianceIssue{
				RuleID:     "profanity_check",
				Severity:   IssueMajor,
				Message:    fmt.Sprintf("potential profanity detected: %q", w),
				Suggestion: fmt.Sprintf("replace %q with a more professional alternative", w),
			})
		}
	}
	return issues
}

func checkAbsoluteClaims(lower string, mode ComplianceMode) []ComplianceIssue {
	severity := IssueMinor
	if mode == ModeStrict {
		severity = IssueMajor
	}
	var issues []ComplianceIssue
	for _, p := range absolutePhrases {
		if strings.Contains(lower, p) {
			issues = append(issues, ComplianceIssue{
				RuleID:     "absolute_claims",
				Severity:   severity,
				Message:    fmt.Sprintf("absolute claim language detected: %q", p),
				Suggestion: fmt.Sprintf("soften %q with qualified language like 'may help' or 'typically'", p),
			})
		}
	}
	return issues
}

// checkUnsupportedNumerics flags any number in the draft that cannot be
// traced to a claim verified at confidence 0.3 or above
func checkUnsupportedNumerics(text string, claims []Claim) []ComplianceIssue {
	supported := make(map[string]bool)
	for _, c := range claims {
		if c.Confidence >= 0.3 {
			for _, n := range numberRE.FindAllString(c.Text, -1) {
				supported[strings.TrimSuffix(n, "%")] = true
			}
		}
	}

	var issues []ComplianceIssue
	seen := make(map[string]bool)
	for _, n := range numberRE.FindAllString(text, -1) {
		key := strings.TrimSuffix(n, "%")
		if supported[key] || seen[key] {
			continue
		}
		seen[key] = true
		issues = append(issues, ComplianceIssue{
			RuleID:     "unsupported_numeric",
			Severity:   IssueMajor,
			Message:    fmt.Sprintf("numeric value %q is not traceable to a verified claim", n),
			Suggestion: "remove the figure or attribute it to a verifiable source",
		})
	}
	return issues
}

// checkLowConfidenceClaims requires conditional phrasing for claims whose
// confidence landed in the [0.3, 0.7) band
func checkLowConfidenceClaims(lower string, claims []Claim) []ComplianceIssue {
	hedged := false
	for _, p := range conditionalPhrases {
		if strings.Contains(lower, p) {
			hedged = true
			break
		}
	}

	var issues []ComplianceIssue
	for _, c := range claims {
		if c.Confidence >= 0.3 && c.Confidence < 0.7 && !hedged {
			issues = append(issues, ComplianceIssue{
				RuleID:     "low_confidence_claim",
				Severity:   IssueMinor,
				Message:    fmt.Sprintf("partially verified claim without conditional phrasing: %q (confidence %.2f)", truncate(c.Text, 60), c.Confidence),
				Suggestion: "add hedging like 'studies suggest' or 'reports indicate'",
			})
		}
	}
	return issues
}

func detectSensitiveDomain(lower string) string {
	for domain, keywords := range sensitiveDomains {
		for _, k := range keywords {
			if strings.Contains(lower, k) {
				return domain
			}
		}
	}
	return ""
}

// deriveStatus: critical always blocks; major blocks in strict mode and
// flags in standard; minor-only flags; clean passes.
func deriveStatus(issues []ComplianceIssue, mode ComplianceMode) ReviewStatus {
	if len(issues) == 0 {
		return StatusPass
	}
	hasMajor := false
	for _, i := range issues {
		switch i.Severity {
		case IssueCritical:
			return StatusBlock
		case IssueMajor:
			hasMajor = true
		}
	}
	if hasMajor {
		if mode == ModeStrict {
			return StatusBlock
		}
		return StatusFlag
	}
	return StatusFlag
}

// ReviewAll reviews every draft and writes the results into state
func ReviewAll(mode ComplianceMode, state *WorkflowState) {
	for platform, post := range state.Drafts {
		state.Reviews[platform] = ReviewPost(mode, post, state.Claims[platform])
	}
}

// maxRemediationCap bounds the configured loop count so remediation can never
// dominate the run budget
const maxRemediationCap = 3

// RemediateBlocked runs the bounded remediation loop: each blocked post gets
// up to maxLoops regenerations with the offending issues, each followed by a
// full re-review. A rewrite that breaks the platform shape contract is
// rejected and the previous text kept. A post that stays blocked after the
// budget is downgraded to flag with an error note, so the output never
// surfaces block twice.
func RemediateBlocked(ctx context.Context, gen Generator, mode ComplianceMode, state *WorkflowState, temperature float64, maxLoops int) {
	if maxLoops < 1 {
		maxLoops = 1
	}
	if maxLoops > maxRemediationCap {
		maxLoops = maxRemediationCap
	}

	for platform, review := range state.Reviews {
		if review.Status != StatusBlock {
			continue
		}
		post := state.Drafts[platform]
		if post == nil {
			continue
		}

		current := review
		failed := false
		for attempt := 0; attempt < maxLoops; attempt++ {
			revised, err := remediateOnce(ctx, gen, post, current.Issues, temperature)
			if err != nil {
				state.AppendError(fmt.Sprintf("remediation failed for %s: %v", platform, err))
				failed = true
				break
			}

			previous := post.PrimaryText
			post.PrimaryText = revised
			if verr := validateDraft(post, ProfileFor(post.Platform)); verr != nil {
				post.PrimaryText = previous
				state.AppendError(fmt.Sprintf("remediation rewrite for %s rejected: %v", platform, verr))
				continue
			}
			post.Notes = "automatically revised for compliance"

			current = ReviewPost(mode, post, state.Claims[platform])
			if current.Status != StatusBlock {
				break
			}
		}

		if failed {
			review.Status = StatusFlag
			continue
		}
		if current.Status == StatusBlock {
			current.Status = StatusFlag
			state.AppendError(fmt.Sprintf("%s: %v, post flagged for manual review", platform, ErrRemediationExhausted))
		}
		state.Reviews[platform] = current
	}
}

func remediateOnce(ctx context.Context, gen Generator, post *PlatformPost, issues []ComplianceIssue, temperature float64) (string, error) {
	var b strings.Builder
	for _, issue := range issues {
		fmt.Fprintf(&b, "- %s: %s\n", issue.Message, issue.Suggestion)
	}
	profile := ProfileFor(post.Platform)

	prompt := fmt.Sprintf(remediationPrompt, profile.MinChars, profile.MaxChars, b.String(), post.PrimaryText)
	resp, err := gen.Generate(ctx, prompt, "text", temperature)
	if err != nil {
		return "", wrapGenerationErr(err)
	}
	revised := strings.TrimSpace(resp)
	if revised == "" {
		return "", fmt.Errorf("empty remediation response")
	}
	return revised, nil
}
