package workflow

import (
	"context"
	"sync"
	"time"
)

// Platform identifies a target social network
type Platform string

const (
	Twitter   Platform = "twitter"
	LinkedIn  Platform = "linkedin"
	Instagram Platform = "instagram"
)

// AllPlatforms lists supported platforms in stable output order
var AllPlatforms = []Platform{Twitter, LinkedIn, Instagram}

// PlatformProfile captures the shape rules a draft must honor
type PlatformProfile struct {
	MinChars    int
	MaxChars    int
	AllowThread bool
	ThreadMin   int
	ThreadMax   int
	MaxHashtags int
	RequireCTA  bool
	Tone        string
}

var platformProfiles = map[Platform]PlatformProfile{
	Twitter:   {MinChars: 1, MaxChars: 280, AllowThread: true, ThreadMin: 3, ThreadMax: 5, MaxHashtags: 3, Tone: "punchy"},
	LinkedIn:  {MinChars: 500, MaxChars: 1200, MaxHashtags: 5, Tone: "professional"},
	Instagram: {MinChars: 125, MaxChars: 2200, MaxHashtags: 10, RequireCTA: true, Tone: "warm"},
}

// ProfileFor returns the shape rules for a platform
func ProfileFor(p Platform) PlatformProfile {
	return platformProfiles[p]
}

// KeyPoint is one ranked insight extracted from the source text
type KeyPoint struct {
	Text       string  `json:"text"`
	Importance float64 `json:"importance"`
}

// PlatformPost is a draft post for one platform. PrimaryText may be rewritten
// in place during remediation; everything else is set once at generation.
type PlatformPost struct {
	Platform    Platform       `json:"platform"`
	PrimaryText string         `json:"primary_text"`
	Thread      []string       `json:"thread,omitempty"`
	Hashtags    []string       `json:"hashtags,omitempty"`
	Mentions    []string       `json:"mentions,omitempty"`
	Notes       string         `json:"notes,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ClaimSeverity ranks how important it is to verify a claim
type ClaimSeverity string

const (
	SeverityLow    ClaimSeverity = "low"
	SeverityMedium ClaimSeverity = "medium"
	SeverityHigh   ClaimSeverity = "high"
)

func (s ClaimSeverity) rank() int {
	switch s {
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// ClaimSource is one external source supporting (or failing to support) a claim
type ClaimSource struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Credibility float64 `json:"credibility"`
}

// Claim is a factual assertion subject to external verification. Confidence
// stays 0 until verification runs, and stays 0 if no sources are found.
type Claim struct {
	ID         string        `json:"id"`
	Text       string        `json:"text"`
	Severity   ClaimSeverity `json:"severity"`
	Confidence float64       `json:"confidence"`
	Sources    []ClaimSource `json:"sources,omitempty"`
}

// IssueSeverity ranks a compliance violation
type IssueSeverity string

const (
	IssueMinor    IssueSeverity = "minor"
	IssueMajor    IssueSeverity = "major"
	IssueCritical IssueSeverity = "critical"
)

// escalate bumps a severity one level, capped at critical
func (s IssueSeverity) escalate() IssueSeverity {
	switch s {
	case IssueMinor:
		return IssueMajor
	case IssueMajor:
		return IssueCritical
	default:
		return IssueCritical
	}
}

// ComplianceIssue is one rule violation found during review
type ComplianceIssue struct {
	RuleID     string        `json:"rule_id"`
	Severity   IssueSeverity `json:"severity"`
	Message    string        `json:"message"`
	Suggestion string        `json:"suggestion"`
}

// ReviewStatus is the terminal disposition of a reviewed post
type ReviewStatus string

const (
	StatusPass  ReviewStatus = "pass"
	StatusFlag  ReviewStatus = "flag"
	StatusBlock ReviewStatus = "block"
)

// PostReview aggregates compliance findings for one platform post
type PostReview struct {
	Status ReviewStatus      `json:"status"`
	Issues []ComplianceIssue `json:"issues,omitempty"`
	Claims []Claim           `json:"claims,omitempty"`
}

// PostingTime is one scheduling recommendation
type PostingTime struct {
	Platform  Platform  `json:"platform"`
	LocalTime time.Time `json:"local_time"`
	Rationale string    `json:"rationale"`
}

// QualityScore holds embedding-derived quality metrics for one post
type QualityScore struct {
	Overall           float64 `json:"overall_quality"`
	ContentDensity    float64 `json:"content_density"`
	SemanticCoherence float64 `json:"semantic_coherence"`
	ProfessionalTone  float64 `json:"professional_tone"`
}

// QualityAnalysis holds cross-post embedding analysis results
type QualityAnalysis struct {
	AlignmentScores         map[Platform]float64      `json:"alignment_scores,omitempty"`
	QualityScores           map[Platform]QualityScore `json:"quality_scores,omitempty"`
	ContentGaps             map[Platform][]string     `json:"content_gaps,omitempty"`
	CrossPlatformSimilarity map[string]float64        `json:"cross_platform_similarity,omitempty"`
}

// WorkflowState is the single shared aggregate every stage mutates. Stages
// only append or replace values; keys are never removed. Parallel branches
// write to disjoint platform or claim keys, so only the error list needs a
// lock.
type WorkflowState struct {
	RunID      string
	SourceText string
	TopicHint  string

	KeyPoints []KeyPoint
	Drafts    map[Platform]*PlatformPost
	Claims    map[Platform][]Claim
	Reviews   map[Platform]*PostReview
	Timings   []PostingTime
	Quality   *QualityAnalysis

	mu     sync.Mutex
	errors []string
}

// NewWorkflowState creates an empty state for one run
func NewWorkflowState(runID, sourceText, topicHint string) *WorkflowState {
	return &WorkflowState{
		RunID:      runID,
		SourceText: sourceText,
		TopicHint:  topicHint,
		Drafts:     make(map[Platform]*PlatformPost),
		Claims:     make(map[Platform][]Claim),
		Reviews:    make(map[Platform]*PostReview),
	}
}

// AppendError records a non-fatal degradation note. Safe for concurrent use.
func (s *WorkflowState) AppendError(msg string) {
	s.mu.Lock()
	s.errors = append(s.errors, msg)
	s.mu.Unlock()
}

// Errors returns a copy of the accumulated error notes
func (s *WorkflowState) Errors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.errors))
	copy(out, s.errors)
	return out
}

// WorkflowResult mirrors WorkflowState minus internal bookkeeping
type WorkflowResult struct {
	RunID     string                     `json:"run_id"`
	KeyPoints []KeyPoint                 `json:"key_points"`
	Posts     map[Platform]*PlatformPost `json:"posts"`
	Claims    map[Platform][]Claim       `json:"claims"`
	Reviews   map[Platform]*PostReview   `json:"reviews"`
	Timings   []PostingTime              `json:"timings"`
	Quality   *QualityAnalysis           `json:"quality_analysis,omitempty"`
	Errors    []string                   `json:"errors"`
}

// Result snapshots the state into the externally visible form
func (s *WorkflowState) Result() *WorkflowResult {
	return &WorkflowResult{
		RunID:     s.RunID,
		KeyPoints: s.KeyPoints,
		Posts:     s.Drafts,
		Claims:    s.Claims,
		Reviews:   s.Reviews,
		Timings:   s.Timings,
		Quality:   s.Quality,
		Errors:    s.Errors(),
	}
}

// Generator is the text generation capability. format is "json" or "text".
type Generator interface {
	Generate(ctx context.Context, prompt string, format string, temperature float64) (string, error)
}

// Embedder is the embedding capability
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// UsageReporter is implemented by generation backends that meter token
// consumption. ConsumeTokens returns the input and output tokens accumulated
// since the previous call and resets the counters.
type UsageReporter interface {
	ConsumeTokens() (input, output int64)
}
