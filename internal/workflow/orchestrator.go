package workflow

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/mohammad-safakhou/postcraft/config"
	"github.com/mohammad-safakhou/postcraft/internal/store"
	"github.com/mohammad-safakhou/postcraft/internal/telemetry"
	"github.com/mohammad-safakhou/postcraft/tools/search"
)

// Orchestrator owns the shared workflow state and drives the stages in fixed
// order. Platform generation and claim verification fan out internally;
// every other stage is sequential because it consumes the full output of the
// previous one. Only input validation can fail a run; every later failure
// degrades to partial output.
type Orchestrator struct {
	cfg       *config.Config
	gen       Generator
	emb       Embedder
	verifier  *Verifier
	scheduler *Scheduler
	cache     *store.Cache
	telemetry *telemetry.Telemetry
	logger    *log.Logger

	// now is injected for deterministic scheduling in tests
	now func() time.Time
}

// NewOrchestrator wires the pipeline. cache and tel may be nil.
func NewOrchestrator(cfg *config.Config, gen Generator, emb Embedder, providers []search.Provider, cache *store.Cache, tel *telemetry.Telemetry) *Orchestrator {
	o := &Orchestrator{
		cfg: cfg,
		gen: gen,
		emb: emb,
		verifier: &Verifier{
			Providers:  providers,
			Embedder:   emb,
			Policy:     DefaultRetryPolicy(),
			MaxResults: cfg.Search.MaxResults,
		},
		scheduler: &Scheduler{
			DefaultTimezone: cfg.Schedule.DefaultTimezone,
			StaggerWindow:   cfg.Schedule.StaggerWindow,
			SlotOverrides:   cfg.Schedule.SlotOverrides,
		},
		cache:     cache,
		telemetry: tel,
		logger:    log.New(log.Writer(), "[WORKFLOW] ", log.LstdFlags),
		now:       time.Now,
	}
	if cache != nil {
		o.verifier.Cache = cache
	}
	if tel != nil {
		o.verifier.OnSearch = tel.RecordSearchRequest
	}
	return o
}

// SetNow overrides the clock used for scheduling and deadlines
func (o *Orchestrator) SetNow(now func() time.Time) {
	o.now = now
	o.verifier.Now = now
}

// SetRetryPolicy overrides the verification retry schedule
func (o *Orchestrator) SetRetryPolicy(p RetryPolicy) {
	o.verifier.Policy = p
}

// Run executes the full pipeline. It returns an error only when the input
// fails pre-pipeline validation; any later degradation lands in the result's
// error list and the result always carries whatever was produced.
func (o *Orchestrator) Run(ctx context.Context, sourceText, topicHint string) (*WorkflowResult, error) {
	if len(sourceText) < o.cfg.General.MinInputChars {
		return nil, &InputTooShortError{Length: len(sourceText), Min: o.cfg.General.MinInputChars}
	}

	runID := uuid.New().String()
	state := NewWorkflowState(runID, sourceText, topicHint)
	start := o.now()
	o.logger.Printf("run %s started, %d chars of input", runID, len(sourceText))

	if o.cfg.General.MaxRunTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.General.MaxRunTime)
		defer cancel()
	}

	temperature := o.cfg.LLM.Temperature
	mode := ComplianceMode(o.cfg.Compliance.Mode)

	stages := []struct {
		name string
		run  func(context.Context)
	}{
		{"key_points", func(ctx context.Context) {
			points, err := ExtractKeyPoints(ctx, o.gen, state.SourceText, temperature)
			if err != nil {
				state.AppendError(err.Error())
			}
			state.KeyPoints = points
		}},
		{"generate_posts", func(ctx context.Context) {
			GeneratePosts(ctx, o.gen, state, temperature)
		}},
		{"optimize_hashtags", func(ctx context.Context) {
			OptimizeHashtags(state)
		}},
		{"analyze_quality", func(ctx context.Context) {
			quality, err := AnalyzeQuality(ctx, o.emb, state)
			if err != nil {
				state.AppendError(err.Error())
				return
			}
			state.Quality = quality
		}},
		{"fact_check", func(ctx context.Context) {
			claims := ExtractClaims(ctx, o.gen, state, temperature)
			claims = o.verifier.VerifyClaims(ctx, claims, state)
			AssignClaims(state, claims)
		}},
		{"compliance", func(ctx context.Context) {
			ReviewAll(mode, state)
			RemediateBlocked(ctx, o.gen, mode, state, temperature, o.cfg.Compliance.MaxRemediationLoops)
		}},
		{"schedule", func(ctx context.Context) {
			platforms := make([]Platform, 0, len(state.Drafts))
			for _, p := range AllPlatforms {
				if _, ok := state.Drafts[p]; ok {
					platforms = append(platforms, p)
				}
			}
			timings, err := o.scheduler.SuggestTimes(platforms, state.SourceText, state.TopicHint, o.now())
			if err != nil {
				state.AppendError(fmt.Sprintf("scheduling failed: %v", err))
				return
			}
			state.Timings = timings
		}},
	}

	partial := false
	var runTokens int64
	var runCost float64
	for _, stage := range stages {
		if ctx.Err() != nil {
			state.AppendError(fmt.Sprintf("run ceiling reached before stage %s, returning partial result", stage.name))
			partial = true
			break
		}
		tokens, cost := o.runStage(ctx, state, stage.name, stage.run)
		runTokens += tokens
		runCost += cost
	}

	result := state.Result()
	end := o.now()
	o.logger.Printf("run %s finished in %v, %d drafts, %d notes", runID, end.Sub(start), len(result.Posts), len(result.Errors))

	if o.telemetry != nil {
		platforms := make([]string, 0, len(result.Posts))
		for p := range result.Posts {
			platforms = append(platforms, string(p))
		}
		o.telemetry.RecordRunEvent(telemetry.RunEvent{
			ID:        runID,
			StartTime: start,
			EndTime:   end,
			Success:   true,
			Partial:   partial || len(result.Errors) > 0,
			Cost:      runCost,
			Tokens:    runTokens,
			Platforms: platforms,
		})
	}
	if o.cache != nil {
		o.cache.SaveRunSummary(context.WithoutCancel(ctx), runID, result)
	}
	return result, nil
}

// runStage times a stage, drains the token meter and reports the outcome to
// telemetry. Stage functions record their own degradations; a panic here
// would be a bug, not an expected failure, so there is no recover.
func (o *Orchestrator) runStage(ctx context.Context, state *WorkflowState, name string, fn func(context.Context)) (int64, float64) {
	before := len(state.Errors())
	start := o.now()
	fn(ctx)
	elapsed := o.now().Sub(start)

	var inTokens, outTokens int64
	if meter, ok := o.gen.(UsageReporter); ok {
		inTokens, outTokens = meter.ConsumeTokens()
	}
	tokens := inTokens + outTokens

	degraded := len(state.Errors()) > before
	if degraded {
		o.logger.Printf("stage %s degraded after %v", name, elapsed)
	}
	var cost float64
	if o.telemetry != nil {
		cost = o.telemetry.CostForModel(o.cfg.LLM.CompletionModel, inTokens, outTokens)
		o.telemetry.RecordStageEvent(telemetry.StageEvent{
			RunID:      state.RunID,
			Stage:      name,
			Duration:   elapsed,
			Success:    !degraded,
			Cost:       cost,
			TokensUsed: tokens,
			ModelUsed:  o.cfg.LLM.CompletionModel,
		})
	}
	return tokens, cost
}
