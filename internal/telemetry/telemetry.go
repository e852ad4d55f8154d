package telemetry

import (
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mohammad-safakhou/postcraft/config"
)

// Telemetry provides run monitoring and LLM cost tracking
type Telemetry struct {
	config      config.TelemetryConfig
	logger      *log.Logger
	costTracker *CostTracker
	mu          sync.RWMutex

	runsTotal      *prometheus.CounterVec
	stageFailures  *prometheus.CounterVec
	llmTokens      prometheus.Counter
	searchRequests *prometheus.CounterVec
	runDuration    prometheus.Histogram
}

// CostTracker tracks costs across LLM operations
type CostTracker struct {
	mu sync.RWMutex

	OperationCosts map[string]float64 // stage -> cost
	ModelCosts     map[string]float64 // model -> cost

	TotalCost   float64
	TotalTokens int64
}

// StageEvent represents a single pipeline stage execution
type StageEvent struct {
	RunID      string
	Stage      string
	Duration   time.Duration
	Success    bool
	Error      string
	Cost       float64
	TokensUsed int64
	ModelUsed  string
}

// RunEvent represents a complete workflow run
type RunEvent struct {
	ID        string
	StartTime time.Time
	EndTime   time.Time
	Success   bool
	Partial   bool
	Error     string
	Cost      float64
	Tokens    int64
	Platforms []string
}

// NewTelemetry creates a new telemetry instance and registers its collectors
func NewTelemetry(config config.TelemetryConfig) *Telemetry {
	t := &Telemetry{
		config: config,
		logger: log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		costTracker: &CostTracker{
			OperationCosts: make(map[string]float64),
			ModelCosts:     make(map[string]float64),
		},
		runsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "postcraft_runs_total",
			Help: "Workflow runs by outcome (success, partial, failed).",
		}, []string{"outcome"}),
		stageFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "postcraft_stage_failures_total",
			Help: "Non-fatal stage failures by stage name.",
		}, []string{"stage"}),
		llmTokens: promauto.NewCounter(prometheus.CounterOpts{
			Name: "postcraft_llm_tokens_total",
			Help: "Total LLM tokens consumed.",
		}),
		searchRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "postcraft_search_requests_total",
			Help: "Fact-check search requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		runDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "postcraft_run_duration_seconds",
			Help:    "End to end workflow run duration.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}
	return t
}

// RecordRunEvent records a complete workflow run
func (t *Telemetry) RecordRunEvent(event RunEvent) {
	if !t.config.Enabled {
		return
	}

	outcome := "success"
	switch {
	case !event.Success:
		outcome = "failed"
	case event.Partial:
		outcome = "partial"
	}
	t.runsTotal.WithLabelValues(outcome).Inc()
	t.runDuration.Observe(event.EndTime.Sub(event.StartTime).Seconds())

	// Tokens and cost are accumulated per stage event; the run event carries
	// the totals for logging only.
	t.logger.Printf("Run: ID=%s, Outcome=%s, Duration=%v, Cost=$%.4f, Tokens=%d",
		event.ID, outcome, event.EndTime.Sub(event.StartTime), event.Cost, event.Tokens)
}

// RecordStageEvent records a pipeline stage execution
func (t *Telemetry) RecordStageEvent(event StageEvent) {
	if !t.config.Enabled {
		return
	}

	if !event.Success {
		t.stageFailures.WithLabelValues(event.Stage).Inc()
	}
	t.llmTokens.Add(float64(event.TokensUsed))

	if t.config.CostTracking {
		t.costTracker.mu.Lock()
		t.costTracker.TotalCost += event.Cost
		t.costTracker.TotalTokens += event.TokensUsed
		t.costTracker.OperationCosts[event.Stage] += event.Cost
		if event.ModelUsed != "" {
			t.costTracker.ModelCosts[event.ModelUsed] += event.Cost
		}
		t.costTracker.mu.Unlock()
	}

	t.logger.Printf("Stage: Run=%s, Stage=%s, Success=%t, Duration=%v, Tokens=%d",
		event.RunID, event.Stage, event.Success, event.Duration, event.TokensUsed)
}

// RecordSearchRequest records a fact-check search call
func (t *Telemetry) RecordSearchRequest(provider string, success bool) {
	if !t.config.Enabled {
		return
	}
	outcome := "ok"
	if !success {
		outcome = "error"
	}
	t.searchRequests.WithLabelValues(provider, outcome).Inc()
}

// CostSummary provides a summary of accumulated costs
type CostSummary struct {
	TotalCost      float64
	TotalTokens    int64
	ModelCosts     map[string]float64
	OperationCosts map[string]float64
}

// GetCostSummary returns current cost summary
func (t *Telemetry) GetCostSummary() CostSummary {
	t.costTracker.mu.RLock()
	defer t.costTracker.mu.RUnlock()

	summary := CostSummary{
		TotalCost:      t.costTracker.TotalCost,
		TotalTokens:    t.costTracker.TotalTokens,
		ModelCosts:     make(map[string]float64),
		OperationCosts: make(map[string]float64),
	}
	for k, v := range t.costTracker.ModelCosts {
		summary.ModelCosts[k] = v
	}
	for k, v := range t.costTracker.OperationCosts {
		summary.OperationCosts[k] = v
	}
	return summary
}

// CalculateCost calculates the cost for a given number of tokens
func (t *Telemetry) CalculateCost(inputTokens, outputTokens int64, costPer1KInput, costPer1KOutput float64) float64 {
	return float64(inputTokens)/1000.0*costPer1KInput + float64(outputTokens)/1000.0*costPer1KOutput
}

// modelRates holds USD per 1K tokens (input, output) for known completion
// models. Unknown models cost 0 rather than guessing.
var modelRates = map[string][2]float64{
	"gpt-4o":        {0.0025, 0.01},
	"gpt-4o-mini":   {0.00015, 0.0006},
	"gpt-4-turbo":   {0.01, 0.03},
	"gpt-3.5-turbo": {0.0005, 0.0015},
}

// CostForModel prices a token count against the known model rate table
func (t *Telemetry) CostForModel(model string, inputTokens, outputTokens int64) float64 {
	rates, ok := modelRates[model]
	if !ok {
		return 0
	}
	return t.CalculateCost(inputTokens, outputTokens, rates[0], rates[1])
}

// Shutdown logs a final cost report
func (t *Telemetry) Shutdown() {
	costs := t.GetCostSummary()
	t.logger.Printf("Final Report: TotalCost=$%.4f, TotalTokens=%d", costs.TotalCost, costs.TotalTokens)
	for stage, cost := range costs.OperationCosts {
		t.logger.Printf("  Stage %s: $%.4f", stage, cost)
	}
}
