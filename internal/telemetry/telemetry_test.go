package telemetry

import (
	"math"
	"testing"
	"time"

	"github.com/mohammad-safakhou/postcraft/config"
)

// One shared instance: collectors register against the default prometheus
// registry and must not be created twice.
var tel = NewTelemetry(config.TelemetryConfig{Enabled: true, CostTracking: true})

func TestCostForModel(t *testing.T) {
	got := tel.CostForModel("gpt-4o", 1000, 1000)
	want := 0.0125
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("CostForModel(gpt-4o, 1000, 1000) = %f, want %f", got, want)
	}
	if c := tel.CostForModel("some-unknown-model", 1000, 1000); c != 0 {
		t.Errorf("unknown model should cost 0, got %f", c)
	}
}

func TestStageEventsAccumulateCosts(t *testing.T) {
	tel.RecordStageEvent(StageEvent{
		RunID: "r1", Stage: "generate_posts", Duration: time.Second,
		Success: true, Cost: 0.02, TokensUsed: 1500, ModelUsed: "gpt-4o",
	})
	tel.RecordStageEvent(StageEvent{
		RunID: "r1", Stage: "fact_check", Duration: time.Second,
		Success: true, Cost: 0.01, TokensUsed: 500, ModelUsed: "gpt-4o",
	})

	s := tel.GetCostSummary()
	if s.TotalTokens != 2000 {
		t.Fatalf("expected 2000 total tokens, got %d", s.TotalTokens)
	}
	if math.Abs(s.TotalCost-0.03) > 1e-9 {
		t.Fatalf("expected total cost 0.03, got %f", s.TotalCost)
	}
	if math.Abs(s.OperationCosts["generate_posts"]-0.02) > 1e-9 {
		t.Errorf("expected generate_posts cost 0.02, got %f", s.OperationCosts["generate_posts"])
	}
	if math.Abs(s.ModelCosts["gpt-4o"]-0.03) > 1e-9 {
		t.Errorf("expected gpt-4o cost 0.03, got %f", s.ModelCosts["gpt-4o"])
	}
}
