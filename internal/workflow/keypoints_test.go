package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// sequenceGen returns scripted responses in order, one per call
type sequenceGen struct {
	responses []string
	errs      []error
	calls     int
}

func (g *sequenceGen) Generate(ctx context.Context, prompt, format string, temperature float64) (string, error) {
	i := g.calls
	g.calls++
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i < len(g.responses) {
		return g.responses[i], nil
	}
	return "", errors.New("no scripted response")
}

func TestExtractKeyPointsParsesAndClamps(t *testing.T) {
	gen := &sequenceGen{responses: []string{
		`[{"text": "Adoption grew 42% in 2025", "importance": 1.7},
		  {"text": "Teams prefer hybrid setups", "importance": -0.2},
		  {"text": "adoption grew 42% in 2025!", "importance": 0.5}]`,
	}}

	points, err := ExtractKeyPoints(context.Background(), gen, "source text", 0.3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 deduplicated points, got %d", len(points))
	}
	if points[0].Importance != 1.0 {
		t.Errorf("importance not clamped to 1, got %f", points[0].Importance)
	}
	if points[1].Importance != 0.0 {
		t.Errorf("importance not clamped to 0, got %f", points[1].Importance)
	}
}

func TestExtractKeyPointsRetriesWithStrictFormat(t *testing.T) {
	gen := &sequenceGen{responses: []string{
		"Sure! Here are your key points in prose form.",
		`[{"text": "Adoption grew 42%", "importance": 0.9}]`,
	}}

	points, err := ExtractKeyPoints(context.Background(), gen, "source text", 0.3)
	if err != nil {
		t.Fatalf("unexpected error after strict retry: %v", err)
	}
	if gen.calls != 2 {
		t.Fatalf("expected 2 generation calls, got %d", gen.calls)
	}
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
}

func TestExtractKeyPointsFallsBackToSentenceRanking(t *testing.T) {
	gen := &sequenceGen{responses: []string{"not json", "still not json"}}
	source := "The market grew twelve percent according to the annual survey of operators. " +
		"Most teams report higher satisfaction with flexible arrangements across the board. " +
		"Short one. " +
		"Research indicates a lasting shift toward distributed collaboration in every region studied."

	points, err := ExtractKeyPoints(context.Background(), gen, source, 0.3)
	if err == nil {
		t.Fatal("expected a degradation note error")
	}
	if len(points) == 0 {
		t.Fatal("fallback must still produce key points")
	}
	if len(points) > 8 {
		t.Fatalf("fallback produced %d points, max is 8", len(points))
	}
	for _, p := range points {
		if p.Importance < 0 || p.Importance > 1 {
			t.Errorf("importance out of range: %f", p.Importance)
		}
		if strings.TrimSpace(p.Text) == "" {
			t.Error("empty key point text")
		}
	}
}

func TestDedupeKeyPointsNormalizes(t *testing.T) {
	points := dedupeKeyPoints([]KeyPoint{
		{Text: "Remote work is growing!", Importance: 0.8},
		{Text: "remote work is growing", Importance: 0.5},
		{Text: "Hybrid setups are common", Importance: 0.6},
	})
	if len(points) != 2 {
		t.Fatalf("expected 2 points after dedup, got %d", len(points))
	}
}
