package workflow

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// AnalyzeQuality scores how well each draft aligns with the source material
// and key insights using embeddings, detects content gaps, and measures
// cross-platform similarity. Failures cost only the analysis, never the run.
func AnalyzeQuality(ctx context.Context, emb Embedder, state *WorkflowState) (*QualityAnalysis, error) {
	if emb == nil || len(state.Drafts) == 0 {
		return nil, nil
	}

	keyPointsText := ""
	for _, kp := range state.KeyPoints {
		keyPointsText += kp.Text + " "
	}

	// One embedding batch: source, key points, then each draft in stable order
	texts := []string{state.SourceText, keyPointsText}
	var platforms []Platform
	for _, p := range AllPlatforms {
		if post, ok := state.Drafts[p]; ok {
			platforms = append(platforms, p)
			texts = append(texts, post.PrimaryText)
		}
	}

	vecs, err := emb.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("quality analysis embedding failed: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("quality analysis got %d embeddings for %d texts", len(vecs), len(texts))
	}

	sourceVec, kpVec := vecs[0], vecs[1]
	analysis := &QualityAnalysis{
		AlignmentScores:         make(map[Platform]float64),
		QualityScores:           make(map[Platform]QualityScore),
		ContentGaps:             make(map[Platform][]string),
		CrossPlatformSimilarity: make(map[string]float64),
	}

	for i, platform := range platforms {
		postVec := vecs[2+i]
		post := state.Drafts[platform]

		origSim := cosineSimilarity(sourceVec, postVec)
		kpSim := cosineSimilarity(kpVec, postVec)
		// Key-point alignment dominates: social drafts compress, they should
		// not mirror the whole source.
		analysis.AlignmentScores[platform] = 0.3*origSim + 0.7*kpSim

		qs := scoreQuality(post.PrimaryText, postVec)
		analysis.QualityScores[platform] = qs
		analysis.ContentGaps[platform] = findGaps(state.SourceText, post.PrimaryText, origSim)

		if post.Metadata == nil {
			post.Metadata = make(map[string]any)
		}
		post.Metadata["quality_score"] = qs.Overall
		post.Metadata["content_density"] = qs.ContentDensity
		post.Metadata["semantic_coherence"] = qs.SemanticCoherence
	}

	for i := 0; i < len(platforms); i++ {
		for j := i + 1; j < len(platforms); j++ {
			key := fmt.Sprintf("%s_vs_%s", platforms[i], platforms[j])
			analysis.CrossPlatformSimilarity[key] = cosineSimilarity(vecs[2+i], vecs[2+j])
		}
	}

	return analysis, nil
}

func scoreQuality(text string, vec []float32) QualityScore {
	var norm, mean float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
		mean += float64(v)
	}
	norm = math.Sqrt(norm)
	if len(vec) > 0 {
		mean /= float64(len(vec))
	}
	var variance float64
	for _, v := range vec {
		d := float64(v) - mean
		variance += d * d
	}
	if len(vec) > 0 {
		variance /= float64(len(vec))
	}

	wordCount := len(strings.Fields(text))
	tone := 0.3
	if wordCount > 10 {
		tone = math.Min(1.0, float64(wordCount)/100.0)
	}

	qs := QualityScore{
		ContentDensity:    math.Min(norm/10.0, 1.0),
		SemanticCoherence: clamp01(1.0 - variance*10),
		ProfessionalTone:  tone,
	}
	qs.Overall = (qs.ContentDensity + qs.SemanticCoherence + qs.ProfessionalTone) / 3
	return qs
}

// findGaps flags drafts that drifted from the source or dropped its concepts
func findGaps(sourceText, postText string, similarity float64) []string {
	var gaps []string
	if similarity < 0.6 {
		gaps = append(gaps, "low semantic similarity to original content")
	}
	if similarity < 0.4 {
		gaps = append(gaps, "significant content deviation detected")
	}
	if len(strings.Fields(postText)) < 10 {
		gaps = append(gaps, "content may be too brief to capture key insights")
	}

	important := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(sourceText)) {
		if len(w) > 5 {
			important[w] = true
		}
	}
	postLower := strings.ToLower(postText)
	missing := 0
	for w := range important {
		if !strings.Contains(postLower, w) {
			missing++
		}
	}
	if len(important) > 0 && float64(missing) > float64(len(important))*0.7 {
		gaps = append(gaps, "many important concepts from original text missing")
	}
	return gaps
}
