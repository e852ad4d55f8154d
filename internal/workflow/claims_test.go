package workflow

import (
	"testing"
)

func TestNormalizeClaimRoundsPercentages(t *testing.T) {
	a := normalizeClaim("Revenue grew 41.6% this year.")
	b := normalizeClaim("revenue grew 42 percent this year")
	if a != b {
		t.Fatalf("expected equal normalized forms, got %q vs %q", a, b)
	}
}

func TestNormalizeClaimStripsTrailingPunctuation(t *testing.T) {
	a := normalizeClaim("Remote work is here to stay!!!")
	b := normalizeClaim("remote work is here to stay")
	if a != b {
		t.Fatalf("expected equal normalized forms, got %q vs %q", a, b)
	}
}

func TestDedupeClaimsIdempotent(t *testing.T) {
	claims := []Claim{
		{ID: "1", Text: "Adoption grew 42% last year.", Severity: SeverityMedium},
		{ID: "2", Text: "adoption grew 42 percent last year", Severity: SeverityHigh},
		{ID: "3", Text: "Hospitals expanded telehealth programs.", Severity: SeverityLow},
	}

	once := dedupeClaims(claims)
	twice := dedupeClaims(once)

	if len(once) != 2 {
		t.Fatalf("expected 2 unique claims, got %d", len(once))
	}
	if len(twice) != len(once) {
		t.Fatalf("dedup not idempotent: %d then %d", len(once), len(twice))
	}
	// The duplicate pair disagreed on severity; the higher one wins
	if once[0].Severity != SeverityHigh {
		t.Errorf("expected merged claim to keep high severity, got %s", once[0].Severity)
	}
}

func TestClassifySeverity(t *testing.T) {
	cases := []struct {
		text string
		want ClaimSeverity
	}{
		{"According to a 2024 Gartner report, 48% of workers are remote", SeverityHigh},
		{"Adoption rose 48% last quarter", SeverityMedium},
		{"Remote work is popular with engineers", SeverityLow},
		{"The company saved $2 million, a survey found", SeverityHigh},
	}
	for _, tc := range cases {
		if got := classifySeverity(tc.text); got != tc.want {
			t.Errorf("classifySeverity(%q) = %s, want %s", tc.text, got, tc.want)
		}
	}
}

func TestCapClaimsKeepsTopBySeverity(t *testing.T) {
	var claims []Claim
	for i := 0; i < 8; i++ {
		claims = append(claims, Claim{Text: "low " + string(rune('a'+i)), Severity: SeverityLow})
	}
	for i := 0; i < 4; i++ {
		claims = append(claims, Claim{Text: "high " + string(rune('a'+i)), Severity: SeverityHigh})
	}

	capped := capClaims(claims)
	if len(capped) != maxClaims {
		t.Fatalf("expected %d claims, got %d", maxClaims, len(capped))
	}
	for i := 0; i < 4; i++ {
		if capped[i].Severity != SeverityHigh {
			t.Fatalf("expected high severity claims first, got %s at %d", capped[i].Severity, i)
		}
	}
	// Ties within a severity keep appearance order
	if capped[4].Text != "low a" {
		t.Errorf("expected earliest low claim at position 4, got %q", capped[4].Text)
	}
}

func TestPatternClaimsFlagsNumericSentences(t *testing.T) {
	text := "The market grew 17% in 2025 according to analysts. Teams enjoy collaborating in person sometimes. The fund raised $3.5 million from investors last spring."
	claims := patternClaims(text)
	if len(claims) != 2 {
		t.Fatalf("expected 2 pattern claims, got %d: %+v", len(claims), claims)
	}
}
