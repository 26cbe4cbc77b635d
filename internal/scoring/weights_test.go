package scoring

import (
	"testing"

	"github.com/ternarybob/leadforge/internal/models"
)

func TestClampScore(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"below range clamps to zero", -15, 0},
		{"above range clamps to 100", 140, 100},
		{"within range unchanged", 42.5, 42.5},
		{"zero unchanged", 0, 0},
		{"hundred unchanged", 100, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clampScore(tt.in); got != tt.want {
				t.Fatalf("clampScore(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSeedWeightsKnownModels(t *testing.T) {
	for _, name := range []string{"random_forest", "gradient_boosting"} {
		raw, err := SeedWeights(name)
		if err != nil {
			t.Fatalf("SeedWeights(%q) returned error: %v", name, err)
		}
		if len(raw) == 0 {
			t.Fatalf("SeedWeights(%q) returned empty bytes", name)
		}
	}
}

func TestSeedWeightsUnknownModel(t *testing.T) {
	if _, err := SeedWeights("neural_net"); err == nil {
		t.Fatal("SeedWeights(unknown) = nil error, want error")
	}
}

func TestPredictWithWeightsRoundTrip(t *testing.T) {
	raw, err := SeedWeights("random_forest")
	if err != nil {
		t.Fatalf("SeedWeights returned error: %v", err)
	}

	fv := &models.FeatureVector{
		AuctionScore:             80,
		LegalComplianceScore:     70,
		RiskLevelScore:           10,
		InvestmentViabilityScore: 60,
	}

	score, err := PredictWithWeights(raw, fv)
	if err != nil {
		t.Fatalf("PredictWithWeights returned error: %v", err)
	}
	if score <= 0 || score > 100 {
		t.Fatalf("PredictWithWeights() = %v, want value in (0, 100]", score)
	}
}

func TestPredictWithWeightsInvalidBytes(t *testing.T) {
	if _, err := PredictWithWeights([]byte("not json"), &models.FeatureVector{}); err == nil {
		t.Fatal("PredictWithWeights(invalid bytes) = nil error, want error")
	}
}

func TestAdjustBias(t *testing.T) {
	raw, err := SeedWeights("gradient_boosting")
	if err != nil {
		t.Fatalf("SeedWeights returned error: %v", err)
	}

	before, err := PredictWithWeights(raw, &models.FeatureVector{})
	if err != nil {
		t.Fatalf("PredictWithWeights returned error: %v", err)
	}

	adjusted, err := AdjustBias(raw, 10)
	if err != nil {
		t.Fatalf("AdjustBias returned error: %v", err)
	}

	after, err := PredictWithWeights(adjusted, &models.FeatureVector{})
	if err != nil {
		t.Fatalf("PredictWithWeights returned error: %v", err)
	}

	if after <= before {
		t.Fatalf("AdjustBias(+10) did not raise the zero-feature score: before=%v after=%v", before, after)
	}
}

func TestAdjustBiasClampsToRange(t *testing.T) {
	raw, err := SeedWeights("random_forest")
	if err != nil {
		t.Fatalf("SeedWeights returned error: %v", err)
	}

	adjusted, err := AdjustBias(raw, 10000)
	if err != nil {
		t.Fatalf("AdjustBias returned error: %v", err)
	}

	score, err := PredictWithWeights(adjusted, &models.FeatureVector{})
	if err != nil {
		t.Fatalf("PredictWithWeights returned error: %v", err)
	}
	if score != 100 {
		t.Fatalf("PredictWithWeights() after huge bias bump = %v, want 100", score)
	}
}

func TestAdjustBiasInvalidBytes(t *testing.T) {
	if _, err := AdjustBias([]byte("not json"), 1); err == nil {
		t.Fatal("AdjustBias(invalid bytes) = nil error, want error")
	}
}
