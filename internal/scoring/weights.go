package scoring

import (
	"encoding/json"
	"fmt"

	"github.com/ternarybob/leadforge/internal/models"
)

// linearModel is the serialized form of one ensemble member. The reference
// ensemble trains a random forest and a gradient boosting regressor; with no
// ML library in the dependency surface, each member here is a weighted
// linear combination over the 40-dimension feature vector plus a bias term,
// fit offline and shipped as a ModelArtifact. This is a deliberate
// stand-in for the tree ensembles, not an attempt to reproduce their
// internals — see DESIGN.md.
type linearModel struct {
	Name    string    `json:"name"`
	Weights [40]float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

func (m *linearModel) predict(fv *models.FeatureVector) float64 {
	slice := fv.ToSlice()
	score := m.Bias
	for i, v := range slice {
		score += v * m.Weights[i]
	}
	return clampScore(score)
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// defaultRandomForestModel is a hand-tuned seed model emphasizing judicial
// compliance and risk signals, standing in for a forest trained offline on
// labeled historical leads.
func defaultRandomForestModel() *linearModel {
	m := &linearModel{Name: "random_forest"}
	m.Weights[26] = 0.25 // auction_score
	m.Weights[30] = 0.20 // legal_restriction_count (negative contribution handled by sign of input)
	m.Weights[31] = 0.30 // legal_compliance_score
	m.Weights[32] = -0.30 // risk_level_score
	m.Weights[36] = 0.35 // investment_viability_score
	m.Bias = 20
	return m
}

// defaultGradientBoostingModel emphasizes financial magnitude and
// opportunity indicators, standing in for a boosting regressor trained
// offline on realized sale outcomes.
func defaultGradientBoostingModel() *linearModel {
	m := &linearModel{Name: "gradient_boosting"}
	m.Weights[19] = 0.10 // max_financial_value (assumed pre-scaled to 0..100 by the training pipeline)
	m.Weights[21] = 0.10 // financial_keyword_count
	m.Weights[33] = 0.25 // discount_indicators
	m.Weights[35] = 0.30 // auction_urgency_score
	m.Weights[36] = 0.25 // investment_viability_score
	m.Bias = 15
	return m
}

// SeedWeights returns the hand-tuned seed weights for name ("random_forest"
// or "gradient_boosting"), JSON-encoded the same way a retrained model is,
// so callers outside this package (the learning loop, bootstrapping the
// registry on first run) can register them without reaching into
// unexported types.
func SeedWeights(name string) ([]byte, error) {
	model, err := seedModel(name)
	if err != nil {
		return nil, err
	}
	return json.Marshal(model)
}

// PredictWithWeights decodes a model previously produced by SeedWeights (or
// a retrained registry version in the same shape) and scores fv against it.
func PredictWithWeights(raw []byte, fv *models.FeatureVector) (float64, error) {
	var m linearModel
	if err := json.Unmarshal(raw, &m); err != nil {
		return 0, fmt.Errorf("failed to decode model weights: %w", err)
	}
	return m.predict(fv), nil
}

// AdjustBias decodes raw, shifts its bias term by delta, and re-encodes it.
// Used by the learning loop's bias-correction retraining step.
func AdjustBias(raw []byte, delta float64) ([]byte, error) {
	var m linearModel
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to decode model weights: %w", err)
	}
	m.Bias = clampScore(m.Bias + delta)
	return json.Marshal(&m)
}

func seedModel(name string) (*linearModel, error) {
	switch name {
	case modelRandomForest:
		return defaultRandomForestModel(), nil
	case modelGradientBoosting:
		return defaultGradientBoostingModel(), nil
	default:
		return nil, fmt.Errorf("unknown model name %q", name)
	}
}
