package scoring

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/leadforge/internal/interfaces"
	"github.com/ternarybob/leadforge/internal/models"
)

const (
	modelRandomForest     = "random_forest"
	modelGradientBoosting = "gradient_boosting"
)

// Engine implements interfaces.ScoringEngine by combining the random forest
// and gradient boosting ensemble members' predictions with the configured
// blend weights (default 0.6/0.4, per the reference ensemble).
type Engine struct {
	registry interfaces.ModelRegistry
	logger   arbor.ILogger

	rfWeight float64
	gbWeight float64
}

var _ interfaces.ScoringEngine = (*Engine)(nil)

func NewEngine(registry interfaces.ModelRegistry, rfWeight, gbWeight float64, logger arbor.ILogger) *Engine {
	if rfWeight == 0 && gbWeight == 0 {
		rfWeight, gbWeight = 0.6, 0.4
	}
	return &Engine{registry: registry, rfWeight: rfWeight, gbWeight: gbWeight, logger: logger}
}

func (e *Engine) Predict(ctx context.Context, jobID string, features *models.FeatureVector) (*models.Prediction, error) {
	start := time.Now()

	rf, rfVersion, rfTrained := e.loadMember(ctx, modelRandomForest, defaultRandomForestModel())
	gb, gbVersion, gbTrained := e.loadMember(ctx, modelGradientBoosting, defaultGradientBoostingModel())

	rfScore := rf.predict(features)
	gbScore := gb.predict(features)

	members := []models.MemberPrediction{
		{ModelName: modelRandomForest, Score: rfScore, Confidence: memberConfidence(rfScore)},
		{ModelName: modelGradientBoosting, Score: gbScore, Confidence: memberConfidence(gbScore)},
	}

	// Neither ensemble member has a registered, trained version yet (e.g.
	// before the first retraining cycle has completed): return the fixed
	// dummy prediction rather than a combination of two untrained seed
	// guesses (spec.md §4.8 step 1, testable property #13).
	if !rfTrained && !gbTrained {
		return &models.Prediction{
			JobID:              jobID,
			Score:              50,
			Confidence:         0.5,
			Classification:     models.ClassMedium,
			ClassProbabilities: classProbabilities(50),
			FeatureImportance:  featureImportance(rf, gb, e.rfWeight, e.gbWeight),
			Members:            members,
			ModelVersion:       rfVersion + "+" + gbVersion,
			InferenceTime:      time.Since(start),
			PredictedAt:        start,
		}, nil
	}

	combined := clampScore(rfScore*e.rfWeight + gbScore*e.gbWeight)

	agreement := 1 - absDiff(rfScore, gbScore)/100
	confidence := clamp01(agreement)

	prediction := &models.Prediction{
		JobID:              jobID,
		Score:              combined,
		Confidence:         confidence,
		Classification:     models.ClassifyScore(combined),
		ClassProbabilities: classProbabilities(combined),
		FeatureImportance:  featureImportance(rf, gb, e.rfWeight, e.gbWeight),
		Members:            members,
		ModelVersion:       rfVersion + "+" + gbVersion,
		InferenceTime:      time.Since(start),
		PredictedAt:        start,
	}
	return prediction, nil
}

// loadMember fetches the latest registered weights for name, falling back to
// the hand-tuned seed model when the registry has nothing registered yet
// (e.g. before the first retraining cycle has run). The bool return reports
// whether a real trained version was found, as opposed to the seed
// fallback, so Predict can tell "both members still untrained" apart from
// "both members trained but happen to agree".
func (e *Engine) loadMember(ctx context.Context, name string, fallback *linearModel) (*linearModel, string, bool) {
	if e.registry == nil {
		return fallback, "seed", false
	}
	artifact, raw, err := e.registry.GetLatest(ctx, name)
	if err != nil {
		if e.logger != nil {
			e.logger.Debug().Msgf("scoring: no registered model %s, using seed weights: %v", name, err)
		}
		return fallback, "seed", false
	}
	var m linearModel
	if err := json.Unmarshal(raw, &m); err != nil {
		if e.logger != nil {
			e.logger.Warn().Msgf("scoring: failed to decode registered model %s@%s, using seed weights: %v", name, artifact.Version, err)
		}
		return fallback, "seed", false
	}
	// A registered artifact with zero training samples is the startup seed
	// (app.seedModels), not a product of an actual retraining cycle.
	return &m, artifact.Version, artifact.TrainingSamples > 0
}

func memberConfidence(score float64) float64 {
	// Confidence peaks at the score's distance from the uncertain midpoint
	// (50); a score near 0 or 100 is a confident call either way.
	return clamp01(absDiff(score, 50) / 50)
}

func classProbabilities(score float64) map[string]float64 {
	switch models.ClassifyScore(score) {
	case models.ClassHigh:
		return map[string]float64{"high": 0.7, "medium": 0.25, "low": 0.05}
	case models.ClassMedium:
		return map[string]float64{"high": 0.2, "medium": 0.6, "low": 0.2}
	default:
		return map[string]float64{"high": 0.05, "medium": 0.25, "low": 0.7}
	}
}

func featureImportance(rf, gb *linearModel, rfWeight, gbWeight float64) map[string]float64 {
	names := models.FeatureNames()
	importance := make(map[string]float64, len(names))
	for i, name := range names {
		importance[name] = absDiff(rf.Weights[i]*rfWeight, 0) + absDiff(gb.Weights[i]*gbWeight, 0)
	}
	return importance
}

func absDiff(a, b float64) float64 {
	d := a - b
	if d < 0 {
		return -d
	}
	return d
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
