package models

import "time"

// ModelMetrics holds the evaluation numbers captured when a model version
// was trained. A typed struct replaces the free-form metrics map the
// original pipeline passed around, so a caller reading Accuracy can't
// typo the key and silently get a zero value.
type ModelMetrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	AUC       float64 `json:"auc"`
	RMSE      float64 `json:"rmse"`
}

// PerformanceTrend summarizes how a model version compares to its
// predecessor. The registry does not compute it; it stores whatever value
// the registering caller set.
type PerformanceTrend string

const (
	TrendImproved  PerformanceTrend = "improved"
	TrendRegressed PerformanceTrend = "regressed"
	TrendFirst     PerformanceTrend = "first_version"
	TrendFlat      PerformanceTrend = "flat"
)

// ModelArtifact is a single trained, registered model version. Once
// registered an artifact is never mutated; a retrain always produces a new
// version rather than overwriting an existing one.
type ModelArtifact struct {
	Name    string `json:"name"`    // "random_forest" or "gradient_boosting"
	Version string `json:"version"` // UTC timestamp for trained versions, e.g. "20260731T120000Z"; "seed" for the bootstrap model

	Metrics          ModelMetrics     `json:"metrics"`
	TrainingSamples  int              `json:"training_samples"`
	FeatureCount     int              `json:"feature_count"`
	SizeBytes        int64            `json:"size_bytes"`
	TrainedAt        time.Time        `json:"trained_at"`
	PerformanceTrend PerformanceTrend `json:"performance_trend"`
}

// Key returns the object-store addressable identifier for this artifact,
// matching the "models/{name}/{version}/..." layout the registry persists to.
func (m *ModelArtifact) Key(part string) string {
	return "models/" + m.Name + "/" + m.Version + "/" + part
}
