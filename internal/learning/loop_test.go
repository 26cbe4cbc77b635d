package learning

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ternarybob/leadforge/internal/common"
	"github.com/ternarybob/leadforge/internal/interfaces"
	"github.com/ternarybob/leadforge/internal/models"
)

func testLearningConfig() common.LearningConfig {
	return common.LearningConfig{
		FeedbackBatchMinPending:          20,
		UncertaintyConfidenceThreshold:   0.3,
		UncertaintyDisagreementThreshold: 0.2,
		RandomForestWeight:               0.6,
		GradientBoostingWeight:           0.4,
		RetrainMinNewSamples:             50,
		RetrainPerformanceFloor:          0.85,
		RetrainMaxAgeDays:                30,
	}
}

func TestIsUncertainLowConfidence(t *testing.T) {
	cfg := testLearningConfig()
	p := &models.Prediction{
		Confidence: 0.1,
		Members: []models.MemberPrediction{
			{ModelName: "random_forest", Score: 60},
			{ModelName: "gradient_boosting", Score: 62},
		},
	}
	if !isUncertain(p, cfg) {
		t.Fatal("isUncertain() = false, want true for confidence below threshold")
	}
}

func TestIsUncertainHighDisagreement(t *testing.T) {
	cfg := testLearningConfig()
	p := &models.Prediction{
		Confidence: 0.9,
		Members: []models.MemberPrediction{
			{ModelName: "random_forest", Score: 20},
			{ModelName: "gradient_boosting", Score: 90},
		},
	}
	if !isUncertain(p, cfg) {
		t.Fatal("isUncertain() = false, want true for widely disagreeing ensemble members")
	}
}

func TestIsUncertainConfidentAndAgreeing(t *testing.T) {
	cfg := testLearningConfig()
	p := &models.Prediction{
		Confidence: 0.9,
		Members: []models.MemberPrediction{
			{ModelName: "random_forest", Score: 80},
			{ModelName: "gradient_boosting", Score: 82},
		},
	}
	if isUncertain(p, cfg) {
		t.Fatal("isUncertain() = true, want false for a confident, agreeing prediction")
	}
}

func TestIsUncertainSingleMemberSkipsDisagreementCheck(t *testing.T) {
	cfg := testLearningConfig()
	p := &models.Prediction{
		Confidence: 0.9,
		Members:    []models.MemberPrediction{{ModelName: "random_forest", Score: 80}},
	}
	if isUncertain(p, cfg) {
		t.Fatal("isUncertain() = true, want false when confidence is high and fewer than 2 members exist")
	}
}

func TestMemberStdDev(t *testing.T) {
	tests := []struct {
		name    string
		members []models.MemberPrediction
		want    float64
	}{
		{"identical scores", []models.MemberPrediction{{Score: 50}, {Score: 50}}, 0},
		{"spread scores", []models.MemberPrediction{{Score: 0}, {Score: 100}}, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := memberStdDev(tt.members); got != tt.want {
				t.Fatalf("memberStdDev() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFeedbackLabelWouldInvest(t *testing.T) {
	tests := []struct {
		name string
		fb   *models.FeedbackRecord
		want float64
	}{
		{"would invest yes", &models.FeedbackRecord{Answers: map[string]string{"would_invest": "yes"}}, 0.9},
		{"would invest no", &models.FeedbackRecord{Answers: map[string]string{"would_invest": "no"}}, 0.1},
		{"rating scale", &models.FeedbackRecord{Answers: map[string]string{"rating": "4"}}, 0.8},
		{"no answers at all", &models.FeedbackRecord{Answers: map[string]string{}}, 0.5},
		{"invalid rating falls back to neutral", &models.FeedbackRecord{Answers: map[string]string{"rating": "not-a-number"}}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := feedbackLabel(tt.fb); got != tt.want {
				t.Fatalf("feedbackLabel() = %v, want %v", got, tt.want)
			}
		})
	}
}

// fakeRegistry is a minimal in-memory interfaces.ModelRegistry for exercising
// shouldAutoRetrain without the object store.
type fakeRegistry struct {
	artifacts map[string]*models.ModelArtifact
}

var _ interfaces.ModelRegistry = (*fakeRegistry)(nil)

func (f *fakeRegistry) Register(ctx context.Context, artifact *models.ModelArtifact, modelBytes []byte) error {
	if f.artifacts == nil {
		f.artifacts = make(map[string]*models.ModelArtifact)
	}
	f.artifacts[artifact.Name] = artifact
	return nil
}

func (f *fakeRegistry) Get(ctx context.Context, name, version string) (*models.ModelArtifact, []byte, error) {
	return f.GetLatest(ctx, name)
}

func (f *fakeRegistry) GetLatest(ctx context.Context, name string) (*models.ModelArtifact, []byte, error) {
	a, ok := f.artifacts[name]
	if !ok {
		return nil, nil, fmt.Errorf("no registered versions for model %s", name)
	}
	return a, []byte("{}"), nil
}

func (f *fakeRegistry) GetMetrics(ctx context.Context, name, version string) (*models.ModelMetrics, error) {
	a, _, err := f.GetLatest(ctx, name)
	if err != nil {
		return nil, err
	}
	return &a.Metrics, nil
}

func (f *fakeRegistry) List(ctx context.Context) (map[string][]string, error) {
	out := make(map[string][]string)
	for name := range f.artifacts {
		out[name] = []string{"test"}
	}
	return out, nil
}

func TestShouldAutoRetrainNoRegisteredVersion(t *testing.T) {
	loop := &Loop{registry: &fakeRegistry{}, learningCfg: testLearningConfig()}
	if !loop.shouldAutoRetrain(context.Background(), "random_forest", 100) {
		t.Fatal("shouldAutoRetrain() = false, want true when no version is registered yet")
	}
}

func TestShouldAutoRetrainEnoughNewSamples(t *testing.T) {
	registry := &fakeRegistry{artifacts: map[string]*models.ModelArtifact{
		"random_forest": {Name: "random_forest", TrainingSamples: 10, TrainedAt: time.Now(), Metrics: models.ModelMetrics{Accuracy: 0.95}},
	}}
	loop := &Loop{registry: registry, learningCfg: testLearningConfig()}
	if !loop.shouldAutoRetrain(context.Background(), "random_forest", 10+60) {
		t.Fatal("shouldAutoRetrain() = false, want true once new samples exceed RetrainMinNewSamples")
	}
}

func TestShouldAutoRetrainPerformanceBelowFloor(t *testing.T) {
	registry := &fakeRegistry{artifacts: map[string]*models.ModelArtifact{
		"random_forest": {Name: "random_forest", TrainingSamples: 500, TrainedAt: time.Now(), Metrics: models.ModelMetrics{Accuracy: 0.5}},
	}}
	loop := &Loop{registry: registry, learningCfg: testLearningConfig()}
	if !loop.shouldAutoRetrain(context.Background(), "random_forest", 500) {
		t.Fatal("shouldAutoRetrain() = false, want true when accuracy has fallen below the configured floor")
	}
}

func TestShouldAutoRetrainStaleByAge(t *testing.T) {
	registry := &fakeRegistry{artifacts: map[string]*models.ModelArtifact{
		"random_forest": {Name: "random_forest", TrainingSamples: 500, TrainedAt: time.Now().Add(-40 * 24 * time.Hour), Metrics: models.ModelMetrics{Accuracy: 0.95}},
	}}
	loop := &Loop{registry: registry, learningCfg: testLearningConfig()}
	if !loop.shouldAutoRetrain(context.Background(), "random_forest", 500) {
		t.Fatal("shouldAutoRetrain() = false, want true when the model is older than RetrainMaxAgeDays")
	}
}

func TestShouldAutoRetrainFreshAndPerforming(t *testing.T) {
	registry := &fakeRegistry{artifacts: map[string]*models.ModelArtifact{
		"random_forest": {Name: "random_forest", TrainingSamples: 500, TrainedAt: time.Now(), Metrics: models.ModelMetrics{Accuracy: 0.95}},
	}}
	loop := &Loop{registry: registry, learningCfg: testLearningConfig()}
	if loop.shouldAutoRetrain(context.Background(), "random_forest", 510) {
		t.Fatal("shouldAutoRetrain() = true, want false for a fresh, well-performing, under-threshold model")
	}
}
