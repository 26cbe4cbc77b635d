// Package learning implements interfaces.LearningLoop: two cron schedules,
// the uncertainty sweep and the feedback batch. The auto-retraining decision
// runs inside each feedback batch and has no cron schedule of its own.
package learning

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/leadforge/internal/common"
	"github.com/ternarybob/leadforge/internal/interfaces"
	"github.com/ternarybob/leadforge/internal/models"
	"github.com/ternarybob/leadforge/internal/scoring"
)

// Loop implements interfaces.LearningLoop over a JobStore, ModelRegistry,
// FeatureExtractor and ScoringEngine, grounded on the reference scheduler
// service's RegisterJob-over-robfig/cron idiom.
type Loop struct {
	jobs     interfaces.JobStore
	registry interfaces.ModelRegistry
	features interfaces.FeatureExtractor
	scoring  interfaces.ScoringEngine
	logger   arbor.ILogger

	learningCfg common.LearningConfig
	schedules   common.SchedulerConfig

	cron *cron.Cron
}

func NewLoop(
	jobs interfaces.JobStore,
	registry interfaces.ModelRegistry,
	features interfaces.FeatureExtractor,
	scoring interfaces.ScoringEngine,
	learningCfg common.LearningConfig,
	schedules common.SchedulerConfig,
	logger arbor.ILogger,
) *Loop {
	return &Loop{
		jobs: jobs, registry: registry, features: features, scoring: scoring,
		learningCfg: learningCfg, schedules: schedules, logger: logger,
		cron: cron.New(),
	}
}

var _ interfaces.LearningLoop = (*Loop)(nil)

// Start registers the uncertainty sweep and feedback batch cron schedules
// and begins running them. It does not block.
func (l *Loop) Start() error {
	if _, err := l.cron.AddFunc(l.schedules.UncertaintySweepSchedule, l.runUncertaintySweepSafe); err != nil {
		return fmt.Errorf("failed to register uncertainty sweep schedule %q: %w", l.schedules.UncertaintySweepSchedule, err)
	}
	if _, err := l.cron.AddFunc(l.schedules.FeedbackBatchSchedule, l.runFeedbackBatchSafe); err != nil {
		return fmt.Errorf("failed to register feedback batch schedule %q: %w", l.schedules.FeedbackBatchSchedule, err)
	}
	l.cron.Start()
	l.logger.Info().
		Str("uncertainty_sweep", l.schedules.UncertaintySweepSchedule).
		Str("feedback_batch", l.schedules.FeedbackBatchSchedule).
		Msg("learning loop schedules registered")
	return nil
}

// Stop halts the cron scheduler and waits for any in-flight run to finish.
func (l *Loop) Stop() {
	ctx := l.cron.Stop()
	<-ctx.Done()
}

func (l *Loop) runUncertaintySweepSafe() {
	if err := l.RunUncertaintySweep(context.Background()); err != nil {
		l.logger.Error().Err(err).Msg("uncertainty sweep failed")
	}
}

func (l *Loop) runFeedbackBatchSafe() {
	if err := l.RunFeedbackBatch(context.Background()); err != nil {
		l.logger.Error().Err(err).Msg("feedback batch failed")
	}
}

// RunUncertaintySweep selects completed predictions with low confidence or
// high ensemble-member disagreement and writes a system-generated feedback
// request for each, to be answered by a reviewer and folded into the next
// feedback batch.
func (l *Loop) RunUncertaintySweep(ctx context.Context) error {
	jobs, err := l.jobs.ListJobs(ctx, &interfaces.JobListOptions{Status: models.JobStatusCompleted, Limit: 1000})
	if err != nil {
		return fmt.Errorf("failed to list completed jobs: %w", err)
	}

	swept := 0
	for _, job := range jobs {
		prediction, err := l.jobs.GetPrediction(ctx, job.ID)
		if err != nil {
			continue
		}
		if !isUncertain(prediction, l.learningCfg) {
			continue
		}

		request := &models.FeedbackRecord{
			ID:    uuid.New().String(),
			JobID: job.ID,
			Metadata: map[string]string{
				"source":      "uncertainty_sweep",
				"score":       fmt.Sprintf("%.2f", prediction.Score),
				"confidence":  fmt.Sprintf("%.2f", prediction.Confidence),
				"requires_review": "true",
			},
			CreatedAt: time.Now(),
			Processed: false,
		}
		if err := l.jobs.SaveFeedback(ctx, request); err != nil {
			l.logger.Warn().Err(err).Str("job_id", job.ID).Msg("failed to write uncertainty feedback request")
			continue
		}
		swept++
	}

	l.logger.Info().Int("swept", swept).Int("scanned", len(jobs)).Msg("uncertainty sweep complete")
	return nil
}

// isUncertain reports whether a prediction should be routed for review:
// confidence below the configured floor, or ensemble-member scores spread
// wider than the configured disagreement fraction of the 0..100 scale.
func isUncertain(p *models.Prediction, cfg common.LearningConfig) bool {
	if p.Confidence < cfg.UncertaintyConfidenceThreshold {
		return true
	}
	if len(p.Members) < 2 {
		return false
	}
	return memberStdDev(p.Members) > cfg.UncertaintyDisagreementThreshold*100
}

func memberStdDev(members []models.MemberPrediction) float64 {
	var sum float64
	for _, m := range members {
		sum += m.Score
	}
	mean := sum / float64(len(members))

	var variance float64
	for _, m := range members {
		d := m.Score - mean
		variance += d * d
	}
	variance /= float64(len(members))
	return math.Sqrt(variance)
}

// RunFeedbackBatch converts accumulated FeedbackRecords into numeric labels,
// and once the pending count reaches the configured minimum, retrains each
// registered model against a dataset built from feedback-labeled jobs
// (weight 2) plus other completed jobs using their current prediction as a
// proxy label (weight 1).
func (l *Loop) RunFeedbackBatch(ctx context.Context) error {
	pending, err := l.jobs.ListPendingFeedback(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to list pending feedback: %w", err)
	}
	totalCompleted, err := l.jobs.CountJobsByStatus(ctx, models.JobStatusCompleted)
	if err != nil {
		return fmt.Errorf("failed to count completed jobs: %w", err)
	}

	triggerRetrain := len(pending) >= l.learningCfg.FeedbackBatchMinPending
	if !triggerRetrain {
		triggerRetrain = l.shouldAutoRetrain(ctx, "random_forest", totalCompleted) || l.shouldAutoRetrain(ctx, "gradient_boosting", totalCompleted)
	}
	if !triggerRetrain {
		l.logger.Info().Int("pending", len(pending)).Int("min", l.learningCfg.FeedbackBatchMinPending).Msg("feedback batch skipped, below minimum and no auto-retrain condition met")
		return nil
	}

	labeled := make(map[string]sample) // jobID -> weighted label
	for _, fb := range pending {
		label := feedbackLabel(fb)
		labeled[fb.JobID] = sample{label: label, weight: 2}
	}

	jobs, err := l.jobs.ListJobs(ctx, &interfaces.JobListOptions{Status: models.JobStatusCompleted, Limit: 1000})
	if err != nil {
		return fmt.Errorf("failed to list completed jobs for retraining: %w", err)
	}
	for _, job := range jobs {
		if _, ok := labeled[job.ID]; ok {
			continue
		}
		prediction, err := l.jobs.GetPrediction(ctx, job.ID)
		if err != nil {
			continue
		}
		labeled[job.ID] = sample{label: prediction.Score / 100, weight: 1}
	}

	dataset, err := l.buildDataset(ctx, labeled)
	if err != nil {
		return fmt.Errorf("failed to build retraining dataset: %w", err)
	}
	if len(dataset) == 0 {
		l.logger.Warn().Msg("feedback batch: no feature vectors available, skipping retrain")
		return nil
	}

	if err := l.retrain(ctx, dataset); err != nil {
		return fmt.Errorf("retraining failed: %w", err)
	}

	ids := make([]string, 0, len(pending))
	for _, fb := range pending {
		ids = append(ids, fb.ID)
	}
	if err := l.jobs.MarkFeedbackProcessed(ctx, ids); err != nil {
		return fmt.Errorf("failed to archive processed feedback: %w", err)
	}

	l.logger.Info().Int("pending", len(pending)).Int("dataset_size", len(dataset)).Msg("feedback batch complete, retraining triggered")
	return nil
}

type sample struct {
	label  float64
	weight float64
}

type trainingPoint struct {
	features *models.FeatureVector
	label    float64
	weight   float64
}

// feedbackLabel converts a FeedbackRecord's rubric answers into a [0,1]
// label: "would_invest" yes/no dominates, the 1-5 "rating" answer
// otherwise provides a linear scale.
func feedbackLabel(fb *models.FeedbackRecord) float64 {
	if v, ok := fb.Answers["would_invest"]; ok {
		if v == "yes" {
			return 0.9
		}
		return 0.1
	}
	if v, ok := fb.Answers["rating"]; ok {
		var rating float64
		if _, err := fmt.Sscanf(v, "%f", &rating); err == nil && rating > 0 {
			return math.Min(1, math.Max(0, rating/5))
		}
	}
	return 0.5
}

func (l *Loop) buildDataset(ctx context.Context, labeled map[string]sample) ([]trainingPoint, error) {
	dataset := make([]trainingPoint, 0, len(labeled))
	for jobID, s := range labeled {
		analysis, err := l.jobs.GetAnalysis(ctx, jobID)
		if err != nil {
			continue
		}
		fv, err := l.features.Extract(ctx, analysis)
		if err != nil {
			continue
		}
		dataset = append(dataset, trainingPoint{features: fv, label: s.label, weight: s.weight})
	}
	return dataset, nil
}

// retrain applies a weighted bias correction to each registered ensemble
// member: the mean residual between its current prediction and the
// dataset's labels is folded into its bias term and the result is
// registered as a new model version. This stands in for a full gradient
// descent / tree refit (no ML library is available), same as the initial
// seed models in internal/scoring/weights.go.
func (l *Loop) retrain(ctx context.Context, dataset []trainingPoint) error {
	version := time.Now().UTC().Format("20060102T150405Z")
	for _, name := range []string{"random_forest", "gradient_boosting"} {
		metrics, modelBytes, err := l.fitBiasCorrection(ctx, name, dataset)
		if err != nil {
			return err
		}
		artifact := &models.ModelArtifact{
			Name:            name,
			Version:         version,
			Metrics:         *metrics,
			TrainingSamples: len(dataset),
			FeatureCount:    models.FeatureDimensions,
			SizeBytes:       int64(len(modelBytes)),
			TrainedAt:       time.Now(),
		}
		if err := l.registry.Register(ctx, artifact, modelBytes); err != nil {
			return fmt.Errorf("failed to register retrained model %s: %w", name, err)
		}
	}
	return nil
}

// fitBiasCorrection loads a model's current weights (the latest registered
// version, or the hand-tuned seed if none is registered yet), computes the
// weighted mean residual between its predictions and the dataset's labels,
// and folds that residual into the model's bias term.
func (l *Loop) fitBiasCorrection(ctx context.Context, name string, dataset []trainingPoint) (*models.ModelMetrics, []byte, error) {
	current, err := l.currentWeights(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	var weightedResidual, totalWeight, sumAbsResidual float64
	for _, pt := range dataset {
		predicted, err := scoring.PredictWithWeights(current, pt.features)
		if err != nil {
			return nil, nil, err
		}
		residual := pt.label*100 - predicted
		weightedResidual += residual * pt.weight
		sumAbsResidual += math.Abs(residual) * pt.weight
		totalWeight += pt.weight
	}
	if totalWeight == 0 {
		return nil, nil, fmt.Errorf("empty dataset for model %s", name)
	}

	delta := weightedResidual / totalWeight
	adjusted, err := scoring.AdjustBias(current, delta)
	if err != nil {
		return nil, nil, err
	}

	meanAbsError := (sumAbsResidual / totalWeight) / 100
	metrics := &models.ModelMetrics{
		RMSE:     meanAbsError,
		Accuracy: math.Max(0, 1-meanAbsError),
	}
	return metrics, adjusted, nil
}

// shouldAutoRetrain applies the daily auto-retrain decision from spec
// §4.10: retrain if new samples since last training reaches the minimum,
// estimated current performance has fallen below the floor, or the model
// hasn't been retrained in longer than the configured cap. A model with no
// registered version yet always qualifies.
func (l *Loop) shouldAutoRetrain(ctx context.Context, name string, totalCompleted int) bool {
	artifact, _, err := l.registry.GetLatest(ctx, name)
	if err != nil {
		return true
	}
	newSamples := totalCompleted - artifact.TrainingSamples
	if newSamples >= l.learningCfg.RetrainMinNewSamples {
		return true
	}
	if artifact.Metrics.Accuracy > 0 && artifact.Metrics.Accuracy < l.learningCfg.RetrainPerformanceFloor {
		return true
	}
	daysSince := time.Since(artifact.TrainedAt).Hours() / 24
	return daysSince > float64(l.learningCfg.RetrainMaxAgeDays)
}

func (l *Loop) currentWeights(ctx context.Context, name string) ([]byte, error) {
	_, raw, err := l.registry.GetLatest(ctx, name)
	if err == nil {
		return raw, nil
	}
	return scoring.SeedWeights(name)
}
