package interfaces

import (
	"context"

	"github.com/ternarybob/leadforge/internal/models"
)

// PDFMetadata is what the decomposer can learn about a document without
// extracting its text: page count, size, and whether it is encrypted.
type PDFMetadata struct {
	PageCount   int
	SizeBytes   int64
	IsEncrypted bool
}

// PDFDecomposer validates a raw PDF, plans its chunk windows, and streams
// per-chunk text and image metadata out of it.
type PDFDecomposer interface {
	// Validate opens the PDF at objectKey and confirms it parses and is
	// within the accepted size bound, returning its metadata. An encrypted
	// PDF that opens with an empty password is accepted and reported via
	// IsEncrypted.
	Validate(ctx context.Context, objectKey string) (*PDFMetadata, error)

	// PlanChunks divides a document of the given page count into
	// overlapping windows per the job's chunk size/overlap configuration.
	PlanChunks(pageCount, chunkSizePages, overlapPages int) []models.Chunk

	// ExtractChunk pulls the text and image metadata for one planned chunk
	// out of the PDF at objectKey.
	ExtractChunk(ctx context.Context, objectKey string, chunk *models.Chunk) error
}

// ContentAnalyzer runs the deterministic rule-based extraction over
// concatenated chunk text, producing entities, keywords, and ordered
// AnalysisPoints.
type ContentAnalyzer interface {
	Analyze(ctx context.Context, jobID string, text string, pageOffsets []int) (*models.TextAnalysis, error)
}

// FeatureExtractor turns a TextAnalysis into the fixed 40-dimension
// FeatureVector the scoring engine consumes.
type FeatureExtractor interface {
	Extract(ctx context.Context, analysis *models.TextAnalysis) (*models.FeatureVector, error)
}

// ScoringEngine produces a Prediction from a FeatureVector using the
// registry's current model versions.
type ScoringEngine interface {
	Predict(ctx context.Context, jobID string, features *models.FeatureVector) (*models.Prediction, error)
}

// ModelRegistry stores and retrieves versioned ModelArtifacts.
type ModelRegistry interface {
	Register(ctx context.Context, artifact *models.ModelArtifact, modelBytes []byte) error
	Get(ctx context.Context, name string, version string) (*models.ModelArtifact, []byte, error)
	GetLatest(ctx context.Context, name string) (*models.ModelArtifact, []byte, error)
	GetMetrics(ctx context.Context, name string, version string) (*models.ModelMetrics, error)
	List(ctx context.Context) (map[string][]string, error)
}

// Orchestrator drives a Job from submission through completion, dispatching
// WorkItems onto the task queue and reacting to their outcomes.
type Orchestrator interface {
	Submit(ctx context.Context, job *models.Job) error
	// Resubmit re-enqueues the validation WorkItem for a job that has
	// already been persisted (used by JobMutationService.Retry).
	Resubmit(ctx context.Context, job *models.Job) error
	HandleWorkItem(ctx context.Context, item *models.WorkItem) error
}

// LearningLoop runs the uncertainty sweep and feedback batch on cron
// schedules; the auto-retraining check runs as part of the feedback batch
// rather than on a schedule of its own.
type LearningLoop interface {
	RunUncertaintySweep(ctx context.Context) error
	RunFeedbackBatch(ctx context.Context) error
	Start() error
	Stop()
}
