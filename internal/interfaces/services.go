package interfaces

import (
	"context"
	"io"

	"github.com/ternarybob/leadforge/internal/models"
)

// SubmissionService accepts a new PDF for analysis, streaming it into
// object storage and enqueuing the validation WorkItem. ownerID is a
// first-class parameter (never smuggled through JobConfig.Extra) so the
// resulting Job's ownership can be enforced everywhere else in the stack.
type SubmissionService interface {
	Submit(ctx context.Context, ownerID, filename string, size int64, r io.Reader, config models.JobConfig) (*models.Job, error)
}

// JobQueryService answers read-only questions about jobs. Every method
// takes ownerID and scopes its result to that owner's jobs; a job owned by
// someone else is reported exactly like a missing one (spec.md §6/S6).
type JobQueryService interface {
	GetJob(ctx context.Context, ownerID, jobID string) (*models.Job, error)
	ListJobs(ctx context.Context, opts *JobListOptions) ([]*models.Job, error)
	GetAnalysis(ctx context.Context, ownerID, jobID string) (*models.TextAnalysis, error)
	GetPrediction(ctx context.Context, ownerID, jobID string) (*models.Prediction, error)
	// GetPage returns the chunk covering page for jobID. When no chunk
	// covering page is persisted, it returns the store's not-found error;
	// no fallback content is produced.
	GetPage(ctx context.Context, ownerID, jobID string, page int) (*models.Chunk, error)
}

// JobMutationService handles operator-triggered state changes outside the
// normal pipeline flow.
type JobMutationService interface {
	Cancel(ctx context.Context, ownerID, jobID string) error
	SubmitFeedback(ctx context.Context, feedback *models.FeedbackRecord) error
	// UpdateTitle sets a job's display title (PATCH /jobs/{id}/title).
	UpdateTitle(ctx context.Context, ownerID, jobID, title string) error
	// Delete removes the job and its chunks, analysis and prediction.
	// Always allowed, even on a failed job. Work items already queued or
	// leased for the job are not revoked.
	Delete(ctx context.Context, ownerID, jobID string) error
	// Retry resets a failed job's status and restarts it from
	// pdf.validate (spec.md §4.9/§7/S5). Only valid from JobStatusFailed.
	Retry(ctx context.Context, ownerID, jobID string) error
}

// DashboardService serves precomputed aggregate snapshots, refreshing them
// read-through on a miss.
type DashboardService interface {
	GetSnapshot(ctx context.Context, scope, user string) (*models.DashboardSnapshot, error)
	Invalidate(ctx context.Context, scope, user string) error
}
