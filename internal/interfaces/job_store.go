package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/leadforge/internal/models"
)

// JobListOptions filters and paginates JobStore.ListJobs. OwnerID scopes
// enumeration to one user's jobs. The store treats an empty OwnerID as no
// owner filter and returns every owner's jobs; the dashboard recompute and
// the learning loop list that way. JobQueryService.ListJobs returns an
// empty list instead when OwnerID is empty.
type JobListOptions struct {
	OwnerID  string
	Status   models.JobStatus
	ParentID string
	Limit    int
	Offset   int
}

// JobStore persists Job and Chunk records. Grounded on the badgerhold
// query idiom: indexed fields (Status, ParentID, CreatedAt) are queried via
// badgerhold.Where rather than a full scan.
type JobStore interface {
	SaveJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	UpdateJob(ctx context.Context, job *models.Job) error
	ListJobs(ctx context.Context, opts *JobListOptions) ([]*models.Job, error)
	DeleteJob(ctx context.Context, jobID string) error // deletes the job, its chunks, analysis and prediction one after another, not in a single transaction

	UpdateJobStatus(ctx context.Context, jobID string, status models.JobStatus, errMsg string) error
	UpdateJobProgress(ctx context.Context, jobID string, completedDelta, failedDelta int) error
	UpdateJobHeartbeat(ctx context.Context, jobID string) error
	GetStaleJobs(ctx context.Context, heartbeatThreshold time.Duration) ([]*models.Job, error)

	SaveChunk(ctx context.Context, chunk *models.Chunk) error
	GetChunk(ctx context.Context, chunkID string) (*models.Chunk, error)
	ListChunksByJob(ctx context.Context, jobID string) ([]*models.Chunk, error)
	// GetChunkByPage returns the chunk covering page (1-indexed) for jobID,
	// backing GET /jobs/{id}/page/{n}. When more than one chunk's window
	// covers page (an overlap region), the chunk with the higher Sequence
	// wins, matching the orchestrator's own aggregation, which lets a later
	// chunk's text overwrite an earlier chunk's for any page they both claim.
	GetChunkByPage(ctx context.Context, jobID string, page int) (*models.Chunk, error)
	UpdateChunkStatus(ctx context.Context, chunkID string, status models.ChunkStatus, errMsg string) error

	SaveAnalysis(ctx context.Context, analysis *models.TextAnalysis) error
	GetAnalysis(ctx context.Context, jobID string) (*models.TextAnalysis, error)

	SavePrediction(ctx context.Context, prediction *models.Prediction) error
	GetPrediction(ctx context.Context, jobID string) (*models.Prediction, error)

	CountJobs(ctx context.Context) (int, error)
	CountJobsByStatus(ctx context.Context, status models.JobStatus) (int, error)

	SaveFeedback(ctx context.Context, feedback *models.FeedbackRecord) error
	ListPendingFeedback(ctx context.Context, limit int) ([]*models.FeedbackRecord, error)
	MarkFeedbackProcessed(ctx context.Context, ids []string) error

	SaveDashboardSnapshot(ctx context.Context, snapshot *models.DashboardSnapshot) error
	GetDashboardSnapshot(ctx context.Context, scope, user string) (*models.DashboardSnapshot, error)
}
