package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/leadforge/internal/common/errs"
	"github.com/ternarybob/leadforge/internal/interfaces"
	"github.com/ternarybob/leadforge/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// withRetry runs fn (a badgerhold read) under an exponential backoff policy
// per spec.md §4.2: base 100ms, cap 2s, max 3 attempts total. badgerhold's
// own ErrNotFound is never retried — it is a definitive answer, not a
// transient failure — and is returned unwrapped so callers can keep
// comparing against it. Any other error means the attempts were exhausted
// against what looked like a transient storage failure, so it escalates as
// an errs.TransientError.
func withRetry(ctx context.Context, op string, fn func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxInterval = 2 * time.Second
	bo := backoff.WithContext(backoff.WithMaxRetries(policy, 2), ctx)

	err := backoff.Retry(func() error {
		err := fn()
		if err == badgerhold.ErrNotFound {
			return backoff.Permanent(err)
		}
		return err
	}, bo)

	if err == nil {
		return nil
	}
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return errs.Transient(op, err)
}

// JobStore implements interfaces.JobStore for Badger/badgerhold.
type JobStore struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewJobStore creates a new JobStore instance.
func NewJobStore(db *BadgerDB, logger arbor.ILogger) interfaces.JobStore {
	return &JobStore{db: db, logger: logger}
}

func (s *JobStore) SaveJob(ctx context.Context, job *models.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func (s *JobStore) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	err := withRetry(ctx, "get job", func() error { return s.db.Store().Get(jobID, &job) })
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, errs.NotFound("job", jobID)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (s *JobStore) UpdateJob(ctx context.Context, job *models.Job) error {
	return s.SaveJob(ctx, job)
}

func (s *JobStore) ListJobs(ctx context.Context, opts *interfaces.JobListOptions) ([]*models.Job, error) {
	query := badgerhold.Where("ID").Ne("")

	if opts != nil {
		if opts.OwnerID != "" {
			query = query.And("OwnerID").Eq(opts.OwnerID)
		}
		if opts.Status != "" {
			query = query.And("Status").Eq(opts.Status)
		}
		if opts.ParentID != "" {
			query = query.And("ParentID").Eq(&opts.ParentID)
		}
		query = query.SortBy("CreatedAt").Reverse()
		if opts.Limit > 0 {
			query = query.Limit(opts.Limit)
		}
		if opts.Offset > 0 {
			query = query.Skip(opts.Offset)
		}
	}

	var jobs []*models.Job
	err := withRetry(ctx, "list jobs", func() error { return s.db.Store().Find(&jobs, query) })
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// DeleteJob removes a job and every record indexed under it. The four
// deletes are sequential, not wrapped in one badgerhold transaction: a
// crash between them can leave an orphaned chunk/analysis/prediction
// record behind. Acceptable here because ListChunksByJob etc. are always
// reached through a job lookup first, so an orphan is simply unreachable
// rather than incorrectly visible.
func (s *JobStore) DeleteJob(ctx context.Context, jobID string) error {
	if err := s.db.Store().Delete(jobID, &models.Job{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	if err := s.db.Store().DeleteMatching(&models.Chunk{}, badgerhold.Where("JobID").Eq(jobID)); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to cascade-delete chunks: %w", err)
	}
	if err := s.db.Store().Delete(jobID, &models.TextAnalysis{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}
	if err := s.db.Store().Delete(jobID, &models.Prediction{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete prediction: %w", err)
	}
	return nil
}

func (s *JobStore) UpdateJobStatus(ctx context.Context, jobID string, status models.JobStatus, errMsg string) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	job.Status = status
	job.Error = errMsg
	now := time.Now()
	switch status {
	case models.JobStatusProcessing:
		if job.StartedAt == nil {
			job.StartedAt = &now
		}
	case models.JobStatusCompleted, models.JobStatusFailed, models.JobStatusCancelled:
		job.CompletedAt = &now
	}
	return s.SaveJob(ctx, job)
}

// UpdateJobProgress applies completed/failed chunk deltas atomically from
// the orchestrator's point of view: it re-reads, mutates, and writes back
// under the badgerhold store's own per-key locking rather than trusting a
// caller-supplied absolute count, which could overwrite a concurrent
// worker's update.
func (s *JobStore) UpdateJobProgress(ctx context.Context, jobID string, completedDelta, failedDelta int) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	job.CompletedChunks += completedDelta
	job.FailedChunks += failedDelta
	job.Progress = job.ProgressFraction()
	return s.SaveJob(ctx, job)
}

func (s *JobStore) UpdateJobHeartbeat(ctx context.Context, jobID string) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	job.LastHeartbeat = time.Now()
	return s.SaveJob(ctx, job)
}

func (s *JobStore) GetStaleJobs(ctx context.Context, heartbeatThreshold time.Duration) ([]*models.Job, error) {
	cutoff := time.Now().Add(-heartbeatThreshold)
	var jobs []*models.Job
	query := badgerhold.Where("Status").Eq(models.JobStatusProcessing).And("LastHeartbeat").Lt(cutoff)
	err := withRetry(ctx, "find stale jobs", func() error { return s.db.Store().Find(&jobs, query) })
	if err != nil {
		return nil, fmt.Errorf("failed to find stale jobs: %w", err)
	}
	return jobs, nil
}

func (s *JobStore) SaveChunk(ctx context.Context, chunk *models.Chunk) error {
	if err := s.db.Store().Upsert(chunk.ID, chunk); err != nil {
		return fmt.Errorf("failed to save chunk: %w", err)
	}
	return nil
}

func (s *JobStore) GetChunk(ctx context.Context, chunkID string) (*models.Chunk, error) {
	var chunk models.Chunk
	err := withRetry(ctx, "get chunk", func() error { return s.db.Store().Get(chunkID, &chunk) })
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, errs.NotFound("chunk", chunkID)
		}
		return nil, fmt.Errorf("failed to get chunk: %w", err)
	}
	return &chunk, nil
}

func (s *JobStore) ListChunksByJob(ctx context.Context, jobID string) ([]*models.Chunk, error) {
	var chunks []*models.Chunk
	query := badgerhold.Where("JobID").Eq(jobID).SortBy("Sequence")
	err := withRetry(ctx, "list chunks by job", func() error { return s.db.Store().Find(&chunks, query) })
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	return chunks, nil
}

// GetChunkByPage finds the chunk covering page for jobID. Chunk windows can
// overlap by ChunkOverlapPages, so more than one chunk may cover the same
// page; when page falls in an overlap region, the later (higher-sequence)
// chunk wins, since the overlap pages are that chunk's leading pages and it
// is the one the orchestrator's own aggregation treats as their canonical
// source (see orchestrator.aggregateChunkText/splitPages, which keys by
// page number and lets the later chunk's text overwrite the earlier one's).
func (s *JobStore) GetChunkByPage(ctx context.Context, jobID string, page int) (*models.Chunk, error) {
	chunks, err := s.ListChunksByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	var best *models.Chunk
	for _, c := range chunks {
		if page < c.StartPage || page > c.EndPage {
			continue
		}
		if best == nil || c.Sequence > best.Sequence {
			best = c
		}
	}
	if best == nil {
		return nil, errs.NotFound("chunk covering page", fmt.Sprintf("job=%s page=%d", jobID, page))
	}
	return best, nil
}

func (s *JobStore) UpdateChunkStatus(ctx context.Context, chunkID string, status models.ChunkStatus, errMsg string) error {
	chunk, err := s.GetChunk(ctx, chunkID)
	if err != nil {
		return err
	}
	chunk.Status = status
	chunk.Error = errMsg
	now := time.Now()
	switch status {
	case models.ChunkStatusExtracted:
		chunk.ExtractedAt = &now
	case models.ChunkStatusAnalyzed:
		chunk.AnalyzedAt = &now
	}
	return s.SaveChunk(ctx, chunk)
}

func (s *JobStore) SaveAnalysis(ctx context.Context, analysis *models.TextAnalysis) error {
	if err := s.db.Store().Upsert(analysis.JobID, analysis); err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	return nil
}

func (s *JobStore) GetAnalysis(ctx context.Context, jobID string) (*models.TextAnalysis, error) {
	var analysis models.TextAnalysis
	err := withRetry(ctx, "get analysis", func() error { return s.db.Store().Get(jobID, &analysis) })
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, errs.NotFound("analysis", jobID)
		}
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return &analysis, nil
}

func (s *JobStore) SavePrediction(ctx context.Context, prediction *models.Prediction) error {
	if err := s.db.Store().Upsert(prediction.JobID, prediction); err != nil {
		return fmt.Errorf("failed to save prediction: %w", err)
	}
	return nil
}

func (s *JobStore) GetPrediction(ctx context.Context, jobID string) (*models.Prediction, error) {
	var prediction models.Prediction
	err := withRetry(ctx, "get prediction", func() error { return s.db.Store().Get(jobID, &prediction) })
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, errs.NotFound("prediction", jobID)
		}
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}
	return &prediction, nil
}

func (s *JobStore) CountJobs(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.Job{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return count, nil
}

func (s *JobStore) CountJobsByStatus(ctx context.Context, status models.JobStatus) (int, error) {
	count, err := s.db.Store().Count(&models.Job{}, badgerhold.Where("Status").Eq(status))
	if err != nil {
		return 0, fmt.Errorf("failed to count jobs by status: %w", err)
	}
	return count, nil
}

func (s *JobStore) SaveFeedback(ctx context.Context, feedback *models.FeedbackRecord) error {
	if err := s.db.Store().Upsert(feedback.ID, feedback); err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}
	return nil
}

func (s *JobStore) ListPendingFeedback(ctx context.Context, limit int) ([]*models.FeedbackRecord, error) {
	query := badgerhold.Where("Processed").Eq(false).SortBy("CreatedAt")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var records []*models.FeedbackRecord
	err := withRetry(ctx, "list pending feedback", func() error { return s.db.Store().Find(&records, query) })
	if err != nil {
		return nil, fmt.Errorf("failed to list pending feedback: %w", err)
	}
	return records, nil
}

func (s *JobStore) MarkFeedbackProcessed(ctx context.Context, ids []string) error {
	for _, id := range ids {
		var record models.FeedbackRecord
		if err := s.db.Store().Get(id, &record); err != nil {
			if err == badgerhold.ErrNotFound {
				continue
			}
			return fmt.Errorf("failed to load feedback %s: %w", id, err)
		}
		record.Processed = true
		if err := s.db.Store().Upsert(id, &record); err != nil {
			return fmt.Errorf("failed to mark feedback %s processed: %w", id, err)
		}
	}
	return nil
}

func (s *JobStore) SaveDashboardSnapshot(ctx context.Context, snapshot *models.DashboardSnapshot) error {
	snapshot.ID = models.NewDashboardSnapshotID(snapshot.Scope, snapshot.User)
	if err := s.db.Store().Upsert(snapshot.ID, snapshot); err != nil {
		return fmt.Errorf("failed to save dashboard snapshot: %w", err)
	}
	return nil
}

func (s *JobStore) GetDashboardSnapshot(ctx context.Context, scope, user string) (*models.DashboardSnapshot, error) {
	var snapshot models.DashboardSnapshot
	id := models.NewDashboardSnapshotID(scope, user)
	if err := s.db.Store().Get(id, &snapshot); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, errs.NotFound("dashboard snapshot", id)
		}
		return nil, fmt.Errorf("failed to get dashboard snapshot: %w", err)
	}
	return &snapshot, nil
}
