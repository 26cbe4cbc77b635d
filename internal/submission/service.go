// Package submission implements interfaces.SubmissionService: accepting a
// raw PDF upload, staging it in object storage, and handing the resulting
// Job to the orchestrator.
package submission

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/leadforge/internal/common/errs"
	"github.com/ternarybob/leadforge/internal/interfaces"
	"github.com/ternarybob/leadforge/internal/models"
)

// Service implements interfaces.SubmissionService.
type Service struct {
	store        interfaces.ObjectStore
	orchestrator interfaces.Orchestrator
	maxSizeBytes int64
	logger       arbor.ILogger
}

var _ interfaces.SubmissionService = (*Service)(nil)

func NewService(store interfaces.ObjectStore, orchestrator interfaces.Orchestrator, maxSizeBytes int64, logger arbor.ILogger) *Service {
	return &Service{store: store, orchestrator: orchestrator, maxSizeBytes: maxSizeBytes, logger: logger}
}

// Submit streams r into object storage under a new job-scoped key, creates
// the Job record owned by ownerID, and enqueues it with the orchestrator.
// The Job returned reflects only its initial (pending) state; callers poll
// JobQueryService for progress.
func (s *Service) Submit(ctx context.Context, ownerID, filename string, size int64, r io.Reader, config models.JobConfig) (*models.Job, error) {
	if ownerID == "" {
		return nil, errs.Validation("owner_id", "owner id is required")
	}
	if s.maxSizeBytes > 0 && size > s.maxSizeBytes {
		return nil, fmt.Errorf("document size %d bytes exceeds the maximum of %d bytes", size, s.maxSizeBytes)
	}

	jobID := uuid.New().String()
	objectKey := fmt.Sprintf("documents/%s/%s/%s", ownerID, jobID, filename)

	putCtx, cancel := timeoutContext(ctx, size)
	defer cancel()
	if err := s.store.Put(putCtx, objectKey, r, size); err != nil {
		return nil, fmt.Errorf("failed to stage upload %s: %w", filename, err)
	}

	job := models.NewJob(ownerID, filename, size, objectKey, config)
	job.ID = jobID

	if err := s.orchestrator.Submit(ctx, job); err != nil {
		s.store.Delete(ctx, objectKey)
		return nil, fmt.Errorf("failed to submit job for %s: %w", filename, err)
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("filename", filename).
		Int64("size_bytes", size).
		Msg("document submitted")
	return job, nil
}

// timeoutContext bounds how long a single Put may take relative to upload
// size, so a stalled client connection doesn't hold a worker forever.
func timeoutContext(ctx context.Context, size int64) (context.Context, context.CancelFunc) {
	perMB := 2 * time.Second
	budget := time.Duration(size/(1<<20)+1) * perMB
	if budget < 30*time.Second {
		budget = 30 * time.Second
	}
	return context.WithTimeout(ctx, budget)
}
