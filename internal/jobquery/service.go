// Package jobquery implements interfaces.JobQueryService and
// interfaces.JobMutationService over a JobStore.
package jobquery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/leadforge/internal/common/errs"
	"github.com/ternarybob/leadforge/internal/interfaces"
	"github.com/ternarybob/leadforge/internal/models"
)

// Service implements interfaces.JobQueryService and interfaces.JobMutationService.
type Service struct {
	jobs         interfaces.JobStore
	orchestrator interfaces.Orchestrator
	events       interfaces.EventPublisher
	logger       arbor.ILogger
}

var (
	_ interfaces.JobQueryService    = (*Service)(nil)
	_ interfaces.JobMutationService = (*Service)(nil)
)

func NewService(jobs interfaces.JobStore, orchestrator interfaces.Orchestrator, events interfaces.EventPublisher, logger arbor.ILogger) *Service {
	return &Service{jobs: jobs, orchestrator: orchestrator, events: events, logger: logger}
}

// ownedJob loads jobID and checks it belongs to ownerID. A job owned by
// someone else is reported identically to a missing one (spec.md §6/S6):
// cross-tenant enumeration must not be distinguishable from a 404.
func (s *Service) ownedJob(ctx context.Context, ownerID, jobID string) (*models.Job, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != ownerID {
		return nil, errs.NotFound("job", jobID)
	}
	return job, nil
}

func (s *Service) GetJob(ctx context.Context, ownerID, jobID string) (*models.Job, error) {
	return s.ownedJob(ctx, ownerID, jobID)
}

// ListJobs scopes enumeration to opts.OwnerID. A caller that omits it gets
// an empty list rather than every tenant's jobs (spec.md §6).
func (s *Service) ListJobs(ctx context.Context, opts *interfaces.JobListOptions) ([]*models.Job, error) {
	if opts == nil || opts.OwnerID == "" {
		return []*models.Job{}, nil
	}
	return s.jobs.ListJobs(ctx, opts)
}

func (s *Service) GetAnalysis(ctx context.Context, ownerID, jobID string) (*models.TextAnalysis, error) {
	if _, err := s.ownedJob(ctx, ownerID, jobID); err != nil {
		return nil, err
	}
	return s.jobs.GetAnalysis(ctx, jobID)
}

func (s *Service) GetPrediction(ctx context.Context, ownerID, jobID string) (*models.Prediction, error) {
	if _, err := s.ownedJob(ctx, ownerID, jobID); err != nil {
		return nil, err
	}
	return s.jobs.GetPrediction(ctx, jobID)
}

// GetPage returns the chunk covering page for jobID.
func (s *Service) GetPage(ctx context.Context, ownerID, jobID string, page int) (*models.Chunk, error) {
	if _, err := s.ownedJob(ctx, ownerID, jobID); err != nil {
		return nil, err
	}
	return s.jobs.GetChunkByPage(ctx, jobID, page)
}

// Cancel marks a non-terminal job cancelled. Work items already queued or
// leased for it are not revoked and keep running, and the orchestrator's
// later status writes do not check the current status, so they can
// overwrite Cancelled.
func (s *Service) Cancel(ctx context.Context, ownerID, jobID string) error {
	job, err := s.ownedJob(ctx, ownerID, jobID)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return errs.BusinessState("cancel", string(job.Status), "non-terminal")
	}
	if err := s.jobs.UpdateJobStatus(ctx, jobID, models.JobStatusCancelled, "cancelled by operator"); err != nil {
		return fmt.Errorf("failed to cancel job %s: %w", jobID, err)
	}
	if s.events != nil {
		s.events.Publish(ctx, interfaces.Event{
			Type:    interfaces.EventJobStatusChanged,
			Payload: interfaces.JobStatusChangedPayload{JobID: jobID, Status: string(models.JobStatusCancelled)},
		})
	}
	return nil
}

// UpdateTitle sets a job's display title.
func (s *Service) UpdateTitle(ctx context.Context, ownerID, jobID, title string) error {
	job, err := s.ownedJob(ctx, ownerID, jobID)
	if err != nil {
		return err
	}
	job.Title = title
	return s.jobs.UpdateJob(ctx, job)
}

// Delete removes a job and its dependent chunks/analysis/prediction rows.
// Allowed regardless of status, including while a job is still in flight;
// in-flight work items simply find the job gone on their next store read.
func (s *Service) Delete(ctx context.Context, ownerID, jobID string) error {
	if _, err := s.ownedJob(ctx, ownerID, jobID); err != nil {
		return err
	}
	return s.jobs.DeleteJob(ctx, jobID)
}

// Retry resets a failed job back to pending and restarts it from
// pdf.validate. Only valid from JobStatusFailed (spec.md §4.9/§7/S5).
func (s *Service) Retry(ctx context.Context, ownerID, jobID string) error {
	job, err := s.ownedJob(ctx, ownerID, jobID)
	if err != nil {
		return err
	}
	if job.Status != models.JobStatusFailed {
		return errs.BusinessState("retry", string(job.Status), string(models.JobStatusFailed))
	}
	job.ResetForRetry()
	if err := s.jobs.UpdateJob(ctx, job); err != nil {
		return fmt.Errorf("failed to reset job %s for retry: %w", jobID, err)
	}
	if err := s.orchestrator.Resubmit(ctx, job); err != nil {
		return fmt.Errorf("failed to resubmit job %s: %w", jobID, err)
	}
	if s.events != nil {
		s.events.Publish(ctx, interfaces.Event{
			Type:    interfaces.EventJobStatusChanged,
			Payload: interfaces.JobStatusChangedPayload{JobID: jobID, Status: string(job.Status)},
		})
	}
	return nil
}

// SubmitFeedback records an operator correction against a job's prediction
// for the learning loop's next feedback batch to fold in.
func (s *Service) SubmitFeedback(ctx context.Context, feedback *models.FeedbackRecord) error {
	if err := feedback.Validate(); err != nil {
		return errs.Validationf("feedback", err, "invalid feedback record")
	}
	if _, err := s.jobs.GetJob(ctx, feedback.JobID); err != nil {
		return fmt.Errorf("failed to load job %s for feedback: %w", feedback.JobID, err)
	}
	if feedback.ID == "" {
		feedback.ID = uuid.New().String()
	}
	if feedback.CreatedAt.IsZero() {
		feedback.CreatedAt = time.Now()
	}
	return s.jobs.SaveFeedback(ctx, feedback)
}
