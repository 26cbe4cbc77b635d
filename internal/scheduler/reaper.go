// Package scheduler registers the operational cron jobs that aren't part
// of the learning loop: the stale-job reaper that recovers jobs whose
// worker crashed mid-processing.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/leadforge/internal/interfaces"
	"github.com/ternarybob/leadforge/internal/models"
)

// Reaper requeues jobs that stopped sending heartbeats, per spec.md's
// heartbeat-and-recovery invariant: a job stuck in Processing past the
// staleness threshold is assumed to have lost its worker and is reset to
// Pending for re-dispatch.
type Reaper struct {
	jobs      interfaces.JobStore
	taskQueue interfaces.TaskQueue
	threshold time.Duration
	schedule  string
	logger    arbor.ILogger
	cron      *cron.Cron
}

func NewReaper(jobs interfaces.JobStore, taskQueue interfaces.TaskQueue, threshold time.Duration, schedule string, logger arbor.ILogger) *Reaper {
	return &Reaper{jobs: jobs, taskQueue: taskQueue, threshold: threshold, schedule: schedule, logger: logger, cron: cron.New()}
}

// Start registers the reaper's cron schedule and begins running it. Each
// scheduled run also requeues any leases in the task queue whose visibility
// timeout has expired, independent of job-level staleness.
func (r *Reaper) Start() error {
	if _, err := r.cron.AddFunc(r.schedule, r.runSafe); err != nil {
		return fmt.Errorf("failed to register stale job reaper schedule %q: %w", r.schedule, err)
	}
	r.cron.Start()
	r.logger.Info().Str("schedule", r.schedule).Dur("threshold", r.threshold).Msg("stale job reaper registered")
	return nil
}

// Stop halts the cron scheduler and waits for any in-flight run to finish.
func (r *Reaper) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

func (r *Reaper) runSafe() {
	if err := r.Run(context.Background()); err != nil {
		r.logger.Error().Err(err).Msg("stale job reaper run failed")
	}
}

// Run recovers stale jobs and requeues expired task leases.
func (r *Reaper) Run(ctx context.Context) error {
	stale, err := r.jobs.GetStaleJobs(ctx, r.threshold)
	if err != nil {
		return fmt.Errorf("failed to find stale jobs: %w", err)
	}
	for _, job := range stale {
		if err := r.jobs.UpdateJobStatus(ctx, job.ID, models.JobStatusPending, "recovered after stale heartbeat"); err != nil {
			r.logger.Warn().Err(err).Str("job_id", job.ID).Msg("failed to recover stale job")
			continue
		}
		r.logger.Warn().Str("job_id", job.ID).Msg("recovered stale job, reset to pending")
	}

	requeued, err := r.taskQueue.RequeueStale(ctx)
	if err != nil {
		return fmt.Errorf("failed to requeue stale task leases: %w", err)
	}

	r.logger.Info().Int("stale_jobs", len(stale)).Int("requeued_leases", requeued).Msg("stale job reaper complete")
	return nil
}
