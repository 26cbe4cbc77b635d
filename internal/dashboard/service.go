// Package dashboard implements interfaces.DashboardService: a read-through
// cache over per-scope aggregate job statistics, recomputed on a miss, after
// expiry, or after an explicit Invalidate call. No component in this module
// calls Invalidate automatically.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/leadforge/internal/interfaces"
	"github.com/ternarybob/leadforge/internal/models"
)

// Service implements interfaces.DashboardService.
type Service struct {
	jobs   interfaces.JobStore
	ttl    time.Duration
	logger arbor.ILogger
}

var _ interfaces.DashboardService = (*Service)(nil)

func NewService(jobs interfaces.JobStore, ttl time.Duration, logger arbor.ILogger) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{jobs: jobs, ttl: ttl, logger: logger}
}

// GetSnapshot serves a cached snapshot if it is still fresh, otherwise
// recomputes and caches it before returning.
func (s *Service) GetSnapshot(ctx context.Context, scope, user string) (*models.DashboardSnapshot, error) {
	if cached, err := s.jobs.GetDashboardSnapshot(ctx, scope, user); err == nil && cached.Fresh(time.Now()) {
		return cached, nil
	}
	return s.recompute(ctx, scope, user)
}

// Invalidate forces the next GetSnapshot call for (scope, user) to recompute
// by writing an already-expired snapshot in its place.
func (s *Service) Invalidate(ctx context.Context, scope, user string) error {
	snapshot := &models.DashboardSnapshot{
		ID:         models.NewDashboardSnapshotID(scope, user),
		Scope:      scope,
		User:       user,
		ComputedAt: time.Now(),
		ExpiresAt:  time.Now().Add(-time.Second),
	}
	return s.jobs.SaveDashboardSnapshot(ctx, snapshot)
}

func (s *Service) recompute(ctx context.Context, scope, user string) (*models.DashboardSnapshot, error) {
	start := time.Now()

	opts := &interfaces.JobListOptions{Limit: 1000}
	jobs, err := s.jobs.ListJobs(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs for dashboard snapshot: %w", err)
	}

	statusCounts := make(map[models.JobStatus]int)
	monthCounts := make(map[string]float64)
	validLeads := 0

	for _, job := range jobs {
		statusCounts[job.Status]++
		month := job.CreatedAt.Format("2006-01")
		monthCounts[month]++

		if job.Status != models.JobStatusCompleted {
			continue
		}
		prediction, err := s.jobs.GetPrediction(ctx, job.ID)
		if err != nil {
			continue
		}
		if prediction.Classification == models.ClassHigh || prediction.Classification == models.ClassMedium {
			validLeads++
		}
	}

	statusDist := make([]models.DistributionCount, 0, len(statusCounts))
	for status, count := range statusCounts {
		statusDist = append(statusDist, models.DistributionCount{Label: string(status), Count: count})
	}

	monthly := make([]models.MonthlyPoint, 0, len(monthCounts))
	for month, count := range monthCounts {
		monthly = append(monthly, models.MonthlyPoint{Month: month, Value: count})
	}

	now := time.Now()
	snapshot := &models.DashboardSnapshot{
		ID:                  models.NewDashboardSnapshotID(scope, user),
		Scope:               scope,
		User:                user,
		TotalAnalyses:        len(jobs),
		ValidLeads:           validLeads,
		StatusDistribution:   statusDist,
		MonthlySeries:        monthly,
		RecordCount:          len(jobs),
		CalculationTime:      time.Since(start),
		ComputedAt:           now,
		ExpiresAt:            now.Add(s.ttl),
	}

	if err := s.jobs.SaveDashboardSnapshot(ctx, snapshot); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache dashboard snapshot")
	}
	return snapshot, nil
}
