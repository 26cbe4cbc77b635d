// Package app wires the concrete implementations behind every domain
// interface into one running pipeline: storage, queue, event bus, PDF
// decomposition, content analysis, scoring, orchestration, and the
// operator-facing submission/query/dashboard/learning services.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/leadforge/internal/analyzer"
	"github.com/ternarybob/leadforge/internal/common"
	"github.com/ternarybob/leadforge/internal/dashboard"
	"github.com/ternarybob/leadforge/internal/events"
	"github.com/ternarybob/leadforge/internal/features"
	"github.com/ternarybob/leadforge/internal/interfaces"
	"github.com/ternarybob/leadforge/internal/jobquery"
	"github.com/ternarybob/leadforge/internal/learning"
	"github.com/ternarybob/leadforge/internal/models"
	"github.com/ternarybob/leadforge/internal/orchestrator"
	"github.com/ternarybob/leadforge/internal/pdf"
	"github.com/ternarybob/leadforge/internal/queue"
	"github.com/ternarybob/leadforge/internal/scheduler"
	"github.com/ternarybob/leadforge/internal/scoring"
	"github.com/ternarybob/leadforge/internal/storage/badger"
	"github.com/ternarybob/leadforge/internal/storage/local"
	"github.com/ternarybob/leadforge/internal/storage/s3"
	"github.com/ternarybob/leadforge/internal/submission"
)

// App holds every long-lived component the pipeline needs, assembled once
// at startup and torn down together on Close.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	db        *badger.BadgerDB
	JobStore  interfaces.JobStore
	KV        interfaces.KeyValueStorage
	Objects   interfaces.ObjectStore
	TaskQueue interfaces.TaskQueue
	Events    interfaces.EventPublisher

	Decomposer interfaces.PDFDecomposer
	Analyzer   interfaces.ContentAnalyzer
	Features   interfaces.FeatureExtractor
	Registry   interfaces.ModelRegistry
	Scoring    interfaces.ScoringEngine

	Orchestrator *orchestrator.Orchestrator
	Pool         *orchestrator.Pool

	Submission interfaces.SubmissionService
	JobQuery   interfaces.JobQueryService
	JobMutate  interfaces.JobMutationService
	Dashboard  interfaces.DashboardService
	Learning   interfaces.LearningLoop
	Reaper     *scheduler.Reaper
}

// New assembles the application from configuration. It does not start any
// background goroutines; call Start for that.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	if err := a.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err := a.initObjectStore(); err != nil {
		return nil, fmt.Errorf("failed to initialize object store: %w", err)
	}

	a.Events = events.New(logger)
	a.TaskQueue = queue.New(a.db.Store(), cfg.Queue.MaxEnqueuePerSec, cfg.Queue.EnqueueBurst, logger)

	a.Decomposer = pdf.NewDecomposer(a.Objects, logger, cfg.Pipeline.MaxUploadSizeBytes)
	a.Analyzer = analyzer.New(logger)
	a.Features = features.New(logger)
	a.Registry = scoring.NewRegistry(a.Objects, logger)
	a.Scoring = scoring.NewEngine(a.Registry, cfg.Learning.RandomForestWeight, cfg.Learning.GradientBoostingWeight, logger)

	if err := a.seedModels(); err != nil {
		return nil, fmt.Errorf("failed to seed scoring models: %w", err)
	}

	a.Orchestrator = orchestrator.New(
		a.JobStore,
		a.TaskQueue,
		a.Decomposer,
		a.Analyzer,
		a.Features,
		a.Scoring,
		a.Events,
		orchestrator.Config{
			ChunkSizePages: cfg.Pipeline.ChunkSizePages,
			OverlapPages:   cfg.Pipeline.OverlapPages,
		},
		logger,
	)

	numWorkers := cfg.Queue.Concurrency
	if numWorkers <= 0 {
		numWorkers = 4
	}
	queues := []models.QueueName{models.QueuePriority, models.QueuePDF, models.QueueAnalysis, models.QueueML}
	a.Pool = orchestrator.NewPool(a.Orchestrator, a.TaskQueue, queues, numWorkers, logger)

	a.Submission = submission.NewService(a.Objects, a.Orchestrator, cfg.Pipeline.MaxUploadSizeBytes, logger)

	jq := jobquery.NewService(a.JobStore, a.Orchestrator, a.Events, logger)
	a.JobQuery = jq
	a.JobMutate = jq

	a.Dashboard = dashboard.NewService(a.JobStore, 5*time.Minute, logger)

	a.Learning = learning.NewLoop(a.JobStore, a.Registry, a.Features, a.Scoring, cfg.Learning, cfg.Scheduler, logger)

	staleThreshold, err := time.ParseDuration(cfg.Pipeline.StaleJobThreshold)
	if err != nil {
		staleThreshold = 5 * time.Minute
	}
	a.Reaper = scheduler.NewReaper(a.JobStore, a.TaskQueue, staleThreshold, cfg.Scheduler.StaleJobReaperSchedule, logger)

	logger.Info().Msg("application initialized")
	return a, nil
}

func (a *App) initStorage() error {
	db, err := badger.NewBadgerDB(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return err
	}
	a.db = db
	a.JobStore = badger.NewJobStore(db, a.Logger)
	a.KV = badger.NewKVStorage(db, a.Logger)
	a.Logger.Info().Str("path", a.Config.Storage.Badger.Path).Msg("badger storage opened")
	return nil
}

func (a *App) initObjectStore() error {
	switch a.Config.ObjectStore.Backend {
	case "s3":
		store, err := s3.NewStore(context.Background(), s3.Config{
			Bucket:         a.Config.ObjectStore.S3.Bucket,
			Region:         a.Config.ObjectStore.S3.Region,
			Endpoint:       a.Config.ObjectStore.S3.Endpoint,
			Prefix:         a.Config.ObjectStore.S3.Prefix,
			ForcePathStyle: a.Config.ObjectStore.S3.ForcePathStyle,
		}, a.Logger)
		if err != nil {
			return err
		}
		a.Objects = store
		a.Logger.Info().Str("bucket", a.Config.ObjectStore.S3.Bucket).Msg("s3 object store configured")
	case "local", "":
		store, err := local.NewStore(a.Config.ObjectStore.Local.Dir, a.Logger)
		if err != nil {
			return err
		}
		a.Objects = store
		a.Logger.Info().Str("dir", a.Config.ObjectStore.Local.Dir).Msg("local object store configured")
	default:
		return fmt.Errorf("unsupported object store backend %q", a.Config.ObjectStore.Backend)
	}
	return nil
}

// seedModels registers the hand-tuned seed weights for both ensemble
// members if the registry doesn't already carry a version, so a fresh
// deployment can score predictions before the first retraining batch runs.
func (a *App) seedModels() error {
	ctx := context.Background()
	for _, name := range []string{"random_forest", "gradient_boosting"} {
		if _, _, err := a.Registry.GetLatest(ctx, name); err == nil {
			continue
		}
		weights, err := scoring.SeedWeights(name)
		if err != nil {
			return err
		}
		artifact := &models.ModelArtifact{
			Name:            name,
			Version:         "seed",
			TrainingSamples: 0,
			TrainedAt:       time.Now(),
		}
		if err := a.Registry.Register(ctx, artifact, weights); err != nil {
			return fmt.Errorf("failed to register seed model %q: %w", name, err)
		}
		a.Logger.Info().Str("model", name).Msg("registered seed model weights")
	}
	return nil
}

// Start begins the orchestrator worker pool, the learning loop's cron
// schedules, and the stale-job reaper. It does not block.
func (a *App) Start() error {
	a.Pool.Start()
	if err := a.Learning.Start(); err != nil {
		return fmt.Errorf("failed to start learning loop: %w", err)
	}
	if err := a.Reaper.Start(); err != nil {
		return fmt.Errorf("failed to start stale job reaper: %w", err)
	}
	a.Logger.Info().Msg("pipeline started")
	return nil
}

// Close stops all background work and releases storage handles, in the
// reverse order Start brought them up.
func (a *App) Close() error {
	a.Reaper.Stop()
	a.Learning.Stop()
	a.Pool.Stop()

	if err := a.Events.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("failed to close event publisher")
	}
	if err := a.TaskQueue.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("failed to close task queue")
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			return fmt.Errorf("failed to close badger storage: %w", err)
		}
	}
	a.Logger.Info().Msg("application closed")
	return nil
}
