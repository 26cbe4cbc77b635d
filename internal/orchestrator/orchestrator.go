// Package orchestrator drives a Job from submission through completion. It
// dispatches WorkItems onto the task queue and reacts to their outcomes,
// the way the reference pipeline's job orchestrator walked job state
// through its queue-backed worker stages.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/leadforge/internal/interfaces"
	"github.com/ternarybob/leadforge/internal/models"
)

// Config bounds the orchestrator's default chunking parameters, used when a
// Job's own Config doesn't already carry them.
type Config struct {
	ChunkSizePages int
	OverlapPages   int
}

// Orchestrator implements interfaces.Orchestrator, wiring the decomposer,
// content analyzer, feature extractor, and scoring engine behind the task
// queue's four work item kinds.
type Orchestrator struct {
	jobs       interfaces.JobStore
	queue      interfaces.TaskQueue
	decomposer interfaces.PDFDecomposer
	analyzer   interfaces.ContentAnalyzer
	features   interfaces.FeatureExtractor
	scoring    interfaces.ScoringEngine
	events     interfaces.EventPublisher
	logger     arbor.ILogger
	cfg        Config
}

var _ interfaces.Orchestrator = (*Orchestrator)(nil)

func New(
	jobs interfaces.JobStore,
	queue interfaces.TaskQueue,
	decomposer interfaces.PDFDecomposer,
	analyzer interfaces.ContentAnalyzer,
	features interfaces.FeatureExtractor,
	scoring interfaces.ScoringEngine,
	events interfaces.EventPublisher,
	cfg Config,
	logger arbor.ILogger,
) *Orchestrator {
	if cfg.ChunkSizePages <= 0 {
		cfg.ChunkSizePages = 20
	}
	if cfg.OverlapPages < 0 {
		cfg.OverlapPages = 2
	}
	return &Orchestrator{
		jobs: jobs, queue: queue, decomposer: decomposer, analyzer: analyzer,
		features: features, scoring: scoring, events: events, cfg: cfg, logger: logger,
	}
}

type validatePayload struct {
	ObjectKey string `json:"object_key"`
}

type chunkPayload struct {
	ChunkID string `json:"chunk_id"`
}

type aggregatePayload struct {
	JobID string `json:"job_id"`
}

// Submit persists a newly-created Job and enqueues its validation WorkItem.
func (o *Orchestrator) Submit(ctx context.Context, job *models.Job) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("invalid job: %w", err)
	}
	if err := o.jobs.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to save job %s: %w", job.ID, err)
	}
	return o.enqueueValidate(ctx, job)
}

// Resubmit re-enqueues the validation WorkItem for a job that already
// exists (and has already been persisted by the caller), restarting the
// pipeline from pdf.validate. Used by JobMutationService.Retry, which
// resets the job's state with Job.ResetForRetry before calling this.
func (o *Orchestrator) Resubmit(ctx context.Context, job *models.Job) error {
	return o.enqueueValidate(ctx, job)
}

func (o *Orchestrator) enqueueValidate(ctx context.Context, job *models.Job) error {
	payload, err := json.Marshal(validatePayload{ObjectKey: job.ObjectKey})
	if err != nil {
		return fmt.Errorf("failed to marshal validate payload: %w", err)
	}
	item := &models.WorkItem{
		ID:            uuid.New().String(),
		Queue:         models.QueuePriority,
		Kind:          models.TaskPDFValidate,
		JobID:         job.ID,
		Payload:       payload,
		Priority:      10,
		Retry:         models.RetryPolicy{MaxAttempts: 3, BackoffBase: 5 * time.Second},
		SoftTimeLimit: 2 * time.Minute,
		HardTimeLimit: 5 * time.Minute,
		CreatedAt:     time.Now(),
	}
	if err := o.queue.Enqueue(ctx, item); err != nil {
		return fmt.Errorf("failed to enqueue validation for job %s: %w", job.ID, err)
	}

	o.publish(ctx, interfaces.Event{
		Type:    interfaces.EventJobStatusChanged,
		Payload: interfaces.JobStatusChangedPayload{JobID: job.ID, Status: string(job.Status)},
	})
	return nil
}

// HandleWorkItem executes one leased WorkItem according to its Kind.
func (o *Orchestrator) HandleWorkItem(ctx context.Context, item *models.WorkItem) error {
	switch item.Kind {
	case models.TaskPDFValidate:
		return o.handleValidate(ctx, item)
	case models.TaskPDFChunk:
		return o.handleChunk(ctx, item)
	case models.TaskAnalysisChunk:
		return o.handleAnalysisChunk(ctx, item)
	case models.TaskAnalysisAggregate:
		return o.handleAggregate(ctx, item)
	default:
		return fmt.Errorf("unknown work item kind: %s", item.Kind)
	}
}

func (o *Orchestrator) handleValidate(ctx context.Context, item *models.WorkItem) error {
	var p validatePayload
	if err := json.Unmarshal(item.Payload, &p); err != nil {
		return fmt.Errorf("failed to decode validate payload: %w", err)
	}

	job, err := o.jobs.GetJob(ctx, item.JobID)
	if err != nil {
		return fmt.Errorf("failed to load job %s: %w", item.JobID, err)
	}

	meta, err := o.decomposer.Validate(ctx, p.ObjectKey)
	if err != nil {
		o.failJob(ctx, job, fmt.Sprintf("validation failed: %v", err))
		return err
	}

	chunkSize := job.Config.ChunkSizePages
	if chunkSize <= 0 {
		chunkSize = o.cfg.ChunkSizePages
	}
	overlap := job.Config.ChunkOverlapPages
	if overlap <= 0 {
		overlap = o.cfg.OverlapPages
	}

	chunks := o.decomposer.PlanChunks(meta.PageCount, chunkSize, overlap)
	now := time.Now()
	for i := range chunks {
		chunks[i].ID = uuid.New().String()
		chunks[i].JobID = job.ID
		chunks[i].Status = models.ChunkStatusPending
		chunks[i].CreatedAt = now
		if err := o.jobs.SaveChunk(ctx, &chunks[i]); err != nil {
			return fmt.Errorf("failed to save chunk %d for job %s: %w", chunks[i].Sequence, job.ID, err)
		}
	}

	job.Config.TotalPages = meta.PageCount
	job.Config.ChunkSizePages = chunkSize
	job.Config.ChunkOverlapPages = overlap
	job.TotalChunks = len(chunks)
	job.Status = models.JobStatusProcessing
	startedAt := now
	job.StartedAt = &startedAt
	if err := o.jobs.UpdateJob(ctx, job); err != nil {
		return fmt.Errorf("failed to update job %s after planning: %w", job.ID, err)
	}

	for i := range chunks {
		if err := o.enqueueChunkTask(ctx, job.ID, &chunks[i]); err != nil {
			return err
		}
	}

	o.publish(ctx, interfaces.Event{
		Type:    interfaces.EventJobStatusChanged,
		Payload: interfaces.JobStatusChangedPayload{JobID: job.ID, Status: string(job.Status), ParentID: parentOf(job)},
	})
	return nil
}

func (o *Orchestrator) enqueueChunkTask(ctx context.Context, jobID string, chunk *models.Chunk) error {
	payload, err := json.Marshal(chunkPayload{ChunkID: chunk.ID})
	if err != nil {
		return fmt.Errorf("failed to marshal chunk payload: %w", err)
	}
	item := &models.WorkItem{
		ID:            uuid.New().String(),
		Queue:         models.QueuePDF,
		Kind:          models.TaskPDFChunk,
		JobID:         jobID,
		Payload:       payload,
		Priority:      5,
		Retry:         models.RetryPolicy{MaxAttempts: 3, BackoffBase: 5 * time.Second},
		SoftTimeLimit: 1 * time.Minute,
		HardTimeLimit: 3 * time.Minute,
		CreatedAt:     time.Now(),
	}
	return o.queue.Enqueue(ctx, item)
}

func (o *Orchestrator) handleChunk(ctx context.Context, item *models.WorkItem) error {
	var p chunkPayload
	if err := json.Unmarshal(item.Payload, &p); err != nil {
		return fmt.Errorf("failed to decode chunk payload: %w", err)
	}

	chunk, err := o.jobs.GetChunk(ctx, p.ChunkID)
	if err != nil {
		return fmt.Errorf("failed to load chunk %s: %w", p.ChunkID, err)
	}
	job, err := o.jobs.GetJob(ctx, chunk.JobID)
	if err != nil {
		return fmt.Errorf("failed to load job %s: %w", chunk.JobID, err)
	}

	if extractErr := o.decomposer.ExtractChunk(ctx, job.ObjectKey, chunk); extractErr != nil {
		chunk.Status = models.ChunkStatusFailed
		chunk.Error = extractErr.Error()
		o.jobs.SaveChunk(ctx, chunk)
		o.jobs.UpdateJobProgress(ctx, job.ID, 0, 1)
		o.publish(ctx, interfaces.Event{Type: interfaces.EventChunkCompleted, Payload: interfaces.ChunkCompletedPayload{JobID: job.ID, ChunkID: chunk.ID, Status: string(chunk.Status)}})
		return extractErr
	}

	now := time.Now()
	chunk.Status = models.ChunkStatusExtracted
	chunk.ExtractedAt = &now
	if err := o.jobs.SaveChunk(ctx, chunk); err != nil {
		return fmt.Errorf("failed to save extracted chunk %s: %w", chunk.ID, err)
	}
	if err := o.jobs.UpdateJobProgress(ctx, job.ID, 1, 0); err != nil {
		o.logger.Warn().Err(err).Str("job_id", job.ID).Msg("failed to update job progress")
	}
	o.publish(ctx, interfaces.Event{Type: interfaces.EventChunkCompleted, Payload: interfaces.ChunkCompletedPayload{JobID: job.ID, ChunkID: chunk.ID, Status: string(chunk.Status)}})

	payload, err := json.Marshal(chunkPayload{ChunkID: chunk.ID})
	if err != nil {
		return fmt.Errorf("failed to marshal analysis payload: %w", err)
	}
	analysisItem := &models.WorkItem{
		ID:            uuid.New().String(),
		Queue:         models.QueueAnalysis,
		Kind:          models.TaskAnalysisChunk,
		JobID:         job.ID,
		Payload:       payload,
		Priority:      5,
		Retry:         models.RetryPolicy{MaxAttempts: 3, BackoffBase: 5 * time.Second},
		SoftTimeLimit: 30 * time.Second,
		HardTimeLimit: 2 * time.Minute,
		CreatedAt:     time.Now(),
	}
	return o.queue.Enqueue(ctx, analysisItem)
}

func (o *Orchestrator) handleAnalysisChunk(ctx context.Context, item *models.WorkItem) error {
	var p chunkPayload
	if err := json.Unmarshal(item.Payload, &p); err != nil {
		return fmt.Errorf("failed to decode analysis chunk payload: %w", err)
	}
	chunk, err := o.jobs.GetChunk(ctx, p.ChunkID)
	if err != nil {
		return fmt.Errorf("failed to load chunk %s: %w", p.ChunkID, err)
	}

	now := time.Now()
	chunk.Status = models.ChunkStatusAnalyzed
	chunk.AnalyzedAt = &now
	if err := o.jobs.SaveChunk(ctx, chunk); err != nil {
		return fmt.Errorf("failed to save analyzed chunk %s: %w", chunk.ID, err)
	}

	chunks, err := o.jobs.ListChunksByJob(ctx, chunk.JobID)
	if err != nil {
		return fmt.Errorf("failed to list chunks for job %s: %w", chunk.JobID, err)
	}
	if !allChunksSettled(chunks) {
		return nil
	}

	if err := o.jobs.UpdateJobStatus(ctx, chunk.JobID, models.JobStatusAnalyzing, ""); err != nil {
		o.logger.Warn().Err(err).Str("job_id", chunk.JobID).Msg("failed to mark job analyzing")
	}
	o.publish(ctx, interfaces.Event{
		Type:    interfaces.EventJobStatusChanged,
		Payload: interfaces.JobStatusChangedPayload{JobID: chunk.JobID, Status: string(models.JobStatusAnalyzing)},
	})

	payload, err := json.Marshal(aggregatePayload{JobID: chunk.JobID})
	if err != nil {
		return fmt.Errorf("failed to marshal aggregate payload: %w", err)
	}
	aggItem := &models.WorkItem{
		ID:            uuid.New().String(),
		Queue:         models.QueueAnalysis,
		Kind:          models.TaskAnalysisAggregate,
		JobID:         chunk.JobID,
		Payload:       payload,
		Priority:      8,
		Retry:         models.RetryPolicy{MaxAttempts: 3, BackoffBase: 5 * time.Second},
		SoftTimeLimit: 1 * time.Minute,
		HardTimeLimit: 3 * time.Minute,
		CreatedAt:     time.Now(),
	}
	return o.queue.Enqueue(ctx, aggItem)
}

func allChunksSettled(chunks []*models.Chunk) bool {
	if len(chunks) == 0 {
		return false
	}
	for _, c := range chunks {
		if c.Status != models.ChunkStatusAnalyzed && c.Status != models.ChunkStatusFailed {
			return false
		}
	}
	return true
}

func (o *Orchestrator) handleAggregate(ctx context.Context, item *models.WorkItem) error {
	var p aggregatePayload
	if err := json.Unmarshal(item.Payload, &p); err != nil {
		return fmt.Errorf("failed to decode aggregate payload: %w", err)
	}

	job, err := o.jobs.GetJob(ctx, p.JobID)
	if err != nil {
		return fmt.Errorf("failed to load job %s: %w", p.JobID, err)
	}

	chunks, err := o.jobs.ListChunksByJob(ctx, p.JobID)
	if err != nil {
		return fmt.Errorf("failed to list chunks for job %s: %w", p.JobID, err)
	}
	text, pageOffsets := aggregateChunkText(chunks)

	analysis, err := o.analyzer.Analyze(ctx, p.JobID, text, pageOffsets)
	if err != nil {
		o.failJob(ctx, job, fmt.Sprintf("analysis failed: %v", err))
		return err
	}
	if err := o.jobs.SaveAnalysis(ctx, analysis); err != nil {
		return fmt.Errorf("failed to save analysis for job %s: %w", p.JobID, err)
	}

	fv, err := o.features.Extract(ctx, analysis)
	if err != nil {
		o.failJob(ctx, job, fmt.Sprintf("feature extraction failed: %v", err))
		return err
	}
	fv.TextLength = float64(len(text))

	prediction, err := o.scoring.Predict(ctx, p.JobID, fv)
	if err != nil {
		o.failJob(ctx, job, fmt.Sprintf("scoring failed: %v", err))
		return err
	}
	if err := o.jobs.SavePrediction(ctx, prediction); err != nil {
		return fmt.Errorf("failed to save prediction for job %s: %w", p.JobID, err)
	}

	now := time.Now()
	job.Status = models.JobStatusCompleted
	job.CompletedAt = &now
	job.Progress = 1
	if err := o.jobs.UpdateJob(ctx, job); err != nil {
		return fmt.Errorf("failed to mark job %s completed: %w", p.JobID, err)
	}

	o.publish(ctx, interfaces.Event{
		Type:    interfaces.EventPredictionReady,
		Payload: interfaces.PredictionReadyPayload{JobID: p.JobID, Score: prediction.Score, Classification: string(prediction.Classification)},
	})
	return nil
}

// aggregateChunkText rebuilds the document's unique page coverage from its
// chunks. Text is keyed by page, and where windows overlap the chunk with
// the higher Sequence supplies that page's text, so shared pages appear
// once in the analyzer's input. It returns the byte offset each page's text
// starts at within the result.
func aggregateChunkText(chunks []*models.Chunk) (string, []int) {
	ordered := make([]*models.Chunk, len(chunks))
	copy(ordered, chunks)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Sequence < ordered[j].Sequence })

	pageText := make(map[int]string)
	maxPage := 0
	for _, c := range ordered {
		if c.Status == models.ChunkStatusFailed {
			continue
		}
		for page, text := range splitPages(c) {
			pageText[page] = text
			if page > maxPage {
				maxPage = page
			}
		}
	}

	var builder strings.Builder
	pageOffsets := make([]int, 0, maxPage)
	for page := 1; page <= maxPage; page++ {
		text, ok := pageText[page]
		if !ok {
			pageOffsets = append(pageOffsets, builder.Len())
			continue
		}
		pageOffsets = append(pageOffsets, builder.Len())
		builder.WriteString(text)
		builder.WriteString("\n\n")
	}
	return builder.String(), pageOffsets
}

// splitPages recovers the per-page text a Chunk's text was assembled from,
// keyed by page number, by splitting on the "--- Page N ---" markers the
// decomposer inserts between pages.
func splitPages(c *models.Chunk) map[int]string {
	result := make(map[int]string)
	if c.Text == "" {
		return result
	}
	segments := strings.Split(c.Text, "--- Page ")
	firstPage := c.StartPage
	for i, seg := range segments {
		if i == 0 {
			result[firstPage] = strings.TrimSpace(seg)
			continue
		}
		idx := strings.Index(seg, " ---")
		if idx < 0 {
			continue
		}
		pageNum, err := strconv.Atoi(seg[:idx])
		if err != nil {
			continue
		}
		result[pageNum] = strings.TrimSpace(seg[idx+len(" ---\n\n"):])
	}
	return result
}

func (o *Orchestrator) failJob(ctx context.Context, job *models.Job, reason string) {
	if err := o.jobs.UpdateJobStatus(ctx, job.ID, models.JobStatusFailed, reason); err != nil {
		o.logger.Error().Err(err).Str("job_id", job.ID).Msg("failed to record job failure")
	}
	o.publish(ctx, interfaces.Event{
		Type:    interfaces.EventJobStatusChanged,
		Payload: interfaces.JobStatusChangedPayload{JobID: job.ID, Status: string(models.JobStatusFailed), ParentID: parentOf(job)},
	})
}

func (o *Orchestrator) publish(ctx context.Context, event interfaces.Event) {
	if o.events == nil {
		return
	}
	if err := o.events.Publish(ctx, event); err != nil {
		o.logger.Warn().Err(err).Msg("failed to publish orchestrator event")
	}
}

func parentOf(job *models.Job) string {
	if job.ParentID == nil {
		return ""
	}
	return *job.ParentID
}
