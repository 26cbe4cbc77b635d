// -----------------------------------------------------------------------
// Job Model - immutable submission record plus mutable lifecycle state
// -----------------------------------------------------------------------

package models

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var jobValidate = validator.New()

// JobStatus enumerates the lifecycle states a Job moves through. The normal
// path is Pending -> Processing -> Analyzing -> Completed|Failed. A job can
// also move back: the stale-job reaper resets Processing to Pending, Retry
// resets Failed to Pending, and Cancel moves any non-terminal job to
// Cancelled. Status writes do not check the current status, so the store
// does not enforce this order.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending" // uploaded, not yet picked up by the orchestrator
	JobStatusProcessing JobStatus = "processing"
	JobStatusAnalyzing  JobStatus = "analyzing" // all chunks extracted; analyzer/feature/scoring stage running
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether the status is one a job cannot leave on its own.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// JobConfig is the typed configuration snapshot captured when a Job is
// submitted. Earlier generations of this pipeline passed a free-form
// map[string]interface{} config bag through the queue; that pattern hid
// unit mismatches and typos behind runtime type assertions. Every field a
// pipeline stage actually reads now has a name and a type here; Extra exists
// only for operator-supplied passthrough tags that no stage interprets.
type JobConfig struct {
	TempPath           string            `json:"temp_path"`             // local scratch path the source PDF was staged to
	TaskID             string            `json:"task_id,omitempty"`     // correlates an analysis run to its originating upload batch
	AnalysisResultKey  string            `json:"analysis_result_key,omitempty"`
	TotalPages         int               `json:"total_pages,omitempty"` // populated once the decomposer validates the document
	ChunkSizePages      int              `json:"chunk_size_pages,omitempty"`
	ChunkOverlapPages   int              `json:"chunk_overlap_pages,omitempty"`
	EnhancedScoring     bool             `json:"enhanced_scoring,omitempty"`
	Extra               map[string]string `json:"extra,omitempty"`
}

// Job is the durable record of one document submitted for lead scoring.
// ID and CreatedAt are set at submission time and never change; everything
// else is updated in place as the pipeline orchestrator advances the job.
type Job struct {
	ID       string  `json:"id" badgerhold:"key" validate:"required"`
	ParentID *string `json:"parent_id,omitempty" badgerhold:"index"`

	OwnerID string `json:"owner_id" badgerhold:"index" validate:"required"` // submitting user; exclusive owner until deleted
	Title   string `json:"title,omitempty"`                                 // optional display title, user-settable post-submission

	SourceFilename  string    `json:"source_filename" validate:"required"`
	SourceSizeBytes int64     `json:"source_size_bytes"`
	ContentHash     string    `json:"content_hash,omitempty"` // sha256 of the source object, filled after decomposition
	ObjectKey       string    `json:"object_key" validate:"required"` // key in the object store holding the raw PDF
	Config          JobConfig `json:"config"`

	Status     JobStatus `json:"status" badgerhold:"index" validate:"required"`
	Error      string    `json:"error,omitempty"`
	Progress   float64   `json:"progress"` // 0..1
	RetryCount int       `json:"retry_count"`

	TotalChunks     int `json:"total_chunks"`
	CompletedChunks int `json:"completed_chunks"`
	FailedChunks    int `json:"failed_chunks"`

	CreatedAt     time.Time  `json:"created_at" badgerhold:"index"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	LastHeartbeat time.Time  `json:"last_heartbeat"`
}

// NewJob creates a root job ready for enqueue. The caller is expected to
// have already streamed the source PDF into object storage under objectKey.
func NewJob(ownerID, sourceFilename string, sizeBytes int64, objectKey string, config JobConfig) *Job {
	now := time.Now()
	return &Job{
		ID:              uuid.New().String(),
		OwnerID:         ownerID,
		SourceFilename:  sourceFilename,
		SourceSizeBytes: sizeBytes,
		ObjectKey:       objectKey,
		Config:          config,
		Status:          JobStatusPending,
		CreatedAt:       now,
		LastHeartbeat:   now,
	}
}

// Validate checks the invariants a Job must hold before it is persisted,
// via struct tags rather than a hand-rolled chain of if-empty checks.
func (j *Job) Validate() error {
	if err := jobValidate.Struct(j); err != nil {
		return fmt.Errorf("invalid job: %w", err)
	}
	return nil
}

// ResetForRetry reverts a failed job to its pre-validation state so the
// orchestrator can restart it from pdf.validate, per spec.md §4.9/§7: retry
// is allowed only from the failed state. Callers must have already checked
// Status == JobStatusFailed.
func (j *Job) ResetForRetry() {
	j.RetryCount++
	j.Status = JobStatusPending
	j.Error = ""
	j.Progress = 0
	j.TotalChunks = 0
	j.CompletedChunks = 0
	j.FailedChunks = 0
	j.StartedAt = nil
	j.CompletedAt = nil
}

// ProgressFraction recomputes Progress from the chunk counters. Called
// whenever CompletedChunks or FailedChunks change so the two never drift.
func (j *Job) ProgressFraction() float64 {
	if j.TotalChunks == 0 {
		return 0
	}
	done := j.CompletedChunks + j.FailedChunks
	if done > j.TotalChunks {
		done = j.TotalChunks
	}
	return float64(done) / float64(j.TotalChunks)
}
