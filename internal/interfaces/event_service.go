package interfaces

import "context"

// EventType identifies the kind of pipeline progress event published on the
// bus. Handlers (dashboard cache invalidation, orchestrator child tracking)
// switch on this to decide whether a payload applies to them.
type EventType string

const (
	// EventJobStatusChanged fires from JobStore.UpdateJobStatus after a
	// successful write. Payload is JobStatusChangedPayload.
	EventJobStatusChanged EventType = "job_status_changed"

	// EventChunkCompleted fires when a chunk finishes extraction or
	// analysis. Payload is ChunkCompletedPayload.
	EventChunkCompleted EventType = "chunk_completed"

	// EventJobProgress fires periodically while a job's chunks are being
	// processed. Payload is JobProgressPayload.
	EventJobProgress EventType = "job_progress"

	// EventPredictionReady fires once the scoring engine persists a
	// Prediction for a job. Payload is PredictionReadyPayload.
	EventPredictionReady EventType = "prediction_ready"
)

// JobStatusChangedPayload is published on EventJobStatusChanged.
type JobStatusChangedPayload struct {
	JobID    string
	Status   string
	ParentID string
}

// ChunkCompletedPayload is published on EventChunkCompleted.
type ChunkCompletedPayload struct {
	JobID   string
	ChunkID string
	Status  string
}

// JobProgressPayload is published on EventJobProgress.
type JobProgressPayload struct {
	JobID           string
	CompletedChunks int
	FailedChunks    int
	TotalChunks     int
	Percentage      float64
}

// PredictionReadyPayload is published on EventPredictionReady.
type PredictionReadyPayload struct {
	JobID          string
	Score          float64
	Classification string
}

// Event is one message placed on the bus.
type Event struct {
	Type    EventType
	Payload interface{}
}

// EventHandler processes a published event.
type EventHandler func(ctx context.Context, event Event) error

// EventPublisher is the pub/sub bus the orchestrator uses to report
// progress without coupling to any specific consumer (dashboard cache,
// log sink, future notification sender).
type EventPublisher interface {
	Subscribe(eventType EventType, handler EventHandler) error
	Unsubscribe(eventType EventType, handler EventHandler) error
	Publish(ctx context.Context, event Event) error
	PublishSync(ctx context.Context, event Event) error
	Close() error
}
