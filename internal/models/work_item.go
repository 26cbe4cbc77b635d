package models

import (
	"encoding/json"
	"time"
)

// QueueName is one of the named queues the task queue dispatches work
// items to. A worker subscribes to one or more queues.
type QueueName string

const (
	QueuePDF           QueueName = "pdf"
	QueueML            QueueName = "ml"
	QueueAnalysis      QueueName = "analysis"
	QueueNotifications QueueName = "notifications" // named slot; no sender implemented, see Non-goals
	QueuePriority      QueueName = "priority"
)

// TaskKind routes a WorkItem to the orchestrator handler that knows how to
// execute it.
type TaskKind string

const (
	TaskPDFValidate      TaskKind = "pdf.validate"
	TaskPDFChunk         TaskKind = "pdf.chunk"
	TaskAnalysisChunk    TaskKind = "analysis.chunk"
	TaskAnalysisAggregate TaskKind = "analysis.aggregate"
)

// RetryPolicy bounds how many times a failed WorkItem is retried and how
// the backoff between attempts grows.
type RetryPolicy struct {
	MaxAttempts int           `json:"max_attempts"`
	BackoffBase time.Duration `json:"backoff_base"`
}

// WorkItem is one unit dispatched through the task queue. Priority and
// CreatedAt together give the tie-breaking order (priority first, then
// FIFO within a priority band).
type WorkItem struct {
	ID       string          `json:"id" badgerhold:"key"`
	Queue    QueueName       `json:"queue" badgerhold:"index"`
	Kind     TaskKind        `json:"kind"`
	JobID    string          `json:"job_id" badgerhold:"index"`
	Payload  json.RawMessage `json:"payload"`
	Priority int             `json:"priority"` // higher runs first

	Retry         RetryPolicy   `json:"retry"`
	Attempts      int           `json:"attempts"`
	SoftTimeLimit time.Duration `json:"soft_time_limit"`
	HardTimeLimit time.Duration `json:"hard_time_limit"`

	CreatedAt time.Time `json:"created_at"`
}

// ErrNoWorkItem is returned by TaskQueue.Receive when no item is ready.
var ErrNoWorkItem = noWorkItemError{}

type noWorkItemError struct{}

func (noWorkItemError) Error() string { return "no work items ready" }
