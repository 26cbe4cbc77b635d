package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var feedbackValidate = validator.New()

// FeedbackRecord is a user-supplied correction against a job's prediction.
// Records are append-only: the learning loop never edits one in place, it
// only flips Processed once the feedback batch has folded it into a
// retraining dataset.
type FeedbackRecord struct {
	ID    string `json:"id" badgerhold:"key"`
	JobID string `json:"job_id" badgerhold:"index" validate:"required"`

	Answers  map[string]string `json:"answers"` // question-id -> value
	Metadata map[string]string `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at" badgerhold:"index"`
	Processed bool      `json:"processed" badgerhold:"index"`
}

// Validate checks the invariants a FeedbackRecord must hold before it is
// persisted (JobID set). Answers may be empty: a feedback record can carry
// only Metadata (e.g. a free-text correction routed elsewhere).
func (f *FeedbackRecord) Validate() error {
	return feedbackValidate.Struct(f)
}
