// Package errs gives the rest of the module a small typed-error taxonomy so
// callers can route on error kind with errors.As instead of string-matching
// fmt.Errorf chains. There is no single upstream error package to mirror
// here; each type wraps an underlying cause the same way the rest of the
// codebase already does with fmt.Errorf("...: %w", err).
package errs

import "fmt"

// ValidationError signals bad input: malformed request, file too large,
// wrong format. Never retried.
type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation: %s: %s", e.Field, e.Msg)
	}
	return fmt.Sprintf("validation: %s", e.Msg)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func Validation(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

func Validationf(field string, err error, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...), Err: err}
}

// NotFoundError signals a missing resource (job, chunk, analysis, ...).
type NotFoundError struct {
	Resource string
	ID       string
	Err      error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// ConflictError signals a resource already exists or collides with another
// write (e.g. a double-enqueue of the same step).
type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s: %s", e.Resource, e.Msg)
}

func (e *ConflictError) Unwrap() error { return e.Err }

func Conflict(resource, msg string) error {
	return &ConflictError{Resource: resource, Msg: msg}
}

// AuthorizationError signals the caller is not the owner of the resource it
// is trying to read or mutate. Deliberately vague in its message: callers
// should surface this as a not-found to avoid confirming a resource exists
// to a non-owner (see §6/S6 cross-tenant isolation).
type AuthorizationError struct {
	Resource string
	ID       string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("not authorized for %s %s", e.Resource, e.ID)
}

func Authorization(resource, id string) error {
	return &AuthorizationError{Resource: resource, ID: id}
}

// ProcessingError signals a pipeline step failed on its own terms (PDF
// invalid, extraction failed, model missing). Retryable is true when the
// orchestrator's per-step retry cap should apply before surfacing as failed.
type ProcessingError struct {
	Stage     string
	Msg       string
	Retryable bool
	Err       error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing failed at %s: %s", e.Stage, e.Msg)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

func Processing(stage, msg string, retryable bool) error {
	return &ProcessingError{Stage: stage, Msg: msg, Retryable: retryable}
}

func Processingf(stage string, err error, retryable bool, format string, args ...interface{}) error {
	return &ProcessingError{Stage: stage, Msg: fmt.Sprintf(format, args...), Retryable: retryable, Err: err}
}

// TransientError wraps a storage/database/network failure believed to be
// temporary. job_store.go retries its wrapped reads with exponential
// backoff (base 100ms, cap 2s, max 3 attempts) and returns a TransientError
// once that budget is exhausted; callers further up the stack should not
// retry it again.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure during %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

func Transient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// RateLimitError signals a producer should back off; surfaced to external
// callers as HTTP 503 with Retry-After per spec.md §5.
type RateLimitError struct {
	Resource   string
	RetryAfter string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited on %s, retry after %s", e.Resource, e.RetryAfter)
}

func RateLimit(resource, retryAfter string) error {
	return &RateLimitError{Resource: resource, RetryAfter: retryAfter}
}

// BusinessStateError signals an operation was attempted from a job state
// that does not permit it (e.g. retrying a job that is not failed).
type BusinessStateError struct {
	Op       string
	Current  string
	Required string
}

func (e *BusinessStateError) Error() string {
	return fmt.Sprintf("cannot %s: current state %q, required %q", e.Op, e.Current, e.Required)
}

func BusinessState(op, current, required string) error {
	return &BusinessStateError{Op: op, Current: current, Required: required}
}

// PDFErrorKind names one of the PDF decomposer's typed failure modes
// (spec.md §4.4): InvalidPDF, Encrypted, TooLarge, PageOutOfRange,
// ExtractionFailed.
type PDFErrorKind string

const (
	PDFInvalid         PDFErrorKind = "InvalidPDF"
	PDFEncrypted       PDFErrorKind = "Encrypted"
	PDFTooLarge        PDFErrorKind = "TooLarge"
	PDFPageOutOfRange  PDFErrorKind = "PageOutOfRange"
	PDFExtractionFailed PDFErrorKind = "ExtractionFailed"
)

// PDFError wraps one of the decomposer's typed failure modes so callers can
// switch on Kind rather than parsing the message.
type PDFError struct {
	Kind      PDFErrorKind
	ObjectKey string
	Err       error
}

func (e *PDFError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.ObjectKey, e.Err)
}

func (e *PDFError) Unwrap() error { return e.Err }

func NewPDFError(kind PDFErrorKind, objectKey string, err error) error {
	return &PDFError{Kind: kind, ObjectKey: objectKey, Err: err}
}

// IsTransient reports whether err (or anything it wraps) is a TransientError,
// the one category §7's propagation policy allows a caller to retry.
func IsTransient(err error) bool {
	var t *TransientError
	return asTransient(err, &t)
}

func asTransient(err error, target **TransientError) bool {
	for err != nil {
		if t, ok := err.(*TransientError); ok {
			*target = t
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}
