// Package queue implements interfaces.TaskQueue over Badger/badgerhold:
// named queues, priority+FIFO ordering, late-ack visibility timeout, and a
// dead-letter queue for items that exhaust their retry policy.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
	"golang.org/x/time/rate"

	"github.com/ternarybob/leadforge/internal/interfaces"
	"github.com/ternarybob/leadforge/internal/models"
)

// record is the persisted bookkeeping wrapper around a WorkItem. It is kept
// separate from models.WorkItem so the queue's internal lease state never
// leaks into the domain model the orchestrator and workers see.
type record struct {
	ID            string          `badgerhold:"key"`
	Queue         models.QueueName `badgerhold:"index"`
	Kind          models.TaskKind
	JobID         string `badgerhold:"index"`
	Payload       json.RawMessage
	Priority      int
	Retry         models.RetryPolicy
	Attempts      int
	SoftTimeLimit time.Duration
	HardTimeLimit time.Duration
	CreatedAt     time.Time

	Leased      bool `badgerhold:"index"`
	LeasedUntil time.Time
	DeadLetter  bool `badgerhold:"index"`
	LastReason  string
}

func (r *record) toWorkItem() *models.WorkItem {
	return &models.WorkItem{
		ID:            r.ID,
		Queue:         r.Queue,
		Kind:          r.Kind,
		JobID:         r.JobID,
		Payload:       r.Payload,
		Priority:      r.Priority,
		Retry:         r.Retry,
		Attempts:      r.Attempts,
		SoftTimeLimit: r.SoftTimeLimit,
		HardTimeLimit: r.HardTimeLimit,
		CreatedAt:     r.CreatedAt,
	}
}

// Queue implements interfaces.TaskQueue.
type Queue struct {
	store   *badgerhold.Store
	limiter *rate.Limiter
	logger  arbor.ILogger
}

var _ interfaces.TaskQueue = (*Queue)(nil)

// New wraps an already-open badgerhold store. The caller owns the store's
// lifecycle; Close here is a no-op left for interface symmetry with other
// TaskQueue backends. ratePerSec bounds sustained Enqueue throughput with a
// token-bucket limiter so a burst of submissions applies back-pressure on
// the caller instead of piling up unboundedly in Badger; ratePerSec <= 0
// disables the limiter.
func New(store *badgerhold.Store, ratePerSec float64, burst int, logger arbor.ILogger) *Queue {
	q := &Queue{store: store, logger: logger}
	if ratePerSec > 0 {
		if burst <= 0 {
			burst = 1
		}
		q.limiter = rate.NewLimiter(rate.Limit(ratePerSec), burst)
	}
	return q
}

func (q *Queue) Enqueue(ctx context.Context, item *models.WorkItem) error {
	if q.limiter != nil {
		if err := q.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("enqueue rate limiter: %w", err)
		}
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	rec := &record{
		ID:            item.ID,
		Queue:         item.Queue,
		Kind:          item.Kind,
		JobID:         item.JobID,
		Payload:       item.Payload,
		Priority:      item.Priority,
		Retry:         item.Retry,
		Attempts:      item.Attempts,
		SoftTimeLimit: item.SoftTimeLimit,
		HardTimeLimit: item.HardTimeLimit,
		CreatedAt:     item.CreatedAt,
	}
	if err := q.store.Upsert(rec.ID, rec); err != nil {
		return fmt.Errorf("failed to enqueue work item: %w", err)
	}
	return nil
}

// Receive leases the highest-priority, oldest ready item across the given
// queues. Ties between queues are broken by scanning each in order and
// taking the best candidate overall, not the first queue with any match.
func (q *Queue) Receive(ctx context.Context, queues ...models.QueueName) (*interfaces.LeasedItem, error) {
	var best *record
	for _, qn := range queues {
		var candidates []*record
		query := badgerhold.Where("Queue").Eq(qn).
			And("Leased").Eq(false).
			And("DeadLetter").Eq(false).
			SortBy("Priority").Reverse().
			Limit(50)
		if err := q.store.Find(&candidates, query); err != nil {
			return nil, fmt.Errorf("failed to query queue %s: %w", qn, err)
		}
		for _, c := range candidates {
			if best == nil || c.Priority > best.Priority ||
				(c.Priority == best.Priority && c.CreatedAt.Before(best.CreatedAt)) {
				best = c
			}
		}
	}
	if best == nil {
		return nil, models.ErrNoWorkItem
	}

	now := time.Now()
	visibility := best.HardTimeLimit
	if visibility <= 0 {
		visibility = 5 * time.Minute
	}
	best.Leased = true
	best.LeasedUntil = now.Add(visibility)
	best.Attempts++
	if err := q.store.Update(best.ID, best); err != nil {
		return nil, fmt.Errorf("failed to lease work item %s: %w", best.ID, err)
	}

	item := best.toWorkItem()
	id := best.ID
	return &interfaces.LeasedItem{
		Item: item,
		Ack: func(ctx context.Context) error {
			if err := q.store.Delete(id, &record{}); err != nil && err != badgerhold.ErrNotFound {
				return fmt.Errorf("failed to ack work item %s: %w", id, err)
			}
			return nil
		},
		Nack: func(ctx context.Context, reason string) error {
			return q.nack(id, reason)
		},
	}, nil
}

// nack returns the item to its queue for another attempt, or moves it to the
// dead-letter set once its retry policy is exhausted. It records one
// jittered backoff interval, seeded by the item's BackoffBase and not growing
// with the attempt count, in LeasedUntil; Receive does not consult
// LeasedUntil for unleased items, so the item is eligible again at once.
func (q *Queue) nack(id string, reason string) error {
	var rec record
	if err := q.store.Get(id, &rec); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to load work item %s: %w", id, err)
	}

	rec.LastReason = reason
	if rec.Retry.MaxAttempts > 0 && rec.Attempts >= rec.Retry.MaxAttempts {
		rec.Leased = false
		rec.DeadLetter = true
		return q.store.Update(id, &rec)
	}

	eb := backoff.NewExponentialBackOff()
	if rec.Retry.BackoffBase > 0 {
		eb.InitialInterval = rec.Retry.BackoffBase
	}
	delay := eb.NextBackOff()
	if delay == backoff.Stop {
		delay = eb.InitialInterval
	}

	rec.Leased = false
	rec.LeasedUntil = time.Now().Add(delay)
	return q.store.Update(id, &rec)
}

func (q *Queue) DeadLetter(ctx context.Context, queue models.QueueName) ([]*models.WorkItem, error) {
	var recs []*record
	query := badgerhold.Where("Queue").Eq(queue).And("DeadLetter").Eq(true)
	if err := q.store.Find(&recs, query); err != nil {
		return nil, fmt.Errorf("failed to list dead-letter items for queue %s: %w", queue, err)
	}
	items := make([]*models.WorkItem, 0, len(recs))
	for _, r := range recs {
		items = append(items, r.toWorkItem())
	}
	return items, nil
}

// RequeueStale makes leased items whose visibility window has expired
// eligible for Receive again without counting as a failed attempt.
func (q *Queue) RequeueStale(ctx context.Context) (int, error) {
	var recs []*record
	query := badgerhold.Where("Leased").Eq(true).And("LeasedUntil").Lt(time.Now())
	if err := q.store.Find(&recs, query); err != nil {
		return 0, fmt.Errorf("failed to find stale leases: %w", err)
	}
	for _, r := range recs {
		r.Leased = false
		if err := q.store.Update(r.ID, r); err != nil {
			return 0, fmt.Errorf("failed to requeue stale item %s: %w", r.ID, err)
		}
	}
	return len(recs), nil
}

func (q *Queue) Close() error { return nil }
