package interfaces

import (
	"context"

	"github.com/ternarybob/leadforge/internal/models"
)

// LeasedItem is a WorkItem paired with the function that acknowledges it.
// Ack must be called only after the work succeeds; calling Nack (or letting
// the visibility timeout expire) requeues the item for another attempt.
type LeasedItem struct {
	Item *models.WorkItem
	Ack  func(ctx context.Context) error
	Nack func(ctx context.Context, reason string) error
}

// TaskQueue is the typed, persisted work queue described in spec §4.3:
// named queues, priority+FIFO ordering, late-ack visibility timeout, and a
// dead-letter queue for items that exhaust their retry policy.
type TaskQueue interface {
	// Enqueue persists item and makes it visible to Receive once its
	// priority/FIFO position is reached.
	Enqueue(ctx context.Context, item *models.WorkItem) error

	// Receive leases the next ready item from one of the given queues, or
	// returns models.ErrNoWorkItem if none is ready. The item stays leased
	// (invisible to other Receive calls) until HardTimeLimit elapses or it
	// is acknowledged/negatively-acknowledged.
	Receive(ctx context.Context, queues ...models.QueueName) (*LeasedItem, error)

	// DeadLetter lists items that exhausted their retry policy. The reason
	// given to the final Nack is kept on the stored record but is not
	// returned here.
	DeadLetter(ctx context.Context, queue models.QueueName) ([]*models.WorkItem, error)

	// RequeueStale re-delivers items whose visibility timeout expired
	// without an ack. It leaves their attempt counter unchanged; Receive
	// increments it when the item is leased again.
	RequeueStale(ctx context.Context) (int, error)

	Close() error
}
