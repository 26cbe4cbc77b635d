package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/leadforge/internal/common"
	"github.com/ternarybob/leadforge/internal/interfaces"
	"github.com/ternarybob/leadforge/internal/models"
)

// Pool pulls WorkItems off the named queues and dispatches them to an
// Orchestrator, acking on success and nacking (which returns the item to
// its queue, or moves it to the dead letter queue once retries are
// exhausted) on failure.
type Pool struct {
	orchestrator *Orchestrator
	taskQueue    interfaces.TaskQueue
	queues       []models.QueueName
	numWorkers   int
	logger       arbor.ILogger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewPool(o *Orchestrator, taskQueue interfaces.TaskQueue, queues []models.QueueName, numWorkers int, logger arbor.ILogger) *Pool {
	if numWorkers <= 0 {
		numWorkers = 4
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		orchestrator: o, taskQueue: taskQueue, queues: queues,
		numWorkers: numWorkers, logger: logger, ctx: ctx, cancel: cancel,
	}
}

// Start launches the pool's worker goroutines. It does not block.
func (p *Pool) Start() {
	p.logger.Info().Int("num_workers", p.numWorkers).Msg("starting task queue worker pool")
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		workerID := i
		common.SafeGo(p.logger, fmt.Sprintf("pool-worker-%d", workerID), func() { p.worker(workerID) })
	}
}

// Stop cancels the pool's workers and waits for them to drain.
func (p *Pool) Stop() {
	p.logger.Info().Msg("stopping task queue worker pool")
	p.cancel()
	p.wg.Wait()
	p.logger.Info().Msg("task queue worker pool stopped")
}

func (p *Pool) worker(workerID int) {
	defer p.wg.Done()
	p.logger.Debug().Int("worker_id", workerID).Msg("worker started")
	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug().Int("worker_id", workerID).Msg("worker stopping")
			return
		default:
			p.processNext(workerID)
		}
	}
}

func (p *Pool) processNext(workerID int) {
	leased, err := p.taskQueue.Receive(p.ctx, p.queues...)
	if err != nil {
		if !errors.Is(err, models.ErrNoWorkItem) {
			p.logger.Warn().Err(err).Int("worker_id", workerID).Msg("failed to receive work item")
		}
		return
	}

	item := leased.Item
	p.logger.Info().
		Int("worker_id", workerID).
		Str("job_id", item.JobID).
		Str("kind", string(item.Kind)).
		Msg("processing work item")

	if err := p.orchestrator.HandleWorkItem(p.ctx, item); err != nil {
		p.logger.Error().Err(err).Str("job_id", item.JobID).Str("kind", string(item.Kind)).Msg("work item failed")
		if nackErr := leased.Nack(p.ctx, err.Error()); nackErr != nil {
			p.logger.Error().Err(nackErr).Msg("failed to nack work item")
		}
		return
	}

	if err := leased.Ack(p.ctx); err != nil {
		p.logger.Error().Err(err).Msg("failed to ack work item")
	}
}
