// Package events implements interfaces.EventPublisher, the in-process
// pub/sub bus the orchestrator uses to report job and chunk progress
// without coupling to any specific consumer.
package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/leadforge/internal/interfaces"
)

// Publisher implements interfaces.EventPublisher with async and sync
// fan-out to per-type subscriber lists.
type Publisher struct {
	subscribers map[interfaces.EventType][]interfaces.EventHandler
	mu          sync.RWMutex
	logger      arbor.ILogger
}

var _ interfaces.EventPublisher = (*Publisher)(nil)

// New creates an empty Publisher.
func New(logger arbor.ILogger) *Publisher {
	return &Publisher{
		subscribers: make(map[interfaces.EventType][]interfaces.EventHandler),
		logger:      logger,
	}
}

func (p *Publisher) Subscribe(eventType interfaces.EventType, handler interfaces.EventHandler) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers[eventType] = append(p.subscribers[eventType], handler)
	return nil
}

// Unsubscribe is a best-effort removal: Go func values are not comparable,
// so callers that need precise removal should track a cancel flag inside
// their handler rather than rely on this to find the exact closure.
func (p *Publisher) Unsubscribe(eventType interfaces.EventType, handler interfaces.EventHandler) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	handlers := p.subscribers[eventType]
	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for event type: %s", eventType)
	}
	p.subscribers[eventType] = handlers[:len(handlers)-1]
	return nil
}

func (p *Publisher) Publish(ctx context.Context, event interfaces.Event) error {
	handlers := p.handlersFor(event.Type)
	for _, handler := range handlers {
		go func(h interfaces.EventHandler) {
			if err := h(ctx, event); err != nil {
				p.logger.Error().Err(err).Str("event_type", string(event.Type)).Msg("event handler failed")
			}
		}(handler)
	}
	return nil
}

func (p *Publisher) PublishSync(ctx context.Context, event interfaces.Event) error {
	handlers := p.handlersFor(event.Type)
	var wg sync.WaitGroup
	errCh := make(chan error, len(handlers))
	for _, handler := range handlers {
		wg.Add(1)
		go func(h interfaces.EventHandler) {
			defer wg.Done()
			if err := h(ctx, event); err != nil {
				p.logger.Error().Err(err).Str("event_type", string(event.Type)).Msg("event handler failed")
				errCh <- err
			}
		}(handler)
	}
	wg.Wait()
	close(errCh)

	var failed int
	for range errCh {
		failed++
	}
	if failed > 0 {
		return fmt.Errorf("event handlers failed: %d errors", failed)
	}
	return nil
}

func (p *Publisher) handlersFor(t interfaces.EventType) []interfaces.EventHandler {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]interfaces.EventHandler(nil), p.subscribers[t]...)
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = make(map[interfaces.EventType][]interfaces.EventHandler)
	return nil
}
