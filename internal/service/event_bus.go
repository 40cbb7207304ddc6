package service

import (
	"context"
	"sync"

	"krwx-ledger/internal/core/domain"
	"krwx-ledger/internal/core/ledger"
	"krwx-ledger/internal/core/ports"

	"github.com/rs/zerolog"
)

// EventBus fans committed ledger events out to subscribers. Publish only
// appends to an in-memory queue, so the ledger never waits on I/O; a single
// dispatcher goroutine delivers events in sequence order.
type EventBus struct {
	mu          sync.Mutex
	cond        *sync.Cond
	queue       []domain.Event
	subscribers []ports.EventSubscriber
	started     bool
	closed      bool
	done        chan struct{}
	log         zerolog.Logger
}

// NewEventBus creates an idle bus. Call Start to begin delivery.
func NewEventBus(log zerolog.Logger) *EventBus {
	b := &EventBus{
		done: make(chan struct{}),
		log:  log.With().Str("component", "event-bus").Logger(),
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Subscribe registers s. Subscribers added after Start receive only events
// dispatched from then on.
func (b *EventBus) Subscribe(s ports.EventSubscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, s)
	b.log.Info().Str("subscriber", s.Name()).Msg("subscriber registered")
}

// Publish enqueues events. It never blocks on delivery.
func (b *EventBus) Publish(events ...domain.Event) {
	if len(events) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		b.log.Warn().Int("count", len(events)).Uint64("first_seq", events[0].Seq).Msg("bus closed, events dropped")
		return
	}
	b.queue = append(b.queue, events...)
	b.cond.Signal()
}

// Pending returns the number of queued, undelivered events.
func (b *EventBus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Start launches the dispatcher. ctx is handed to subscribers.
func (b *EventBus) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.mu.Unlock()

	go b.run(ctx)
}

// Close stops accepting events, waits until the queue is drained, and
// stops the dispatcher.
func (b *EventBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	started := b.started
	b.cond.Broadcast()
	b.mu.Unlock()

	if started {
		<-b.done
	}
}

func (b *EventBus) run(ctx context.Context) {
	defer close(b.done)
	for {
		b.mu.Lock()
		for len(b.queue) == 0 && !b.closed {
			b.cond.Wait()
		}
		if len(b.queue) == 0 && b.closed {
			b.mu.Unlock()
			return
		}
		batch := b.queue
		b.queue = nil
		subs := append([]ports.EventSubscriber(nil), b.subscribers...)
		b.mu.Unlock()

		for _, e := range batch {
			b.deliver(ctx, subs, e)
		}
	}
}

func (b *EventBus) deliver(ctx context.Context, subs []ports.EventSubscriber, e domain.Event) {
	for _, s := range subs {
		if err := s.Handle(ctx, e); err != nil {
			b.log.Error().
				Err(err).
				Str("subscriber", s.Name()).
				Uint64("seq", e.Seq).
				Str("kind", string(e.Kind)).
				Msg("event delivery failed")
		}
	}
}

var _ ledger.Publisher = (*EventBus)(nil)
