package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/geethasandesh/articket/internal/domain"
	"github.com/geethasandesh/articket/internal/observability"
)

// Handler receives every published event, regardless of scope. Handlers run
// asynchronously after commit; they must treat delivery as best-effort.
type Handler func(context.Context, TicketEvent)

// SnapshotFunc loads the subscriber's initial matching ticket set.
type SnapshotFunc func(context.Context) ([]domain.Ticket, error)

// Broker fans committed ticket mutations out to live subscribers.
//
// Guarantees, provided publishers serialize per ticket (the service layer's
// per-ticket lock does this): events for one ticket reach each subscriber in
// commit order; a subscriber sees each mutation at most once across its
// initial snapshot and the incremental stream; one slow subscriber never
// stalls the others, because its oldest buffered events are dropped and the
// next delivered event carries the Gap flag.
type Broker struct {
	mu         sync.Mutex
	handlers   []Handler
	subs       map[*Subscription]struct{}
	closed     bool
	bufferSize int
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewBroker creates a broker with the given per-subscriber buffer size.
func NewBroker(bufferSize int, logger *zap.Logger, metrics *observability.Metrics) *Broker {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Broker{
		subs:       make(map[*Subscription]struct{}),
		bufferSize: bufferSize,
		logger:     logger,
		metrics:    metrics,
	}
}

// SubscribeFunc registers an unscoped handler (the notifier).
func (b *Broker) SubscribeFunc(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers a committed mutation to all subscribers and handlers.
// It never blocks on a subscriber.
func (b *Broker) Publish(ctx context.Context, ev TicketEvent) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	b.metrics.RecordEventPublished()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	handlers := append([]Handler{}, b.handlers...)
	subs := make([]*Subscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.offer(ev, b.metrics)
	}

	if len(handlers) > 0 {
		hctx := context.WithoutCancel(ctx)
		go func() {
			for _, h := range handlers {
				h(hctx, ev)
			}
		}()
	}
}

// Subscribe registers a scoped subscriber. The stream starts with the full
// current matching snapshot (Type=created, Change=snapshot) and continues
// with incremental events; there is no gap between the two from the
// subscriber's point of view. Cancel the context or call Close to release
// the subscription.
func (b *Broker) Subscribe(ctx context.Context, filter FilterSpec, snapshot SnapshotFunc) *Subscription {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		filter: filter,
		in:     make(chan TicketEvent, b.bufferSize),
		out:    make(chan TicketEvent),
		ctx:    subCtx,
		cancel: cancel,
		seen:   make(map[string]time.Time),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		cancel()
		close(sub.out)
		return sub
	}
	// Registered before the snapshot read so no commit falls between the
	// snapshot and the first incremental event.
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	go sub.pump(b, snapshot)
	return sub
}

// Close cancels every subscription and stops accepting new ones.
func (b *Broker) Close() {
	b.mu.Lock()
	b.closed = true
	subs := make([]*Subscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}

func (b *Broker) remove(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}

// Subscription is one live subscriber's event stream.
type Subscription struct {
	filter FilterSpec
	in     chan TicketEvent
	out    chan TicketEvent
	ctx    context.Context
	cancel context.CancelFunc
	gap    atomic.Bool

	// seen maps ticket id to the LastUpdated already delivered; only the
	// pump goroutine touches it. LastUpdated strictly increases per
	// accepted mutation, so it doubles as a delivery watermark.
	seen map[string]time.Time
}

// Events returns the delivery channel. It is closed when the subscription
// ends.
func (s *Subscription) Events() <-chan TicketEvent {
	return s.out
}

// Close cancels the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.cancel()
}

// offer enqueues without blocking; when the buffer is full the oldest
// pending event is dropped and the gap flag raised.
func (s *Subscription) offer(ev TicketEvent, metrics *observability.Metrics) {
	for {
		select {
		case s.in <- ev:
			return
		default:
		}
		select {
		case <-s.in:
			s.gap.Store(true)
			metrics.RecordFanoutDrop()
		default:
		}
	}
}

func (s *Subscription) pump(b *Broker, snapshot SnapshotFunc) {
	defer func() {
		b.remove(s)
		s.cancel()
		close(s.out)
	}()

	if snapshot != nil {
		tickets, err := snapshot(s.ctx)
		if err != nil {
			b.logger.Error("subscription snapshot failed", zap.Error(err))
			return
		}
		for i := range tickets {
			ticket := tickets[i]
			if !s.filter.Admits(&ticket) {
				continue
			}
			ev := TicketEvent{
				ID:        uuid.NewString(),
				Type:      EventCreated,
				Change:    ChangeSnapshot,
				Ticket:    ticket,
				Timestamp: time.Now(),
			}
			if !s.deliver(b, ev) {
				return
			}
			s.seen[ticket.ID] = ticket.LastUpdated
		}
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		case ev := <-s.in:
			if !s.filter.Admits(&ev.Ticket) {
				continue
			}
			if last, ok := s.seen[ev.Ticket.ID]; ok && !ev.Ticket.LastUpdated.After(last) {
				// already covered by the snapshot or an earlier event
				continue
			}
			s.seen[ev.Ticket.ID] = ev.Ticket.LastUpdated
			if s.gap.Swap(false) {
				ev.Gap = true
			}
			if !s.deliver(b, ev) {
				return
			}
		}
	}
}

func (s *Subscription) deliver(b *Broker, ev TicketEvent) bool {
	select {
	case s.out <- ev:
		b.metrics.RecordFanoutDelivery()
		return true
	case <-s.ctx.Done():
		return false
	}
}
