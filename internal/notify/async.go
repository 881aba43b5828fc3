package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/heartmarshall/inquiry-backend/internal/domain"
)

// Async delivers events on background goroutines. Notify never blocks: when
// all slots are busy the event is left for the outbox relay.
type Async struct {
	next    Notifier
	slots   chan struct{}
	timeout time.Duration
	log     *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewAsync wraps next with at most concurrency in-flight deliveries, each
// bounded by timeout.
func NewAsync(log *slog.Logger, next Notifier, concurrency int, timeout time.Duration) *Async {
	if concurrency <= 0 {
		concurrency = 8
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Async{
		next:    next,
		slots:   make(chan struct{}, concurrency),
		timeout: timeout,
		log:     log.With("component", "notify_async"),
	}
}

// Notify schedules delivery and returns immediately. It always returns nil.
func (a *Async) Notify(ctx context.Context, e domain.Event) error {
	select {
	case a.slots <- struct{}{}:
	default:
		a.log.WarnContext(ctx, "notifier saturated, event deferred to relay",
			slog.String("event_id", e.ID.String()), slog.String("type", string(e.Type)))
		return nil
	}

	// Add must not race with Wait draining the group.
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		<-a.slots
		a.log.WarnContext(ctx, "notifier closed, event deferred to relay",
			slog.String("event_id", e.ID.String()), slog.String("type", string(e.Type)))
		return nil
	}
	a.wg.Add(1)
	a.mu.Unlock()

	// The request context ends with the response, delivery must outlive it.
	bg := context.WithoutCancel(ctx)

	go func() {
		defer a.wg.Done()
		defer func() { <-a.slots }()
		defer func() {
			if r := recover(); r != nil {
				a.log.Error("notifier panicked", slog.Any("panic", r), slog.String("event_id", e.ID.String()))
			}
		}()

		dctx, cancel := context.WithTimeout(bg, a.timeout)
		defer cancel()

		if err := a.next.Notify(dctx, e); err != nil {
			a.log.WarnContext(dctx, "event delivery failed",
				slog.String("event_id", e.ID.String()),
				slog.String("type", string(e.Type)),
				slog.String("error", err.Error()))
		}
	}()
	return nil
}

// Wait stops accepting events and blocks until in-flight deliveries finish
// or ctx is done. Events notified afterwards are left for the relay.
func (a *Async) Wait(ctx context.Context) error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
