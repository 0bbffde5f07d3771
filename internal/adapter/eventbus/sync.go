// Package eventbus provides implementations of the EventBus interface.
package eventbus

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"github.com/tejashwikalptaru/tunequeue/internal/domain"
	"github.com/tejashwikalptaru/tunequeue/internal/ports"
)

// ErrBusClosed is returned by Close on a bus that is already closed.
var ErrBusClosed = errors.New("event bus already closed")

// wildcard marks subscriptions that receive every event type.
const wildcard domain.EventType = "*"

// SyncEventBus delivers events synchronously on the publishing goroutine.
// Handlers run in subscription order; type-specific handlers run before
// wildcard handlers.
//
// Thread-safety: This implementation is thread-safe. Publishing never holds
// the lock while a handler runs, so handlers may subscribe or unsubscribe.
type SyncEventBus struct {
	logger *slog.Logger

	subs   []subscription
	nextID uint64
	closed bool
	mu     sync.RWMutex
}

type subscription struct {
	id        domain.SubscriptionID
	eventType domain.EventType
	handler   domain.EventHandler
}

// NewSyncEventBus creates a new synchronous event bus.
func NewSyncEventBus() *SyncEventBus {
	return &SyncEventBus{}
}

// SetLogger sets the logger for this event bus.
// This should be called after construction before using the event bus.
func (bus *SyncEventBus) SetLogger(logger *slog.Logger) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.logger = logger
}

// Publish delivers event to matching handlers. It is a no-op on a closed bus
// or for a nil event. A panicking handler is logged and skipped.
func (bus *SyncEventBus) Publish(event domain.Event) {
	if event == nil {
		return
	}

	bus.mu.RLock()
	if bus.closed {
		bus.mu.RUnlock()
		return
	}
	eventType := event.Type()
	typed := lo.Filter(bus.subs, func(s subscription, _ int) bool { return s.eventType == eventType })
	all := lo.Filter(bus.subs, func(s subscription, _ int) bool { return s.eventType == wildcard })
	logger := bus.logger
	bus.mu.RUnlock()

	for _, sub := range append(typed, all...) {
		bus.deliver(logger, sub, event)
	}
}

func (bus *SyncEventBus) deliver(logger *slog.Logger, sub subscription, event domain.Event) {
	defer func() {
		if r := recover(); r != nil && logger != nil {
			logger.Error("event handler panicked",
				slog.Any("panic", r),
				slog.String("event_type", string(event.Type())),
				slog.String("subscription", string(sub.id)))
		}
	}()

	sub.handler(event)
}

// Subscribe registers a handler for one event type.
// It panics on a nil handler or a closed bus, both of which are programming errors.
func (bus *SyncEventBus) Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID {
	return bus.add(eventType, handler, "sub")
}

// SubscribeAll registers a handler for every event type.
func (bus *SyncEventBus) SubscribeAll(handler domain.EventHandler) domain.SubscriptionID {
	return bus.add(wildcard, handler, "sub-all")
}

func (bus *SyncEventBus) add(eventType domain.EventType, handler domain.EventHandler, prefix string) domain.SubscriptionID {
	if handler == nil {
		panic("event handler cannot be nil")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		panic("cannot subscribe to closed event bus")
	}

	bus.nextID++
	id := domain.SubscriptionID(fmt.Sprintf("%s-%d", prefix, bus.nextID))
	bus.subs = append(bus.subs, subscription{id: id, eventType: eventType, handler: handler})
	return id
}

// Unsubscribe removes a subscription, keeping the order of the others.
// Unknown IDs are ignored.
func (bus *SyncEventBus) Unsubscribe(id domain.SubscriptionID) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	bus.subs = lo.Reject(bus.subs, func(s subscription, _ int) bool { return s.id == id })
}

// HasSubscribers reports whether an event of this type would reach any handler.
func (bus *SyncEventBus) HasSubscribers(eventType domain.EventType) bool {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	return lo.ContainsBy(bus.subs, func(s subscription) bool {
		return s.eventType == eventType || s.eventType == wildcard
	})
}

// Close drops every subscription. Later publishes are ignored.
func (bus *SyncEventBus) Close() error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		return ErrBusClosed
	}
	bus.closed = true
	bus.subs = nil
	return nil
}

// SubscriberCount returns the number of active subscriptions.
func (bus *SyncEventBus) SubscriberCount() int {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	return len(bus.subs)
}

// Verify that SyncEventBus implements the EventBus interface
var _ ports.EventBus = (*SyncEventBus)(nil)
