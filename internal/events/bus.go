// Package events carries trial progress notifications from the scheduler to
// external subscribers. Dispatch is synchronous and runs on the publishing
// goroutine: a subscriber may react to an event by cancelling the run, and
// the scheduler is guaranteed to observe that cancellation at its next
// context check.
package events

import "sync"

// Type names a trial lifecycle transition.
type Type string

const (
	// TrialRunning is emitted before a trial is dispatched to the runner.
	TrialRunning Type = "trial_running"
	// TrialCompleted is emitted after a trial runs to completion.
	TrialCompleted Type = "trial_completed"
)

// Event is one trial progress notification.
type Event struct {
	Type    Type
	TrialID int
	Message string
}

// Handler receives events. Handlers run synchronously on the scheduler
// goroutine and must not block for long.
type Handler func(Event)

// Bus fans events out to subscribers. Subscribing is safe from any
// goroutine; publishing happens from the scheduler loop only.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for all subsequent events.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers the event to every subscriber, in subscription order,
// before returning.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}
