package core

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// Event is a notification raised while a run is in progress.
type Event interface {
	Type() string
	Data() any
}

// EventHandler handles events
type EventHandler interface {
	Handle(event Event) error
}

// EventHandlerFunc is a function adapter for EventHandler
type EventHandlerFunc func(event Event) error

// Handle implements EventHandler
func (f EventHandlerFunc) Handle(event Event) error {
	return f(event)
}

// EventBus delivers events to the handlers subscribed to their type.
type EventBus interface {
	// Subscribe registers handler and returns a function removing it.
	Subscribe(eventType string, handler EventHandler) (unsubscribe func())
	Publish(event Event) error
}

// RunEvent is a plain Event.
type RunEvent struct {
	EventType string
	Payload   any
}

func (e RunEvent) Type() string { return e.EventType }

func (e RunEvent) Data() any { return e.Payload }

// NewEvent creates an event of the given type.
func NewEvent(eventType string, data any) RunEvent {
	return RunEvent{EventType: eventType, Payload: data}
}

type subscriber struct {
	handler EventHandler
}

// MemoryEventBus is an EventBus that runs handlers synchronously on the
// publishing goroutine, in subscription order.
type MemoryEventBus struct {
	mu       sync.Mutex
	handlers map[string][]*subscriber
	logger   zerolog.Logger
}

// NewMemoryEventBus creates an empty bus.
func NewMemoryEventBus(logger zerolog.Logger) *MemoryEventBus {
	return &MemoryEventBus{handlers: map[string][]*subscriber{}, logger: logger}
}

// Subscribe implements EventBus.
func (bus *MemoryEventBus) Subscribe(eventType string, handler EventHandler) func() {
	s := &subscriber{handler: handler}
	bus.mu.Lock()
	bus.handlers[eventType] = append(bus.handlers[eventType], s)
	bus.mu.Unlock()
	bus.logger.Trace().Str("event_type", eventType).Msg("subscribed")

	return func() {
		bus.mu.Lock()
		defer bus.mu.Unlock()
		list := bus.handlers[eventType]
		for i, other := range list {
			if other == s {
				bus.handlers[eventType] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Publish runs every handler of the event's type, even after one fails,
// and returns their errors joined.
func (bus *MemoryEventBus) Publish(event Event) error {
	bus.mu.Lock()
	subs := append([]*subscriber(nil), bus.handlers[event.Type()]...)
	bus.mu.Unlock()

	var errs []error
	for _, s := range subs {
		if err := s.handler.Handle(event); err != nil {
			bus.logger.Warn().Str("event_type", event.Type()).Err(err).Msg("event handler failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
