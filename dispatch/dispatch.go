// Package dispatch implements the Event Dispatcher component (spec.md
// §4.F): it routes a decoded dispatch frame to the built-in state
// handler first, then to every user-registered callback for that event
// name, logging and forwarding unknown event names rather than
// dropping them.
//
// Grounded on the teacher's root manager.go, whose ForwardEvents reads
// off a single eventChannel, checks a configured blacklist, and routes
// through a name-keyed marshaler table (OnEvent) before handing off to
// NATS/STAN publish; this package keeps the same per-session serial
// channel-drain shape but replaces the name-keyed marshaler table with
// a single built-in Apply func plus a user-callback registry, per the
// "callback-by-name" -> "tagged-variant Event" REDESIGN FLAG (spec.md
// §9).
package dispatch

import (
	"github.com/TheRockettek/sandwich-gateway/models"
	"github.com/TheRockettek/sandwich-gateway/state"
	"github.com/rs/zerolog"
)

// BuiltIn mutates Session State Store state for a dispatched Event. It
// is always run before user handlers (spec.md §4.F).
type BuiltIn func(*state.Store, models.Event) error

// Handler is a user-registered callback for one event name.
type Handler func(models.Event)

// Dispatcher routes events serially for one Session, guaranteeing a
// handler never observes event N+1 before returning from event N
// (spec.md §5).
type Dispatcher struct {
	Store   *state.Store
	Log     *zerolog.Logger
	builtin BuiltIn

	handlers map[string][]Handler
	fallback []Handler

	events chan models.Event
	done   chan struct{}
}

// New builds a Dispatcher backed by the given Store, draining events
// off an internal channel on its own goroutine. BuiltIn defaults to
// state.Apply; tests may substitute a no-op to isolate routing from
// state mutation.
func New(store *state.Store, log *zerolog.Logger) *Dispatcher {
	d := &Dispatcher{
		Store:    store,
		Log:      log,
		builtin:  state.Apply,
		handlers: make(map[string][]Handler),
		events:   make(chan models.Event, 256),
		done:     make(chan struct{}),
	}

	go d.run()

	return d
}

// On registers a callback for a specific dispatch event name.
func (d *Dispatcher) On(eventName string, h Handler) {
	d.handlers[eventName] = append(d.handlers[eventName], h)
}

// OnUnhandled registers a fallback callback invoked for any event name
// with no specific registration (spec.md §4.F).
func (d *Dispatcher) OnUnhandled(h Handler) {
	d.fallback = append(d.fallback, h)
}

// Dispatch enqueues an Event for processing. It never blocks the
// caller on handler execution; it blocks only if the internal queue is
// full, applying natural backpressure to a runaway producer.
func (d *Dispatcher) Dispatch(ev models.Event) {
	select {
	case d.events <- ev:
	case <-d.done:
	}
}

// Close stops the dispatcher's processing goroutine. Already-enqueued
// events are not guaranteed to run.
func (d *Dispatcher) Close() {
	close(d.done)
}

func (d *Dispatcher) run() {
	for {
		select {
		case ev := <-d.events:
			d.process(ev)
		case <-d.done:
			return
		}
	}
}

func (d *Dispatcher) process(ev models.Event) {
	if err := d.builtin(d.Store, ev); err != nil {
		d.logEvent().Err(err).Str("type", ev.Type).Msg("built-in handler failed")
	}

	hs, known := d.handlers[ev.Type]
	if !known {
		d.logEvent().Str("type", ev.Type).Msg("no registered handler, forwarding as unhandled")

		for _, h := range d.fallback {
			h(ev)
		}

		return
	}

	for _, h := range hs {
		h(ev)
	}
}

func (d *Dispatcher) logEvent() *zerolog.Event {
	if d.Log == nil {
		nop := zerolog.Nop()
		d.Log = &nop
	}

	return d.Log.Debug()
}
