// Package sink implements SPEC_FULL.md's EVENT-SINK module: optional
// write-behind projection of dispatched events to an external system.
// A Sink never participates in the Session State Store's read path
// (spec.md's in-memory-store mandate is untouched); it only observes
// events after the built-in handlers have already applied them.
//
// Grounded on the teacher's root manager.go ForwardProduce, which
// publishes a StreamEvent per dispatched event over NATS/STAN using
// vmihailenco/msgpack, and marshal.go's per-event Redis projection
// calls.
package sink

import (
	"github.com/TheRockettek/sandwich-gateway/models"
)

// StreamEvent is the wire shape published to a Sink, matching the
// teacher's StreamEvent in events.go.
type StreamEvent struct {
	Type string      `msgpack:"i"`
	Data interface{} `msgpack:"d"`
}

// Sink receives a StreamEvent for every dispatched Event not filtered
// by a caller's ignore list.
type Sink interface {
	Publish(StreamEvent) error
	Close() error
}

// FromEvent builds a StreamEvent from a dispatched Event.
func FromEvent(ev models.Event) StreamEvent {
	return StreamEvent{Type: ev.Type, Data: ev.Data}
}
