package messaging

import (
	"context"
	"encoding/json"
	"time"
)

// Publisher defines an interface for publishing events to a message broker.
// Implementations encode event as JSON and use key for partitioning.
type Publisher interface {
	PublishEvent(ctx context.Context, topic string, key string, event any) error
}

// Envelope is the wire form of a stored domain event. Consumers deduplicate on
// EventID since delivery is at-least-once.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	StreamType string          `json:"stream_type"`
	StreamID   string          `json:"stream_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Header names set by the broker publishers.
const (
	HeaderEventID     = "event_id"
	HeaderEventType   = "event_type"
	HeaderContentType = "content-type"
)

// Discard drops every event. It is used when no broker is configured.
type Discard struct{}

func (Discard) PublishEvent(context.Context, string, string, any) error { return nil }

// Metadata returns the headers a publisher attaches for event.
func Metadata(event any) map[string]string {
	md := map[string]string{HeaderContentType: "application/json"}
	var env *Envelope
	switch e := event.(type) {
	case Envelope:
		env = &e
	case *Envelope:
		env = e
	}
	if env != nil {
		md[HeaderEventID] = env.EventID
		md[HeaderEventType] = env.EventType
	}
	return md
}
