package entity

import "time"

// OutboxRecord represents a domain event stored for publication after commit.
type OutboxRecord struct {
	ID         int64      `json:"id"`
	EventID    string     `json:"event_id"`
	StreamType string     `json:"stream_type"`
	StreamID   string     `json:"stream_id"`
	EventType  string     `json:"event_type"`
	Payload    []byte     `json:"payload"`
	CreatedAt  time.Time  `json:"created_at"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
}

// Event represents a domain event.
type Event interface {
	EventType() string
	StreamType() string
	StreamID() string
}

// Aggregate represents a domain aggregate root.
type Aggregate interface {
	GetAggregateID() int64
	GetVersion() int64
	PullEvents() []Event
}

// AggregateBase provides identity, the optimistic concurrency token and the list of
// events raised since the aggregate was loaded.
type AggregateBase struct {
	ID      int64
	Version int64

	changes []Event
}

func (a *AggregateBase) GetAggregateID() int64 {
	return a.ID
}

func (a *AggregateBase) GetVersion() int64 {
	return a.Version
}

func (a *AggregateBase) record(e Event) {
	a.changes = append(a.changes, e)
}

// PullEvents returns the uncommitted events and clears them.
func (a *AggregateBase) PullEvents() []Event {
	out := a.changes
	a.changes = nil
	return out
}
