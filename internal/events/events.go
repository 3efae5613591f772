// internal/events/events.go
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Topic names for every domain event the engine produces. Payloads carry
// identifiers only; consumers re-fetch full state themselves.
const (
	TopicOrderCreated        = "order.created"
	TopicOrderStatusChanged  = "order.status_changed"
	TopicOrderCompleted      = "order.completed"
	TopicItemStatusChanged   = "order.item_status_changed"
	TopicTaskAssigned        = "task.assigned"
	TopicTaskStatusChanged   = "task.status_changed"
	TopicReturnCreated       = "return.created"
	TopicReturnStatusChanged = "return.status_changed"
	TopicMissingAssignments  = "order.missing_assignments"
)

// Event is one domain event handed to the fanout sink
type Event struct {
	ID         string    `json:"id"`
	Topic      string    `json:"topic"`
	OrderID    uint      `json:"order_id,omitempty"`
	ItemID     uint      `json:"item_id,omitempty"`
	ItemIDs    []uint    `json:"item_ids,omitempty"`
	ReturnID   uint      `json:"return_id,omitempty"`
	BranchID   uint      `json:"branch_id,omitempty"`
	ActorID    uint      `json:"actor_id,omitempty"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// New builds an event with a fresh ID and timestamp
func New(topic string) Event {
	return Event{
		ID:         uuid.NewString(),
		Topic:      topic,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher is the fanout sink contract. Publishing is fire-and-forget:
// implementations must not cause the committed domain transaction to fail.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Recorder collects published events in memory. Test double.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty Recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish appends the event to the recorder
func (r *Recorder) Publish(_ context.Context, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of everything published so far
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// ByTopic returns recorded events matching the topic
func (r *Recorder) ByTopic(topic string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}

// Reset drops all recorded events
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
