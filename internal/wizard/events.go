package wizard

import (
	"sync"
	"time"
)

// Event names published by the controller.
const (
	EventSessionStarted    = "session.started"
	EventStepActivated     = "step.activated"
	EventVariantsGenerated = "variants.generated"
	EventVariantsDiscarded = "variants.discarded"
	EventVariantUploaded   = "variant.uploaded"
	EventStepCompleted     = "step.completed"
	EventSessionPaused     = "session.paused"
	EventSessionResumed    = "session.resumed"
	EventSessionCompleted  = "session.completed"
	EventSessionCancelled  = "session.cancelled"
	EventArtifactDegraded  = "artifact.degraded"
	EventSessionEvicted    = "session.evicted"
)

// Event is one lifecycle or progress notification for a session.
type Event struct {
	SessionID string         `json:"sessionId"`
	Name      string         `json:"name"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Broadcaster fans events out to subscribers through buffered channels.
// Publish never blocks: a subscriber that cannot keep up loses events rather
// than stalling session state transitions. Delivery is at-most-once.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
	buffer int
}

// NewBroadcaster creates a Broadcaster whose subscriber channels hold up to
// buffer events each.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = 64
	}
	return &Broadcaster{
		subs:   make(map[int]chan Event),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber. The returned cancel function removes
// the subscription and closes the channel.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber without blocking. Events for
// saturated subscribers are dropped.
func (b *Broadcaster) Publish(sessionID, name string, payload map[string]any) {
	ev := Event{
		SessionID: sessionID,
		Name:      name,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Drop the event if the subscriber's channel is full.
		}
	}
}

// Close shuts down the broadcaster and closes all subscriber channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
