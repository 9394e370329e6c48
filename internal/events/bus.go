// Package events provides the publish/subscribe bus for pipeline
// observability. Components publish structured events; subscribers
// (WebSocket stream, MQTT analytics sink) consume them. Payloads never
// carry raw user text — only length and category metadata — so nothing
// sensitive can leak through an analytics path. The bus is nil-safe:
// Publish on a nil *Bus is a no-op, so components skip guard checks.
package events

import (
	"sync"
	"time"
)

// Source constants identify the publishing component.
const (
	// SourcePipeline identifies events from the turn pipeline.
	SourcePipeline = "pipeline"
	// SourceClassifier identifies events from the intent classifier.
	SourceClassifier = "classifier"
	// SourceWeb identifies events from the HTTP surface.
	SourceWeb = "web"
)

// Kind constants describe the event type within a source.
const (
	// KindInputReceived signals a user turn arrived.
	// Data: request_id, input_len, session_active.
	KindInputReceived = "input_received"
	// KindIntentClassified signals a classification completed.
	// Data: request_id, intent_type, confidence, outcome, latency_ms, ok.
	KindIntentClassified = "intent_classified"
	// KindRouteExecuted signals a high-confidence route dispatched.
	// Data: request_id, module, screen.
	KindRouteExecuted = "route_executed"
	// KindClarificationRequested signals the user was asked to
	// disambiguate. Data: request_id, suggestions.
	KindClarificationRequested = "clarification_requested"
	// KindSuggestionSelected signals the user picked a clarification
	// suggestion. Data: request_id, intent_type.
	KindSuggestionSelected = "suggestion_selected"
	// KindErrorOccurred signals a user-visible error.
	// Data: request_id, category, recoverable.
	KindErrorOccurred = "error_occurred"
)

// Event is a single operational event.
type Event struct {
	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"ts"`
	// Source identifies the component that published the event.
	Source string `json:"source"`
	// Kind describes the type of event within the source.
	Kind string `json:"kind"`
	// Data holds event-specific key/value pairs. Never raw user text.
	Data map[string]any `json:"data,omitempty"`
}

// Bus is a non-blocking broadcast bus. Subscribers receive events on
// buffered channels; a slow subscriber misses events rather than
// blocking publishers.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
	// recvToSend maps the receive-only channel handed to subscribers
	// back to the bidirectional channel in subs, letting Unsubscribe
	// accept the caller's view of the channel.
	recvToSend map[<-chan Event]chan Event
}

// New creates an event bus ready for use.
func New() *Bus {
	return &Bus{
		subs:       make(map[chan Event]struct{}),
		recvToSend: make(map[<-chan Event]chan Event),
	}
}

// Publish stamps and delivers an event to all subscribers, dropping it
// for any subscriber whose buffer is full. Safe on a nil receiver.
func (b *Bus) Publish(source, kind string, data map[string]any) {
	if b == nil {
		return
	}
	e := Event{Timestamp: time.Now(), Source: source, Kind: kind, Data: data}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe returns a channel receiving published events. Callers must
// Unsubscribe when done. bufSize controls the channel buffer; 64 suits
// WebSocket and MQTT consumers.
func (b *Bus) Subscribe(bufSize int) <-chan Event {
	ch := make(chan Event, bufSize)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[ch] = struct{}{}
	b.recvToSend[ch] = ch
	return ch
}

// Unsubscribe removes a subscription and closes its channel. Calling it
// twice for the same channel is a no-op.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sendCh, ok := b.recvToSend[ch]
	if !ok {
		return
	}
	delete(b.subs, sendCh)
	delete(b.recvToSend, ch)
	close(sendCh)
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
