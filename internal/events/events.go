package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventAppointmentBooked  = "appointment_booked"
	EventAppointmentCreated = "appointment_created"
	EventBookingConflict    = "booking_conflict"
	EventWorkerCreated      = "worker_created"
	EventWorkerUpdated      = "worker_updated"
	EventWorkerDeleted      = "worker_deleted"
	EventScheduleSaved      = "schedule_saved"
	EventServiceSaved       = "service_saved"
	EventServiceDeleted     = "service_deleted"
	EventOffDayCreated      = "offday_created"
	EventOffDayDeleted      = "offday_deleted"
	EventUserUpdated        = "user_updated"
	EventSessionStarted     = "session_started"
	EventSessionEnded       = "session_ended"
)

// ChangeEventPayload identifies what a successful mutation touched.
type ChangeEventPayload struct {
	WorkerID  int64  `json:"worker_id,omitempty"`
	SalonID   int64  `json:"salon_id,omitempty"`
	Date      string `json:"date,omitempty"`
	ServiceID int64  `json:"service_id,omitempty"`
	EntityID  int64  `json:"entity_id,omitempty"`
	UserID    int64  `json:"user_id,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the payload into a change payload.
func (e *Event) Decode() (ChangeEventPayload, error) {
	var p ChangeEventPayload
	if len(e.Payload) == 0 {
		return p, nil
	}
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for the given event types.
func (b *EventBus) Subscribe(handler EventHandler, eventTypes ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range eventTypes {
		b.subscribers[t] = append(b.subscribers[t], handler)
	}
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
