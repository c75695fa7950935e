package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types delivered to the notifier boundary.
const (
	EventBooked        = "booked"
	EventCancelled     = "cancelled"
	EventStatusChanged = "status_changed"
)

// ConsultationEvent is the payload handed to notification consumers after a
// successful core mutation.
type ConsultationEvent struct {
	ConsultationID int64     `json:"consultation_id"`
	SlotID         int64     `json:"slot_id"`
	PatientID      int64     `json:"patient_id"`
	ConsultantID   int64     `json:"consultant_id"`
	Status         string    `json:"status"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Event is a serialized domain event on the bus.
type Event struct {
	ID        uuid.UUID
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Handler reacts to an event. Errors are swallowed by the bus; delivery is
// best effort by contract.
type Handler func(event *Event) error

// Bus provides in-process pub/sub for notification events.
type Bus struct {
	subscribers map[string][]Handler
	mu          sync.RWMutex
}

func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type synchronously.
func (b *Bus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event. A nil bus is a
// no-op so components can run without notifications wired.
func (b *Bus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{ID: uuid.New(), Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
