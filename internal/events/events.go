// Package events carries the fleet core's outbound event surface: the event
// names consumed by the notification collaborator, the NATS transport, the
// retrying notifier, and the websocket hub for live monitors.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Event names consumed by the external notification collaborator.
type Event string

const (
	LocationUpdated   Event = "location-updated"
	BusArrivedAtStop  Event = "bus-arrived-at-stop"
	StudentCheckedIn  Event = "student-checked-in"
	StudentCheckedOut Event = "student-checked-out"
	IncidentCreated   Event = "incident-created"
	IncidentAssigned  Event = "incident-assigned"
	IncidentResolved  Event = "incident-resolved"
	EmergencyAlert    Event = "emergency-alert"
)

// Envelope wraps every outbound payload with identity and timing so the
// notification side can dedupe and order.
type Envelope struct {
	ID        string      `json:"id"`
	Event     Event       `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

func newEnvelope(ev Event, payload interface{}) Envelope {
	return Envelope{
		ID:        uuid.NewString(),
		Event:     ev,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// Publisher is the transport behind the notifier.
type Publisher interface {
	Publish(ev Event, env Envelope) error
	Close()
}
