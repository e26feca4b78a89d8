package connectivity

import (
	"encoding/json"
	"time"
)

// DefaultMessage is the text of the connectivity issue notification.
const DefaultMessage = "Backend server may be unreachable, please check server status"

// SeverityError is the only severity the monitor emits.
const SeverityError = "error"

// Event is emitted when the backend has not answered a probe for longer than MaxOfflineTime.
type Event struct {
	Message  string
	Severity string
	// Duration is the time since the last successful probe.
	Duration time.Duration
	// LastHealthCheck is when the last successful probe completed.
	LastHealthCheck time.Time
}

type eventJSON struct {
	Message         string    `json:"message"`
	Severity        string    `json:"severity"`
	DurationMs      int64     `json:"duration"`
	LastHealthCheck time.Time `json:"last_health_check"`
}

// MarshalJSON encodes Duration in milliseconds.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventJSON{
		Message:         e.Message,
		Severity:        e.Severity,
		DurationMs:      e.Duration.Milliseconds(),
		LastHealthCheck: e.LastHealthCheck,
	})
}

// Status is a point-in-time snapshot of the monitor's belief.
type Status struct {
	// IsOnline is the environment-reported network presence.
	IsOnline bool `json:"is_online"`
	// IsHealthy is true while the last successful probe is younger than MaxOfflineTime.
	IsHealthy bool `json:"is_healthy"`
	// LastHealthCheck is when the last successful probe completed.
	LastHealthCheck time.Time `json:"last_health_check"`
}
