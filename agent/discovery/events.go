package discovery

import "time"

// EventType classifies a registry change.
type EventType string

const (
	// EventRegistered is emitted after a card is stored or overwritten.
	EventRegistered EventType = "registered"
	// EventUnregistered is emitted after a card is removed.
	EventUnregistered EventType = "unregistered"
)

// Event is one registry change notification.
type Event struct {
	Type      EventType `json:"type"`
	URL       string    `json:"url"`
	Agent     string    `json:"agent"`
	Skills    []string  `json:"skills,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventHandler consumes registry events. Each delivery runs on its own
// goroutine, so a slow handler never blocks register/unregister; no
// ordering is guaranteed across events.
type EventHandler func(*Event)
