// Package events defines the event payloads broadcast between UI surfaces.
package events

import "github.com/myretriever/retriever/internal/pubsub"

// Session event types carried on the session broker. These are the only
// notifications the session list and chat panel exchange; neither surface
// ever calls into the other directly.
const (
	SessionSelected pubsub.EventType = "session-selected"
	SessionCreated  pubsub.EventType = "session-created"
	SessionUpdated  pubsub.EventType = "session-updated"
	SessionDeleted  pubsub.EventType = "session-deleted"
)

// SessionEvent is the payload for every session lifecycle notification.
type SessionEvent struct {
	SessionID string

	// NewlyCreated is set on session-updated when the send that produced the
	// update also created the session.
	NewlyCreated bool
}

// SessionBus is the broadcast channel for session lifecycle events.
type SessionBus = pubsub.Broker[SessionEvent]

// NewSessionBus creates the session event broker.
func NewSessionBus() *SessionBus {
	return pubsub.NewBroker[SessionEvent]("session")
}
