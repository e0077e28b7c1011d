// Package draft persists unsent input text per session.
package draft

import "context"

// NewSessionKey is the shared slot for drafts typed before a session exists.
const NewSessionKey = "draft:new"

// Key maps a session id to its draft slot. Invalid or absent ids share the
// single "new session" slot.
func Key(sessionID string) string {
	switch sessionID {
	case "", "undefined", "null":
		return NewSessionKey
	}
	return "draft:" + sessionID
}

// Store defines draft persistence. Implementations return errors; Service
// swallows them.
type Store interface {
	// Get returns the stored text for key, or "" when none exists.
	Get(ctx context.Context, key string) (string, error)

	// Set persists text for key immediately. Every keystroke may write.
	Set(ctx context.Context, key, text string) error

	// Delete removes the draft for key.
	Delete(ctx context.Context, key string) error
}
