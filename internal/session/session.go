// Package session owns the active conversation identity: which session a
// surface is looking at, and the persisted mapping from a signed-in user (or
// guest) to their session.
package session

import "time"

// GuestIdentity is the identity used when no user is signed in.
const GuestIdentity = "guest"

// Session is a server-tracked conversation identity.
type Session struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsValidID reports whether id is usable as a session identifier. Malformed
// persisted or server-returned values sometimes carry the literal strings
// "undefined" or "null"; those are treated as no session.
func IsValidID(id string) bool {
	switch id {
	case "", "undefined", "null":
		return false
	}
	return true
}

// Identity normalizes a user id to a persistence identity: empty means guest.
func Identity(userID string) string {
	if userID == "" {
		return GuestIdentity
	}
	return userID
}
