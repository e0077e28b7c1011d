package session

import "sync"

// Service tracks the active session for one UI surface and its persisted
// mapping to the signed-in identity (or guest).
//
// Storage failures never escape this type; they degrade to "not persisted".
type Service struct {
	prefs    *Prefs
	identity string
	active   string
	mu       sync.RWMutex
}

// NewService creates a session service backed by prefs. The service starts
// with the guest identity and no active session; call Restore to adopt an
// identity.
func NewService(prefs *Prefs) *Service {
	return &Service{prefs: prefs, identity: GuestIdentity}
}

// Restore switches to a new identity and returns the session id to resume,
// or "" for a fresh conversation. Guests resume their single prior session;
// signed-in users always start fresh (their mapping is still persisted for
// the session list surface). Callers must reset message and draft state on
// every identity change.
func (s *Service) Restore(userID string) string {
	identity := Identity(userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity = identity
	s.active = ""

	if identity == GuestIdentity {
		if id := s.prefs.SessionID(identity); id != "" {
			s.active = id
		}
	}
	return s.active
}

// Identity returns the current persistence identity.
func (s *Service) Identity() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// ActiveID returns the active session id, or "" when no session exists yet.
func (s *Service) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// HasActive reports whether a valid session is active.
func (s *Service) HasActive() bool {
	return IsValidID(s.ActiveID())
}

// Select adopts sessionID as the active session. Returns false when the id is
// already active: callers must treat that as an idempotent same-session
// refresh signal, not an error, and must not touch the unsent draft.
func (s *Service) Select(sessionID string) bool {
	if !IsValidID(sessionID) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == sessionID {
		return false
	}
	s.active = sessionID
	return true
}

// Drop clears the active session if it matches sessionID, returning whether
// it did. Used when another surface deletes a session.
func (s *Service) Drop(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != sessionID {
		return false
	}
	s.active = ""
	_ = s.prefs.ClearSessionID(s.identity)
	return true
}

// Clear resets the active session without touching persistence, for an
// explicit "new conversation" action.
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = ""
}

// Persist writes the active session mapping for the current identity.
// Failures are swallowed; draft-grade data loss is acceptable here.
func (s *Service) Persist() {
	s.mu.RLock()
	identity, active := s.identity, s.active
	s.mu.RUnlock()

	if !IsValidID(active) {
		return
	}
	_ = s.prefs.SetSessionID(identity, active)
}
