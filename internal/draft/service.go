package draft

import "context"

// Service is the error-swallowing front for draft persistence. Draft loss is
// acceptable and must never block sending, so storage failures degrade to
// empty reads and dropped writes.
type Service struct {
	store Store
}

// NewService creates a draft service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Get returns the draft for a session, or "" on any failure.
func (s *Service) Get(ctx context.Context, sessionID string) string {
	text, err := s.store.Get(ctx, Key(sessionID))
	if err != nil {
		return ""
	}
	return text
}

// Set persists the draft for a session, fire-and-forget.
func (s *Service) Set(ctx context.Context, sessionID, text string) {
	_ = s.store.Set(ctx, Key(sessionID), text)
}

// Clear removes the draft for a session, fire-and-forget.
func (s *Service) Clear(ctx context.Context, sessionID string) {
	_ = s.store.Delete(ctx, Key(sessionID))
}
