// Package history fetches and exposes a session's message history, with at
// most one in-flight fetch per loader.
package history

import (
	"context"
	"sync"

	"github.com/myretriever/retriever/internal/api"
	"github.com/myretriever/retriever/internal/chat"
	"github.com/myretriever/retriever/internal/session"
)

// DefaultLimit is the page size requested from the backend.
const DefaultLimit = 50

// Fetcher is the backend call the loader depends on.
type Fetcher interface {
	History(ctx context.Context, sessionID string, limit int) ([]chat.Message, error)
}

// Loader issues history fetches for one surface. A new Load cancels any
// previous in-flight fetch, and a superseded fetch can never overwrite the
// visible state, no matter how late it resolves.
type Loader struct {
	fetcher Fetcher
	limit   int

	mu         sync.Mutex
	cancel     context.CancelFunc
	generation uint64

	// Visible state of the last settled, non-superseded load.
	sessionID string
	messages  []chat.Message
	err       error
}

// NewLoader creates a loader with the default page size.
func NewLoader(fetcher Fetcher) *Loader {
	return &Loader{fetcher: fetcher, limit: DefaultLimit}
}

// Load fetches sessionID's history. Invalid ids are a no-op. Returns the
// fetched messages; an abort (superseded load) returns an error for which
// api.IsAbort is true and leaves no trace in the visible state.
func (l *Loader) Load(ctx context.Context, sessionID string) ([]chat.Message, error) {
	if !session.IsValidID(sessionID) {
		return nil, nil
	}

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	loadCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.generation++
	gen := l.generation
	l.mu.Unlock()

	messages, err := l.fetcher.History(loadCtx, sessionID, l.limit)
	cancel()

	l.mu.Lock()
	defer l.mu.Unlock()

	if gen != l.generation {
		// Superseded while in flight; the newer load owns the state.
		return nil, context.Canceled
	}

	if err != nil {
		if api.IsAbort(err) {
			return nil, err
		}
		l.err = err
		return nil, err
	}

	l.sessionID = sessionID
	l.messages = messages
	l.err = nil
	return messages, nil
}

// Reset clears the visible state, for session switches and deletions.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.generation++
	l.sessionID = ""
	l.messages = nil
	l.err = nil
}

// Messages returns the visible message list.
func (l *Loader) Messages() []chat.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.messages
}

// SessionID returns the session the visible messages belong to.
func (l *Loader) SessionID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sessionID
}

// Err returns the visible load error, nil after a success or abort.
func (l *Loader) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}
