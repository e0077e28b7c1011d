// Package sessionlist is the session list surface: it renders the signed-in
// user's sessions and stays consistent with the chat panel purely via the
// session bus.
package sessionlist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/myretriever/retriever/internal/api"
	"github.com/myretriever/retriever/internal/chat"
	"github.com/myretriever/retriever/internal/debug"
	"github.com/myretriever/retriever/internal/events"
	"github.com/myretriever/retriever/internal/pubsub"
	"github.com/myretriever/retriever/internal/session"
)

// Backend is the slice of the REST client the list depends on.
type Backend interface {
	ListSessions(ctx context.Context, userID string) ([]chat.SessionItem, error)
	RenameSession(ctx context.Context, sessionID, title string) error
	DeleteSession(ctx context.Context, sessionID string) error
}

// List is one mounted session list surface.
type List struct {
	backend Backend
	bus     *events.SessionBus

	ctx         context.Context
	unsubscribe func()

	mu       sync.Mutex
	userID   string
	items    []chat.SessionItem
	selected string
	errMsg   string
}

// New mounts a session list on the bus. Call Close to unmount.
func New(ctx context.Context, backend Backend, bus *events.SessionBus) *List {
	l := &List{
		backend: backend,
		bus:     bus,
		ctx:     ctx,
	}
	l.unsubscribe = bus.SubscribeFunc(l.onSessionEvent)
	return l
}

// Close unmounts the list.
func (l *List) Close() {
	if l.unsubscribe != nil {
		l.unsubscribe()
	}
}

// SetIdentity switches the signed-in user and refetches. Guests have no
// server-side list; theirs renders empty without a network round trip.
func (l *List) SetIdentity(userID string) {
	l.mu.Lock()
	l.userID = userID
	l.items = nil
	l.selected = ""
	l.errMsg = ""
	l.mu.Unlock()

	if userID != "" {
		l.refresh()
	}
}

// Refresh refetches the session list for the current identity.
func (l *List) Refresh() {
	l.mu.Lock()
	userID := l.userID
	l.mu.Unlock()

	if userID == "" {
		return
	}
	l.refresh()
}

func (l *List) refresh() {
	l.mu.Lock()
	userID := l.userID
	l.mu.Unlock()

	items, err := l.backend.ListSessions(l.ctx, userID)
	if err != nil {
		if api.IsAbort(err) {
			return
		}
		debug.Error("sessionlist", err, "refresh")
		l.mu.Lock()
		l.errMsg = api.Humanize(err)
		l.mu.Unlock()
		return
	}

	l.mu.Lock()
	l.items = items
	l.errMsg = ""
	l.mu.Unlock()
}

// Items returns the rendered sessions, most recently touched first.
func (l *List) Items() []chat.SessionItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]chat.SessionItem(nil), l.items...)
}

// Selected returns the highlighted session id.
func (l *List) Selected() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.selected
}

// ErrMessage returns the visible error from the last failed operation, or "".
func (l *List) ErrMessage() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.errMsg
}

// Select broadcasts the user picking a session. The chat panel reacts over
// the bus; this surface only moves its highlight.
func (l *List) Select(sessionID string) {
	if !session.IsValidID(sessionID) {
		return
	}
	l.bus.Publish(events.SessionSelected, events.SessionEvent{SessionID: sessionID})
}

// Rename retitles a session on the server, then broadcasts the change.
func (l *List) Rename(ctx context.Context, sessionID, title string) error {
	if err := l.backend.RenameSession(ctx, sessionID, title); err != nil {
		l.mu.Lock()
		l.errMsg = api.Humanize(err)
		l.mu.Unlock()
		return err
	}

	l.mu.Lock()
	for i := range l.items {
		if l.items[i].ID == sessionID {
			l.items[i].Title = title
			break
		}
	}
	l.errMsg = ""
	l.mu.Unlock()

	l.bus.Publish(events.SessionUpdated, events.SessionEvent{SessionID: sessionID})
	return nil
}

// Delete removes a session on the server, then broadcasts the deletion so
// the chat panel can clear itself if it was showing it.
func (l *List) Delete(ctx context.Context, sessionID string) error {
	if err := l.backend.DeleteSession(ctx, sessionID); err != nil {
		l.mu.Lock()
		l.errMsg = api.Humanize(err)
		l.mu.Unlock()
		return err
	}

	l.removeLocally(sessionID)
	l.bus.Publish(events.SessionDeleted, events.SessionEvent{SessionID: sessionID})
	return nil
}

// onSessionEvent keeps this surface consistent with changes originating on
// other surfaces, including sessions the chat panel created lazily.
func (l *List) onSessionEvent(e pubsub.Event[events.SessionEvent]) {
	switch e.Type {
	case events.SessionSelected:
		l.mu.Lock()
		l.selected = e.Payload.SessionID
		l.mu.Unlock()

	case events.SessionCreated:
		go l.Refresh()

	case events.SessionUpdated:
		// A send touched the session: its title or ordering may have changed,
		// and a newly created one is not in the list at all yet.
		go l.Refresh()

	case events.SessionDeleted:
		l.removeLocally(e.Payload.SessionID)
	}
}

func (l *List) removeLocally(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.items {
		if l.items[i].ID == sessionID {
			l.items = append(l.items[:i], l.items[i+1:]...)
			break
		}
	}
	if l.selected == sessionID {
		l.selected = ""
	}
}

// FormatRelative renders a session timestamp the way the list displays it.
func FormatRelative(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "방금 전"
	case d < time.Hour:
		return fmt.Sprintf("%d분 전", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d시간 전", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%d일 전", int(d.Hours()/24))
	default:
		return t.Format("2006.01.02")
	}
}
