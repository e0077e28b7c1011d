// Package panel is the chat surface: it owns the visible transcript, the
// unsent input, the staged attachments, and the send pipeline, and stays
// consistent with the session list surface purely via the session bus.
package panel

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/myretriever/retriever/internal/api"
	"github.com/myretriever/retriever/internal/attach"
	"github.com/myretriever/retriever/internal/chat"
	"github.com/myretriever/retriever/internal/debug"
	"github.com/myretriever/retriever/internal/draft"
	"github.com/myretriever/retriever/internal/events"
	"github.com/myretriever/retriever/internal/history"
	"github.com/myretriever/retriever/internal/pubsub"
	"github.com/myretriever/retriever/internal/ratelimit"
	"github.com/myretriever/retriever/internal/session"
)

// Input and throughput limits.
const (
	MaxInputLength  = 800
	MinSendInterval = 800 * time.Millisecond
)

// Validation rejections. These are no-ops: nothing reaches the network and
// no state changes.
var (
	ErrNothingToSend = errors.New("nothing to send")
	ErrInputTooLong  = errors.New("input exceeds maximum length")
	ErrRateLimited   = errors.New("sending too fast")
	ErrSendInFlight  = errors.New("a send is already in flight")
)

// Backend is the slice of the REST client the panel depends on.
type Backend interface {
	CreateSession(ctx context.Context, userID string) (string, error)
	UploadMedia(ctx context.Context, f attach.File) (string, error)
	Send(ctx context.Context, sessionID, content string, mediaIDs []string) (chat.Message, error)
	History(ctx context.Context, sessionID string, limit int) ([]chat.Message, error)
}

// State names the pipeline phase of an in-flight send.
type State int

// Pipeline states.
const (
	StateIdle State = iota
	StateValidating
	StateEnsuringSession
	StateUploadingAttachments
	StateDispatching
)

// pendingSend is the ephemeral record of an in-flight send, kept for
// rollback on failure.
type pendingSend struct {
	text     string
	files    []attach.File
	draftKey string // session the draft was typed under; "" for a fresh one
}

// Panel is one mounted chat surface.
type Panel struct {
	backend  Backend
	bus      *events.SessionBus
	sessions *session.Service
	drafts   *draft.Service
	loader   *history.Loader
	limiter  *ratelimit.Limiter
	previews *attach.Previews

	ctx         context.Context
	unsubscribe func()
	now         func() time.Time

	mu            sync.Mutex
	userID        string
	input         string
	staged        []attach.File
	messages      []chat.Message
	notice        string
	noticeExpires time.Time
	errMsg        string
	state         State
	sending       bool
}

// New mounts a chat panel on the bus. Call Close to unmount.
func New(ctx context.Context, backend Backend, bus *events.SessionBus, sessions *session.Service, drafts *draft.Service) *Panel {
	p := &Panel{
		backend:  backend,
		bus:      bus,
		sessions: sessions,
		drafts:   drafts,
		loader:   history.NewLoader(backend),
		limiter:  ratelimit.New(),
		previews: attach.NewPreviews(),
		ctx:      ctx,
		now:      time.Now,
	}
	p.unsubscribe = bus.SubscribeFunc(p.onSessionEvent)
	return p
}

// Close unmounts the panel and releases its local previews.
func (p *Panel) Close() {
	if p.unsubscribe != nil {
		p.unsubscribe()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.releaseLocalPreviews(p.messages)
	p.messages = nil
}

// SetIdentity switches the signed-in user (empty for guest), restoring that
// identity's persisted session and draft and resetting the transcript.
func (p *Panel) SetIdentity(userID string) {
	restored := p.sessions.Restore(userID)

	p.mu.Lock()
	p.userID = userID
	p.releaseLocalPreviews(p.messages)
	p.messages = nil
	p.errMsg = ""
	p.staged = nil
	p.input = p.drafts.Get(p.ctx, restored)
	p.mu.Unlock()

	p.loader.Reset()
	if restored != "" {
		p.loadHistory(restored)
	}
}

// SetInput records the unsent input text, truncated to MaxInputLength, and
// persists it as the active session's draft. Every keystroke may land here.
func (p *Panel) SetInput(text string) {
	runes := []rune(text)
	if len(runes) > MaxInputLength {
		text = string(runes[:MaxInputLength])
	}

	p.mu.Lock()
	p.input = text
	p.mu.Unlock()

	p.drafts.Set(p.ctx, p.sessions.ActiveID(), text)
}

// Input returns the current unsent input text.
func (p *Panel) Input() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.input
}

// Attach stages candidate files against the current limits. Rejections are
// aggregated into a transient notice; duplicates are skipped silently.
func (p *Panel) Attach(files []attach.File) attach.Rejections {
	p.mu.Lock()
	defer p.mu.Unlock()

	accepted, rejections := attach.Stage(files, p.staged)
	p.staged = attach.Merge(p.staged, accepted)

	if rejections.Total() > 0 {
		p.notice = rejections.Notice()
		p.noticeExpires = p.now().Add(attach.NoticeDuration)
	}
	return rejections
}

// RemoveAttachment unstages the file at index i.
func (p *Panel) RemoveAttachment(i int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i < 0 || i >= len(p.staged) {
		return
	}
	p.staged = append(p.staged[:i], p.staged[i+1:]...)
}

// Staged returns the staged attachment files.
func (p *Panel) Staged() []attach.File {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]attach.File(nil), p.staged...)
}

// Messages returns the visible transcript.
func (p *Panel) Messages() []chat.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]chat.Message(nil), p.messages...)
}

// Notice returns the transient attachment notice, or "" once it has
// auto-dismissed.
func (p *Panel) Notice() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.notice == "" || p.now().After(p.noticeExpires) {
		return ""
	}
	return p.notice
}

// ErrMessage returns the visible error from the last failed send or history
// load, or "".
func (p *Panel) ErrMessage() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.errMsg
}

// State returns the pipeline phase of the in-flight send, or StateIdle.
func (p *Panel) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// NewConversation clears the active session so the next send starts a fresh
// one. The current input is preserved as the new-session draft.
func (p *Panel) NewConversation() {
	p.mu.Lock()
	input := p.input
	p.releaseLocalPreviews(p.messages)
	p.messages = nil
	p.errMsg = ""
	p.mu.Unlock()

	p.drafts.Set(p.ctx, p.sessions.ActiveID(), input)
	p.sessions.Clear()
	p.loader.Reset()
	p.drafts.Set(p.ctx, "", input)
}

// Send runs the pipeline: validate, optimistically append, ensure a session
// exists, upload attachments sequentially, dispatch, and publish the result.
// Validation rejections return a sentinel error and change nothing. Any later
// failure restores the typed text, resets the rate limiter and surfaces a
// readable error; the optimistic message stays so the user can retry without
// retyping.
func (p *Panel) Send(ctx context.Context) error {
	pending, err := p.begin()
	if err != nil {
		return err
	}

	newlyCreated, err := p.ensureSession(ctx)
	if err != nil {
		p.fail(pending, err)
		return err
	}

	mediaIDs, err := p.uploadAttachments(ctx, pending.files)
	if err != nil {
		p.fail(pending, err)
		return err
	}

	sessionID := p.sessions.ActiveID()
	p.setState(StateDispatching)
	reply, err := p.backend.Send(ctx, sessionID, pending.text, mediaIDs)
	if err != nil {
		p.fail(pending, err)
		return err
	}

	p.settle(reply, mediaIDs)
	p.drafts.Clear(p.ctx, pending.draftKey)
	p.bus.Publish(events.SessionUpdated, events.SessionEvent{
		SessionID:    sessionID,
		NewlyCreated: newlyCreated,
	})
	return nil
}

// begin validates the attempt and, if accepted, performs the synchronous
// optimistic append: the user's message appears and the input and staged
// list clear before any network round trip.
func (p *Panel) begin() (pendingSend, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sending {
		return pendingSend{}, ErrSendInFlight
	}
	p.state = StateValidating

	text := p.input
	trimmed := strings.TrimSpace(text)
	if trimmed == "" && len(p.staged) == 0 {
		p.state = StateIdle
		return pendingSend{}, ErrNothingToSend
	}
	if len([]rune(text)) > MaxInputLength {
		p.state = StateIdle
		return pendingSend{}, ErrInputTooLong
	}

	now := p.now()
	if !p.limiter.TryAcquire(now, MinSendInterval) {
		p.state = StateIdle
		return pendingSend{}, ErrRateLimited
	}

	pending := pendingSend{
		text:     text,
		files:    p.staged,
		draftKey: p.sessions.ActiveID(),
	}

	optimistic := chat.Message{
		ID:        uuid.New().String(),
		Role:      chat.RoleUser,
		Content:   text,
		Timestamp: now.UnixMilli(),
	}
	for _, f := range pending.files {
		optimistic.Attachments = append(optimistic.Attachments, chat.Attachment{
			URL:         p.previews.Create(f),
			Local:       true,
			ContentType: f.ContentType,
		})
	}

	p.messages = append(p.messages, optimistic)
	p.input = ""
	p.staged = nil
	p.errMsg = ""
	p.sending = true

	return pending, nil
}

// ensureSession lazily creates a session on first send and broadcasts its
// adoption so the session list picks it up.
func (p *Panel) ensureSession(ctx context.Context) (bool, error) {
	if p.sessions.HasActive() {
		return false, nil
	}

	p.setState(StateEnsuringSession)
	id, err := p.backend.CreateSession(ctx, p.userID)
	if err != nil {
		return false, err
	}

	p.sessions.Select(id)
	p.sessions.Persist()
	p.bus.Publish(events.SessionCreated, events.SessionEvent{SessionID: id})
	p.bus.Publish(events.SessionSelected, events.SessionEvent{SessionID: id})
	return true, nil
}

// uploadAttachments uploads files one at a time. Serial on purpose: peak
// resource use stays bounded and a partial failure points at one file.
func (p *Panel) uploadAttachments(ctx context.Context, files []attach.File) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}

	p.setState(StateUploadingAttachments)
	mediaIDs := make([]string, 0, len(files))
	for _, f := range files {
		id, err := p.backend.UploadMedia(ctx, f)
		if err != nil {
			return nil, err
		}
		mediaIDs = append(mediaIDs, id)
	}
	return mediaIDs, nil
}

// settle appends the assistant reply and moves the optimistic message's
// attachments off their local previews now that permanent media ids exist.
func (p *Panel) settle(reply chat.Message, mediaIDs []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.messages); n > 0 {
		last := &p.messages[n-1]
		for i := range last.Attachments {
			if !last.Attachments[i].Local {
				continue
			}
			p.previews.Release(last.Attachments[i].URL)
			last.Attachments[i].Local = false
			if i < len(mediaIDs) {
				last.Attachments[i].MediaID = mediaIDs[i]
			}
		}
	}

	p.messages = append(p.messages, reply)
	p.sending = false
	p.state = StateIdle
}

// fail rolls back everything except the optimistic message: the typed text
// returns to the input so the user can retry without retyping, and the rate
// limiter resets so the retry is not made to wait out the window.
func (p *Panel) fail(pending pendingSend, err error) {
	debug.Error("panel", err, "send")

	p.mu.Lock()
	p.input = pending.text
	p.staged = pending.files
	p.errMsg = api.Humanize(err)
	p.sending = false
	p.state = StateIdle
	p.mu.Unlock()

	p.limiter.Reset()
	p.drafts.Set(p.ctx, p.sessions.ActiveID(), pending.text)
}

func (p *Panel) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// onSessionEvent keeps this surface consistent with externally originated
// session changes.
func (p *Panel) onSessionEvent(e pubsub.Event[events.SessionEvent]) {
	switch e.Type {
	case events.SessionSelected, events.SessionCreated:
		p.onExternalSelect(e.Payload.SessionID)
	case events.SessionDeleted:
		p.onExternalDelete(e.Payload.SessionID)
	}
}

// onExternalSelect switches to a session picked on another surface. The same
// session re-selected is a valid idempotent refresh signal; the unsent draft
// is never touched in that case.
func (p *Panel) onExternalSelect(sessionID string) {
	if !session.IsValidID(sessionID) {
		return
	}

	previous := p.sessions.ActiveID()
	if !p.sessions.Select(sessionID) {
		if sessionID != previous {
			return
		}
		// Same session re-selected: refresh the transcript, leave the draft
		// alone. Skipped mid-send so a reload cannot race the optimistic
		// append.
		p.mu.Lock()
		sending := p.sending
		p.mu.Unlock()
		if !sending {
			p.loadHistory(sessionID)
		}
		return
	}
	p.sessions.Persist()
	debug.Event("panel", "select", sessionID)

	p.mu.Lock()
	outgoing := p.input
	p.releaseLocalPreviews(p.messages)
	p.messages = nil
	p.errMsg = ""
	p.input = ""
	p.mu.Unlock()

	p.drafts.Set(p.ctx, previous, outgoing)
	incoming := p.drafts.Get(p.ctx, sessionID)

	p.mu.Lock()
	p.input = incoming
	p.mu.Unlock()

	p.loadHistory(sessionID)
}

// onExternalDelete clears this surface if its active session was deleted
// elsewhere.
func (p *Panel) onExternalDelete(sessionID string) {
	if !p.sessions.Drop(sessionID) {
		return
	}

	p.mu.Lock()
	p.releaseLocalPreviews(p.messages)
	p.messages = nil
	p.errMsg = ""
	p.mu.Unlock()

	p.loader.Reset()
}

// loadHistory fetches the transcript in the background. A newer load or
// session switch supersedes it; aborts are silent.
func (p *Panel) loadHistory(sessionID string) {
	go func() {
		messages, err := p.loader.Load(p.ctx, sessionID)
		if err != nil {
			if api.IsAbort(err) {
				return
			}
			p.mu.Lock()
			p.errMsg = api.Humanize(err)
			p.mu.Unlock()
			return
		}

		p.mu.Lock()
		// Only adopt if the session is still the one on screen.
		if p.sessions.ActiveID() == sessionID {
			p.messages = messages
			p.errMsg = ""
		}
		p.mu.Unlock()
	}()
}

// releaseLocalPreviews revokes the local preview URLs of every message being
// discarded. Callers must hold p.mu.
func (p *Panel) releaseLocalPreviews(messages []chat.Message) {
	for i := range messages {
		for j := range messages[i].Attachments {
			att := &messages[i].Attachments[j]
			if att.Local {
				p.previews.Release(att.URL)
				att.Local = false
			}
		}
	}
}
