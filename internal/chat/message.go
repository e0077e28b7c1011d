// Package chat provides the canonical chat message model and the
// normalization of the backend's historical response shapes into it.
package chat

import "time"

// Role identifies a message sender.
type Role string

// Role constants.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MaxContentLength is the display cap for a single message body. Longer
// bodies are truncated with TruncationMarker appended.
const MaxContentLength = 4000

// TruncationMarker is appended to truncated message bodies.
const TruncationMarker = "… [내용 생략]"

// Attachment is an image attached to a message. URL is either a transient
// local preview or a permanent server URL; Local marks the revocable case.
type Attachment struct {
	MediaID     string
	URL         string
	Local       bool
	Width       int
	Height      int
	Hash        string
	Palette     []string
	ContentType string
}

// Match is one ranked candidate item returned by the lost-item matching step.
// Assistant messages only.
type Match struct {
	ItemID   string
	Title    string
	Score    float64
	ImageURL string
	Place    string
}

// Message is a single chat message. Immutable once rendered, except for the
// local-preview to permanent-URL transition on attachments.
type Message struct {
	ID          string
	Role        Role
	Content     string
	Timestamp   int64 // epoch millis
	Attachments []Attachment
	Matches     []Match
}

// Time returns the message timestamp as a time.Time.
func (m *Message) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// truncate caps content at MaxContentLength runes, marking the cut.
func truncate(content string) string {
	runes := []rune(content)
	if len(runes) <= MaxContentLength {
		return content
	}
	return string(runes[:MaxContentLength]) + TruncationMarker
}
