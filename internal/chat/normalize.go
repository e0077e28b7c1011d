package chat

import (
	"time"

	"github.com/tidwall/gjson"
)

// The backend has shipped several response shapes over time. All tolerance
// for variant field names lives in this file; callers only ever see the
// canonical types.

// NormalizeHistory parses a history response body into messages. The body may
// be a bare array or wrapped in {"messages": [...]}. Entries without a usable
// timestamp are assigned synthetic back-dated timestamps (one second apart,
// ending at now) so relative ordering is preserved.
func NormalizeHistory(body []byte, now time.Time) []Message {
	root := gjson.ParseBytes(body)

	list := root
	if !root.IsArray() {
		list = root.Get("messages")
	}
	if !list.IsArray() {
		return nil
	}

	entries := list.Array()
	messages := make([]Message, 0, len(entries))
	for _, entry := range entries {
		if msg, ok := normalizeMessage(entry); ok {
			messages = append(messages, msg)
		}
	}

	backdate(messages, now)
	return messages
}

// NormalizeReply extracts the assistant message from a send response. The
// assistant content may live under assistant, assistant_message, reply or
// response (checked in that order), each either a bare string or an object
// with content/attachments/matches. Matches may also sit at the top level.
// Returns false if no recognizable assistant content is present.
func NormalizeReply(body []byte, now time.Time) (Message, bool) {
	root := gjson.ParseBytes(body)

	for _, key := range []string{"assistant", "assistant_message", "reply", "response"} {
		field := root.Get(key)
		if !field.Exists() {
			continue
		}

		msg := Message{
			Role:      RoleAssistant,
			Timestamp: now.UnixMilli(),
		}

		if field.Type == gjson.String {
			msg.Content = truncate(field.String())
		} else if field.IsObject() {
			msg.Content = truncate(firstString(field, "content", "text", "message"))
			msg.Attachments = normalizeAttachments(field)
			msg.Matches = normalizeMatches(field.Get("matches"))
		} else {
			continue
		}

		if len(msg.Matches) == 0 {
			msg.Matches = normalizeMatches(root.Get("matches"))
		}

		if msg.Content == "" && len(msg.Attachments) == 0 && len(msg.Matches) == 0 {
			continue
		}
		return msg, true
	}

	return Message{}, false
}

// ExtractSessionID pulls a session id from a session creation response.
func ExtractSessionID(body []byte) string {
	return firstString(gjson.ParseBytes(body), "session_id", "id", "sessionId")
}

// ExtractMediaID pulls a media id from an upload response.
func ExtractMediaID(body []byte) string {
	return firstString(gjson.ParseBytes(body), "media_id", "mediaId", "id")
}

func normalizeMessage(entry gjson.Result) (Message, bool) {
	if !entry.IsObject() {
		return Message{}, false
	}

	role := RoleUser
	switch firstString(entry, "role", "sender") {
	case "assistant", "bot", "ai":
		role = RoleAssistant
	}

	msg := Message{
		ID:          firstString(entry, "id", "message_id", "messageId"),
		Role:        role,
		Content:     truncate(firstString(entry, "content", "text", "message")),
		Timestamp:   parseTimestamp(entry),
		Attachments: normalizeAttachments(entry),
		Matches:     normalizeMatches(entry.Get("matches")),
	}

	if msg.Content == "" && len(msg.Attachments) == 0 && len(msg.Matches) == 0 {
		return Message{}, false
	}
	return msg, true
}

// parseTimestamp accepts epoch millis, epoch seconds or RFC 3339 strings
// under the historical key variants. Returns 0 when nothing is usable.
func parseTimestamp(entry gjson.Result) int64 {
	for _, key := range []string{"timestamp", "created_at", "createdAt", "time"} {
		field := entry.Get(key)
		if !field.Exists() {
			continue
		}

		switch field.Type {
		case gjson.Number:
			n := field.Int()
			if n <= 0 {
				continue
			}
			// Values below ~2001-09 in millis are epoch seconds.
			if n < 1_000_000_000_000 {
				n *= 1000
			}
			return n
		case gjson.String:
			if t, err := time.Parse(time.RFC3339, field.String()); err == nil {
				return t.UnixMilli()
			}
		default:
		}
	}
	return 0
}

// backdate assigns synthetic timestamps to entries lacking one, spaced one
// second apart and ending at now, so relative ordering survives.
func backdate(messages []Message, now time.Time) {
	missing := 0
	for i := range messages {
		if messages[i].Timestamp == 0 {
			missing++
		}
	}
	if missing == 0 {
		return
	}

	synthetic := now.Add(-time.Duration(missing) * time.Second)
	for i := range messages {
		if messages[i].Timestamp == 0 {
			synthetic = synthetic.Add(time.Second)
			messages[i].Timestamp = synthetic.UnixMilli()
		}
	}
}

func normalizeAttachments(entry gjson.Result) []Attachment {
	var list gjson.Result
	for _, key := range []string{"attachments", "images", "media"} {
		if field := entry.Get(key); field.IsArray() {
			list = field
			break
		}
	}
	if !list.IsArray() {
		return nil
	}

	var attachments []Attachment
	for _, item := range list.Array() {
		att := Attachment{}
		if item.Type == gjson.String {
			att.URL = item.String()
		} else if item.IsObject() {
			att.MediaID = firstString(item, "media_id", "mediaId", "id")
			att.URL = firstString(item, "url", "image_url", "imageUrl", "src")
			att.Width = int(item.Get("width").Int())
			att.Height = int(item.Get("height").Int())
			att.Hash = item.Get("hash").String()
			att.ContentType = firstString(item, "content_type", "contentType", "mime_type")
			for _, color := range item.Get("palette").Array() {
				att.Palette = append(att.Palette, color.String())
			}
		}
		if att.URL == "" && att.MediaID == "" {
			continue
		}
		attachments = append(attachments, att)
	}
	return attachments
}

func normalizeMatches(list gjson.Result) []Match {
	if !list.IsArray() {
		return nil
	}

	var matches []Match
	for _, item := range list.Array() {
		if !item.IsObject() {
			continue
		}
		m := Match{
			ItemID:   firstString(item, "item_id", "itemId", "id"),
			Title:    firstString(item, "title", "name"),
			Score:    item.Get("score").Float(),
			ImageURL: firstString(item, "image_url", "imageUrl", "url"),
			Place:    firstString(item, "place", "location"),
		}
		if m.ItemID == "" && m.Title == "" {
			continue
		}
		matches = append(matches, m)
	}
	return matches
}

// firstString returns the first non-empty string value among keys.
func firstString(entry gjson.Result, keys ...string) string {
	for _, key := range keys {
		if v := entry.Get(key); v.Exists() {
			if s := v.String(); s != "" {
				return s
			}
		}
	}
	return ""
}
