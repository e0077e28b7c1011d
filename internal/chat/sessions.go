package chat

import (
	"sort"
	"time"

	"github.com/tidwall/gjson"
)

// SessionItem is one row of the session list surface.
type SessionItem struct {
	ID        string
	Title     string
	CreatedAt int64 // epoch millis, 0 when unknown
	UpdatedAt int64
}

// NormalizeSessions parses a session list response (bare array or wrapped in
// {"sessions": [...]}) and sorts it by most recently updated. Entries without
// a usable id are dropped.
func NormalizeSessions(body []byte) []SessionItem {
	root := gjson.ParseBytes(body)

	list := root
	if !root.IsArray() {
		list = root.Get("sessions")
	}
	if !list.IsArray() {
		return nil
	}

	var items []SessionItem
	for _, entry := range list.Array() {
		if !entry.IsObject() {
			continue
		}
		id := firstString(entry, "id", "session_id", "sessionId")
		if id == "" {
			continue
		}
		items = append(items, SessionItem{
			ID:        id,
			Title:     firstString(entry, "title", "name"),
			CreatedAt: parseTimeField(entry, "created_at", "createdAt"),
			UpdatedAt: parseTimeField(entry, "updated_at", "updatedAt"),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].lastTouched() > items[j].lastTouched()
	})
	return items
}

func (s SessionItem) lastTouched() int64 {
	if s.UpdatedAt != 0 {
		return s.UpdatedAt
	}
	return s.CreatedAt
}

func parseTimeField(entry gjson.Result, keys ...string) int64 {
	for _, key := range keys {
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
