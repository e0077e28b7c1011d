package chat

import (
	"strings"
	"testing"
	"time"
)

var now = time.UnixMilli(1_700_000_000_000)

func TestNormalizeHistory(t *testing.T) {
	t.Run("bare array", func(t *testing.T) {
		body := []byte(`[
			{"role":"user","content":"파란 지갑 잃어버렸어요","timestamp":1699999990000},
			{"role":"assistant","content":"접수했습니다","timestamp":1699999995000}
		]`)

		msgs := NormalizeHistory(body, now)
		if len(msgs) != 2 {
			t.Fatalf("got %d messages, want 2", len(msgs))
		}
		if msgs[0].Role != RoleUser || msgs[1].Role != RoleAssistant {
			t.Errorf("roles = %v/%v", msgs[0].Role, msgs[1].Role)
		}
		if msgs[0].Content != "파란 지갑 잃어버렸어요" {
			t.Errorf("content = %q", msgs[0].Content)
		}
	})

	t.Run("messages wrapper with variant fields", func(t *testing.T) {
		body := []byte(`{"messages":[
			{"sender":"bot","text":"안녕하세요","createdAt":"2023-11-14T12:00:00Z"},
			{"role":"user","message":"hello","created_at":1699999990}
		]}`)

		msgs := NormalizeHistory(body, now)
		if len(msgs) != 2 {
			t.Fatalf("got %d messages, want 2", len(msgs))
		}
		if msgs[0].Role != RoleAssistant {
			t.Errorf("sender=bot should map to assistant, got %v", msgs[0].Role)
		}
		if msgs[0].Timestamp != time.Date(2023, 11, 14, 12, 0, 0, 0, time.UTC).UnixMilli() {
			t.Errorf("ISO timestamp = %d", msgs[0].Timestamp)
		}
		// Epoch seconds scaled to millis.
		if msgs[1].Timestamp != 1_699_999_990_000 {
			t.Errorf("seconds timestamp = %d, want 1699999990000", msgs[1].Timestamp)
		}
	})

	t.Run("missing timestamps are back-dated preserving order", func(t *testing.T) {
		body := []byte(`[
			{"role":"user","content":"first"},
			{"role":"assistant","content":"second"},
			{"role":"user","content":"third"}
		]`)

		msgs := NormalizeHistory(body, now)
		if len(msgs) != 3 {
			t.Fatalf("got %d messages, want 3", len(msgs))
		}
		if !(msgs[0].Timestamp < msgs[1].Timestamp && msgs[1].Timestamp < msgs[2].Timestamp) {
			t.Errorf("timestamps not increasing: %d %d %d",
				msgs[0].Timestamp, msgs[1].Timestamp, msgs[2].Timestamp)
		}
		if msgs[2].Timestamp > now.UnixMilli() {
			t.Errorf("synthetic timestamp %d after now", msgs[2].Timestamp)
		}
	})

	t.Run("oversized body is truncated with marker", func(t *testing.T) {
		long := strings.Repeat("a", MaxContentLength+100)
		body := []byte(`[{"role":"user","content":"` + long + `"}]`)

		msgs := NormalizeHistory(body, now)
		if len(msgs) != 1 {
			t.Fatalf("got %d messages, want 1", len(msgs))
		}
		if !strings.HasSuffix(msgs[0].Content, TruncationMarker) {
			t.Error("truncated content missing marker")
		}
		if len([]rune(msgs[0].Content)) >= len([]rune(long)) {
			t.Error("content was not truncated")
		}
	})

	t.Run("attachments and matches", func(t *testing.T) {
		body := []byte(`[{
			"role":"assistant",
			"content":"이 물건인가요?",
			"images":[{"mediaId":"m1","imageUrl":"https://cdn/x.png","width":60,"height":60}],
			"matches":[{"item_id":"i1","title":"파란 지갑","score":0.92,"place":"성균관대"}]
		}]`)

		msgs := NormalizeHistory(body, now)
		if len(msgs) != 1 {
			t.Fatalf("got %d messages, want 1", len(msgs))
		}
		if len(msgs[0].Attachments) != 1 || msgs[0].Attachments[0].MediaID != "m1" {
			t.Errorf("attachments = %+v", msgs[0].Attachments)
		}
		if len(msgs[0].Matches) != 1 || msgs[0].Matches[0].Score != 0.92 {
			t.Errorf("matches = %+v", msgs[0].Matches)
		}
	})

	t.Run("unrecognizable body yields nil", func(t *testing.T) {
		if msgs := NormalizeHistory([]byte(`{"foo":1}`), now); msgs != nil {
			t.Errorf("got %v, want nil", msgs)
		}
		if msgs := NormalizeHistory([]byte(`not json`), now); msgs != nil {
			t.Errorf("got %v, want nil", msgs)
		}
	})
}

func TestNormalizeReply(t *testing.T) {
	t.Run("string assistant field", func(t *testing.T) {
		msg, ok := NormalizeReply([]byte(`{"assistant":"찾아볼게요"}`), now)
		if !ok {
			t.Fatal("NormalizeReply ok = false")
		}
		if msg.Role != RoleAssistant || msg.Content != "찾아볼게요" {
			t.Errorf("msg = %+v", msg)
		}
	})

	t.Run("priority order prefers assistant over reply", func(t *testing.T) {
		body := []byte(`{"reply":"second","assistant":"first"}`)
		msg, ok := NormalizeReply(body, now)
		if !ok || msg.Content != "first" {
			t.Errorf("content = %q, want first", msg.Content)
		}
	})

	t.Run("object form with nested matches", func(t *testing.T) {
		body := []byte(`{"assistant_message":{
			"content":"후보를 찾았어요",
			"matches":[{"id":"i2","name":"검정 우산"}]
		}}`)
		msg, ok := NormalizeReply(body, now)
		if !ok {
			t.Fatal("NormalizeReply ok = false")
		}
		if len(msg.Matches) != 1 || msg.Matches[0].ItemID != "i2" {
			t.Errorf("matches = %+v", msg.Matches)
		}
	})

	t.Run("top-level matches attach to object reply", func(t *testing.T) {
		body := []byte(`{
			"response":{"text":"ok"},
			"matches":[{"item_id":"i3","title":"지갑"}]
		}`)
		msg, ok := NormalizeReply(body, now)
		if !ok {
			t.Fatal("NormalizeReply ok = false")
		}
		if msg.Content != "ok" || len(msg.Matches) != 1 {
			t.Errorf("msg = %+v", msg)
		}
	})

	t.Run("unrecognized shape", func(t *testing.T) {
		if _, ok := NormalizeReply([]byte(`{"status":"ok"}`), now); ok {
			t.Error("expected ok = false")
		}
	})
}

func TestExtractIDs(t *testing.T) {
	t.Run("session id variants", func(t *testing.T) {
		cases := map[string]string{
			`{"session_id":"s1"}`: "s1",
			`{"id":"s2"}`:         "s2",
			`{"sessionId":"s3"}`:  "s3",
			`{}`:                  "",
		}
		for body, want := range cases {
			if got := ExtractSessionID([]byte(body)); got != want {
				t.Errorf("ExtractSessionID(%s) = %q, want %q", body, got, want)
			}
		}
	})

	t.Run("media id variants", func(t *testing.T) {
		cases := map[string]string{
			`{"media_id":"m1"}`: "m1",
			`{"mediaId":"m2"}`:  "m2",
			`{"id":"m3"}`:       "m3",
		}
		for body, want := range cases {
			if got := ExtractMediaID([]byte(body)); got != want {
				t.Errorf("ExtractMediaID(%s) = %q, want %q", body, got, want)
			}
		}
	})
}
