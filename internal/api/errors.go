package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// HTTPError is a non-2xx response, optionally carrying a server-supplied
// detail string.
type HTTPError struct {
	Status int
	Detail string
}

func (e *HTTPError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("http %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("http %d", e.Status)
}

// NetworkError means the request could not be sent or the response could not
// be received.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ParseError means the response body was missing an expected field. Shape
// variance is normalized away wherever possible; this is only returned when
// nothing recognizable is left.
type ParseError struct {
	Field string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("response missing %s", e.Field)
}

// IsAbort reports whether err comes from a superseded (cancelled) request.
// Aborts are never surfaced to the user.
func IsAbort(err error) bool {
	return errors.Is(err, context.Canceled)
}

// Humanize renders err as the message shown to the user.
func Humanize(err error) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Detail != "" {
			return fmt.Sprintf("요청 실패 (%d): %s", httpErr.Status, httpErr.Detail)
		}
		return fmt.Sprintf("요청 실패 (%d)", httpErr.Status)
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return "네트워크 오류가 발생했습니다"
	}

	return "오류가 발생했습니다"
}

// extractDetail pulls a server-supplied error detail from an error body.
func extractDetail(body []byte) string {
	root := gjson.ParseBytes(body)
	for _, key := range []string{"detail", "error", "message"} {
		if v := root.Get(key); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
