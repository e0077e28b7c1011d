// Package api is the REST client for the lost-and-found chat backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/myretriever/retriever/internal/attach"
	"github.com/myretriever/retriever/internal/chat"
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 30 * time.Second

// Client talks to the chat backend. All endpoints work without a token
// (guest mode); when token is set it is attached as a bearer credential.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for the backend at baseURL. token may be empty.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// CreateSession creates a new session for userID, or an anonymous session
// when userID is empty. Returns the new session id.
func (c *Client) CreateSession(ctx context.Context, userID string) (string, error) {
	payload := map[string]any{}
	if userID == "" {
		payload["anonymous"] = true
	} else {
		payload["user_id"] = userID
	}

	body, err := c.doJSON(ctx, http.MethodPost, "/chat/session", payload)
	if err != nil {
		return "", err
	}

	id := chat.ExtractSessionID(body)
	if id == "" {
		return "", &ParseError{Field: "session id"}
	}
	return id, nil
}

// ListSessions returns the sessions for userID, most recently updated first.
func (c *Client) ListSessions(ctx context.Context, userID string) ([]chat.SessionItem, error) {
	path := "/chat/sessions?user_id=" + url.QueryEscape(userID)
	body, err := c.doJSON(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return chat.NormalizeSessions(body), nil
}

// RenameSession updates a session's title.
func (c *Client) RenameSession(ctx context.Context, sessionID, title string) error {
	path := "/chat/session/" + url.PathEscape(sessionID)
	_, err := c.doJSON(ctx, http.MethodPatch, path, map[string]any{"title": title})
	return err
}

// DeleteSession removes a session.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	path := "/chat/session/" + url.PathEscape(sessionID)
	_, err := c.doJSON(ctx, http.MethodDelete, path, nil)
	return err
}

// History fetches a session's message list. The id-in-path form is tried
// first; on a non-2xx status the legacy query-parameter form is attempted
// before declaring failure.
func (c *Client) History(ctx context.Context, sessionID string, limit int) ([]chat.Message, error) {
	primary := "/chat/history/" + url.PathEscape(sessionID) + "?limit=" + strconv.Itoa(limit)
	body, err := c.doJSON(ctx, http.MethodGet, primary, nil)
	if err != nil {
		if IsAbort(err) {
			return nil, err
		}
		var httpErr *HTTPError
		if !errors.As(err, &httpErr) {
			return nil, err
		}

		fallback := "/chat/history?session_id=" + url.QueryEscape(sessionID) + "&limit=" + strconv.Itoa(limit)
		body, err = c.doJSON(ctx, http.MethodGet, fallback, nil)
		if err != nil {
			return nil, err
		}
	}

	return chat.NormalizeHistory(body, time.Now()), nil
}

// UploadMedia uploads one attachment as multipart form data and returns the
// assigned media id.
func (c *Client) UploadMedia(ctx context.Context, f attach.File) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename=%q`, f.Name))
	header.Set("Content-Type", f.ContentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("creating multipart field: %w", err)
	}
	if _, err := part.Write(f.Data); err != nil {
		return "", fmt.Errorf("writing multipart data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/media/upload", &buf)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.setAuth(req)

	body, err := c.do(req)
	if err != nil {
		return "", err
	}

	id := chat.ExtractMediaID(body)
	if id == "" {
		return "", &ParseError{Field: "media id"}
	}
	return id, nil
}

// Send submits a message and returns the assistant's reply.
func (c *Client) Send(ctx context.Context, sessionID, content string, mediaIDs []string) (chat.Message, error) {
	payload := map[string]any{
		"session_id": sessionID,
		"content":    content,
		"media_ids":  mediaIDs,
	}

	body, err := c.doJSON(ctx, http.MethodPost, "/chat/send", payload)
	if err != nil {
		return chat.Message{}, err
	}

	reply, ok := chat.NormalizeReply(body, time.Now())
	if !ok {
		return chat.Message{}, &ParseError{Field: "assistant reply"}
	}
	return reply, nil
}

// doJSON issues a request with an optional JSON payload and returns the
// response body.
func (c *Client) doJSON(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuth(req)

	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if IsAbort(err) {
			return nil, err
		}
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if IsAbort(err) {
			return nil, err
		}
		return nil, &NetworkError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Status: resp.StatusCode, Detail: extractDetail(body)}
	}

	return body, nil
}

func (c *Client) setAuth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
