// Package assistant is the HTTP client of the remote assistant service. Every
// call is scoped to one clinic ("ambulatorio") and classified as either a
// connectivity failure or a remote rejection.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"strings"
	"time"

	"ambuassist/internal/extraction"
	"ambuassist/internal/logging"
	"ambuassist/internal/types"

	"github.com/google/uuid"
)

// Client talks to the assistant service.
type Client struct {
	baseURL string
	scope   string
	token   string
	client  *http.Client
}

// New creates a client for baseURL (ending in /api) scoped to scope.
func New(baseURL, scope, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		scope:   scope,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// Scope returns the scope key.
func (c *Client) Scope() string { return c.scope }

// BaseURL returns the service base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// ListSessions returns the roster of past conversations.
func (c *Client) ListSessions(ctx context.Context) ([]types.SessionSummary, error) {
	q := url.Values{"ambulatorio": {c.scope}}
	var out []types.SessionSummary
	if err := c.doJSON(ctx, "list sessions", http.MethodGet, "/ai/sessions?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadHistory returns the messages of a session in chronological order. The
// service answers with the session as the first entry and its messages
// newest first.
func (c *Client) LoadHistory(ctx context.Context, sessionID string) ([]HistoryMessage, error) {
	q := url.Values{"ambulatorio": {c.scope}, "session_id": {sessionID}}
	var entries []historyEntry
	if err := c.doJSON(ctx, "load history", http.MethodGet, "/ai/history?"+q.Encode(), nil, &entries); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	src := entries[0].Messages
	msgs := make([]HistoryMessage, 0, len(src))
	for i := len(src) - 1; i >= 0; i-- {
		msgs = append(msgs, src[i])
	}
	return msgs, nil
}

// DeleteSession deletes one conversation.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	q := url.Values{"ambulatorio": {c.scope}}
	path := "/ai/session/" + url.PathEscape(sessionID) + "?" + q.Encode()
	return c.doJSON(ctx, "delete session", http.MethodDelete, path, nil, nil)
}

// ClearHistory deletes every conversation of the scope.
func (c *Client) ClearHistory(ctx context.Context) error {
	q := url.Values{"ambulatorio": {c.scope}}
	return c.doJSON(ctx, "clear history", http.MethodDelete, "/ai/history?"+q.Encode(), nil, nil)
}

// Chat sends one turn. An empty sessionID starts a new conversation.
func (c *Client) Chat(ctx context.Context, message, sessionID string) (*ChatResponse, error) {
	req := chatRequest{Message: message, Scope: c.scope}
	if sessionID != "" {
		req.SessionID = &sessionID
	}
	var out ChatResponse
	if err := c.doJSON(ctx, "chat", http.MethodPost, "/ai/chat", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Extract uploads img and returns the patients read from it. category is the
// default applied by the service to candidates without one.
func (c *Client) Extract(ctx context.Context, img *extraction.Image, category types.Category) (*ExtractResult, error) {
	const op = "extract patients"

	f, err := os.Open(img.Path)
	if err != nil {
		return nil, fmt.Errorf("%s: open image: %w", op, err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(img.Name)))
	h.Set("Content-Type", img.MIME)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("%s: read image: %w", op, err)
	}
	if err := mw.WriteField("ambulatorio", c.scope); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := mw.WriteField("tipo", string(category)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, "/ai/extract-patients", &body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	var out ExtractResult
	if err := c.send(op, httpReq, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BatchCreate creates patients, each tagged with category and the client's scope.
func (c *Client) BatchCreate(ctx context.Context, patients []types.Patient, category types.Category) (*BatchResult, error) {
	req := batchRequest{Patients: make([]batchPatient, len(patients))}
	for i, p := range patients {
		req.Patients[i] = batchPatient{FirstName: p.FirstName, LastName: p.LastName, Category: category, Scope: c.scope}
	}
	var out BatchResult
	if err := c.doJSON(ctx, "batch create", http.MethodPost, "/ai/batch-create-patients", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Download fetches a document offered by a chat response: absolute urlStr
// wins, otherwise endpoint is resolved against the base URL.
func (c *Client) Download(ctx context.Context, urlStr, endpoint string) ([]byte, error) {
	const op = "download document"
	target := urlStr
	if target == "" {
		if endpoint == "" {
			return nil, fmt.Errorf("%s: no document location", op)
		}
		target = c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c.decorate(httpReq)

	var buf bytes.Buffer
	if err := c.send(op, httpReq, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// =============================================================================
// PLUMBING
// =============================================================================

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.decorate(req)
	return req, nil
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("X-Request-ID", uuid.NewString())
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(op, req, out)
}

// send executes req. out may be nil, a *bytes.Buffer for raw bodies, or a
// JSON target.
func (c *Client) send(op string, req *http.Request, out interface{}) error {
	timer := logging.StartTimer(logging.CategoryAPI, op)
	defer timer.Stop()

	logging.APIDebug("%s %s %s request_id=%s", op, req.Method, req.URL.Path, req.Header.Get("X-Request-ID"))

	resp, err := c.client.Do(req)
	if err != nil {
		logging.Get(logging.CategoryAPI).Warn("%s: transport error: %v", op, err)
		return &ConnectivityError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		logging.Get(logging.CategoryAPI).Warn("%s: status %d", op, resp.StatusCode)
		return &RemoteError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(bodyBytes))}
	}

	switch dst := out.(type) {
	case nil:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	case *bytes.Buffer:
		if _, err := io.Copy(dst, resp.Body); err != nil {
			return &ConnectivityError{Op: op, Err: err}
		}
		return nil
	default:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s: failed to decode response: %w", op, err)
		}
		return nil
	}
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
