// Package comfy is a small client for the node-graph generation server's
// HTTP API: capability introspection, prompt submission, history polling and
// artifact download.
package comfy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/kingdom-assetgen/internal/graph"
)

const maxErrorBody = 4096

// HTTPError is returned when the server answers with a non-2xx status.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Client talks to one generation server.
type Client struct {
	baseURL  string
	http     *http.Client
	clientID string
	logger   *zap.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithClientID fixes the client_id sent with every prompt.
func WithClientID(id string) Option {
	return func(c *Client) { c.clientID = id }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 30 * time.Second},
		clientID: uuid.NewString(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// BaseURL returns the server root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

type submitRequest struct {
	Prompt   *graph.Graph `json:"prompt"`
	ClientID string       `json:"client_id,omitempty"`
}

type submitResponse struct {
	PromptID   string         `json:"prompt_id"`
	Number     int            `json:"number"`
	NodeErrors map[string]any `json:"node_errors"`
}

// Submit queues g and returns the server's prompt id.
func (c *Client) Submit(ctx context.Context, g *graph.Graph) (string, error) {
	body, err := json.Marshal(submitRequest{Prompt: g, ClientID: c.clientID})
	if err != nil {
		return "", fmt.Errorf("encode prompt: %w", err)
	}
	data, err := c.do(ctx, http.MethodPost, "/prompt", nil, body)
	if err != nil {
		var herr *HTTPError
		if errors.As(err, &herr) {
			c.logger.Error("prompt rejected",
				zap.Int("status", herr.StatusCode),
				zap.String("body", herr.Body),
			)
		}
		return "", err
	}
	var resp submitResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("decode prompt response: %w", err)
	}
	if resp.PromptID == "" {
		return "", fmt.Errorf("prompt response has no prompt_id: %s", truncate(string(data)))
	}
	return resp.PromptID, nil
}

// History returns the record for promptID, or nil when the server has no
// record for it yet.
func (c *Client) History(ctx context.Context, promptID string) (*Record, error) {
	data, err := c.do(ctx, http.MethodGet, "/history/"+url.PathEscape(promptID), nil, nil)
	if err != nil {
		return nil, err
	}
	var all map[string]*Record
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	rec, ok := all[promptID]
	if !ok || rec == nil {
		return nil, nil
	}
	return rec, nil
}

// View downloads the raw bytes of a produced artifact.
func (c *Client) View(ctx context.Context, ref OutputRef) ([]byte, error) {
	q := url.Values{}
	q.Set("filename", ref.Filename)
	q.Set("subfolder", ref.Subfolder)
	typ := ref.Type
	if typ == "" {
		typ = "output"
	}
	q.Set("type", typ)
	return c.do(ctx, http.MethodGet, "/view", q, nil)
}

// NodeInfo returns the raw capability descriptor for one node kind.
func (c *Client) NodeInfo(ctx context.Context, kind string) (json.RawMessage, error) {
	data, err := c.do(ctx, http.MethodGet, "/object_info/"+url.PathEscape(kind), nil, nil)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// NodeKinds lists every node kind the server can execute.
func (c *Client) NodeKinds(ctx context.Context) ([]string, error) {
	data, err := c.do(ctx, http.MethodGet, "/object_info", nil, nil)
	if err != nil {
		return nil, err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("decode object_info: %w", err)
	}
	kinds := make([]string, 0, len(all))
	for k := range all {
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("generation server request", zap.String("method", method), zap.String("path", path))
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &HTTPError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(b)),
		}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", method, path, err)
	}
	return data, nil
}

func truncate(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
