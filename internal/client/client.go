package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/five82/setlist/internal/api"
)

// SnapshotFetcher is the read side used by the poll scheduler.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context, key string) (api.Snapshot, error)
}

// Ensure Client implements SnapshotFetcher at compile time.
var _ SnapshotFetcher = (*Client)(nil)

// Client talks to the setlistd HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

const (
	defaultAPIBind   = "127.0.0.1:7488"
	defaultUserAgent = "setlist/0.1"
	defaultTimeout   = 5 * time.Second
)

// TransientNetworkError reports a fetch or submit that never got an answer
// from the daemon: a timeout, a refused connection, a dropped socket.
type TransientNetworkError struct {
	Op  string
	Err error
}

func (e *TransientNetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientNetworkError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a deadline.
func (e *TransientNetworkError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// APIError is a non-2xx reply from the daemon.
type APIError struct {
	Path    string
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api %s returned status %d: %s", e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("api %s returned status %d", e.Path, e.Status)
}

// IsCode reports whether err is an APIError carrying code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// NewClient builds a Client using the provided apiBind host:port value. A
// zero timeout uses the default.
func NewClient(apiBind string, timeout time.Duration) (*Client, error) {
	base, err := parseBaseURL(apiBind)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: timeout},
		userAgent: defaultUserAgent,
	}, nil
}

// BaseURL returns the normalized daemon address.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// FetchSnapshot retrieves the queue snapshot for a channel context.
func (c *Client) FetchSnapshot(ctx context.Context, key string) (api.Snapshot, error) {
	if c == nil {
		return api.Snapshot{}, fmt.Errorf("client is nil")
	}
	var payload api.Snapshot
	if err := c.do(ctx, http.MethodGet, contextPath(key, "snapshot"), "", nil, &payload); err != nil {
		return api.Snapshot{}, err
	}
	return payload, nil
}

// Submit posts one mutation and returns the resulting snapshot.
func (c *Client) Submit(ctx context.Context, key, token string, req api.MutationRequest) (api.Snapshot, error) {
	if c == nil {
		return api.Snapshot{}, fmt.Errorf("client is nil")
	}
	var payload api.Snapshot
	if err := c.do(ctx, http.MethodPost, contextPath(key, "mutations"), token, req, &payload); err != nil {
		return api.Snapshot{}, err
	}
	return payload, nil
}

// NewSession mints an anti-forgery token.
func (c *Client) NewSession(ctx context.Context) (api.Session, error) {
	if c == nil {
		return api.Session{}, fmt.Errorf("client is nil")
	}
	var payload api.Session
	if err := c.do(ctx, http.MethodPost, "/api/session", "", nil, &payload); err != nil {
		return api.Session{}, err
	}
	return payload, nil
}

// ListContexts returns the channel contexts the daemon knows about.
func (c *Client) ListContexts(ctx context.Context) ([]string, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload api.ContextList
	if err := c.do(ctx, http.MethodGet, "/api/contexts", "", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Contexts, nil
}

func contextPath(key, leaf string) string {
	return "/api/contexts/" + url.PathEscape(strings.TrimSpace(key)) + "/" + leaf
}

func (c *Client) do(ctx context.Context, method, path, token string, body, dest any) error {
	rel, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("parse path %q: %w", path, err)
	}
	reqURL := c.baseURL.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(api.CSRFHeader, token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransientNetworkError{Op: "execute request", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Path: path, Status: resp.StatusCode}
		var payload api.ErrorResponse
		if json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload) == nil {
			apiErr.Code = payload.Code
			apiErr.Message = payload.Error
		}
		return apiErr
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &TransientNetworkError{Op: "decode response", Err: err}
		}
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(apiBind string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiBind)
	if trimmed == "" {
		trimmed = defaultAPIBind
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_bind %q: %w", apiBind, err)
	}
	u.Path = ""
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
