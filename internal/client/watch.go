package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"

	"github.com/five82/setlist/internal/api"
)

// Watch streams snapshots for key until ctx ends or the socket drops. Every
// frame is passed to fn. A dropped socket returns a TransientNetworkError so
// callers can fall back to polling.
func (c *Client) Watch(ctx context.Context, key string, fn func(api.Snapshot)) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	wsURL := *c.baseURL
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	rel, err := url.Parse(contextPath(key, "watch"))
	if err != nil {
		return fmt.Errorf("parse watch path: %w", err)
	}
	wsURL.Path = rel.Path
	wsURL.RawPath = rel.RawPath

	header := http.Header{"User-Agent": {c.userAgent}}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL.String(), header)
	if err != nil {
		return &TransientNetworkError{Op: "dial watch", Err: err}
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var snap api.Snapshot
		if err := conn.ReadJSON(&snap); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &TransientNetworkError{Op: "read watch", Err: err}
		}
		fn(snap)
	}
}
