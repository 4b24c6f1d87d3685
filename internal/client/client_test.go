package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/five82/setlist/internal/api"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" {
		t.Fatalf("scheme = %q, want http", u.Scheme)
	}
	if u.Host != defaultAPIBind {
		t.Fatalf("host = %q, want %q", u.Host, defaultAPIBind)
	}

	u, err = parseBaseURL("http://example.com:1234/path?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}
}

func TestClient_FetchSubmitAndSession(t *testing.T) {
	t.Parallel()

	var gotToken, gotUserAgent, gotPath string
	var gotBody api.MutationRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/contexts/g_c/snapshot":
			_ = json.NewEncoder(w).Encode(api.Snapshot{Context: "g_c", Version: 4, Entries: []api.Entry{{ID: "A"}}})
		case r.Method == http.MethodPost && r.URL.Path == "/api/contexts/g_c/mutations":
			gotToken = r.Header.Get(api.CSRFHeader)
			gotPath = r.URL.Path
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			_ = json.NewEncoder(w).Encode(api.Snapshot{Context: "g_c", Version: 5})
		case r.Method == http.MethodPost && r.URL.Path == "/api/session":
			_ = json.NewEncoder(w).Encode(api.Session{ID: "s1", Token: "tok"})
		case r.URL.Path == "/api/contexts":
			_ = json.NewEncoder(w).Encode(api.ContextList{Contexts: []string{"g_c", "g_d"}})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, 0)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	snap, err := c.FetchSnapshot(ctx, "g_c")
	if err != nil {
		t.Fatalf("FetchSnapshot returned error: %v", err)
	}
	if snap.Version != 4 || len(snap.Entries) != 1 {
		t.Fatalf("FetchSnapshot = %+v, want version 4 with one entry", snap)
	}

	sess, err := c.NewSession(ctx)
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	if sess.Token != "tok" {
		t.Fatalf("Token = %q, want tok", sess.Token)
	}

	after, err := c.Submit(ctx, "g_c", sess.Token, api.MutationRequest{Op: api.OpReorder, OldIndex: api.Int(0), NewIndex: api.Int(2)})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if after.Version != 5 {
		t.Fatalf("Submit version = %d, want 5", after.Version)
	}
	if gotToken != "tok" {
		t.Fatalf("csrf header = %q, want tok", gotToken)
	}
	if gotPath != "/api/contexts/g_c/mutations" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody.Op != api.OpReorder || gotBody.OldIndex == nil || *gotBody.NewIndex != 2 {
		t.Fatalf("body = %+v, want reorder 0->2", gotBody)
	}

	keys, err := c.ListContexts(ctx)
	if err != nil {
		t.Fatalf("ListContexts returned error: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("ListContexts = %v, want 2 keys", keys)
	}
	if !strings.HasPrefix(gotUserAgent, "setlist/") {
		t.Fatalf("User-Agent = %q, want setlist/*", gotUserAgent)
	}
}

func TestClient_APIErrorCarriesCode(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Code: api.CodeOutOfRange, Error: "index 5 out of range"})
	}))
	t.Cleanup(server.Close)

	c, _ := NewClient(server.URL, time.Second)
	_, err := c.Submit(context.Background(), "g_c", "tok", api.MutationRequest{Op: api.OpReorder})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusConflict || apiErr.Code != api.CodeOutOfRange {
		t.Fatalf("APIError = %+v, want 409 out_of_range", apiErr)
	}
	if !IsCode(err, api.CodeOutOfRange) {
		t.Fatal("IsCode(out_of_range) = false, want true")
	}
}

func TestClient_TimeoutIsTransient(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	c, _ := NewClient(server.URL, 50*time.Millisecond)
	_, err := c.FetchSnapshot(context.Background(), "g_c")
	var netErr *TransientNetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("err = %v, want *TransientNetworkError", err)
	}
	if !netErr.Timeout() {
		t.Fatalf("Timeout() = false for %v", err)
	}
}

func TestClient_RefusedConnectionIsTransient(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	c, _ := NewClient(addr, time.Second)
	_, err := c.FetchSnapshot(context.Background(), "g_c")
	var netErr *TransientNetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("err = %v, want *TransientNetworkError", err)
	}
}

func TestClient_WatchDeliversFrames(t *testing.T) {
	t.Parallel()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/contexts/g_c/watch" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for v := uint64(1); v <= 2; v++ {
			_ = conn.WriteJSON(api.Snapshot{Context: "g_c", Version: v})
		}
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
	t.Cleanup(server.Close)

	c, _ := NewClient(server.URL, time.Second)
	var versions []uint64
	err := c.Watch(context.Background(), "g_c", func(s api.Snapshot) { versions = append(versions, s.Version) })
	var netErr *TransientNetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("Watch err = %v, want *TransientNetworkError after close", err)
	}
	if len(versions) != 2 || versions[1] != 2 {
		t.Fatalf("versions = %v, want [1 2]", versions)
	}
}
