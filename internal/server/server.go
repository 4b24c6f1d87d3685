package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/five82/setlist/internal/api"
	"github.com/five82/setlist/internal/csrf"
	"github.com/five82/setlist/internal/gateway"
	"github.com/five82/setlist/internal/media"
	"github.com/five82/setlist/internal/queue"
	"github.com/five82/setlist/internal/snapshot"
)

const (
	maxBodyBytes = 1 << 20
	writeWait    = 10 * time.Second
	pingPeriod   = 30 * time.Second
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16384,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Options configure a Server.
type Options struct {
	Gateway  *gateway.Gateway
	Registry *queue.Registry
	Issuer   *csrf.Issuer
	Hub      *Hub
	Logger   *zap.Logger
}

// Server exposes the queue API over HTTP.
type Server struct {
	gateway  *gateway.Gateway
	registry *queue.Registry
	issuer   *csrf.Issuer
	hub      *Hub
	logger   *zap.Logger
	mux      *http.ServeMux
}

// New registers every route and returns the Server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	hub := opts.Hub
	if hub == nil {
		hub = NewHub()
	}
	s := &Server{
		gateway:  opts.Gateway,
		registry: opts.Registry,
		issuer:   opts.Issuer,
		hub:      hub,
		logger:   logger,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

// Handler returns the root handler with request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.mux.HandleFunc("POST /api/session", func(w http.ResponseWriter, r *http.Request) {
		sess := s.issuer.Mint()
		writeJSON(w, http.StatusOK, api.Session{ID: sess.ID, Token: sess.Token, ExpiresAt: sess.ExpiresAt})
	})

	s.mux.HandleFunc("GET /api/contexts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, api.ContextList{Contexts: s.registry.Keys()})
	})

	s.mux.HandleFunc("GET /api/contexts/{context}/snapshot", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.snapshotFor(r.PathValue("context")))
	})

	s.mux.HandleFunc("POST /api/contexts/{context}/mutations", s.handleMutation)

	s.mux.HandleFunc("GET /api/contexts/{context}/watch", s.handleWatch)
}

// snapshotFor never creates a store; unknown contexts read as empty.
func (s *Server) snapshotFor(key string) api.Snapshot {
	if store, ok := s.registry.Lookup(key); ok {
		return snapshot.Produce(store.Current())
	}
	return snapshot.Empty(key)
}

func (s *Server) handleMutation(w http.ResponseWriter, r *http.Request) {
	var body api.MutationRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest, "invalid json: "+err.Error())
		return
	}

	token := strings.TrimSpace(r.Header.Get(api.CSRFHeader))
	if token == "" {
		token = body.CSRF
	}

	st, err := s.gateway.Apply(r.Context(), gateway.Request{
		Context:         r.PathValue("context"),
		Token:           token,
		MutationRequest: body,
	})
	if err != nil {
		status, code := classify(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("mutation error", zap.String("context", r.PathValue("context")), zap.Error(err))
		}
		writeError(w, status, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snapshot.Produce(st))
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	key := queue.NormalizeKey(r.PathValue("context"))
	if key == "" {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest, "channel context is required")
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.String("context", key), zap.Error(err))
		return
	}
	defer conn.Close()

	updates, cancel := s.hub.Subscribe(key)
	defer cancel()
	s.logger.Debug("watcher connected", zap.String("context", key))

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(snap api.Snapshot) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(snap)
	}
	if err := send(s.snapshotFor(key)); err != nil {
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			s.logger.Debug("watcher disconnected", zap.String("context", key))
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case snap := <-updates:
			if err := send(snap); err != nil {
				return
			}
		}
	}
}

// classify maps an Apply error to an HTTP status and error code.
func classify(err error) (int, string) {
	var (
		authErr  *gateway.AuthTokenError
		reqErr   *gateway.RequestError
		mediaErr *gateway.MediaError
	)
	switch {
	case errors.As(err, &authErr):
		return http.StatusForbidden, api.CodeBadCSRF
	case errors.As(err, &reqErr):
		return http.StatusBadRequest, api.CodeBadRequest
	case errors.Is(err, queue.ErrOutOfRange):
		return http.StatusConflict, api.CodeOutOfRange
	case errors.Is(err, queue.ErrNotFound):
		return http.StatusNotFound, api.CodeNotFound
	case errors.Is(err, queue.ErrBatchValidation):
		return http.StatusUnprocessableEntity, api.CodeBatchInvalid
	case errors.As(err, &mediaErr):
		if errors.Is(err, media.ErrUnavailable) {
			return http.StatusBadGateway, api.CodeMediaFailed
		}
		return http.StatusConflict, api.CodeMediaFailed
	default:
		return http.StatusInternalServerError, api.CodeInternal
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, api.ErrorResponse{Code: code, Error: msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack hands the connection to the websocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer cannot hijack")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}
