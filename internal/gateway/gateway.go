package gateway

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/five82/setlist/internal/api"
	"github.com/five82/setlist/internal/media"
	"github.com/five82/setlist/internal/queue"
)

// TokenValidator checks anti-forgery tokens. *csrf.Issuer implements it.
type TokenValidator interface {
	Validate(token string) error
}

// AuthTokenError rejects a request whose anti-forgery token is missing or
// invalid. No store was touched.
type AuthTokenError struct {
	Err error
}

func (e *AuthTokenError) Error() string { return fmt.Sprintf("auth token: %v", e.Err) }
func (e *AuthTokenError) Unwrap() error { return e.Err }

// RequestError reports a malformed request shape.
type RequestError struct {
	Op     string
	Reason string
}

func (e *RequestError) Error() string {
	if e.Op == "" {
		return "bad request: " + e.Reason
	}
	return fmt.Sprintf("bad %s request: %s", e.Op, e.Reason)
}

// MediaError wraps a failure reported by the media collaborator.
type MediaError struct {
	Op  string
	Err error
}

func (e *MediaError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *MediaError) Unwrap() error { return e.Err }

// Request is one mutation addressed to a channel context.
type Request struct {
	Context string
	Token   string
	api.MutationRequest
}

// Gateway is the only way a request reaches a queue store.
type Gateway struct {
	registry *queue.Registry
	tokens   TokenValidator
	media    media.Controller
	logger   *zap.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Options configure a Gateway.
type Options struct {
	Registry *queue.Registry
	Tokens   TokenValidator
	Media    media.Controller
	Logger   *zap.Logger
	Rand     *rand.Rand // shuffle source; nil uses the global one
}

// New builds a Gateway. Registry and Tokens are required.
func New(opts Options) (*Gateway, error) {
	if opts.Registry == nil {
		return nil, errors.New("gateway: registry is nil")
	}
	if opts.Tokens == nil {
		return nil, errors.New("gateway: token validator is nil")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		registry: opts.Registry,
		tokens:   opts.Tokens,
		media:    opts.Media,
		logger:   logger,
		rng:      opts.Rand,
	}, nil
}

// Apply validates req and runs it against the target context's store. The
// returned state is the committed result; on error it is the zero State.
func (g *Gateway) Apply(ctx context.Context, req Request) (queue.State, error) {
	key := queue.NormalizeKey(req.Context)
	op := strings.TrimSpace(req.Op)
	log := g.logger.With(zap.String("context", key), zap.String("op", op))

	if key == "" {
		return queue.State{}, &RequestError{Op: op, Reason: "channel context is required"}
	}
	if err := validateShape(op, req.MutationRequest); err != nil {
		log.Warn("mutation rejected", zap.Error(err))
		return queue.State{}, err
	}
	if err := g.tokens.Validate(req.Token); err != nil {
		log.Warn("mutation rejected", zap.Error(err))
		return queue.State{}, &AuthTokenError{Err: err}
	}

	st, err := g.dispatch(ctx, key, op, req.MutationRequest)
	if err != nil {
		log.Info("mutation failed", zap.Error(err))
		return queue.State{}, err
	}
	log.Info("mutation applied", zap.Uint64("version", st.Version), zap.Int("entries", st.Len()))
	return st, nil
}

func (g *Gateway) dispatch(ctx context.Context, key, op string, req api.MutationRequest) (queue.State, error) {
	store := g.registry.Get(key)
	switch op {
	case api.OpAdd:
		return store.ApplyAdd(toEntry(*req.Entry))
	case api.OpAddBatch:
		entries := make([]queue.Entry, len(req.Entries))
		for i, in := range req.Entries {
			entries[i] = toEntry(in)
		}
		return store.ApplyAddBatch(entries)
	case api.OpRemove:
		return store.ApplyRemove(strings.TrimSpace(req.ID))
	case api.OpReorder:
		return store.ApplyReorder(queue.ReorderOperation{OldIndex: *req.OldIndex, NewIndex: *req.NewIndex})
	case api.OpMoveToTop:
		return store.ApplyMoveToTop(*req.OldIndex)
	case api.OpClear:
		return store.ApplyClear(), nil
	case api.OpShuffle:
		return store.ApplyShuffle(g.shuffleSource()), nil
	case api.OpBotLeave:
		if err := g.control(ctx, op, key, req); err != nil && !errors.Is(err, media.ErrNotJoined) {
			return queue.State{}, err
		}
		return store.Reset(), nil
	case api.OpBotJoin, api.OpPause, api.OpResume, api.OpSkip:
		if err := g.control(ctx, op, key, req); err != nil {
			return queue.State{}, err
		}
		return store.Current(), nil
	}
	return queue.State{}, &RequestError{Op: op, Reason: "unknown operation"}
}

// shuffleSource derives a private generator from the configured one so
// shuffles in different contexts never share a lock. Nil means the global
// source.
func (g *Gateway) shuffleSource() *rand.Rand {
	if g.rng == nil {
		return nil
	}
	g.rngMu.Lock()
	seed1, seed2 := g.rng.Uint64(), g.rng.Uint64()
	g.rngMu.Unlock()
	return rand.New(rand.NewPCG(seed1, seed2))
}

func (g *Gateway) control(ctx context.Context, op, key string, req api.MutationRequest) error {
	if g.media == nil {
		return &MediaError{Op: op, Err: media.ErrUnavailable}
	}
	var err error
	switch op {
	case api.OpBotJoin:
		err = g.media.Join(ctx, key, req.VoiceChannel)
	case api.OpBotLeave:
		err = g.media.Leave(ctx, key)
	case api.OpPause:
		err = g.media.Pause(ctx, key)
	case api.OpResume:
		err = g.media.Resume(ctx, key)
	case api.OpSkip:
		err = g.media.Skip(ctx, key)
	}
	if err != nil {
		return &MediaError{Op: op, Err: err}
	}
	return nil
}

// validateShape checks the fields each operation needs. Index bounds are
// not checked here; the store checks them against the live queue.
func validateShape(op string, req api.MutationRequest) error {
	switch op {
	case api.OpAdd:
		if req.Entry == nil {
			return &RequestError{Op: op, Reason: "entry is required"}
		}
		if strings.TrimSpace(req.Entry.SourceRef) == "" {
			return &RequestError{Op: op, Reason: "entry source reference is required"}
		}
	case api.OpAddBatch:
		if len(req.Entries) == 0 {
			return &RequestError{Op: op, Reason: "entries are required"}
		}
	case api.OpRemove:
		if strings.TrimSpace(req.ID) == "" {
			return &RequestError{Op: op, Reason: "entry id is required"}
		}
	case api.OpReorder:
		if req.OldIndex == nil || req.NewIndex == nil {
			return &RequestError{Op: op, Reason: "oldIndex and newIndex are required"}
		}
	case api.OpMoveToTop:
		if req.OldIndex == nil {
			return &RequestError{Op: op, Reason: "oldIndex is required"}
		}
	case api.OpBotJoin:
		if strings.TrimSpace(req.VoiceChannel) == "" {
			return &RequestError{Op: op, Reason: "voiceChannel is required"}
		}
	case api.OpBotLeave, api.OpClear, api.OpShuffle, api.OpPause, api.OpResume, api.OpSkip:
	case "":
		return &RequestError{Reason: "op is required"}
	default:
		return &RequestError{Op: op, Reason: "unknown operation"}
	}
	return nil
}

func toEntry(in api.EntryInput) queue.Entry {
	return queue.Entry{ID: in.ID, Title: in.Title, SourceRef: in.SourceRef}
}
