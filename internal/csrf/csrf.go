// Package csrf issues and checks the anti-forgery tokens that every queue
// mutation must carry.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

const (
	defaultTTL = 12 * time.Hour
	tokenBytes = 32
)

var (
	ErrMissingToken = errors.New("missing csrf token")
	ErrInvalidToken = errors.New("invalid csrf token")
	ErrExpiredToken = errors.New("expired csrf token")
)

// Session is one issued token.
type Session struct {
	ID        string
	Token     string
	ExpiresAt time.Time
}

// Issuer mints per-session tokens and validates them until they expire.
type Issuer struct {
	mu       sync.Mutex
	ttl      time.Duration
	clock    clock.Clock
	sessions map[string]Session // by session ID
}

// NewIssuer creates an Issuer. A non-positive ttl uses 12 hours.
func NewIssuer(ttl time.Duration, clk clock.Clock) *Issuer {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Issuer{ttl: ttl, clock: clk, sessions: make(map[string]Session)}
}

// Mint issues a fresh session token.
func (i *Issuer) Mint() Session {
	s := Session{
		ID:        uuid.NewString(),
		Token:     newToken(tokenBytes),
		ExpiresAt: i.clock.Now().Add(i.ttl),
	}
	i.mu.Lock()
	i.pruneLocked()
	i.sessions[s.ID] = s
	i.mu.Unlock()
	return s
}

// Validate reports whether token was minted by this issuer and is still live.
func (i *Issuer) Validate(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrMissingToken
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	s, ok := i.findLocked(token)
	if !ok {
		return ErrInvalidToken
	}
	if !i.clock.Now().Before(s.ExpiresAt) {
		delete(i.sessions, s.ID)
		return ErrExpiredToken
	}
	return nil
}

// Revoke forgets a token.
func (i *Issuer) Revoke(token string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if s, ok := i.findLocked(strings.TrimSpace(token)); ok {
		delete(i.sessions, s.ID)
	}
}

// findLocked compares token against every live session in constant time.
func (i *Issuer) findLocked(token string) (Session, bool) {
	var (
		found Session
		ok    bool
	)
	for _, s := range i.sessions {
		if subtle.ConstantTimeCompare([]byte(s.Token), []byte(token)) == 1 {
			found, ok = s, true
		}
	}
	return found, ok
}

func (i *Issuer) pruneLocked() {
	now := i.clock.Now()
	for id, s := range i.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(i.sessions, id)
		}
	}
}

func newToken(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
