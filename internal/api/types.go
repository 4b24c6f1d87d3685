// Package api defines the JSON payloads exchanged between setlistd and its
// dashboard clients.
package api

import "time"

// Mutation operation names accepted by the mutations endpoint.
const (
	OpAdd       = "add"
	OpAddBatch  = "add-batch"
	OpRemove    = "remove"
	OpReorder   = "reorder"
	OpMoveToTop = "move-to-top"
	OpBotJoin   = "bot-join"
	OpBotLeave  = "bot-leave"
	OpClear     = "clear"
	OpShuffle   = "shuffle"
	OpPause     = "pause"
	OpResume    = "resume"
	OpSkip      = "skip"
)

// CSRFHeader carries the anti-forgery token on mutation requests.
const CSRFHeader = "X-CSRF-Token"

// Connection status wire values.
const (
	StatusDisconnected = "disconnected"
	StatusConnected    = "connected"
	StatusPlaying      = "playing"
	StatusPaused       = "paused"
)

// Entry is a queue entry in transfer form. Position is derived from order.
type Entry struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	SourceRef string `json:"sourceRef"`
	Position  int    `json:"position"`
}

// Snapshot mirrors GET /api/contexts/{context}/snapshot and every successful
// mutation response.
type Snapshot struct {
	Context          string    `json:"context"`
	CurrentTrack     *Entry    `json:"currentTrack,omitempty"`
	ConnectionStatus string    `json:"connectionStatus"`
	Entries          []Entry   `json:"entries"`
	Version          uint64    `json:"version"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// IDs returns the entry ids in queue order.
func (s Snapshot) IDs() []string {
	ids := make([]string, len(s.Entries))
	for i, e := range s.Entries {
		ids[i] = e.ID
	}
	return ids
}

// EntryInput is the client-supplied part of an entry.
type EntryInput struct {
	ID        string `json:"id,omitempty"`
	Title     string `json:"title"`
	SourceRef string `json:"sourceRef"`
}

// MutationRequest is the single body shape for POST
// /api/contexts/{context}/mutations.
type MutationRequest struct {
	Op           string       `json:"op"`
	Entry        *EntryInput  `json:"entry,omitempty"`
	Entries      []EntryInput `json:"entries,omitempty"`
	ID           string       `json:"id,omitempty"`
	OldIndex     *int         `json:"oldIndex,omitempty"`
	NewIndex     *int         `json:"newIndex,omitempty"`
	VoiceChannel string       `json:"voiceChannel,omitempty"`
	CSRF         string       `json:"csrf,omitempty"`
}

// Error codes returned in ErrorResponse.
const (
	CodeOutOfRange   = "out_of_range"
	CodeNotFound     = "not_found"
	CodeBatchInvalid = "batch_invalid"
	CodeBadRequest   = "bad_request"
	CodeBadCSRF      = "bad_csrf"
	CodeMediaFailed  = "media_failed"
	CodeInternal     = "internal"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// Session is returned by POST /api/session.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ContextList mirrors GET /api/contexts.
type ContextList struct {
	Contexts []string `json:"contexts"`
}

// Int returns a pointer to v for the optional index fields.
func Int(v int) *int {
	return &v
}
