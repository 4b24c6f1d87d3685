// Package media is the boundary to the voice connection and playback system.
// The queue only records what this side reports; it never decides what is
// playing on its own.
package media

import (
	"context"
	"errors"
)

var (
	ErrNotJoined   = errors.New("bot is not in a voice channel")
	ErrNoVoice     = errors.New("voice channel required")
	ErrNotPlaying  = errors.New("nothing is playing")
	ErrNotPaused   = errors.New("playback is not paused")
	ErrUnavailable = errors.New("media backend unavailable")
)

// Controller drives the media connection for one channel context.
type Controller interface {
	Join(ctx context.Context, key, voiceChannel string) error
	Leave(ctx context.Context, key string) error
	Pause(ctx context.Context, key string) error
	Resume(ctx context.Context, key string) error
	Skip(ctx context.Context, key string) error
}
