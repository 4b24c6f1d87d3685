package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/setlist/internal/ui"
)

// notifier turns reconciler change callbacks into MirrorChangedMsg without
// ever blocking the caller. Bursts of changes collapse into one message.
// Program.Send blocks until Update takes the message, and the reconciler
// is also driven from inside Update, so the send happens on its own
// goroutine.
type notifier struct {
	ch chan struct{}
}

func newNotifier() *notifier {
	return &notifier{ch: make(chan struct{}, 1)}
}

// Notify marks the mirror dirty.
func (n *notifier) Notify() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

// Run forwards change marks to send until ctx ends.
func (n *notifier) Run(ctx context.Context, send func(tea.Msg)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-n.ch:
			send(ui.MirrorChangedMsg{})
		}
	}
}
