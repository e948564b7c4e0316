package production

import (
	"sync"
	"sync/atomic"

	"github.com/comalice/embedx"
)

// ChannelListener forwards unload and quit notifications to a Go channel.
// Sends never block the runtime: a notification that does not fit in the
// channel is dropped and counted.
type ChannelListener struct {
	mu      sync.RWMutex
	ch      chan<- embedx.Notification
	closed  bool
	dropped atomic.Uint64
}

// NewChannelListener creates a ChannelListener with the given output channel.
func NewChannelListener(ch chan<- embedx.Notification) *ChannelListener {
	return &ChannelListener{ch: ch}
}

func (l *ChannelListener) OnUnload(n embedx.Notification) { l.publish(n) }

func (l *ChannelListener) OnQuit(n embedx.Notification) { l.publish(n) }

func (l *ChannelListener) publish(n embedx.Notification) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.dropped.Add(1)
		return
	}
	select {
	case l.ch <- n:
	default:
		l.dropped.Add(1)
	}
}

// Dropped returns how many notifications were dropped.
func (l *ChannelListener) Dropped() uint64 {
	return l.dropped.Load()
}

// Close closes the output channel. Later notifications are dropped.
func (l *ChannelListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.ch)
	}
	return nil
}
