package testutil

import (
	"sync"

	"github.com/comalice/embedx"
)

// RecordingListener records every notification it receives. Hook, when
// set, runs after recording.
type RecordingListener struct {
	Name string
	Hook func(l *RecordingListener, n embedx.Notification)

	mu       sync.Mutex
	received []embedx.Notification
}

func (l *RecordingListener) OnUnload(n embedx.Notification) { l.record(n) }

func (l *RecordingListener) OnQuit(n embedx.Notification) { l.record(n) }

func (l *RecordingListener) record(n embedx.Notification) {
	l.mu.Lock()
	l.received = append(l.received, n)
	hook := l.Hook
	l.mu.Unlock()

	if hook != nil {
		hook(l, n)
	}
}

// Received returns the notifications recorded so far.
func (l *RecordingListener) Received() []embedx.Notification {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]embedx.Notification(nil), l.received...)
}

// Count returns how many notifications of kind were recorded.
func (l *RecordingListener) Count(kind embedx.NotificationKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, r := range l.received {
		if r.Kind == kind {
			n++
		}
	}
	return n
}

// UnloadOnly implements only the unload capability.
type UnloadOnly struct {
	mu    sync.Mutex
	count int
}

func (u *UnloadOnly) OnUnload(embedx.Notification) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.count++
}

func (u *UnloadOnly) Count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.count
}
