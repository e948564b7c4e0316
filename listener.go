package embedx

import (
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// NotificationKind identifies a runtime lifecycle notification.
type NotificationKind int

const (
	NotifyUnload NotificationKind = iota + 1
	NotifyQuit
)

func (k NotificationKind) String() string {
	switch k {
	case NotifyUnload:
		return "unload"
	case NotifyQuit:
		return "quit"
	}
	return "unknown"
}

// Notification is raised when the runtime completes an unload or quit.
type Notification struct {
	Kind       NotificationKind
	InstanceID string
	// Payload is the opaque event payload supplied by the engine.
	Payload any
	// ExitCode is set for quit notifications.
	ExitCode int
	// Requested is false when the runtime unloaded or quit on its own.
	Requested bool
	At        time.Time
}

// UnloadListener observes unload completions.
type UnloadListener interface {
	OnUnload(n Notification)
}

// QuitListener observes quit completions.
type QuitListener interface {
	OnQuit(n Notification)
}

// Listener is any comparable value implementing UnloadListener,
// QuitListener, or both.
type Listener any

// ListenerFuncs adapts plain functions to the listener capabilities. A nil
// field means the capability is absent. Register it by pointer. The fields
// are captured at registration; later changes take effect only after the
// listener is unregistered and registered again.
type ListenerFuncs struct {
	Unload func(Notification)
	Quit   func(Notification)
}

func (f *ListenerFuncs) OnUnload(n Notification) {
	if f.Unload != nil {
		f.Unload(n)
	}
}

func (f *ListenerFuncs) OnQuit(n Notification) {
	if f.Quit != nil {
		f.Quit(n)
	}
}

type listenerEntry struct {
	key      Listener
	onUnload func(Notification)
	onQuit   func(Notification)
	removed  atomic.Bool
}

func (e *listenerEntry) callback(kind NotificationKind) func(Notification) {
	switch kind {
	case NotifyUnload:
		return e.onUnload
	case NotifyQuit:
		return e.onQuit
	}
	return nil
}

// ListenerRegistry fans notifications out to registered listeners.
// Safe for concurrent use.
type ListenerRegistry struct {
	mu      sync.Mutex
	entries []*listenerEntry
}

func NewListenerRegistry() *ListenerRegistry {
	return &ListenerRegistry{}
}

// Register adds l. Registering a listener that is already registered is a
// no-op.
func (r *ListenerRegistry) Register(l Listener) error {
	if l == nil {
		return ErrNoCapability
	}
	if !isComparable(l) {
		return ErrNotComparable
	}

	e := &listenerEntry{key: l}
	if f, ok := l.(*ListenerFuncs); ok {
		e.onUnload = f.Unload
		e.onQuit = f.Quit
	} else {
		if u, ok := l.(UnloadListener); ok {
			e.onUnload = u.OnUnload
		}
		if q, ok := l.(QuitListener); ok {
			e.onQuit = q.OnQuit
		}
	}
	if e.onUnload == nil && e.onQuit == nil {
		return ErrNoCapability
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexLocked(l) >= 0 {
		return nil
	}
	r.entries = append(r.entries, e)
	return nil
}

// Unregister removes l. The removal takes effect immediately, including for
// a fan-out already in progress. Unknown listeners are ignored.
func (r *ListenerRegistry) Unregister(l Listener) {
	if l == nil || !isComparable(l) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(l)
	if i < 0 {
		return
	}
	r.entries[i].removed.Store(true)
	r.entries = slices.Delete(r.entries, i, i+1)
}

// Len returns the number of registered listeners.
func (r *ListenerRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// isComparable reports whether l can be compared with ==. The dynamic value
// is checked, so an interface field holding a slice is caught.
func isComparable(l Listener) bool {
	return reflect.ValueOf(l).Comparable()
}

func (r *ListenerRegistry) indexLocked(l Listener) int {
	for i, e := range r.entries {
		if e.key == l {
			return i
		}
	}
	return -1
}

// dispatch invokes the matching callback of every listener registered when
// dispatch began, in registration order, skipping any removed since.
// Callbacks run on the caller's goroutine with no lock held.
func (r *ListenerRegistry) dispatch(n Notification) int {
	r.mu.Lock()
	snapshot := slices.Clone(r.entries)
	r.mu.Unlock()

	delivered := 0
	for _, e := range snapshot {
		if e.removed.Load() {
			continue
		}
		fn := e.callback(n.Kind)
		if fn == nil {
			continue
		}
		fn(n)
		delivered++
	}
	return delivered
}
