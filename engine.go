package embedx

import (
	"context"
	"strconv"
)

// Handle is an opaque reference to an object owned by the runtime, such as
// the application controller or the on-screen keyboard input surface.
// Handles are never reused, so a stale handle cannot alias a live object.
type Handle uint64

// InvalidHandle is the empty handle.
const InvalidHandle Handle = 0

func (h Handle) Valid() bool { return h != InvalidHandle }

func (h Handle) String() string {
	if !h.Valid() {
		return "invalid"
	}
	return "handle:" + strconv.FormatUint(uint64(h), 10)
}

// LaunchRequest carries the launch parameters handed to an Engine.
type LaunchRequest struct {
	InstanceID string
	BundleID   string
	Args       []string
	// Options is the platform launch-options mapping, passed through as is.
	Options map[string]any
}

// Engine is the runtime side of the boundary. Implementations must not
// block: every method hands the request to the runtime and returns.
// Completions are reported through the Host given to Launch.
type Engine interface {
	// Launch starts the runtime. Host.DidLaunch is called once the first
	// frame is live; it may be called before Launch returns.
	Launch(ctx context.Context, host Host, req LaunchRequest) error
	Pause(paused bool)
	Show()
	// Unload tears the runtime down; Host.DidUnload follows.
	Unload()
	// Quit terminates the runtime; Host.DidQuit follows.
	Quit(exitCode int)
	// Deliver dispatches a message. No acknowledgment is expected.
	Deliver(msg Message)
	// OpenURL hands a deep link to the runtime.
	OpenURL(url string)
	// KeyboardSurface returns the active keyboard input surface, or
	// InvalidHandle when no keyboard is shown.
	KeyboardSurface() Handle
}

// Host receives completions from an Engine. *Instance implements it.
// Calls may arrive on any goroutine.
type Host interface {
	DidLaunch(controller Handle)
	DidUnload(payload any)
	DidQuit(payload any, exitCode int)
}
