// Package testutil provides an in-memory Engine and a recording listener for
// driving an embedx.Instance step by step in tests.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/comalice/embedx"
)

// FakeEngine records every request and completes lifecycle operations only
// when told to. With AutoLaunch set, Launch reports the first frame before
// returning.
type FakeEngine struct {
	AutoLaunch bool
	LaunchErr  error

	mu       sync.Mutex
	host     embedx.Host
	calls    []string
	messages []embedx.Message
	urls     []string
	launches []embedx.LaunchRequest
	keyboard embedx.Handle
	next     uint64
}

// NewFakeEngine returns a FakeEngine with AutoLaunch enabled.
func NewFakeEngine() *FakeEngine {
	return &FakeEngine{AutoLaunch: true}
}

func (f *FakeEngine) Launch(ctx context.Context, host embedx.Host, req embedx.LaunchRequest) error {
	f.mu.Lock()
	f.calls = append(f.calls, "launch")
	if f.LaunchErr != nil {
		err := f.LaunchErr
		f.mu.Unlock()
		return err
	}
	f.host = host
	f.launches = append(f.launches, req)
	auto := f.AutoLaunch
	f.mu.Unlock()

	if auto {
		f.CompleteLaunch()
	}
	return nil
}

func (f *FakeEngine) Pause(paused bool) {
	f.record(fmt.Sprintf("pause(%t)", paused))
}

func (f *FakeEngine) Show() { f.record("show") }

func (f *FakeEngine) Unload() { f.record("unload") }

func (f *FakeEngine) Quit(exitCode int) {
	f.record(fmt.Sprintf("quit(%d)", exitCode))
}

func (f *FakeEngine) Deliver(msg embedx.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "deliver")
	f.messages = append(f.messages, msg)
}

func (f *FakeEngine) OpenURL(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "open_url")
	f.urls = append(f.urls, url)
}

func (f *FakeEngine) KeyboardSurface() embedx.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keyboard
}

// CompleteLaunch reports the first frame and returns the controller handle.
func (f *FakeEngine) CompleteLaunch() embedx.Handle {
	f.mu.Lock()
	host := f.host
	f.next++
	h := embedx.Handle(f.next)
	f.mu.Unlock()

	if host != nil {
		host.DidLaunch(h)
	}
	return h
}

// CompleteUnload reports an unload with payload.
func (f *FakeEngine) CompleteUnload(payload any) {
	f.mu.Lock()
	host := f.host
	f.keyboard = embedx.InvalidHandle
	f.mu.Unlock()

	if host != nil {
		host.DidUnload(payload)
	}
}

// CompleteQuit reports a quit with payload and exitCode.
func (f *FakeEngine) CompleteQuit(payload any, exitCode int) {
	f.mu.Lock()
	host := f.host
	f.keyboard = embedx.InvalidHandle
	f.mu.Unlock()

	if host != nil {
		host.DidQuit(payload, exitCode)
	}
}

// ShowKeyboard activates a new keyboard surface and returns its handle.
func (f *FakeEngine) ShowKeyboard() embedx.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.keyboard = embedx.Handle(f.next)
	return f.keyboard
}

// HideKeyboard clears the keyboard surface.
func (f *FakeEngine) HideKeyboard() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keyboard = embedx.InvalidHandle
}

// Calls returns the request log.
func (f *FakeEngine) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Messages returns delivered messages in delivery order.
func (f *FakeEngine) Messages() []embedx.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]embedx.Message(nil), f.messages...)
}

// URLs returns opened deep links.
func (f *FakeEngine) URLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.urls...)
}

// Launches returns the launch requests received.
func (f *FakeEngine) Launches() []embedx.LaunchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]embedx.LaunchRequest(nil), f.launches...)
}

func (f *FakeEngine) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}
