package player

import (
	"github.com/comalice/embedx"
)

// Handler receives a message body inside a tick.
type Handler func(f *Frame, body string)

// Entity is a named message target inside a scene.
type Entity struct {
	Name    string
	Methods map[string]Handler
}

// Scene is the content loaded for one data bundle.
type Scene struct {
	// Bundle is the data-bundle identifier the scene answers to. The empty
	// bundle is the fallback scene.
	Bundle   string
	Entities map[string]*Entity
	// OnLoad runs on the first tick, before the launch is reported.
	OnLoad func(f *Frame)
	// OnDeepLink receives URLs handed to the runtime.
	OnDeepLink func(f *Frame, url string)
}

func (s *Scene) handler(target, method string) Handler {
	e, ok := s.Entities[target]
	if !ok {
		return nil
	}
	return e.Methods[method]
}

// Frame is the scene's view of the player during one tick.
type Frame struct {
	p    *Player
	r    *run
	tick uint64
}

// Tick returns the tick number, starting at 1 for the launch tick.
func (f *Frame) Tick() uint64 { return f.tick }

// Bundle returns the loaded bundle identifier.
func (f *Frame) Bundle() string { return f.r.bundle }

// Send queues a message to another entity for the next tick.
func (f *Frame) Send(target, method, body string) {
	f.p.enqueue(command{kind: cmdMessage, msg: embedx.Message{Target: target, Method: method, Body: body}})
}

// OpenKeyboard shows the on-screen keyboard with initial text and returns
// its input surface.
func (f *Frame) OpenKeyboard(text string) embedx.Handle {
	return f.p.openKeyboard(text)
}

// CloseKeyboard hides the on-screen keyboard.
func (f *Frame) CloseKeyboard() {
	f.p.closeKeyboard()
}

// KeyboardText returns the text of the active keyboard surface.
func (f *Frame) KeyboardText() string {
	text, _ := f.p.TextField(f.p.KeyboardSurface())
	return text
}

// Unload ends the run at the end of this tick, as if the content unloaded
// itself.
func (f *Frame) Unload() {
	f.r.stop(stopUnload, 0)
}

// Quit ends the run at the end of this tick and terminates with exitCode.
func (f *Frame) Quit(exitCode int) {
	f.r.stop(stopQuit, exitCode)
}
