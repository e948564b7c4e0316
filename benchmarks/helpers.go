// Package benchmarks provides performance benchmarks for embedx instances.
package benchmarks

import (
	"context"
	"sync/atomic"

	"github.com/comalice/embedx"
)

// discardEngine completes every request immediately and counts deliveries.
type discardEngine struct {
	host      embedx.Host
	delivered atomic.Int64
}

func (e *discardEngine) Launch(_ context.Context, h embedx.Host, _ embedx.LaunchRequest) error {
	e.host = h
	h.DidLaunch(embedx.Handle(1))
	return nil
}

func (e *discardEngine) Pause(bool)                     {}
func (e *discardEngine) Show()                          {}
func (e *discardEngine) Unload()                        { e.host.DidUnload(nil) }
func (e *discardEngine) Quit(code int)                  { e.host.DidQuit(nil, code) }
func (e *discardEngine) Deliver(embedx.Message)         { e.delivered.Add(1) }
func (e *discardEngine) OpenURL(string)                 {}
func (e *discardEngine) KeyboardSurface() embedx.Handle { return embedx.InvalidHandle }

// newRunning returns a running instance backed by a discarding engine.
func newRunning(opts ...embedx.Option) (*embedx.Instance, *discardEngine) {
	eng := &discardEngine{}
	inst := embedx.NewInstance(append([]embedx.Option{embedx.WithEngine(eng)}, opts...)...)
	if err := inst.RunEmbedded(context.Background(), nil, nil); err != nil {
		panic(err)
	}
	return inst, eng
}
