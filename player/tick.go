package player

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/comalice/embedx"
)

type stopKind int

const (
	stopNone stopKind = iota
	stopUnload
	stopQuit
)

// run is one launch of a scene. Fields other than overflow are owned by
// the tick goroutine.
type run struct {
	bundle string
	scene  *Scene
	host   embedx.Host
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	tick       uint64
	launched   bool
	controller embedx.Handle
	paused     bool
	held       []command
	stopped    stopKind
	exitCode   int
	reason     string
	report     Report

	overflow int // guarded by Player.mu
}

func (r *run) stop(kind stopKind, exitCode int) {
	r.stopWith(kind, exitCode, "")
}

func (r *run) stopWith(kind stopKind, exitCode int, reason string) {
	if r.stopped != stopNone {
		return
	}
	r.stopped = kind
	r.exitCode = exitCode
	if reason == "" {
		reason = "requested by content"
	}
	r.reason = reason
}

// loop is the tick loop of one run.
func (p *Player) loop(r *run) {
	ticker := time.NewTicker(p.cfg.TickRate)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			r.stopWith(stopUnload, 0, "context canceled")
		case <-ticker.C:
			p.safeTick(r)
		}
		if r.stopped != stopNone {
			p.finish(r)
			return
		}
	}
}

// safeTick processes one tick, recovering from panics outside handlers.
func (p *Player) safeTick(r *run) {
	defer func() {
		if rec := recover(); rec != nil {
			recordPanic()
			log().Error("tick panicked",
				zap.String("bundle_id", r.bundle),
				zap.Uint64("tick", r.tick),
				zap.Any("panic", rec),
				zap.Stack("stack"))
		}
	}()
	p.processTick(r)
}

// processTick processes one complete tick
func (p *Player) processTick(r *run) {
	r.tick++
	f := &Frame{p: p, r: r, tick: r.tick}

	if !r.launched {
		r.launched = true
		r.controller = p.newHandle()
		if r.scene.OnLoad != nil {
			p.invoke(r, "on_load", func() { r.scene.OnLoad(f) })
		}
		r.host.DidLaunch(r.controller)
	}

	cmds := p.collect(r)
	sortCommands(cmds)
	for _, c := range cmds {
		if r.stopped != stopNone {
			if c.kind == cmdMessage {
				r.report.Dropped++
				recordDrop("stopped")
			}
			continue
		}
		p.apply(r, f, c)
	}

	if !r.paused {
		r.report.Frames++
	}
	recordTick()
}

// collect takes the queued commands, with held messages ahead of them.
func (p *Player) collect(r *run) []command {
	p.mu.Lock()
	queued := p.queue
	p.queue, p.queued = nil, 0
	p.mu.Unlock()

	cmds := append(r.held, queued...)
	r.held = nil
	return cmds
}

func (p *Player) apply(r *run, f *Frame, c command) {
	switch c.kind {
	case cmdMessage:
		// Once one message is held, later ones queue behind it.
		if r.paused || len(r.held) > 0 {
			r.held = append(r.held, c)
			return
		}
		p.deliver(r, f, c.msg)
	case cmdPause:
		r.paused = true
	case cmdResume, cmdShow:
		r.paused = false
	case cmdOpenURL:
		if r.scene.OnDeepLink != nil {
			p.invoke(r, "on_deep_link", func() { r.scene.OnDeepLink(f, c.url) })
		}
	case cmdUnload:
		r.stopWith(stopUnload, 0, "unload requested")
	case cmdQuit:
		r.stopWith(stopQuit, c.exitCode, "quit requested")
	}
}

func (p *Player) deliver(r *run, f *Frame, msg embedx.Message) {
	h := r.scene.handler(msg.Target, msg.Method)
	if h == nil {
		r.report.Dropped++
		recordDrop("no_handler")
		log().Debug("no handler for message", zap.Stringer("message", msg))
		return
	}
	if p.invoke(r, msg.String(), func() { h(f, msg.Body) }) {
		r.report.Delivered++
		return
	}
	r.report.Dropped++
}

// invoke runs scene code, recovering and logging a panic.
func (p *Player) invoke(r *run, call string, fn func()) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			ok = false
			recordPanic()
			log().Error("scene handler panicked",
				zap.String("bundle_id", r.bundle),
				zap.String("call", call),
				zap.Any("panic", rec))
		}
	}()
	fn()
	return true
}

// finish tears the run down and reports its completion to the host from
// the tick goroutine.
func (p *Player) finish(r *run) {
	for _, c := range r.held {
		if c.kind == cmdMessage {
			r.report.Dropped++
		}
	}
	r.held = nil
	r.report.Reason = r.reason

	p.mu.Lock()
	for _, c := range p.queue {
		if c.kind == cmdMessage {
			r.report.Dropped++
		}
	}
	r.report.Dropped += r.overflow
	p.queue, p.queued = nil, 0
	p.cur = nil
	p.keyboard = embedx.InvalidHandle
	p.text = ""
	p.last = r.report
	rep := r.report
	p.mu.Unlock()

	r.cancel()
	log().Info("run finished",
		zap.String("bundle_id", rep.BundleID),
		zap.Uint64("frames", rep.Frames),
		zap.Int("delivered", rep.Delivered),
		zap.Int("dropped", rep.Dropped),
		zap.String("reason", rep.Reason))

	if r.stopped == stopQuit {
		r.host.DidQuit(rep, r.exitCode)
	} else {
		r.host.DidUnload(rep)
	}
	close(r.done)
}
