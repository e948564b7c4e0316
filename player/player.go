package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/comalice/embedx"
)

var (
	ErrUnknownBundle = errors.New("player: no scene for bundle")
	ErrRunning       = errors.New("player: already running")
	ErrStaleHandle   = errors.New("player: stale keyboard handle")
)

const (
	DefaultTickRate           = 16667 * time.Microsecond // 60 FPS
	DefaultMaxMessagesPerTick = 1000
)

// Config configures a Player.
type Config struct {
	TickRate time.Duration `yaml:"tick_rate" toml:"tick_rate"`
	// MaxMessagesPerTick bounds the message queue between two ticks.
	// Messages beyond it are dropped.
	MaxMessagesPerTick int `yaml:"max_messages_per_tick" toml:"max_messages_per_tick"`
}

func (c Config) withDefaults() Config {
	if c.TickRate <= 0 {
		c.TickRate = DefaultTickRate
	}
	if c.MaxMessagesPerTick <= 0 {
		c.MaxMessagesPerTick = DefaultMaxMessagesPerTick
	}
	return c
}

// Report summarizes a finished run. It is the payload of the unload and
// quit notifications a Player raises.
type Report struct {
	BundleID  string `json:"bundleID"`
	Frames    uint64 `json:"frames"`
	Delivered int    `json:"delivered"`
	Dropped   int    `json:"dropped"`
	Reason    string `json:"reason"`
}

// Player implements embedx.Engine.
type Player struct {
	cfg    Config
	scenes map[string]*Scene

	mu       sync.Mutex
	cur      *run
	queue    []command
	queued   int // messages in queue
	seq      uint64
	next     uint64 // last handle issued
	keyboard embedx.Handle
	text     string
	last     Report
}

// New returns a Player serving scenes. A later scene with the same bundle
// replaces an earlier one.
func New(cfg Config, scenes ...*Scene) *Player {
	p := &Player{
		cfg:    cfg.withDefaults(),
		scenes: make(map[string]*Scene, len(scenes)),
	}
	for _, s := range scenes {
		p.scenes[s.Bundle] = s
	}
	return p
}

// Launch loads the scene for req.BundleID, falling back to the scene with
// the empty bundle, and starts ticking. Cancelling ctx unloads the run.
func (p *Player) Launch(ctx context.Context, host embedx.Host, req embedx.LaunchRequest) error {
	scene, ok := p.scenes[req.BundleID]
	if !ok {
		scene, ok = p.scenes[""]
	}
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownBundle, req.BundleID)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cur != nil {
		return ErrRunning
	}
	rctx, cancel := context.WithCancel(ctx)
	r := &run{
		bundle: req.BundleID,
		scene:  scene,
		host:   host,
		ctx:    rctx,
		cancel: cancel,
		done:   make(chan struct{}),
		report: Report{BundleID: req.BundleID},
	}
	p.cur = r
	p.queue, p.queued = nil, 0

	log().Info("run starting",
		zap.String("bundle_id", req.BundleID),
		zap.Duration("tick_rate", p.cfg.TickRate),
		zap.Int("args", len(req.Args)))
	go p.loop(r)
	return nil
}

func (p *Player) Pause(paused bool) {
	if paused {
		p.enqueue(command{kind: cmdPause})
		return
	}
	p.enqueue(command{kind: cmdResume})
}

func (p *Player) Show() { p.enqueue(command{kind: cmdShow}) }

func (p *Player) Unload() { p.enqueue(command{kind: cmdUnload}) }

func (p *Player) Quit(exitCode int) {
	p.enqueue(command{kind: cmdQuit, exitCode: exitCode})
}

func (p *Player) Deliver(msg embedx.Message) {
	p.enqueue(command{kind: cmdMessage, msg: msg})
}

func (p *Player) OpenURL(url string) {
	p.enqueue(command{kind: cmdOpenURL, url: url})
}

// KeyboardSurface returns the active keyboard surface.
func (p *Player) KeyboardSurface() embedx.Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.keyboard
}

// TextField returns the text of keyboard surface h.
func (p *Player) TextField(h embedx.Handle) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !h.Valid() || h != p.keyboard {
		return "", false
	}
	return p.text, true
}

// InsertText appends text to keyboard surface h.
func (p *Player) InsertText(h embedx.Handle, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !h.Valid() || h != p.keyboard {
		return fmt.Errorf("%w: %s", ErrStaleHandle, h)
	}
	p.text += text
	return nil
}

// Running reports whether a run is active.
func (p *Player) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cur != nil
}

// Wait blocks until the active run has finished and its completion has
// been reported to the host, then returns its report. With no active run it
// returns the last report immediately. Do not call it from a listener.
func (p *Player) Wait(ctx context.Context) (Report, error) {
	p.mu.Lock()
	r := p.cur
	p.mu.Unlock()

	if r != nil {
		select {
		case <-r.done:
		case <-ctx.Done():
			return Report{}, ctx.Err()
		}
	}
	return p.LastReport(), nil
}

// LastReport returns the report of the last finished run.
func (p *Player) LastReport() Report {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func (p *Player) enqueue(c command) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cur == nil {
		log().Debug("no active run, dropping command", zap.Stringer("command", c.kind))
		return
	}
	if c.kind == cmdMessage {
		if p.queued >= p.cfg.MaxMessagesPerTick {
			p.cur.overflow++
			recordDrop("queue_full")
			log().Warn("message queue full, dropping message", zap.Stringer("message", c.msg))
			return
		}
		p.queued++
	}
	p.seq++
	c.seq = p.seq
	p.queue = append(p.queue, c)
}

func (p *Player) newHandle() embedx.Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	return embedx.Handle(p.next)
}

func (p *Player) openKeyboard(text string) embedx.Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	p.keyboard = embedx.Handle(p.next)
	p.text = text
	return p.keyboard
}

func (p *Player) closeKeyboard() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keyboard = embedx.InvalidHandle
	p.text = ""
}

func log() *zap.Logger {
	return embedx.Logger().Named("player")
}
