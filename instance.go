package embedx

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/comalice/embedx/internal/fsm"
)

// Option configures an Instance at construction.
type Option func(*Instance)

// WithEngine attaches the runtime engine.
func WithEngine(e Engine) Option {
	return func(i *Instance) {
		i.engine = e
	}
}

// WithLogger sets the instance logger; the package Logger is used otherwise.
func WithLogger(l *zap.Logger) Option {
	return func(i *Instance) {
		i.logger = l
	}
}

// WithSnapshotStore persists a snapshot after every transition.
func WithSnapshotStore(s SnapshotStore) Option {
	return func(i *Instance) {
		i.store = s
	}
}

// WithID overrides the generated instance ID.
func WithID(id string) Option {
	return func(i *Instance) {
		if id != "" {
			i.id = id
		}
	}
}

// Instance is the host-side handle of one embedded runtime. All methods are
// safe for concurrent use; the lifecycle is meant to be driven from a
// single owner goroutine.
type Instance struct {
	id        string
	engine    Engine
	logger    *zap.Logger
	store     SnapshotStore
	listeners *ListenerRegistry

	mu          sync.Mutex
	machine     *fsm.Machine
	changed     chan struct{} // closed and replaced on every transition
	bundleID    string
	launchBegun bool
	pendingURL  string
	hasURL      bool
	args        []string
	launchOpts  map[string]any
	controller  Handle
	exitCode    int
	seq         uint64
}

// transition is a completed state change, captured under the lock and
// reported after it is released.
type transition struct {
	from, to State
	snap     Snapshot
}

// NewInstance builds an unconfigured instance. Most hosts use GetInstance.
func NewInstance(opts ...Option) *Instance {
	i := &Instance{
		id:        uuid.NewString(),
		listeners: NewListenerRegistry(),
		changed:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(i)
	}

	m, err := newLifecycle(lifecycleHooks{
		enterUnloaded: func() { i.controller = InvalidHandle },
		enterQuit:     func() { i.controller = InvalidHandle },
	})
	if err != nil {
		// The lifecycle table is static; failure here is a programming error.
		panic(fmt.Sprintf("embedx: lifecycle table: %v", err))
	}
	i.machine = m
	return i
}

// ID returns the instance identifier.
func (i *Instance) ID() string { return i.id }

// State returns the current lifecycle state.
func (i *Instance) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.stateLocked()
}

// BundleID returns the configured data-bundle identifier.
func (i *Instance) BundleID() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.bundleID
}

// ExitCode returns the exit code reported by the last quit.
func (i *Instance) ExitCode() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.exitCode
}

// AppController returns the runtime's application-controller handle, valid
// while the runtime is running or paused.
func (i *Instance) AppController() Handle {
	i.mu.Lock()
	defer i.mu.Unlock()
	switch i.stateLocked() {
	case StateRunning, StatePaused, StateUnloading, StateQuitting:
		return i.controller
	}
	return InvalidHandle
}

// Listeners returns the instance's listener registry.
func (i *Instance) Listeners() *ListenerRegistry { return i.listeners }

// RegisterListener adds l to the listener registry.
func (i *Instance) RegisterListener(l Listener) error {
	if err := i.listeners.Register(l); err != nil {
		return i.reject("register_listener", err)
	}
	return nil
}

// UnregisterListener removes l from the listener registry.
func (i *Instance) UnregisterListener(l Listener) {
	i.listeners.Unregister(l)
}

// SetDataBundleID selects the content bundle loaded at launch. It is only
// accepted before the first launch begins.
func (i *Instance) SetDataBundleID(id string) error {
	i.mu.Lock()
	if i.launchBegun || i.stateLocked() != StateUnconfigured {
		st := i.stateLocked()
		i.mu.Unlock()
		return i.reject("set_data_bundle_id", fmt.Errorf("%w: bundle id is fixed once launch begins (state %s)", ErrConfigurationTooLate, st))
	}
	i.bundleID = id
	i.mu.Unlock()
	i.log().Debug("data bundle configured", zap.String("bundle_id", id))
	return nil
}

// SetAbsoluteURL stores a deep link for the runtime. The URL is consumed
// once: right away when the runtime is running, otherwise on the next
// transition into Running. A later call replaces an unconsumed URL.
func (i *Instance) SetAbsoluteURL(url string) error {
	i.mu.Lock()
	st := i.stateLocked()
	switch st {
	case StateQuitting, StateQuit:
		i.mu.Unlock()
		return i.reject("set_absolute_url", fmt.Errorf("%w: instance is %s", ErrNotReady, st))
	case StateRunning:
		eng := i.engine
		i.mu.Unlock()
		eng.OpenURL(url)
		i.log().Debug("deep link delivered", zap.String("url", url))
		return nil
	}
	i.pendingURL = url
	i.hasURL = true
	i.mu.Unlock()
	i.log().Debug("deep link pending", zap.String("url", url), zap.Stringer("state", st))
	return nil
}

// RunEmbedded launches the runtime with the host's arguments and platform
// launch options. It returns once the launch is dispatched; the instance is
// Launching until the engine reports its first frame. Calling it on an
// instance that is already launched returns ErrAlreadyLaunched.
func (i *Instance) RunEmbedded(ctx context.Context, args []string, launchOptions map[string]any) error {
	const op = "run_embedded"

	i.mu.Lock()
	if i.engine == nil {
		i.mu.Unlock()
		return i.reject(op, ErrNoEngine)
	}
	from := i.stateLocked()
	if from.Live() {
		i.mu.Unlock()
		return i.reject(op, &TransitionError{Op: op, From: from, Err: ErrAlreadyLaunched})
	}
	tr, err := i.fireLocked(op, evLaunch, nil)
	if err != nil {
		i.mu.Unlock()
		return i.reject(op, err)
	}
	i.launchBegun = true
	i.args = slices.Clone(args)
	i.launchOpts = maps.Clone(launchOptions)
	req := i.launchRequestLocked()
	eng := i.engine
	i.mu.Unlock()

	i.report(tr)
	return i.launch(ctx, op, eng, req, from)
}

// launch hands req to the engine and rolls back when the engine refuses.
func (i *Instance) launch(ctx context.Context, op string, eng Engine, req LaunchRequest, from State) error {
	i.log().Info("launching runtime",
		zap.String("bundle_id", req.BundleID),
		zap.Int("args", len(req.Args)))

	err := eng.Launch(ctx, i, req)
	if err == nil {
		return nil
	}

	i.mu.Lock()
	var tr transition
	rolledBack := false
	if i.stateLocked() == StateLaunching {
		tr, _ = i.fireLocked(op, evAbortLaunch, from)
		rolledBack = true
		if from == StateUnconfigured {
			i.launchBegun = false
		}
	}
	i.mu.Unlock()

	if rolledBack {
		i.report(tr)
	}
	return i.reject(op, fmt.Errorf("embedx: launch: %w", err))
}

// Pause pauses (true) or resumes (false) the runtime. A request for the
// state the instance is already in is a no-op.
func (i *Instance) Pause(pause bool) error {
	op, ev, same := "resume", evResume, StateRunning
	if pause {
		op, ev, same = "pause", evPause, StatePaused
	}

	i.mu.Lock()
	if i.stateLocked() == same {
		i.mu.Unlock()
		i.log().Debug("pause request is a no-op", zap.Bool("pause", pause))
		return nil
	}
	tr, err := i.fireLocked(op, ev, nil)
	if err != nil {
		i.mu.Unlock()
		return i.reject(op, err)
	}
	url, hasURL := i.takeURLLocked(tr.to)
	eng := i.engine
	i.mu.Unlock()

	eng.Pause(pause)
	i.report(tr)
	if hasURL {
		eng.OpenURL(url)
	}
	return nil
}

// ShowWindow brings the runtime back to the visible running state: a paused
// runtime resumes, an unloaded runtime re-launches with its retained
// configuration. It is a no-op while running.
func (i *Instance) ShowWindow() error {
	const op = "show_window"

	i.mu.Lock()
	from := i.stateLocked()
	if from == StateRunning {
		i.mu.Unlock()
		i.log().Debug("show request is a no-op")
		return nil
	}
	tr, err := i.fireLocked(op, evShow, nil)
	if err != nil {
		i.mu.Unlock()
		return i.reject(op, err)
	}
	eng := i.engine
	if tr.to == StateLaunching {
		req := i.launchRequestLocked()
		i.mu.Unlock()
		i.report(tr)
		return i.launch(context.Background(), op, eng, req, from)
	}
	url, hasURL := i.takeURLLocked(tr.to)
	i.mu.Unlock()

	eng.Pause(false)
	eng.Show()
	i.report(tr)
	if hasURL {
		eng.OpenURL(url)
	}
	return nil
}

// UnloadApplication starts unloading the runtime. Completion is signaled by
// an unload notification. A second call while unloading is a no-op.
func (i *Instance) UnloadApplication() error {
	const op = "unload_application"

	i.mu.Lock()
	if i.stateLocked() == StateUnloading {
		i.mu.Unlock()
		i.log().Debug("unload already in progress")
		return nil
	}
	tr, err := i.fireLocked(op, evUnload, nil)
	if err != nil {
		i.mu.Unlock()
		return i.reject(op, err)
	}
	eng := i.engine
	i.mu.Unlock()

	i.report(tr)
	eng.Unload()
	return nil
}

// QuitApplication starts terminating the runtime. Completion is signaled by
// a quit notification, after which the instance accepts no further
// transitions. A second call while quitting is a no-op.
func (i *Instance) QuitApplication(exitCode int) error {
	const op = "quit_application"

	i.mu.Lock()
	if i.stateLocked() == StateQuitting {
		i.mu.Unlock()
		i.log().Debug("quit already in progress")
		return nil
	}
	tr, err := i.fireLocked(op, evQuit, exitCode)
	if err != nil {
		i.mu.Unlock()
		return i.reject(op, err)
	}
	i.exitCode = exitCode
	eng := i.engine
	i.mu.Unlock()

	i.report(tr)
	eng.Quit(exitCode)
	return nil
}

// AwaitState blocks until the instance is in one of want or ctx is done.
func (i *Instance) AwaitState(ctx context.Context, want ...State) (State, error) {
	for {
		i.mu.Lock()
		cur := i.stateLocked()
		ch := i.changed
		i.mu.Unlock()

		if slices.Contains(want, cur) {
			return cur, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return cur, ctx.Err()
		}
	}
}

//
// Host
//

// DidLaunch is called by the engine once the runtime's first frame is live.
func (i *Instance) DidLaunch(controller Handle) {
	i.mu.Lock()
	if i.stateLocked() != StateLaunching {
		st := i.stateLocked()
		i.mu.Unlock()
		i.log().Warn("ignoring launch completion", zap.Stringer("state", st))
		return
	}
	tr, err := i.fireLocked("did_launch", evLaunched, nil)
	if err != nil {
		i.mu.Unlock()
		i.reject("did_launch", err)
		return
	}
	i.controller = controller
	url, hasURL := i.takeURLLocked(tr.to)
	eng := i.engine
	i.mu.Unlock()

	i.report(tr)
	if hasURL {
		eng.OpenURL(url)
	}
}

// DidUnload is called by the engine when the runtime has unloaded, whether
// requested or not. Listeners are notified on the calling goroutine.
func (i *Instance) DidUnload(payload any) {
	i.complete(NotifyUnload, evUnloaded, payload, 0)
}

// DidQuit is called by the engine when the runtime has quit.
func (i *Instance) DidQuit(payload any, exitCode int) {
	i.complete(NotifyQuit, evQuitted, payload, exitCode)
}

func (i *Instance) complete(kind NotificationKind, ev event, payload any, exitCode int) {
	op := ev.String()

	i.mu.Lock()
	from := i.stateLocked()
	if !i.machine.Accepts(fsm.EventID(ev)) {
		i.mu.Unlock()
		i.log().Warn("ignoring stray notification",
			zap.Stringer("kind", kind),
			zap.Stringer("state", from))
		return
	}
	requested := (kind == NotifyUnload && from == StateUnloading) ||
		(kind == NotifyQuit && from == StateQuitting)
	tr, err := i.fireLocked(op, ev, payload)
	if err != nil {
		i.mu.Unlock()
		i.reject(op, err)
		return
	}
	if kind == NotifyQuit {
		i.exitCode = exitCode
		tr.snap.ExitCode = exitCode
	}
	i.mu.Unlock()

	i.report(tr)
	if !requested {
		i.log().Warn("runtime changed state on its own",
			zap.Stringer("kind", kind),
			zap.Stringer("from", from))
	}

	n := Notification{
		Kind:       kind,
		InstanceID: i.id,
		Payload:    payload,
		ExitCode:   exitCode,
		Requested:  requested,
		At:         time.Now(),
	}
	delivered := i.listeners.dispatch(n)
	recordNotification(kind, requested)
	i.log().Debug("notification delivered",
		zap.Stringer("kind", kind),
		zap.Int("listeners", delivered))
}

//
// Helpers
//

func (i *Instance) stateLocked() State {
	return State(i.machine.Current())
}

// fireLocked drives the lifecycle machine. A rejected event leaves the
// state untouched and returns a *TransitionError.
func (i *Instance) fireLocked(op string, ev event, payload any) (transition, error) {
	from := i.stateLocked()
	to, err := i.machine.Send(context.Background(), fsm.Event{ID: fsm.EventID(ev), Payload: payload})
	if err != nil {
		if errors.Is(err, fsm.ErrNoTransition) || errors.Is(err, fsm.ErrFinal) {
			return transition{}, &TransitionError{Op: op, From: from, Err: ErrInvalidTransition}
		}
		return transition{}, fmt.Errorf("embedx: %s: %w", op, err)
	}
	close(i.changed)
	i.changed = make(chan struct{})
	return transition{from: from, to: State(to), snap: i.snapshotLocked()}, nil
}

// takeURLLocked consumes the pending URL when entering Running.
func (i *Instance) takeURLLocked(to State) (string, bool) {
	if to != StateRunning || !i.hasURL {
		return "", false
	}
	url := i.pendingURL
	i.pendingURL, i.hasURL = "", false
	return url, true
}

func (i *Instance) launchRequestLocked() LaunchRequest {
	return LaunchRequest{
		InstanceID: i.id,
		BundleID:   i.bundleID,
		Args:       slices.Clone(i.args),
		Options:    maps.Clone(i.launchOpts),
	}
}

// report logs, counts and persists a completed transition. Called without
// the lock held.
func (i *Instance) report(tr transition) {
	recordTransition(i.id, tr.from, tr.to)
	i.log().Info("lifecycle transition",
		zap.Stringer("from", tr.from),
		zap.Stringer("to", tr.to))

	if i.store != nil {
		if err := i.store.Save(context.Background(), tr.snap); err != nil {
			i.log().Error("snapshot save failed", zap.Error(err))
		}
	}
}

// reject logs and counts a refused request and returns err unchanged.
func (i *Instance) reject(op string, err error) error {
	recordRejection(op, err)
	i.log().Warn("request rejected",
		zap.String("op", op),
		zap.String("reason", reason(err)),
		zap.Error(err))
	return err
}

func (i *Instance) log() *zap.Logger {
	l := i.logger
	if l == nil {
		l = Logger()
	}
	return l.With(zap.String("instance", i.id))
}
