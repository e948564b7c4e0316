package embedx

import (
	"context"

	"github.com/comalice/embedx/internal/fsm"
)

type event int

const (
	evLaunch event = iota + 1
	evLaunched
	evAbortLaunch
	evPause
	evResume
	evShow
	evUnload
	evUnloaded
	evQuit
	evQuitted
)

var eventNames = map[event]string{
	evLaunch:      "launch",
	evLaunched:    "launched",
	evAbortLaunch: "abort_launch",
	evPause:       "pause",
	evResume:      "resume",
	evShow:        "show",
	evUnload:      "unload",
	evUnloaded:    "did_unload",
	evQuit:        "quit",
	evQuitted:     "did_quit",
}

func (e event) String() string { return eventNames[e] }

// Edge is one lifecycle transition.
type Edge struct {
	From  State
	To    State
	Event string
}

type edge struct {
	from State
	ev   event
	to   State
}

// The order matters where one event leaves a state twice: the first edge
// whose guard passes wins.
var lifecycleTable = []edge{
	{StateUnconfigured, evLaunch, StateLaunching},

	{StateLaunching, evLaunched, StateRunning},
	{StateLaunching, evAbortLaunch, StateUnconfigured},
	{StateLaunching, evAbortLaunch, StateUnloaded},
	{StateLaunching, evUnloaded, StateUnloaded},
	{StateLaunching, evQuitted, StateQuit},

	{StateRunning, evPause, StatePaused},
	{StateRunning, evUnload, StateUnloading},
	{StateRunning, evQuit, StateQuitting},
	{StateRunning, evUnloaded, StateUnloaded},
	{StateRunning, evQuitted, StateQuit},

	{StatePaused, evResume, StateRunning},
	{StatePaused, evShow, StateRunning},
	{StatePaused, evUnload, StateUnloading},
	{StatePaused, evQuit, StateQuitting},
	{StatePaused, evUnloaded, StateUnloaded},
	{StatePaused, evQuitted, StateQuit},

	{StateUnloading, evUnloaded, StateUnloaded},
	{StateUnloading, evQuitted, StateQuit},

	{StateUnloaded, evLaunch, StateLaunching},
	{StateUnloaded, evShow, StateLaunching},

	{StateQuitting, evQuitted, StateQuit},
}

// Transitions returns the lifecycle transition table.
func Transitions() []Edge {
	edges := make([]Edge, 0, len(lifecycleTable))
	for _, e := range lifecycleTable {
		edges = append(edges, Edge{From: e.from, To: e.to, Event: e.ev.String()})
	}
	return edges
}

// lifecycleHooks are entry actions run while the instance lock is held.
// They must only touch instance fields.
type lifecycleHooks struct {
	enterUnloaded func()
	enterQuit     func()
}

func newLifecycle(hooks lifecycleHooks) (*fsm.Machine, error) {
	states := make(map[State]*fsm.State, len(stateNames))
	ordered := make([]*fsm.State, 0, len(stateNames))
	for _, s := range States() {
		st := &fsm.State{ID: fsm.StateID(s)}
		states[s] = st
		ordered = append(ordered, st)
	}
	states[StateUnconfigured].Initial = true
	states[StateQuit].Final = true

	for _, e := range lifecycleTable {
		var guard fsm.Guard
		if e.ev == evAbortLaunch {
			guard = rollbackTo(e.to)
		}
		states[e.from].On(fsm.EventID(e.ev), states[e.to], guard, nil)
	}

	if hooks.enterUnloaded != nil {
		states[StateUnloaded].OnEntry(func(ctx context.Context, evt *fsm.Event, from, to fsm.StateID) error {
			hooks.enterUnloaded()
			return nil
		})
	}
	if hooks.enterQuit != nil {
		states[StateQuit].OnEntry(func(ctx context.Context, evt *fsm.Event, from, to fsm.StateID) error {
			hooks.enterQuit()
			return nil
		})
	}

	m, err := fsm.NewMachine(ordered...)
	if err != nil {
		return nil, err
	}
	if err := m.Start(context.Background()); err != nil {
		return nil, err
	}
	return m, nil
}

// rollbackTo enables an abort edge only when the launch started from target.
func rollbackTo(target State) fsm.Guard {
	return func(ctx context.Context, evt *fsm.Event, from, to fsm.StateID) (bool, error) {
		prev, ok := evt.Payload.(State)
		return ok && prev == target, nil
	}
}
