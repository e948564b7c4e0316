// Package fsm is the flat state machine the lifecycle controller runs on.
// It is not safe for concurrent use; callers serialize access.
package fsm

import (
	"context"
	"errors"
	"fmt"
)

type StateID int
type EventID int

type Event struct {
	ID      EventID
	Payload any
}

type Action func(ctx context.Context, evt *Event, from StateID, to StateID) error
type Guard func(ctx context.Context, evt *Event, from StateID, to StateID) (bool, error)

var (
	ErrNoTransition = errors.New("fsm: no transition for event")
	ErrFinal        = errors.New("fsm: machine is in a final state")
	ErrNotStarted   = errors.New("fsm: machine not started")
)

// ---

type State struct {
	ID          StateID
	Transitions []*Transition
	EntryAction Action
	ExitAction  Action
	Initial     bool
	Final       bool
}

type Transition struct {
	Event  EventID
	Source *State
	Target *State // nil --> internal transition
	Guard  Guard  // nil --> always enabled
	Action Action // nil --> do nothing
}

// Machine holds a flat set of states and the current one.
type Machine struct {
	initial StateID
	order   []*State
	states  map[StateID]*State
	current *State
	started bool
}

//
// Public API
//

func (s *State) OnEntry(action Action) {
	s.EntryAction = action
}

func (s *State) OnExit(action Action) {
	s.ExitAction = action
}

// On appends a transition and returns the state for chaining.
func (s *State) On(e EventID, target *State, guard Guard, action Action) *State {
	s.Transitions = append(s.Transitions, &Transition{
		Event:  e,
		Source: s,
		Target: target,
		Guard:  guard,
		Action: action,
	})
	return s
}

func NewMachine(states ...*State) (*Machine, error) {
	if len(states) == 0 {
		return nil, errors.New("fsm: no states provided")
	}
	m := &Machine{
		order:  states,
		states: map[StateID]*State{},
	}

	var initial *State
	for _, s := range states {
		if s == nil {
			return nil, errors.New("fsm: nil state")
		}
		if _, exists := m.states[s.ID]; exists {
			return nil, fmt.Errorf("fsm: duplicate state ID %d", s.ID)
		}
		m.states[s.ID] = s
		if s.Initial {
			if initial != nil {
				return nil, errors.New("fsm: more than one initial state")
			}
			initial = s
		}
	}

	if initial == nil {
		initial = states[0] // First state is assigned as initial.
	}
	m.initial = initial.ID
	m.current = initial

	for _, s := range states {
		for _, t := range s.Transitions {
			if t == nil {
				continue
			}
			if t.Source == nil {
				t.Source = s
			}
			if t.Target != nil {
				if _, ok := m.states[t.Target.ID]; !ok {
					return nil, fmt.Errorf("fsm: state %d targets unknown state %d", s.ID, t.Target.ID)
				}
			}
		}
	}

	return m, nil
}

// Start enters the initial state.
func (m *Machine) Start(ctx context.Context) error {
	if m.current == nil {
		return errors.New("fsm: machine has no current state")
	}
	if m.started {
		return nil
	}
	if err := m.current.enterState(ctx, nil, m.current.ID, m.current.ID); err != nil {
		return err
	}
	m.started = true
	return nil
}

// Send fires evt against the current state and returns the resulting state.
// ErrNoTransition is returned when no enabled transition matches; the
// current state is left untouched.
func (m *Machine) Send(ctx context.Context, evt Event) (StateID, error) {
	if !m.started {
		return 0, ErrNotStarted
	}
	if m.current.Final {
		return m.current.ID, ErrFinal
	}

	t, err := m.pickTransition(ctx, m.current, &evt)
	if err != nil {
		return m.current.ID, err
	}
	if t == nil {
		return m.current.ID, ErrNoTransition
	}

	next, err := t.doTransition(ctx, &evt)
	m.current = next
	return next.ID, err
}

// Current returns the ID of the current state.
func (m *Machine) Current() StateID {
	return m.current.ID
}

// Initial returns the ID of the initial state.
func (m *Machine) Initial() StateID {
	return m.initial
}

// States returns the states in declaration order.
func (m *Machine) States() []*State {
	return append([]*State(nil), m.order...)
}

// Accepts reports whether any transition on e leaves the current state,
// ignoring guards.
func (m *Machine) Accepts(e EventID) bool {
	if m.current.Final {
		return false
	}
	for _, t := range m.current.Transitions {
		if t != nil && t.Event == e {
			return true
		}
	}
	return false
}

//
// Helper Functions (internal API)
//

func (s *State) evaluateEntryAction(ctx context.Context, evt *Event, sourceID StateID, targetID StateID) error {
	if s.EntryAction != nil {
		return s.EntryAction(ctx, evt, sourceID, targetID)
	}
	return nil
}

func (s *State) evaluateExitAction(ctx context.Context, evt *Event, sourceID StateID, targetID StateID) error {
	if s.ExitAction != nil {
		return s.ExitAction(ctx, evt, sourceID, targetID)
	}
	return nil
}

// enterState enters a target state.
func (s *State) enterState(ctx context.Context, evt *Event, from StateID, to StateID) error {
	return s.evaluateEntryAction(ctx, evt, from, to)
}

// exitState exits a target state.
func (s *State) exitState(ctx context.Context, evt *Event, from StateID, to StateID) error {
	return s.evaluateExitAction(ctx, evt, from, to)
}

// pickTransition grabs the first enabled transition in declaration order.
func (m *Machine) pickTransition(ctx context.Context, s *State, evt *Event) (*Transition, error) {
	for _, t := range s.Transitions {
		if t == nil || t.Event != evt.ID {
			continue
		}
		pass, err := t.evaluateGuard(ctx, evt, t.Source.ID, t.targetID())
		if err != nil {
			return nil, err
		}
		if pass {
			return t, nil
		}
	}
	return nil, nil
}

func (t *Transition) targetID() StateID {
	if t.Target == nil {
		return t.Source.ID
	}
	return t.Target.ID
}

func (t *Transition) evaluateGuard(ctx context.Context, evt *Event, sourceID StateID, targetID StateID) (bool, error) {
	if t.Guard != nil {
		return t.Guard(ctx, evt, sourceID, targetID)
	}
	return true, nil
}

func (t *Transition) evaluateAction(ctx context.Context, evt *Event, sourceID StateID, targetID StateID) error {
	if t.Action != nil {
		return t.Action(ctx, evt, sourceID, targetID)
	}
	return nil
}

// doTransition runs exit, action and entry and returns the state the
// machine ends in.
func (t *Transition) doTransition(ctx context.Context, evt *Event) (*State, error) {
	// Internal transition: action only.
	if t.Target == nil {
		return t.Source, t.evaluateAction(ctx, evt, t.Source.ID, t.Source.ID)
	}

	if err := t.Source.exitState(ctx, evt, t.Source.ID, t.Target.ID); err != nil {
		return t.Source, err
	}

	if err := t.evaluateAction(ctx, evt, t.Source.ID, t.Target.ID); err != nil {
		// Rewind to previous state.
		if rerr := t.Source.enterState(ctx, nil, t.Source.ID, t.Target.ID); rerr != nil {
			return t.Source, rerr
		}
		return t.Source, err
	}

	if err := t.Target.enterState(ctx, evt, t.Source.ID, t.Target.ID); err != nil {
		return t.Source, err
	}

	return t.Target, nil
}
