package embedx

import "fmt"

// State is a lifecycle state of the embedded runtime.
type State int

const (
	StateUnconfigured State = iota
	StateLaunching
	StateRunning
	StatePaused
	StateUnloading
	StateUnloaded
	StateQuitting
	StateQuit
)

var stateNames = [...]string{
	StateUnconfigured: "unconfigured",
	StateLaunching:    "launching",
	StateRunning:      "running",
	StatePaused:       "paused",
	StateUnloading:    "unloading",
	StateUnloaded:     "unloaded",
	StateQuitting:     "quitting",
	StateQuit:         "quit",
}

// States lists every state in lifecycle order.
func States() []State {
	return []State{
		StateUnconfigured, StateLaunching, StateRunning, StatePaused,
		StateUnloading, StateUnloaded, StateQuitting, StateQuit,
	}
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Live reports whether the runtime is loaded (or loading) in this state.
func (s State) Live() bool {
	switch s {
	case StateLaunching, StateRunning, StatePaused, StateUnloading, StateQuitting:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are accepted.
func (s State) Terminal() bool {
	return s == StateQuit
}

func (s State) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(stateNames) {
		return nil, fmt.Errorf("embedx: unknown state %d", int(s))
	}
	return []byte(stateNames[s]), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("embedx: unknown state %q", string(text))
}
