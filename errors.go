package embedx

import (
	"errors"
	"fmt"
)

// Sentinel errors. None of them is fatal to the host.
var (
	// ErrInvalidTransition indicates a lifecycle request made from a state
	// that forbids it. The instance state is unchanged.
	ErrInvalidTransition = errors.New("embedx: invalid state transition")

	// ErrAlreadyLaunched indicates RunEmbedded on an instance that is
	// already launching or live. Wraps ErrInvalidTransition.
	ErrAlreadyLaunched = fmt.Errorf("%w: already launched", ErrInvalidTransition)

	// ErrNotReady indicates a message or resource request made while the
	// runtime is not running.
	ErrNotReady = errors.New("embedx: runtime not ready")

	// ErrConfigurationTooLate indicates a configuration mutator called
	// after launch began. The previous value is retained.
	ErrConfigurationTooLate = errors.New("embedx: configuration too late")

	// ErrNoEngine indicates a launch with no Engine attached.
	ErrNoEngine = errors.New("embedx: no engine attached")

	// ErrNoCapability indicates a listener implementing neither
	// UnloadListener nor QuitListener.
	ErrNoCapability = errors.New("embedx: listener has no notification capability")

	// ErrNotComparable indicates a listener value that cannot be compared
	// by identity (register a pointer instead).
	ErrNotComparable = errors.New("embedx: listener is not comparable")

	// ErrInvalidMessage indicates a malformed message.
	ErrInvalidMessage = errors.New("embedx: invalid message")
)

// TransitionError reports a lifecycle request rejected in state From.
type TransitionError struct {
	Op   string
	From State
	Err  error
}

func (e *TransitionError) Error() string {
	msg := "embedx: " + e.Op + " rejected in state " + e.From.String()
	if e.Err != nil && e.Err != ErrInvalidTransition {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransitionError) Unwrap() error {
	if e.Err == nil {
		return ErrInvalidTransition
	}
	return e.Err
}

// reason maps an error to a short label for metrics and logs.
func reason(err error) string {
	switch {
	case errors.Is(err, ErrNotReady):
		return "not_ready"
	case errors.Is(err, ErrAlreadyLaunched):
		return "already_launched"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrConfigurationTooLate):
		return "configuration_too_late"
	case errors.Is(err, ErrInvalidMessage):
		return "invalid_message"
	case errors.Is(err, ErrNoEngine):
		return "no_engine"
	default:
		return "other"
	}
}
