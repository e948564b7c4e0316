package embedx

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// stubEngine completes launches synchronously and ignores everything else.
type stubEngine struct{}

func (stubEngine) Launch(_ context.Context, h Host, _ LaunchRequest) error {
	h.DidLaunch(Handle(1))
	return nil
}
func (stubEngine) Pause(bool)              {}
func (stubEngine) Show()                   {}
func (stubEngine) Unload()                 {}
func (stubEngine) Quit(int)                {}
func (stubEngine) Deliver(Message)         {}
func (stubEngine) OpenURL(string)          {}
func (stubEngine) KeyboardSurface() Handle { return InvalidHandle }

func TestLifecycleMetrics(t *testing.T) {
	RegisterMetrics()
	launched := testutil.ToFloat64(lifecycleTransitions.WithLabelValues("unconfigured", "launching"))
	rejected := testutil.ToFloat64(lifecycleRejections.WithLabelValues("send_message", "not_ready"))
	sent := testutil.ToFloat64(bridgeMessages.WithLabelValues("sent"))
	unloads := testutil.ToFloat64(notifications.WithLabelValues("unload", "true"))

	inst := NewInstance(WithEngine(stubEngine{}), WithID("metrics"))
	inst.SendMessage("a", "b", "")
	inst.RunEmbedded(context.Background(), nil, nil)
	inst.SendMessage("a", "b", "")
	inst.UnloadApplication()
	inst.DidUnload(nil)

	if d := testutil.ToFloat64(lifecycleTransitions.WithLabelValues("unconfigured", "launching")) - launched; d != 1 {
		t.Errorf("launch transitions delta = %v", d)
	}
	if d := testutil.ToFloat64(lifecycleRejections.WithLabelValues("send_message", "not_ready")) - rejected; d != 1 {
		t.Errorf("rejections delta = %v", d)
	}
	if d := testutil.ToFloat64(bridgeMessages.WithLabelValues("sent")) - sent; d != 1 {
		t.Errorf("sent delta = %v", d)
	}
	if d := testutil.ToFloat64(notifications.WithLabelValues("unload", "true")) - unloads; d != 1 {
		t.Errorf("notifications delta = %v", d)
	}
	if v := testutil.ToFloat64(lifecycleState.WithLabelValues("metrics", "unloaded")); v != 1 {
		t.Errorf("state gauge unloaded = %v", v)
	}
	if v := testutil.ToFloat64(lifecycleState.WithLabelValues("metrics", "running")); v != 0 {
		t.Errorf("state gauge running = %v", v)
	}
}

func TestReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrNotReady, "not_ready"},
		{&TransitionError{Op: "run_embedded", Err: ErrAlreadyLaunched}, "already_launched"},
		{&TransitionError{Op: "pause"}, "invalid_transition"},
		{ErrConfigurationTooLate, "configuration_too_late"},
		{ErrInvalidMessage, "invalid_message"},
		{ErrNoEngine, "no_engine"},
		{errors.New("x"), "other"},
	}
	for _, tt := range tests {
		if got := reason(tt.err); got != tt.want {
			t.Errorf("reason(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestTransitionErrorMessage(t *testing.T) {
	err := &TransitionError{Op: "pause", From: StateUnloaded, Err: ErrInvalidTransition}
	if got := err.Error(); got != "embedx: pause rejected in state unloaded" {
		t.Errorf("Error() = %q", got)
	}
	err = &TransitionError{Op: "run_embedded", From: StateRunning, Err: ErrAlreadyLaunched}
	if !errors.Is(err, ErrInvalidTransition) {
		t.Error("already launched should wrap invalid transition")
	}
}
