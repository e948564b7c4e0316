package main

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/comalice/embedx"
	"github.com/comalice/embedx/testutil"
)

func launching(t *testing.T) (*embedx.Instance, *testutil.FakeEngine) {
	t.Helper()
	eng := testutil.NewFakeEngine()
	eng.AutoLaunch = false
	inst := embedx.NewInstance(embedx.WithEngine(eng))
	if err := inst.RunEmbedded(context.Background(), nil, nil); err != nil {
		t.Fatal(err)
	}
	if st := inst.State(); st != embedx.StateLaunching {
		t.Fatalf("state = %s, want launching", st)
	}
	return inst, eng
}

func TestStopRuntimeQuitsRunning(t *testing.T) {
	eng := testutil.NewFakeEngine()
	inst := embedx.NewInstance(embedx.WithEngine(eng))
	if err := inst.RunEmbedded(context.Background(), nil, nil); err != nil {
		t.Fatal(err)
	}

	cancelled := false
	stopRuntime(context.Background(), inst, func() { cancelled = true })
	if st := inst.State(); st != embedx.StateQuitting {
		t.Errorf("state = %s, want quitting", st)
	}
	if cancelled {
		t.Error("launch context cancelled for a running runtime")
	}
	if !slices.Contains(eng.Calls(), "quit(0)") {
		t.Errorf("calls = %v", eng.Calls())
	}
}

func TestStopRuntimeWaitsForLaunch(t *testing.T) {
	inst, eng := launching(t)
	go func() {
		time.Sleep(10 * time.Millisecond)
		eng.CompleteLaunch()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	cancelled := false
	stopRuntime(ctx, inst, func() { cancelled = true })

	if st := inst.State(); st != embedx.StateQuitting {
		t.Errorf("state = %s, want quitting", st)
	}
	if cancelled {
		t.Error("launch context cancelled although the launch completed")
	}
}

func TestStopRuntimeCancelsStuckLaunch(t *testing.T) {
	inst, eng := launching(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	cancelled := false
	stopRuntime(ctx, inst, func() { cancelled = true })

	if !cancelled {
		t.Error("launch context not cancelled")
	}
	if slices.Contains(eng.Calls(), "quit(0)") {
		t.Errorf("quit sent to a runtime that never launched: %v", eng.Calls())
	}
}

func TestStopRuntimeIgnoresIdleInstance(t *testing.T) {
	eng := testutil.NewFakeEngine()
	inst := embedx.NewInstance(embedx.WithEngine(eng))

	stopRuntime(context.Background(), inst, func() { t.Error("cancelled") })
	if st := inst.State(); st != embedx.StateUnconfigured {
		t.Errorf("state = %s", st)
	}
	if calls := eng.Calls(); len(calls) != 0 {
		t.Errorf("calls = %v", calls)
	}
}
