package embedx_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	. "github.com/comalice/embedx"
	"github.com/comalice/embedx/testutil"
)

// unloadCycle unloads a running instance and relaunches it.
func unloadCycle(t *testing.T, inst *Instance, eng *testutil.FakeEngine) {
	t.Helper()
	if err := inst.UnloadApplication(); err != nil {
		t.Fatal(err)
	}
	eng.CompleteUnload(nil)
	if err := inst.RunEmbedded(context.Background(), nil, nil); err != nil {
		t.Fatal(err)
	}
}

func TestRegisterTwiceDeliversOnce(t *testing.T) {
	inst, eng := newLaunched(t)
	l := &testutil.RecordingListener{}
	if err := inst.RegisterListener(l); err != nil {
		t.Fatal(err)
	}
	if err := inst.RegisterListener(l); err != nil {
		t.Fatalf("duplicate register should be a no-op: %v", err)
	}
	if n := inst.Listeners().Len(); n != 1 {
		t.Errorf("Len = %d", n)
	}

	inst.UnloadApplication()
	eng.CompleteUnload(nil)
	if n := l.Count(NotifyUnload); n != 1 {
		t.Errorf("unload notifications = %d, want 1", n)
	}
}

func TestUnregisterDuringOwnCallback(t *testing.T) {
	inst, eng := newLaunched(t)

	first := &testutil.RecordingListener{Name: "first"}
	self := &testutil.RecordingListener{
		Name: "self",
		Hook: func(l *testutil.RecordingListener, n Notification) { inst.UnregisterListener(l) },
	}
	last := &testutil.RecordingListener{Name: "last"}
	for _, l := range []*testutil.RecordingListener{first, self, last} {
		inst.RegisterListener(l)
	}

	unloadCycle(t, inst, eng)
	unloadCycle(t, inst, eng)

	if n := self.Count(NotifyUnload); n != 1 {
		t.Errorf("self-removing listener called %d times, want 1", n)
	}
	if first.Count(NotifyUnload) != 2 || last.Count(NotifyUnload) != 2 {
		t.Errorf("other listeners: first=%d last=%d, want 2 each",
			first.Count(NotifyUnload), last.Count(NotifyUnload))
	}
}

func TestUnregisterOtherDuringCallback(t *testing.T) {
	inst, eng := newLaunched(t)

	victim := &testutil.RecordingListener{Name: "victim"}
	killer := &testutil.RecordingListener{
		Name: "killer",
		Hook: func(*testutil.RecordingListener, Notification) { inst.UnregisterListener(victim) },
	}
	inst.RegisterListener(killer)
	inst.RegisterListener(victim)

	inst.UnloadApplication()
	eng.CompleteUnload(nil)

	if n := victim.Count(NotifyUnload); n != 0 {
		t.Errorf("listener removed mid fan-out was still called %d times", n)
	}
	if n := killer.Count(NotifyUnload); n != 1 {
		t.Errorf("killer called %d times", n)
	}
}

func TestRegisterDuringCallback(t *testing.T) {
	inst, eng := newLaunched(t)

	late := &testutil.RecordingListener{Name: "late"}
	early := &testutil.RecordingListener{
		Name: "early",
		Hook: func(*testutil.RecordingListener, Notification) { inst.RegisterListener(late) },
	}
	inst.RegisterListener(early)

	unloadCycle(t, inst, eng)
	if n := late.Count(NotifyUnload); n != 0 {
		t.Errorf("listener added mid fan-out called %d times", n)
	}
	unloadCycle(t, inst, eng)
	if n := late.Count(NotifyUnload); n != 1 {
		t.Errorf("late listener called %d times on next fan-out", n)
	}
}

type notComparable struct {
	seen []Notification
}

func (notComparable) OnUnload(Notification) {}

// boxListener has a comparable type but holds arbitrary state.
type boxListener struct {
	state any
}

func (boxListener) OnUnload(Notification) {}

func TestRegisterRejectsUnusableListeners(t *testing.T) {
	inst := NewInstance()

	tests := []struct {
		name string
		l    Listener
		want error
	}{
		{"nil", nil, ErrNoCapability},
		{"no methods", &struct{ n int }{}, ErrNoCapability},
		{"empty funcs", &ListenerFuncs{}, ErrNoCapability},
		{"not comparable", notComparable{}, ErrNotComparable},
		{"slice in interface field", boxListener{state: []int{1}}, ErrNotComparable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Twice: the second call must not compare against the first.
			for range 2 {
				if err := inst.RegisterListener(tt.l); !errors.Is(err, tt.want) {
					t.Errorf("err = %v, want %v", err, tt.want)
				}
			}
			inst.UnregisterListener(tt.l)
		})
	}
	if n := inst.Listeners().Len(); n != 0 {
		t.Errorf("Len = %d", n)
	}
}

func TestBoxListenerWithComparableState(t *testing.T) {
	inst := NewInstance()
	l := boxListener{state: "a"}
	for range 2 {
		if err := inst.RegisterListener(l); err != nil {
			t.Fatal(err)
		}
	}
	if n := inst.Listeners().Len(); n != 1 {
		t.Errorf("Len = %d, want 1", n)
	}
	inst.UnregisterListener(boxListener{state: []int{1}})
	inst.UnregisterListener(l)
	if n := inst.Listeners().Len(); n != 0 {
		t.Errorf("Len = %d after unregister", n)
	}
}

func TestListenerFuncsCapturedAtRegistration(t *testing.T) {
	inst, eng := newLaunched(t)

	var first, second int
	f := &ListenerFuncs{Unload: func(Notification) { first++ }}
	if err := inst.RegisterListener(f); err != nil {
		t.Fatal(err)
	}
	f.Unload = func(Notification) { second++ }
	unloadCycle(t, inst, eng)
	if first != 1 || second != 0 {
		t.Fatalf("first=%d second=%d, want 1 0", first, second)
	}

	inst.UnregisterListener(f)
	if err := inst.RegisterListener(f); err != nil {
		t.Fatal(err)
	}
	unloadCycle(t, inst, eng)
	if first != 1 || second != 1 {
		t.Errorf("first=%d second=%d after re-register, want 1 1", first, second)
	}
}

func TestCapabilityRouting(t *testing.T) {
	inst, eng := newLaunched(t)

	unloadOnly := &testutil.UnloadOnly{}
	var quits []int
	quitOnly := &ListenerFuncs{Quit: func(n Notification) { quits = append(quits, n.ExitCode) }}
	inst.RegisterListener(unloadOnly)
	inst.RegisterListener(quitOnly)

	unloadCycle(t, inst, eng)
	inst.QuitApplication(4)
	eng.CompleteQuit(nil, 4)

	if n := unloadOnly.Count(); n != 1 {
		t.Errorf("unload-only listener called %d times", n)
	}
	if len(quits) != 1 || quits[0] != 4 {
		t.Errorf("quits = %v", quits)
	}
}

func TestUnregisterUnknownIsIgnored(t *testing.T) {
	inst := NewInstance()
	inst.UnregisterListener(&testutil.RecordingListener{})
	inst.UnregisterListener(nil)
	inst.UnregisterListener(notComparable{})
}

func TestListenerRegistryConcurrentUse(t *testing.T) {
	inst, eng := newLaunched(t)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				l := &testutil.RecordingListener{}
				inst.RegisterListener(l)
				inst.UnregisterListener(l)
			}
		}()
	}
	for range 20 {
		unloadCycle(t, inst, eng)
	}
	wg.Wait()

	if n := inst.Listeners().Len(); n != 0 {
		t.Errorf("Len = %d after all listeners removed", n)
	}
}

func TestNotificationKindString(t *testing.T) {
	if NotifyUnload.String() != "unload" || NotifyQuit.String() != "quit" {
		t.Error("unexpected kind names")
	}
	if NotificationKind(0).String() != "unknown" {
		t.Error("zero kind should be unknown")
	}
}
