// Tests for the snapshot stores and their use as an instance's store.
package production

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/comalice/embedx"
	"github.com/comalice/embedx/testutil"
)

func stores(t *testing.T) map[string]embedx.SnapshotStore {
	t.Helper()
	js, err := NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONStore failed: %v", err)
	}
	ys, err := NewYAMLStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewYAMLStore failed: %v", err)
	}
	return map[string]embedx.SnapshotStore{"json": js, "yaml": ys}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			snap := embedx.Snapshot{
				InstanceID: "inst-1",
				State:      embedx.StatePaused,
				BundleID:   "com.example",
				PendingURL: "app://x",
				ExitCode:   3,
				Timestamp:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			}
			if err := s.Save(context.Background(), snap); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			got, err := s.Load(context.Background(), "inst-1")
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if got.State != snap.State || got.BundleID != snap.BundleID || got.PendingURL != snap.PendingURL ||
				got.ExitCode != snap.ExitCode || !got.Timestamp.Equal(snap.Timestamp) {
				t.Errorf("Load = %+v, want %+v", got, snap)
			}
		})
	}
}

func TestStore_LoadNonExistent(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Load(context.Background(), "nonexistent")
			if !errors.Is(err, os.ErrNotExist) {
				t.Errorf("Expected os.ErrNotExist wrapped error, got %v", err)
			}
		})
	}
}

func TestStore_RejectsPathIDs(t *testing.T) {
	s, _ := NewJSONStore(t.TempDir())
	for _, id := range []string{"", "..", "a/b", `a\b`} {
		if err := s.Save(context.Background(), embedx.Snapshot{InstanceID: id}); err == nil {
			t.Errorf("Save(%q) should fail", id)
		}
	}
}

func TestStore_CanceledContext(t *testing.T) {
	s, _ := NewYAMLStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Save(ctx, embedx.Snapshot{InstanceID: "x"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Save with canceled ctx: %v", err)
	}
}

func TestStore_FileFormat(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewYAMLStore(dir)
	s.Save(context.Background(), embedx.Snapshot{InstanceID: "x", State: embedx.StateRunning})

	data, err := os.ReadFile(filepath.Join(dir, "x.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if want := "state: running"; !strings.Contains(string(data), want) {
		t.Errorf("yaml file missing %q:\n%s", want, data)
	}
}

func TestNewStore(t *testing.T) {
	if _, err := NewStore("yaml", t.TempDir()); err != nil {
		t.Error(err)
	}
	if _, err := NewStore("", t.TempDir()); err != nil {
		t.Error(err)
	}
	if _, err := NewStore("xml", t.TempDir()); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestStore_Integration_TracksInstance(t *testing.T) {
	store, err := NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	eng := testutil.NewFakeEngine()
	inst := embedx.NewInstance(embedx.WithEngine(eng), embedx.WithSnapshotStore(store))
	inst.SetDataBundleID("com.example")
	inst.RunEmbedded(context.Background(), nil, nil)
	inst.Pause(true)

	got, err := store.Load(context.Background(), inst.ID())
	if err != nil {
		t.Fatal(err)
	}
	if got.State != embedx.StatePaused || got.BundleID != "com.example" {
		t.Errorf("persisted = %+v", got)
	}
}
