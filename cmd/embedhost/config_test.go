package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func write(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadHostConfigDefaults(t *testing.T) {
	cfg, err := loadHostConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen == "" || cfg.Launch.BundleID != "demo" || !cfg.AutoLaunch {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestLoadHostConfigYAML(t *testing.T) {
	path := write(t, "host.yaml", `listen: ":9999"
log_level: debug
auto_launch: false
snapshot_dir: /tmp/snaps
snapshot_format: yaml
launch:
  bundle_id: com.example.game
  url: app://start
  args: ["--fast"]
player:
  tick_rate: 5ms
  max_messages_per_tick: 10
`)
	cfg, err := loadHostConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":9999" || cfg.AutoLaunch || cfg.SnapshotFormat != "yaml" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Launch.BundleID != "com.example.game" || cfg.Launch.URL != "app://start" {
		t.Errorf("launch = %+v", cfg.Launch)
	}
	if cfg.Player.TickRate != 5*time.Millisecond || cfg.Player.MaxMessagesPerTick != 10 {
		t.Errorf("player = %+v", cfg.Player)
	}
}

func TestLoadHostConfigTOML(t *testing.T) {
	path := write(t, "host.toml", `listen = ":9998"
cors_origins = ["http://localhost:5173"]

[launch]
bundle_id = "com.example.toml"

[player]
tick_rate = "20ms"
`)
	cfg, err := loadHostConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":9998" || cfg.Launch.BundleID != "com.example.toml" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Player.TickRate != 20*time.Millisecond {
		t.Errorf("tick rate = %v", cfg.Player.TickRate)
	}
	if len(cfg.CORSOrigins) != 1 {
		t.Errorf("cors = %v", cfg.CORSOrigins)
	}
}

func TestLoadHostConfigInvalid(t *testing.T) {
	tests := map[string]string{
		"level.yaml":  "log_level: loud\n",
		"format.yaml": "snapshot_format: xml\n",
		"bundle.yaml": "launch:\n  bundle_id: has space\n",
		"listen.yaml": "listen: \"\"\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := loadHostConfig(write(t, name, body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestHostLogger(t *testing.T) {
	cfg := defaultHostConfig()
	l, err := cfg.logger(false)
	if err != nil {
		t.Fatal(err)
	}
	if l.Core().Enabled(-1) {
		t.Error("debug should be disabled at info level")
	}
	l, _ = cfg.logger(true)
	if !l.Core().Enabled(-1) {
		t.Error("debug flag should enable debug level")
	}
}

func TestDemoSceneBuilds(t *testing.T) {
	s := demoScene(nopLogger())
	for _, name := range []string{"Echo", "Counter", "Keyboard", "Game"} {
		if s.Entities[name] == nil {
			t.Errorf("missing entity %s", name)
		}
	}
}

func nopLogger() *zap.Logger { return zap.NewNop() }
