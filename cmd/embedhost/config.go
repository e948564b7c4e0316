package main

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/comalice/embedx"
	"github.com/comalice/embedx/player"
)

type hostConfig struct {
	Listen         string              `yaml:"listen" toml:"listen"`
	LogLevel       string              `yaml:"log_level" toml:"log_level"`
	AutoLaunch     bool                `yaml:"auto_launch" toml:"auto_launch"`
	SnapshotDir    string              `yaml:"snapshot_dir" toml:"snapshot_dir"`
	SnapshotFormat string              `yaml:"snapshot_format" toml:"snapshot_format"`
	CORSOrigins    []string            `yaml:"cors_origins" toml:"cors_origins"`
	Launch         embedx.LaunchConfig `yaml:"launch" toml:"launch"`
	Player         player.Config       `yaml:"player" toml:"player"`
}

func defaultHostConfig() hostConfig {
	return hostConfig{
		Listen:     "127.0.0.1:9080",
		LogLevel:   "info",
		AutoLaunch: true,
		Launch:     embedx.LaunchConfig{BundleID: "demo"},
		Player: player.Config{
			TickRate:           player.DefaultTickRate,
			MaxMessagesPerTick: player.DefaultMaxMessagesPerTick,
		},
	}
}

// loadHostConfig reads path over the defaults. An empty path yields the
// defaults.
func loadHostConfig(path string) (hostConfig, error) {
	cfg := defaultHostConfig()
	if path != "" {
		if err := embedx.LoadConfigFile(path, &cfg); err != nil {
			return hostConfig{}, err
		}
	}
	if err := cfg.validate(); err != nil {
		return hostConfig{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

func (c hostConfig) validate() error {
	if strings.TrimSpace(c.Listen) == "" {
		return fmt.Errorf("listen is required")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	switch strings.ToLower(c.SnapshotFormat) {
	case "", "json", "yaml", "yml":
	default:
		return fmt.Errorf("snapshot_format %q: want json or yaml", c.SnapshotFormat)
	}
	if c.Player.TickRate < 0 {
		return fmt.Errorf("player.tick_rate must not be negative")
	}
	return c.Launch.Validate()
}

func (c hostConfig) logger(debug bool) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if debug {
		zc = zap.NewDevelopmentConfig()
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
