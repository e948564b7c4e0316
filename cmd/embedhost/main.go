// Command embedhost runs the reference player inside an embedx instance and
// exposes it over an HTTP control surface.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/comalice/embedx"
	"github.com/comalice/embedx/internal/control"
	"github.com/comalice/embedx/internal/production"
	"github.com/comalice/embedx/player"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "host config file (.yaml, .yml or .toml)")
	listen := flag.String("listen", "", "control surface address (overrides config)")
	debug := flag.Bool("debug", false, "development logging at debug level")
	flag.Parse()

	if err := run(*configPath, *listen, *debug, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "embedhost:", err)
		os.Exit(1)
	}
}

func run(configPath, listen string, debug bool, args []string) error {
	cfg, err := loadHostConfig(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Listen = listen
	}

	logger, err := cfg.logger(debug)
	if err != nil {
		return err
	}
	defer logger.Sync()
	embedx.SetLogger(logger)
	embedx.RegisterMetrics()
	player.RegisterMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The runtime outlives the signal context so it can be quit cleanly.
	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	p := player.New(cfg.Player, demoScene(logger.Named("scene")))
	opts := []embedx.Option{embedx.WithEngine(p)}
	if cfg.SnapshotDir != "" {
		store, err := production.NewStore(cfg.SnapshotFormat, cfg.SnapshotDir)
		if err != nil {
			return err
		}
		opts = append(opts, embedx.WithSnapshotStore(store))
	}
	if err := embedx.Configure(opts...); err != nil {
		return err
	}
	inst := embedx.GetInstance()

	if err := inst.RegisterListener(&embedx.ListenerFuncs{
		Unload: func(n embedx.Notification) {
			logger.Info("runtime unloaded",
				zap.Bool("requested", n.Requested),
				zap.Any("report", n.Payload))
		},
		Quit: func(n embedx.Notification) {
			logger.Info("runtime quit",
				zap.Int("exit_code", n.ExitCode),
				zap.Any("report", n.Payload))
			stop()
		},
	}); err != nil {
		return err
	}

	if err := inst.Apply(cfg.Launch); err != nil {
		return err
	}
	if cfg.AutoLaunch {
		launchArgs := append(append([]string(nil), cfg.Launch.Args...), args...)
		if err := inst.RunEmbedded(runCtx, launchArgs, cfg.Launch.LaunchOptions()); err != nil {
			return err
		}
	}

	srv := control.New(inst, control.Options{
		CORSOrigins:   cfg.CORSOrigins,
		Logger:        logger.Named("http"),
		LaunchContext: runCtx,
	})
	if err := srv.Run(ctx, cfg.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	waitCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	stopRuntime(waitCtx, inst, cancelRun)
	if _, err := p.Wait(waitCtx); err != nil {
		logger.Warn("runtime did not stop in time", zap.Error(err))
	}
	logger.Info("embedhost stopped", zap.Stringer("state", inst.State()))
	return nil
}

// stopRuntime quits a live runtime. A runtime still launching gets until
// ctx is done to come up; after that its launch context is cancelled.
func stopRuntime(ctx context.Context, inst *embedx.Instance, cancelRun context.CancelFunc) {
	if inst.State() == embedx.StateLaunching {
		_, err := inst.AwaitState(ctx,
			embedx.StateRunning, embedx.StateUnconfigured, embedx.StateUnloaded, embedx.StateQuit)
		if err != nil {
			cancelRun()
			return
		}
	}
	switch inst.State() {
	case embedx.StateRunning, embedx.StatePaused:
		inst.QuitApplication(0)
	}
}
