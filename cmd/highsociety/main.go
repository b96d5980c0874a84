package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/highsociety/internal/config"
)

const (
	DefaultConfigPath = "config/highsociety.yaml"

	shutdownSaveTimeout = 5 * time.Second
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := DefaultConfigPath
	if p := os.Getenv(config.EnvPrefix + "CONFIG"); p != "" {
		cfgPath = p
	}
	flag.StringVar(&cfgPath, "config", cfgPath, "path to the YAML config")
	flag.Parse()

	cfg, err := config.LoadGame(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	slog.Info("highsociety starting",
		"log_level", cfg.LogLevel,
		"storage", cfg.Storage.Backend,
		"slot", cfg.Storage.Slot)

	store, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.close()

	sess, err := newSession(ctx, cfg, store.saves, store.runs, os.Stdout)
	if err != nil {
		return err
	}
	defer sess.close()

	lines := readLines(os.Stdin)
	sess.printf("you stand in town; type 'enter' to head out, 'help' for commands\n")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting game loop", "frame", cfg.FrameInterval)
		return sess.loop(gctx, lines, cfg.FrameInterval)
	})

	if cfg.AutosaveInterval > 0 {
		g.Go(func() error {
			slog.Info("starting autosave loop", "interval", cfg.AutosaveInterval)
			return sess.autosave(gctx, cfg.AutosaveInterval)
		})
	}

	err = g.Wait()

	saveCtx, cancel := context.WithTimeout(context.Background(), shutdownSaveTimeout)
	defer cancel()
	if serr := sess.save(saveCtx); serr != nil {
		slog.Error("final save", "err", serr)
	}

	if err != nil && !errors.Is(err, errQuit) {
		return fmt.Errorf("game loop: %w", err)
	}
	slog.Info("highsociety stopped")
	return nil
}
