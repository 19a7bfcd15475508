package main

import (
	"bufio"
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/milk9111/tilemap/chunks"
	"github.com/milk9111/tilemap/config"
	"github.com/milk9111/tilemap/render"
	"github.com/milk9111/tilemap/script"
	"github.com/milk9111/tilemap/session"
)

// frame is the tick period of the main loop.
const frame = 16 * time.Millisecond

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults are built in)")
	docPath := flag.String("doc", "", "map document to open; embed:<name> opens a bundled map")
	logFile := flag.String("log-file", "", "write logs to this rotating file instead of stderr")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *logFile != "" {
		cfg.Log.File = *logFile
	}
	logger, closer, err := cfg.Log.NewLogger()
	if err != nil {
		log.Fatal(err)
	}
	defer closer.Close()

	if err := run(cfg, *docPath, logger); err != nil {
		logger.WithError(err).Error("tilemap exited")
		closer.Close()
		os.Exit(1)
	}
}

func run(cfg config.Config, docPath string, logger *logrus.Logger) error {
	store, err := chunks.NewStore(cfg.Geometry())
	if err != nil {
		return err
	}
	cache, err := render.New(cfg.Cache())
	if err != nil {
		return err
	}
	defer cache.Close()

	sess := session.New(store, session.Options{
		UndoDepth:    cfg.UndoDepth,
		ApplyPerTick: cfg.ApplyPerTick,
		Cache:        cache,
		Log:          logger,
	})

	brushes, err := script.Builtin()
	if err != nil {
		return err
	}
	var events <-chan string
	var watchErrs <-chan error
	if cfg.ScriptsDir != "" {
		if err := brushes.LoadDir(cfg.ScriptsDir); err != nil {
			logger.WithError(err).Warn("some brushes failed to load")
		}
		w, err := config.NewWatcher(script.Ext, cfg.ScriptsDir)
		if err != nil {
			return err
		}
		defer w.Close()
		events, watchErrs = w.Events, w.Errors
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := newREPL(ctx, sess, brushes, os.Stdout)
	if docPath != "" {
		if err := r.exec("load " + docPath); err != nil {
			return err
		}
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(frame)
	defer ticker.Stop()
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return sess.Settle(ctx)
			}
			if err := r.exec(line); err != nil {
				r.printf("error: %v\n", err)
			}
			if r.quit {
				return nil
			}
		case <-ticker.C:
			sess.Tick()
		case path, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if err := brushes.Reload(path); err != nil {
				logger.WithError(err).Warn("brush reload failed")
				continue
			}
			logger.WithField("path", path).Info("brush reloaded")
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			logger.WithError(err).Warn("watcher")
		case <-ctx.Done():
			sess.CancelAll()
			return nil
		}
	}
}
