package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/tesseralab/tessera/internal/config"
	"github.com/tesseralab/tessera/internal/pipeline"
)

// debounceWindow batches bursts of filesystem events (editors and rsync
// touch files several times per save) into a single pipeline run.
const debounceWindow = 2 * time.Second

func runWatch(args []string) error {
	flags, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := config.Resolve(flags.opts)
	if err != nil {
		return err
	}

	enricher, provider, cleanup, err := buildEnricher(cfg, flags.noLLM)
	if err != nil {
		return err
	}
	defer cleanup()

	p := &pipeline.Pipeline{
		InputDir:  cfg.InputDir.Value,
		OutputDir: cfg.OutputDir.Value,
		Enricher:  enricher,
		Provider:  provider,
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(p.InputDir); err != nil {
		return fmt.Errorf("watching %s: %w", p.InputDir, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Watching %s (Ctrl-C to stop)\n", p.InputDir)

	// Initial run picks up whatever is already there.
	if stats, err := p.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	} else {
		printStats(stats, true, true)
	}

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nStopping")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(strings.ToLower(event.Name), ".json") {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerC = timer.C
			} else {
				timer.Reset(debounceWindow)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)

		case <-timerC:
			timer = nil
			timerC = nil
			fmt.Printf("\nChange detected, re-running\n")
			if stats, err := p.Run(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			} else {
				printStats(stats, true, true)
			}
		}
	}
}
