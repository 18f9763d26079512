package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	prompta "github.com/synzen/prompt-anything-sub000"
	"github.com/synzen/prompt-anything-sub000/internal/presentation/tui"
	"github.com/synzen/prompt-anything-sub000/pkg/adapters/console"
	loamflow "github.com/synzen/prompt-anything-sub000/pkg/adapters/loam"
	"github.com/synzen/prompt-anything-sub000/pkg/flow"
)

// RunWatch runs a flow directory in development mode, reloading from the
// top whenever a step document changes.
func RunWatch(opts RunOptions) error {
	info, err := os.Stat(opts.Path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("watch mode needs a flow directory, %s is a file", opts.Path)
	}

	logger := createLogger(opts.Debug)
	interactive := stdoutInteractive()
	if !opts.Plain && interactive {
		tui.PrintBanner()
	}

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	// One channel across reloads: one stdin pump, and typed-ahead input
	// survives a reload.
	chOpts := []console.Option{}
	if !opts.Plain && interactive {
		chOpts = append(chOpts, console.WithRenderer(tui.NewRenderer()))
	}
	ch := console.New(chOpts...)

	logger.Info("watching flow directory", "path", opts.Path)
	printSystemMessage("Watching '%s'.", opts.Path)

	for {
		if !watchIteration(sigCtx, opts, ch, logger) {
			break
		}
		logger.Info("restarting flow")
	}
	return nil
}

// watchIteration loads and runs the flow once. It reports whether the
// watch loop should go around again.
func watchIteration(parent *SignalContext, opts RunOptions, ch *console.Channel, logger *slog.Logger) bool {
	select {
	case <-parent.Done():
		return false
	default:
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	loader, err := loamflow.Open(opts.Path)
	if err != nil {
		logger.Error("open flow directory failed", "err", err)
		return waitForRetry(parent)
	}

	watchCh, err := loader.Watch(ctx)
	if err != nil {
		logger.Error("watcher failed to start", "err", err)
	}

	root, def, err := loadWatchedFlow(ctx, loader, opts.Path)
	if err != nil {
		// A half-edited flow is normal in watch mode. Park until the
		// next change instead of exiting.
		printSystemMessage("Flow is broken: %v", err)
		printSystemMessage("Waiting for changes...")
		if watchCh == nil {
			return waitForRetry(parent)
		}
		select {
		case <-parent.Done():
			return false
		case _, ok := <-watchCh:
			return ok
		}
	}

	reload := make(chan struct{}, 1)
	go func() {
		if watchCh == nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case id, ok := <-watchCh:
			if !ok {
				return
			}
			logger.Info("change detected", "step", id)
			if !opts.Debug {
				// The prompt line may be open; move off it first.
				fmt.Println()
			}
			printSystemMessage("Change detected in '%s'.", id)
			// Give editors a beat to finish writing before reloading.
			time.Sleep(100 * time.Millisecond)
			reload <- struct{}{}
			cancel()
		}
	}()

	runner := prompta.NewRunner(def.Initial()).
		WithCollectorFactory(console.Collect[flow.Data](ch)).
		WithConfig(def.RunConfig()).
		WithLogger(logger)
	if opts.Debug {
		runner = runner.WithHooks(debugHooks(logger))
	}

	done := make(chan error, 1)
	go func() {
		_, err := runner.Run(ctx, root, ch)
		done <- err
	}()

	select {
	case <-parent.Done():
		cancel()
		<-done
		logCompletion(def.Name, context.Canceled, parent.Signal())
		logger.Info("stopping watcher", "signal", parent.Signal())
		return false
	case <-reload:
		cancel()
		<-done
		return true
	case err := <-done:
		if errors.Is(err, context.Canceled) {
			if parent.Err() != nil {
				logCompletion(def.Name, context.Canceled, parent.Signal())
				return false
			}
			// A reload canceled the run mid-collect.
			return true
		}
		if err != nil {
			logger.Error("run failed", "err", err)
		} else {
			logCompletion(def.Name, nil, nil)
		}
		printSystemMessage("Waiting for changes...")
		select {
		case <-parent.Done():
			return false
		case <-ctx.Done():
			return true
		}
	}
}

// loadWatchedFlow assembles, validates, and builds the flow in one go so
// the broken-flow path has a single error to report.
func loadWatchedFlow(ctx context.Context, loader *loamflow.Loader, path string) (*prompta.Node[flow.Data], *flow.Definition, error) {
	def, err := loader.Load(ctx, definitionName(path))
	if err != nil {
		return nil, nil, err
	}
	if err := def.Validate(); err != nil {
		return nil, nil, err
	}
	root, err := def.Build(nil)
	if err != nil {
		return nil, nil, err
	}
	return root, def, nil
}

func waitForRetry(parent *SignalContext) bool {
	select {
	case <-parent.Done():
		return false
	case <-time.After(2 * time.Second):
		return true
	}
}
