package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"

	prompta "github.com/synzen/prompt-anything-sub000"
	"github.com/synzen/prompt-anything-sub000/internal/presentation/tui"
	"github.com/synzen/prompt-anything-sub000/pkg/adapters/console"
	"github.com/synzen/prompt-anything-sub000/pkg/flow"
)

// RunFlow executes a single console session of the flow at opts.Path. The
// overlay is merged over the flow's defaults before the run starts.
func RunFlow(opts RunOptions, overlay flow.Data) error {
	logger := createLogger(opts.Debug)
	interactive := stdoutInteractive()

	if !opts.Plain && interactive {
		tui.PrintBanner()
	}

	def, err := LoadDefinition(context.Background(), opts.Path)
	if err != nil {
		return err
	}
	if err := def.Validate(); err != nil {
		return fmt.Errorf("flow %s: %w", def.Name, err)
	}

	root, err := def.Build(nil)
	if err != nil {
		return fmt.Errorf("build flow %s: %w", def.Name, err)
	}

	initial := def.Initial()
	maps.Copy(initial, overlay)

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	var chOpts []console.Option
	if !opts.Plain && interactive {
		chOpts = append(chOpts, console.WithRenderer(tui.NewRenderer()))
	}
	ch := console.New(chOpts...)

	runner := prompta.NewRunner(initial).
		WithCollectorFactory(console.Collect[flow.Data](ch)).
		WithConfig(def.RunConfig()).
		WithLogger(logger)
	if opts.Debug {
		runner.WithHooks(debugHooks(logger))
	}

	data, runErr := runner.Run(sigCtx, root, ch)

	// A signal races the engine's own error return; prefer the signal.
	if sigCtx.Err() != nil && runErr == nil {
		runErr = sigCtx.Err()
	}

	logCompletion(def.Name, runErr, sigCtx.Signal())

	if runErr == nil && opts.PrintData {
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal collected data: %w", err)
		}
		fmt.Println(string(out))
	}

	return handleExecutionError(runErr)
}
