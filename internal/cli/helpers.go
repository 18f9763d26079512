package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/term"

	prompta "github.com/synzen/prompt-anything-sub000"
	"github.com/synzen/prompt-anything-sub000/internal/logging"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	mu     sync.Mutex
	sigVal os.Signal
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// Unlike signal.NotifyContext it remembers which signal fired.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{Context: ctx, Cancel: cancel}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			sc.mu.Lock()
			sc.sigVal = sig
			sc.mu.Unlock()
			sc.Cancel()
		case <-ctx.Done():
		}
	}()

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// createLogger configures the run logger. Debug mode writes to stderr so the
// conversation on stdout stays clean; otherwise logs are discarded.
func createLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.NewNop()
}

// printSystemMessage prints a standardized system message to stdout.
func printSystemMessage(format string, args ...any) {
	fmt.Printf(">>> %s\n", fmt.Sprintf(format, args...))
}

// stdoutInteractive reports whether stdout is a terminal, which gates the
// banner and markdown rendering.
func stdoutInteractive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// debugHooks logs every engine lifecycle event.
func debugHooks(logger *slog.Logger) prompta.Hooks {
	return prompta.Hooks{
		OnSend: func(ctx context.Context, e *prompta.SendEvent) {
			logger.Debug("step sent", "prompt", e.Prompt, "visuals", e.Visuals)
		},
		OnResolve: func(ctx context.Context, e *prompta.ResolveEvent) {
			if e.Err != nil {
				logger.Debug("step resolved", "prompt", e.Prompt, "outcome", e.Outcome, "err", e.Err)
				return
			}
			logger.Debug("step resolved", "prompt", e.Prompt, "outcome", e.Outcome,
				"rejections", e.Rejections, "elapsed", e.Elapsed)
		},
		OnAdvance: func(ctx context.Context, e *prompta.AdvanceEvent) {
			logger.Debug("advance", "from", e.From, "to", e.To)
		},
	}
}

func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled)
}

// handleExecutionError maps interruptions to a clean exit.
func handleExecutionError(err error) error {
	if err == nil || isInterrupted(err) {
		return nil
	}
	return err
}

func logCompletion(flowName string, err error, sig os.Signal) {
	if err == nil {
		printSystemMessage("Finished '%s'.", flowName)
		return
	}

	if isInterrupted(err) {
		if sig == os.Interrupt {
			// The prompt line is still open; close it before the message.
			fmt.Printf("[CTRL+C]\n")
			printSystemMessage("Interrupted '%s'.", flowName)
		} else if sig != nil {
			fmt.Printf("\n")
			printSystemMessage("Terminated '%s'.", flowName)
		} else {
			fmt.Printf("\n")
			printSystemMessage("Interrupted '%s'.", flowName)
		}
	}
}
