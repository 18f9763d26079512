// Package cli carries the interactive machinery behind the prompta command:
// one-shot console runs, watch mode with hot reload, and the signal handling
// both share.
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/synzen/prompt-anything-sub000/pkg/flow"
)

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	Path      string // flow file or step directory
	Watch     bool
	Plain     bool   // no banner, no markdown rendering
	Debug     bool
	Data      string // raw JSON merged over the flow's defaults
	PrintData bool   // print the collected data as JSON on completion
}

// Execute handles the run command logic, dispatching to session or watch mode.
func Execute(opts RunOptions) error {
	var overlay flow.Data
	if opts.Data != "" {
		if err := json.Unmarshal([]byte(opts.Data), &overlay); err != nil {
			return fmt.Errorf("error parsing --data JSON: %w", err)
		}
	}

	if opts.Watch {
		if opts.Data != "" {
			return fmt.Errorf("--watch and --data cannot be used together")
		}
		return RunWatch(opts)
	}

	return RunFlow(opts, overlay)
}
