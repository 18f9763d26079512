package prompta

import (
	"context"
	"io"
	"log/slog"
)

// NotVisited is the sentinel IndexOf and IndexesOf return for a prompt the
// run never reached.
const NotVisited = -1

// runEnv bundles the run-scoped collaborators handed to each collect cycle.
type runEnv[T any] struct {
	cfg     Config
	factory CollectorFactory[T]
	logger  *slog.Logger
	hooks   Hooks
}

// Runner walks a conversation tree: validate the shape, then send, collect
// and branch one step at a time until no eligible next step remains. A
// Runner is a strictly sequential state machine; at most one step is open
// at any instant, and the conversation data has a single owner throughout.
//
// Configuration is chainable:
//
//	runner := prompta.NewRunner(initial).WithCollectorFactory(f).WithConfig(cfg)
type Runner[T any] struct {
	data    T
	cfg     Config
	factory CollectorFactory[T]
	logger  *slog.Logger
	hooks   Hooks
	ran     []*Prompt[T]
}

// NewRunner builds a runner that will thread initialData through the run.
func NewRunner[T any](initialData T) *Runner[T] {
	return &Runner[T]{
		data:   initialData,
		cfg:    DefaultConfig(),
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
}

// WithCollectorFactory sets the default factory prompts collect with.
// Prompts may still override it individually.
func (r *Runner[T]) WithCollectorFactory(factory CollectorFactory[T]) *Runner[T] {
	r.factory = factory
	return r
}

// WithConfig replaces the run texts wholesale. Start from DefaultConfig to
// keep the stock values.
func (r *Runner[T]) WithConfig(cfg Config) *Runner[T] {
	r.cfg = cfg
	return r
}

// WithLogger sets the structured logger. The default discards everything.
func (r *Runner[T]) WithLogger(logger *slog.Logger) *Runner[T] {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// WithHooks registers observation hooks for the run.
func (r *Runner[T]) WithHooks(hooks Hooks) *Runner[T] {
	r.hooks = hooks
	return r
}

// Run validates the tree reachable from root, then executes it. Validation
// failures surface before any visual is sent.
func (r *Runner[T]) Run(ctx context.Context, root *Node[T], ch Channel) (T, error) {
	if err := Validate(root); err != nil {
		return r.data, err
	}
	return r.Execute(ctx, root, ch)
}

// Execute walks a pre-validated tree starting at root. Every error out of a
// send, collect or condition propagates unhandled; the returned data is the
// last value the run settled on.
func (r *Runner[T]) Execute(ctx context.Context, root *Node[T], ch Channel) (T, error) {
	env := &runEnv[T]{cfg: r.cfg, factory: r.factory, logger: r.logger, hooks: r.hooks}
	data := r.data
	node := root

	if err := node.prompt.sendVisuals(ctx, ch, data, env); err != nil {
		return data, err
	}

	for {
		prompt := node.prompt
		if prompt.Terminal() {
			r.logger.DebugContext(ctx, "terminal prompt reached", "prompt", prompt.label())
			return data, nil
		}

		newData, err := node.collect(ctx, ch, data, env)
		if err != nil {
			return data, err
		}
		data = newData
		r.ran = append(r.ran, prompt)

		next, err := node.getNext(ctx, data)
		if err != nil {
			return data, err
		}
		if next == nil {
			r.logger.DebugContext(ctx, "run complete", "prompt", prompt.label(), "visited", len(r.ran))
			return data, nil
		}

		if r.hooks.OnAdvance != nil {
			r.hooks.OnAdvance(ctx, &AdvanceEvent{From: prompt.name, To: next.prompt.name})
		}
		if err := next.prompt.sendVisuals(ctx, ch, data, env); err != nil {
			return data, err
		}
		node = next
	}
}

// Ran returns the ordered steps actually visited, in traversal order.
func (r *Runner[T]) Ran() []*Prompt[T] {
	out := make([]*Prompt[T], len(r.ran))
	copy(out, r.ran)
	return out
}

// IndexOf returns the position of the prompt's first visit in the run
// record, or NotVisited.
func (r *Runner[T]) IndexOf(p *Prompt[T]) int {
	for i, visited := range r.ran {
		if visited == p {
			return i
		}
	}
	return NotVisited
}

// IndexesOf returns IndexOf for each given prompt.
func (r *Runner[T]) IndexesOf(prompts ...*Prompt[T]) []int {
	out := make([]int, len(prompts))
	for i, p := range prompts {
		out[i] = r.IndexOf(p)
	}
	return out
}
