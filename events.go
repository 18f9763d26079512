package prompta

import (
	"context"
	"time"
)

// Hooks are optional observation points fired during a run. They exist for
// logging and instrumentation; the engine never reads anything back from
// them. A nil field is skipped. Hooks run synchronously on the run's
// goroutine, so implementations should return quickly.
type Hooks struct {
	// OnSend fires after a step's visuals were delivered.
	OnSend func(ctx context.Context, e *SendEvent)

	// OnResolve fires when a collect cycle reaches a terminal outcome, and
	// once per rejected input along the way.
	OnResolve func(ctx context.Context, e *ResolveEvent)

	// OnAdvance fires when the runner moves from one step to the next.
	OnAdvance func(ctx context.Context, e *AdvanceEvent)
}

// SendEvent describes one delivery of a step's visuals.
type SendEvent struct {
	Prompt  string
	Visuals int
}

// ResolveEvent describes the resolution of a collect cycle. For the
// non-terminal OutcomeReject, Rejections counts the rejections so far in
// the open cycle; for terminal outcomes it is the cycle's total.
type ResolveEvent struct {
	Prompt     string
	Outcome    Outcome
	Rejections int
	Elapsed    time.Duration
	Err        error
}

// AdvanceEvent describes a transition between steps.
type AdvanceEvent struct {
	From string
	To   string
}
