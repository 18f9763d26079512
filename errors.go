package prompta

import (
	"errors"
	"fmt"
)

var (
	// ErrAmbiguousChildren reports a tree-shape defect: a node with two or
	// more children where at least one child carries no branch condition.
	ErrAmbiguousChildren = errors.New("a node with multiple children requires a condition on every child")

	// ErrNoCollectorFactory is returned when a prompt with a transform has
	// no collector factory, neither its own nor the runner's.
	ErrNoCollectorFactory = errors.New("no collector factory configured")
)

// Rejection is a recoverable validation failure raised by a transform. It
// never aborts the run; the reason (or the configured fallback) is sent back
// through the channel and the collect cycle stays open for another attempt.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string {
	if r.Reason == "" {
		return "input rejected"
	}
	return r.Reason
}

// Reject builds a *Rejection with a formatted reason.
func Reject(format string, args ...any) *Rejection {
	return &Rejection{Reason: fmt.Sprintf(format, args...)}
}
