package prompta

import "context"

// Visual is the outbound renderable payload for one turn. The engine treats
// it as opaque data and hands it to the Channel untouched; adapters decide
// how to render it (plain text, markdown, platform embed).
type Visual any

// TextVisual is the minimal built-in visual. Adapters that understand
// nothing else can still render its text.
type TextVisual struct {
	Text string
}

func (v TextVisual) String() string { return v.Text }

// Message is one inbound or outbound message record. Adapters may back it
// with richer metadata (author, origin channel); the engine reads only the
// content.
type Message interface {
	Content() string
}

// Channel delivers visuals to the other side of the conversation. Send
// resolves with the message record of what was delivered; a send failure
// aborts the run that issued it.
type Channel interface {
	Send(ctx context.Context, v Visual) (Message, error)
}

// Collector is an ephemeral source of inbound messages, created fresh for
// each collect cycle and released when the cycle resolves.
//
// Messages yields inbound messages in arrival order. Closing the stream
// with a nil Err is a graceful end of input and resolves the cycle like a
// voluntary exit; closing with a non-nil Err is a fatal collector failure.
// Stop releases any underlying resources and must be safe to call more
// than once, including after the stream has closed.
type Collector interface {
	Messages() <-chan Message
	Stop()
	Err() error
}

// CollectorFactory builds a Collector for one collect cycle. The data value
// lets transports scope their subscription (for example, filter a shared
// stream down to the author recorded in the conversation data).
type CollectorFactory[T any] func(ctx context.Context, ch Channel, data T) (Collector, error)

// Transform converts an accepted message plus the prior conversation data
// into the next data value. Returning a *Rejection (possibly wrapped) marks
// the input as recoverably invalid and keeps the collect cycle open; any
// other error is fatal to the run.
type Transform[T any] func(ctx context.Context, msg Message, data T) (T, error)

// Condition selects among sibling branches. It must not mutate data.
type Condition[T any] func(ctx context.Context, data T) (bool, error)

// VisualGenerator produces the visuals for one turn from the current data.
// It must not mutate data.
type VisualGenerator[T any] func(ctx context.Context, data T) ([]Visual, error)

// Text returns a VisualGenerator that always yields the given lines as
// TextVisual values, one visual per line.
func Text[T any](lines ...string) VisualGenerator[T] {
	visuals := make([]Visual, len(lines))
	for i, line := range lines {
		visuals[i] = TextVisual{Text: line}
	}
	return func(context.Context, T) ([]Visual, error) {
		return visuals, nil
	}
}
