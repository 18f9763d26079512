package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	prompta "github.com/synzen/prompt-anything-sub000"
)

var (
	// ErrNotFound reports an unknown session id.
	ErrNotFound = errors.New("session not found")

	// ErrNotActive reports input to a session that already finished.
	ErrNotActive = errors.New("session is not active")

	// ErrInboxFull reports that the session cannot accept input right now.
	ErrInboxFull = errors.New("session inbox is full")
)

// Status is a session's lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// Author marks which side of the conversation produced an entry.
type Author string

const (
	AuthorBot  Author = "bot"
	AuthorUser Author = "user"
)

// Entry is one transcript line of a live session.
type Entry struct {
	Author Author    `json:"author"`
	Text   string    `json:"text"`
	At     time.Time `json:"at"`
}

const inboxSize = 64

// Session is one live conversation run. It doubles as the run's Channel:
// everything the engine sends is appended to the transcript, and everything
// posted by the caller is queued for the run's collector.
type Session[T any] struct {
	id        string
	flow      string
	startedAt time.Time

	inbox  chan prompta.Message
	cancel context.CancelFunc
	done   chan struct{}

	mu          sync.Mutex
	entries     []Entry
	status      Status
	result      T
	err         error
	canceled    bool
	inputClosed bool
	changed     chan struct{}
}

func newSession[T any](id, flow string, cancel context.CancelFunc) *Session[T] {
	return &Session[T]{
		id:        id,
		flow:      flow,
		startedAt: time.Now(),
		inbox:     make(chan prompta.Message, inboxSize),
		cancel:    cancel,
		done:      make(chan struct{}),
		status:    StatusActive,
		changed:   make(chan struct{}),
	}
}

// ID returns the session's identifier.
func (s *Session[T]) ID() string { return s.id }

// Flow returns the name of the flow the session runs.
func (s *Session[T]) Flow() string { return s.flow }

// StartedAt returns when the session was started.
func (s *Session[T]) StartedAt() time.Time { return s.startedAt }

// Status returns the session's lifecycle state.
func (s *Session[T]) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Entries returns a copy of the transcript so far.
func (s *Session[T]) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Result returns the final conversation data once the session has
// finished. For an active session it returns the zero value and no error.
func (s *Session[T]) Result() (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.err
}

// Done is closed when the session's run has finished.
func (s *Session[T]) Done() <-chan struct{} { return s.done }

type message struct {
	text string
}

func (m message) Content() string { return m.text }

// Post queues one user message for the session's run and records it in the
// transcript.
func (s *Session[T]) Post(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusActive {
		return ErrNotActive
	}
	if s.inputClosed {
		return ErrNotActive
	}

	select {
	case s.inbox <- message{text: text}:
	default:
		return ErrInboxFull
	}
	s.append(Entry{Author: AuthorUser, Text: text, At: time.Now()})
	return nil
}

// EndInput closes the session's input stream. The open collect cycle (and
// any later one) reads this as a graceful end of input, so the run winds
// down like a voluntary exit.
func (s *Session[T]) EndInput() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inputClosed {
		return
	}
	s.inputClosed = true
	close(s.inbox)
}

// Await blocks until the transcript grows past after entries or the
// session leaves the active state, then returns the full transcript and
// status. Use after=len of the last snapshot to long-poll for the reply.
func (s *Session[T]) Await(ctx context.Context, after int) ([]Entry, Status, error) {
	for {
		s.mu.Lock()
		if len(s.entries) > after || s.status != StatusActive {
			entries := make([]Entry, len(s.entries))
			copy(entries, s.entries)
			status := s.status
			s.mu.Unlock()
			return entries, status, nil
		}
		wait := s.changed
		s.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, "", ctx.Err()
		}
	}
}

// Send implements prompta.Channel: the engine's visuals become bot entries
// in the transcript.
func (s *Session[T]) Send(_ context.Context, v prompta.Visual) (prompta.Message, error) {
	text := renderText(v)
	s.mu.Lock()
	s.append(Entry{Author: AuthorBot, Text: text, At: time.Now()})
	s.mu.Unlock()
	return message{text: text}, nil
}

// append records an entry and wakes Await callers. Callers hold s.mu.
func (s *Session[T]) append(e Entry) {
	s.entries = append(s.entries, e)
	s.signal()
}

// signal wakes Await callers. Callers hold s.mu.
func (s *Session[T]) signal() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// finish records the run's outcome. Called once by the hub's run goroutine.
func (s *Session[T]) finish(result T, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.result = result
	s.err = err
	switch {
	case err == nil:
		s.status = StatusCompleted
	case s.canceled && errors.Is(err, context.Canceled):
		s.status = StatusCanceled
		s.err = nil
	default:
		s.status = StatusFailed
	}
	close(s.done)
	s.signal()
}

// requestCancel marks the session canceled and stops its run.
func (s *Session[T]) requestCancel() {
	s.mu.Lock()
	s.canceled = true
	s.mu.Unlock()
	s.cancel()
}

// collectorFactory hands the engine a direct view of the session inbox.
// The inbox outlives individual collect cycles, so input posted between
// steps is not lost.
func (s *Session[T]) collectorFactory() prompta.CollectorFactory[T] {
	return func(context.Context, prompta.Channel, T) (prompta.Collector, error) {
		return inboxCollector{ch: s.inbox}, nil
	}
}

type inboxCollector struct {
	ch <-chan prompta.Message
}

func (c inboxCollector) Messages() <-chan prompta.Message { return c.ch }
func (c inboxCollector) Stop()                            {}
func (c inboxCollector) Err() error                       { return nil }

func renderText(v prompta.Visual) string {
	switch vv := v.(type) {
	case prompta.TextVisual:
		return vv.Text
	case fmt.Stringer:
		return vv.String()
	case string:
		return vv
	default:
		return fmt.Sprintf("%v", vv)
	}
}
