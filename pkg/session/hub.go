package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	prompta "github.com/synzen/prompt-anything-sub000"
	"github.com/synzen/prompt-anything-sub000/internal/logging"
)

// Source produces the material for one session run.
type Source[T any] struct {
	// Flow names the conversation in listings and logs.
	Flow string

	// Build returns a fresh conversation tree. Trees mutate during a run,
	// so every session needs its own.
	Build func() (*prompta.Node[T], error)

	// Initial returns the data a run starts from. Nil starts from the
	// zero value.
	Initial func() T

	// Config overrides the run texts. Nil keeps the engine defaults.
	Config *prompta.Config
}

// Hub starts and tracks live sessions. Finished sessions stay listed until
// they are removed, so their transcripts remain available.
type Hub[T any] struct {
	mu       sync.RWMutex
	sessions map[string]*Session[T]

	logger  *slog.Logger
	hooks   prompta.Hooks
	archive func(ctx context.Context, s *Session[T]) error
}

// NewHub creates an empty hub.
func NewHub[T any]() *Hub[T] {
	return &Hub[T]{
		sessions: make(map[string]*Session[T]),
		logger:   logging.NewNop(),
	}
}

// WithLogger sets the hub's logger, shared with every run it starts.
func (h *Hub[T]) WithLogger(logger *slog.Logger) *Hub[T] {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithHooks threads observation hooks into every run the hub starts.
func (h *Hub[T]) WithHooks(hooks prompta.Hooks) *Hub[T] {
	h.hooks = hooks
	return h
}

// WithArchiver registers a sink invoked after each session finishes, for
// example to persist the transcript. Failures are logged, never fatal.
func (h *Hub[T]) WithArchiver(fn func(ctx context.Context, s *Session[T]) error) *Hub[T] {
	h.archive = fn
	return h
}

// Start validates the source's tree and launches a session running it. The
// run detaches from ctx's cancellation; its lifetime is governed by the hub
// and the conversation itself.
func (h *Hub[T]) Start(ctx context.Context, src Source[T]) (*Session[T], error) {
	if src.Build == nil {
		return nil, errors.New("session source has no tree builder")
	}
	root, err := src.Build()
	if err != nil {
		return nil, fmt.Errorf("build conversation tree: %w", err)
	}
	if err := prompta.Validate(root); err != nil {
		return nil, err
	}

	var initial T
	if src.Initial != nil {
		initial = src.Initial()
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := newSession[T](uuid.NewString(), src.Flow, cancel)

	runner := prompta.NewRunner(initial).
		WithCollectorFactory(s.collectorFactory()).
		WithLogger(h.logger).
		WithHooks(h.hooks)
	if src.Config != nil {
		runner.WithConfig(*src.Config)
	}

	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()

	h.logger.InfoContext(ctx, "session started", "session_id", s.id, "flow", src.Flow)
	go h.run(runCtx, s, runner, root)
	return s, nil
}

func (h *Hub[T]) run(ctx context.Context, s *Session[T], runner *prompta.Runner[T], root *prompta.Node[T]) {
	data, err := runner.Execute(ctx, root, s)
	s.finish(data, err)

	switch s.Status() {
	case StatusFailed:
		h.logger.ErrorContext(ctx, "session failed", "session_id", s.id, "err", err)
	default:
		h.logger.InfoContext(ctx, "session finished", "session_id", s.id, "status", s.Status())
	}

	if h.archive != nil {
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := h.archive(actx, s); err != nil {
			h.logger.WarnContext(ctx, "session archive failed", "session_id", s.id, "err", err)
		}
	}
}

// Get returns the session with the given id.
func (h *Hub[T]) Get(id string) (*Session[T], error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// List returns all known sessions, oldest first.
func (h *Hub[T]) List() []*Session[T] {
	h.mu.RLock()
	out := make([]*Session[T], 0, len(h.sessions))
	for _, s := range h.sessions {
		out = append(out, s)
	}
	h.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].startedAt.Equal(out[j].startedAt) {
			return out[i].id < out[j].id
		}
		return out[i].startedAt.Before(out[j].startedAt)
	})
	return out
}

// Len reports how many sessions the hub knows, finished ones included.
func (h *Hub[T]) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Active reports how many sessions are still running.
func (h *Hub[T]) Active() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, s := range h.sessions {
		if s.Status() == StatusActive {
			n++
		}
	}
	return n
}

// Close stops the session's run and waits for it to finish. Closing a
// finished session is a no-op.
func (h *Hub[T]) Close(ctx context.Context, id string) error {
	s, err := h.Get(id)
	if err != nil {
		return err
	}
	s.requestCancel()
	select {
	case <-s.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Remove stops the session and drops it from the hub.
func (h *Hub[T]) Remove(ctx context.Context, id string) error {
	if err := h.Close(ctx, id); err != nil {
		return err
	}
	h.mu.Lock()
	delete(h.sessions, id)
	h.mu.Unlock()
	return nil
}

// CloseAll stops every active session, waiting for each. Used on shutdown.
func (h *Hub[T]) CloseAll(ctx context.Context) error {
	var errs []error
	for _, s := range h.List() {
		if err := h.Close(ctx, s.ID()); err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, fmt.Errorf("close session %s: %w", s.ID(), err))
		}
	}
	return errors.Join(errs...)
}
