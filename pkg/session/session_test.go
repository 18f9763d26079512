package session_test

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	prompta "github.com/synzen/prompt-anything-sub000"
	"github.com/synzen/prompt-anything-sub000/pkg/session"
)

type signup struct {
	Name string
	Age  int
}

// signupSource builds a two-question source: name, age, then a farewell.
func signupSource() session.Source[signup] {
	return session.Source[signup]{
		Flow: "signup",
		Build: func() (*prompta.Node[signup], error) {
			askName := prompta.NewPrompt(prompta.Text[signup]("What is your name?")).
				Named("ask-name").
				WithTransform(func(_ context.Context, msg prompta.Message, d signup) (signup, error) {
					name := strings.TrimSpace(msg.Content())
					if name == "" {
						return d, prompta.Reject("a name cannot be empty")
					}
					d.Name = name
					return d, nil
				})
			askAge := prompta.NewPrompt(prompta.Text[signup]("How old are you?")).
				Named("ask-age").
				WithTransform(func(_ context.Context, msg prompta.Message, d signup) (signup, error) {
					n, err := strconv.Atoi(strings.TrimSpace(msg.Content()))
					if err != nil {
						return d, prompta.Reject("%q is not a number", msg.Content())
					}
					d.Age = n
					return d, nil
				})
			bye := prompta.NewTerminalPrompt(func(_ context.Context, d signup) ([]prompta.Visual, error) {
				return []prompta.Visual{prompta.TextVisual{Text: "Welcome, " + d.Name + "."}}, nil
			}).Named("bye")

			return prompta.NewNode(askName).SetChildren(
				prompta.NewNode(askAge).SetChildren(prompta.NewNode(bye)),
			), nil
		},
		Initial: func() signup { return signup{} },
	}
}

func waitDone[T any](t *testing.T, s *session.Session[T]) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("session %s did not finish in time", s.ID())
	}
}

func TestHub_SessionLifecycle(t *testing.T) {
	hub := session.NewHub[signup]()
	ctx := context.Background()

	s, err := hub.Start(ctx, signupSource())
	require.NoError(t, err)
	require.NotEmpty(t, s.ID())
	assert.Equal(t, "signup", s.Flow())
	assert.Equal(t, session.StatusActive, s.Status())

	// The opening question arrives asynchronously.
	entries, status, err := s.Await(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, session.StatusActive, status)
	require.NotEmpty(t, entries)
	assert.Equal(t, session.AuthorBot, entries[0].Author)
	assert.Equal(t, "What is your name?", entries[0].Text)

	require.NoError(t, s.Post("George"))

	// Wait for the follow-up question before answering it, so the
	// transcript order below is deterministic.
	_, _, err = s.Await(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, s.Post("30"))

	waitDone(t, s)
	assert.Equal(t, session.StatusCompleted, s.Status())

	result, err := s.Result()
	require.NoError(t, err)
	assert.Equal(t, signup{Name: "George", Age: 30}, result)

	final := s.Entries()
	texts := make([]string, len(final))
	for i, e := range final {
		texts[i] = e.Text
	}
	assert.Equal(t, []string{
		"What is your name?",
		"George",
		"How old are you?",
		"30",
		"Welcome, George.",
	}, texts)

	assert.ErrorIs(t, s.Post("too late"), session.ErrNotActive)
}

func TestHub_BufferedPostsSpanSteps(t *testing.T) {
	// The inbox outlives individual collect cycles: answers posted ahead
	// of their questions are consumed in order, not lost.
	hub := session.NewHub[signup]()
	s, err := hub.Start(context.Background(), signupSource())
	require.NoError(t, err)

	require.NoError(t, s.Post("George"))
	require.NoError(t, s.Post("30"))
	waitDone(t, s)

	result, err := s.Result()
	require.NoError(t, err)
	assert.Equal(t, signup{Name: "George", Age: 30}, result)
}

func TestHub_StartRejectsDefectiveTree(t *testing.T) {
	hub := session.NewHub[signup]()
	src := session.Source[signup]{
		Flow: "broken",
		Build: func() (*prompta.Node[signup], error) {
			root := prompta.NewNode(prompta.NewPrompt(prompta.Text[signup]("hi")))
			root.AddChild(prompta.NewNode(prompta.NewPrompt(prompta.Text[signup]("a"))).
				When(func(context.Context, signup) (bool, error) { return true, nil }))
			root.AddChild(prompta.NewNode(prompta.NewPrompt(prompta.Text[signup]("b"))))
			return root, nil
		},
	}

	_, err := hub.Start(context.Background(), src)
	require.Error(t, err)
	assert.ErrorIs(t, err, prompta.ErrAmbiguousChildren)
	assert.Equal(t, 0, hub.Len(), "a rejected source must not leave a session behind")
}

func TestHub_CloseCancelsActiveSession(t *testing.T) {
	hub := session.NewHub[signup]()
	ctx := context.Background()

	s, err := hub.Start(ctx, signupSource())
	require.NoError(t, err)

	require.NoError(t, hub.Close(ctx, s.ID()))
	assert.Equal(t, session.StatusCanceled, s.Status())

	_, resultErr := s.Result()
	assert.NoError(t, resultErr, "cancellation is not an error outcome")

	// Closing again is a no-op.
	require.NoError(t, hub.Close(ctx, s.ID()))
}

func TestHub_EndInputWindsDownGracefully(t *testing.T) {
	hub := session.NewHub[signup]()
	ctx := context.Background()

	s, err := hub.Start(ctx, signupSource())
	require.NoError(t, err)

	_, _, err = s.Await(ctx, 0)
	require.NoError(t, err)

	s.EndInput()
	waitDone(t, s)

	assert.Equal(t, session.StatusCompleted, s.Status())
	result, err := s.Result()
	require.NoError(t, err)
	assert.Equal(t, signup{}, result, "end of input resolves with data unchanged")
}

func TestHub_AwaitLongPollWakesOnPost(t *testing.T) {
	hub := session.NewHub[signup]()
	ctx := context.Background()

	s, err := hub.Start(ctx, signupSource())
	require.NoError(t, err)

	entries, _, err := s.Await(ctx, 0)
	require.NoError(t, err)
	seen := len(entries)

	woke := make(chan struct{})
	go func() {
		defer close(woke)
		_, _, err := s.Await(ctx, seen)
		assert.NoError(t, err)
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.Post("George"))

	select {
	case <-woke:
	case <-time.After(2 * time.Second):
		t.Fatal("Await did not wake on a new entry")
	}
}

func TestHub_AwaitHonorsContext(t *testing.T) {
	hub := session.NewHub[signup]()
	s, err := hub.Start(context.Background(), signupSource())
	require.NoError(t, err)

	_, _, err = s.Await(context.Background(), 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, _, err = s.Await(ctx, 10_000)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHub_ArchiverRunsAfterFinish(t *testing.T) {
	archived := make(chan string, 1)
	hub := session.NewHub[signup]().
		WithArchiver(func(_ context.Context, s *session.Session[signup]) error {
			archived <- s.ID()
			return nil
		})

	s, err := hub.Start(context.Background(), signupSource())
	require.NoError(t, err)
	s.EndInput()
	waitDone(t, s)

	select {
	case id := <-archived:
		assert.Equal(t, s.ID(), id)
	case <-time.After(2 * time.Second):
		t.Fatal("archiver was not invoked")
	}
}

func TestHub_GetListRemove(t *testing.T) {
	hub := session.NewHub[signup]()
	ctx := context.Background()

	_, err := hub.Get("nope")
	assert.ErrorIs(t, err, session.ErrNotFound)

	first, err := hub.Start(ctx, signupSource())
	require.NoError(t, err)
	second, err := hub.Start(ctx, signupSource())
	require.NoError(t, err)

	got, err := hub.Get(first.ID())
	require.NoError(t, err)
	assert.Same(t, first, got)

	list := hub.List()
	require.Len(t, list, 2)
	assert.Equal(t, 2, hub.Len())
	assert.Equal(t, 2, hub.Active())

	require.NoError(t, hub.Remove(ctx, second.ID()))
	assert.Equal(t, 1, hub.Len())
	_, err = hub.Get(second.ID())
	assert.ErrorIs(t, err, session.ErrNotFound)

	require.NoError(t, hub.CloseAll(ctx))
	assert.Equal(t, 0, hub.Active())
	assert.Equal(t, 1, hub.Len(), "CloseAll stops runs but keeps transcripts")
}

func TestHub_FailedRunSurfacesError(t *testing.T) {
	boom := errors.New("backend offline")
	src := session.Source[signup]{
		Flow: "doomed",
		Build: func() (*prompta.Node[signup], error) {
			ask := prompta.NewPrompt(prompta.Text[signup]("hi")).
				WithTransform(func(context.Context, prompta.Message, signup) (signup, error) {
					return signup{}, boom
				})
			return prompta.NewNode(ask), nil
		},
	}

	hub := session.NewHub[signup]()
	s, err := hub.Start(context.Background(), src)
	require.NoError(t, err)

	require.NoError(t, s.Post("anything"))
	waitDone(t, s)

	assert.Equal(t, session.StatusFailed, s.Status())
	_, resultErr := s.Result()
	assert.ErrorIs(t, resultErr, boom)
}
