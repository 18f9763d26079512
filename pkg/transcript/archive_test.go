package transcript_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	prompta "github.com/synzen/prompt-anything-sub000"
	"github.com/synzen/prompt-anything-sub000/pkg/session"
	"github.com/synzen/prompt-anything-sub000/pkg/transcript"
)

func TestArchive_SavesFinishedSessions(t *testing.T) {
	store := transcript.NewMemoryStore()
	hub := session.NewHub[map[string]any]().
		WithArchiver(transcript.Archive[map[string]any](store))

	src := session.Source[map[string]any]{
		Flow: "farewell",
		Build: func() (*prompta.Node[map[string]any], error) {
			bye := prompta.NewTerminalPrompt(prompta.Text[map[string]any]("Bye.")).Named("bye")
			return prompta.NewNode(bye), nil
		},
	}

	ctx := context.Background()
	sess, err := hub.Start(ctx, src)
	require.NoError(t, err)

	// Archiving happens after the run goroutine finishes; poll for it.
	require.Eventually(t, func() bool {
		_, err := store.Get(ctx, sess.ID())
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	rec, err := store.Get(ctx, sess.ID())
	require.NoError(t, err)
	assert.Equal(t, sess.ID(), rec.ID)
	assert.Equal(t, "farewell", rec.Flow)
	assert.Equal(t, string(session.StatusCompleted), rec.Status)
	assert.False(t, rec.StartedAt.IsZero())
	assert.False(t, rec.EndedAt.Before(rec.StartedAt))
	require.Len(t, rec.Entries, 1)
	assert.Equal(t, "bot", rec.Entries[0].Author)
	assert.Equal(t, "Bye.", rec.Entries[0].Text)
}
