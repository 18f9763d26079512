package transcript

import (
	"context"
	"time"

	"github.com/synzen/prompt-anything-sub000/pkg/session"
)

// Archive returns a hub archiver that saves every finished session as a
// transcript record. Wire it with session.Hub.WithArchiver.
func Archive[T any](store Store) func(ctx context.Context, s *session.Session[T]) error {
	return func(ctx context.Context, s *session.Session[T]) error {
		live := s.Entries()
		entries := make([]Entry, len(live))
		for i, e := range live {
			entries[i] = Entry{Author: string(e.Author), Text: e.Text, At: e.At}
		}
		return store.Save(ctx, Record{
			ID:        s.ID(),
			Flow:      s.Flow(),
			Status:    string(s.Status()),
			StartedAt: s.StartedAt(),
			EndedAt:   time.Now().UTC(),
			Entries:   entries,
		})
	}
}
