// Package transcript persists finished conversation transcripts. Stores
// keep whole records: one Save per finished session, keyed by session id.
package transcript

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports a transcript id the store does not know.
var ErrNotFound = errors.New("transcript not found")

// Entry is one archived line of a conversation.
type Entry struct {
	Author string    `json:"author"`
	Text   string    `json:"text"`
	At     time.Time `json:"at"`
}

// Record is the archived form of one finished session.
type Record struct {
	ID        string    `json:"id"`
	Flow      string    `json:"flow"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Entries   []Entry   `json:"entries"`
}

// Store is the persistence contract for transcripts.
type Store interface {
	Save(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) error
}
