// Package httpchat exposes a session hub as a small JSON chat API. One
// handler serves one flow: POST /sessions opens a conversation, messages
// go in over POST /sessions/{id}/messages, and GET /sessions/{id} reads
// the transcript, long-polling when the request asks for entries that do
// not exist yet.
package httpchat

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/synzen/prompt-anything-sub000/internal/logging"
	"github.com/synzen/prompt-anything-sub000/pkg/session"
)

// SessionDTO is the wire shape of one conversation.
type SessionDTO struct {
	ID        string          `json:"id"`
	Flow      string          `json:"flow"`
	Status    session.Status  `json:"status"`
	StartedAt time.Time       `json:"started_at"`
	Entries   []session.Entry `json:"entries"`
	Error     string          `json:"error,omitempty"`
}

// SummaryDTO is the list shape: transcript length instead of the
// transcript itself.
type SummaryDTO struct {
	ID        string         `json:"id"`
	Flow      string         `json:"flow"`
	Status    session.Status `json:"status"`
	StartedAt time.Time      `json:"started_at"`
	Entries   int            `json:"entries"`
}

type postBody struct {
	Text string `json:"text"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Server routes chat requests onto a hub. Build one with NewHandler.
type Server[T any] struct {
	hub    *session.Hub[T]
	src    session.Source[T]
	logger *slog.Logger
}

// Option configures a Server.
type Option[T any] func(*Server[T])

// WithLogger sets the request logger. The default discards everything.
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(s *Server[T]) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewHandler returns the chat API for one flow source served by hub.
func NewHandler[T any](hub *session.Hub[T], src session.Source[T], opts ...Option[T]) http.Handler {
	s := &Server[T]{hub: hub, src: src, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.health)
	r.Post("/sessions", s.create)
	r.Get("/sessions", s.list)
	r.Get("/sessions/{id}", s.get)
	r.Post("/sessions/{id}/messages", s.post)
	r.Post("/sessions/{id}/end-input", s.endInput)
	r.Delete("/sessions/{id}", s.remove)
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server[T]) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// create opens a session and waits for the opening entries so the client
// sees the first question in the response.
func (s *Server[T]) create(w http.ResponseWriter, r *http.Request) {
	sess, err := s.hub.Start(r.Context(), s.src)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "session start failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "session start failed")
		return
	}
	// Ignore the wait error: a client that hangs up still created the
	// session, and the snapshot below is valid either way.
	_, _, _ = sess.Await(r.Context(), 0)
	s.writeJSON(w, http.StatusCreated, s.toDTO(sess))
}

func (s *Server[T]) list(w http.ResponseWriter, _ *http.Request) {
	sessions := s.hub.List()
	out := make([]SummaryDTO, len(sessions))
	for i, sess := range sessions {
		out[i] = SummaryDTO{
			ID:        sess.ID(),
			Flow:      sess.Flow(),
			Status:    sess.Status(),
			StartedAt: sess.StartedAt(),
			Entries:   len(sess.Entries()),
		}
	}
	s.writeJSON(w, http.StatusOK, out)
}

// get returns the session. With ?after=N it long-polls until the
// transcript grows past N entries or the session leaves the active state.
func (s *Server[T]) get(w http.ResponseWriter, r *http.Request) {
	sess, err := s.hub.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}

	if q := r.URL.Query().Get("after"); q != "" {
		after, err := strconv.Atoi(q)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "after must be an integer")
			return
		}
		if _, _, err := sess.Await(r.Context(), after); err != nil {
			// Client hung up while polling; nothing left to answer.
			return
		}
	}
	s.writeJSON(w, http.StatusOK, s.toDTO(sess))
}

func (s *Server[T]) post(w http.ResponseWriter, r *http.Request) {
	sess, err := s.hub.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}

	var body postBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := sess.Post(body.Text); err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, s.toDTO(sess))
}

// endInput closes the client side of the conversation; the run winds down
// as a voluntary exit once the inbox drains.
func (s *Server[T]) endInput(w http.ResponseWriter, r *http.Request) {
	sess, err := s.hub.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	sess.EndInput()
	s.writeJSON(w, http.StatusAccepted, s.toDTO(sess))
}

func (s *Server[T]) remove(w http.ResponseWriter, r *http.Request) {
	if err := s.hub.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server[T]) toDTO(sess *session.Session[T]) SessionDTO {
	dto := SessionDTO{
		ID:        sess.ID(),
		Flow:      sess.Flow(),
		Status:    sess.Status(),
		StartedAt: sess.StartedAt(),
		Entries:   sess.Entries(),
	}
	if dto.Status == session.StatusFailed {
		if _, err := sess.Result(); err != nil {
			dto.Error = err.Error()
		}
	}
	return dto
}

func (s *Server[T]) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server[T]) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorBody{Error: msg})
}

func (s *Server[T]) writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, session.ErrNotActive):
		s.writeError(w, http.StatusConflict, "session is not active")
	case errors.Is(err, session.ErrInboxFull):
		s.writeError(w, http.StatusTooManyRequests, "session inbox is full")
	default:
		s.logger.ErrorContext(r.Context(), "request failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}
