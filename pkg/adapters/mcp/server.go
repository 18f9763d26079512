// Package mcp exposes the session hub as an MCP server, so agent hosts can
// drive conversations as tool calls: start one, send messages, read the
// transcript, end it. The flow definition itself is published as a
// resource for introspection.
package mcp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"gopkg.in/yaml.v3"

	prompta "github.com/synzen/prompt-anything-sub000"
	"github.com/synzen/prompt-anything-sub000/pkg/flow"
	"github.com/synzen/prompt-anything-sub000/pkg/session"
)

// replyWait bounds how long send_message waits for the run's reply before
// returning the transcript as-is. settleWait is how long the transcript
// must stay quiet before a reply counts as delivered in full.
const (
	replyWait  = 10 * time.Second
	settleWait = 100 * time.Millisecond
)

// TranscriptResponse is the unified result shape of every conversation
// tool.
type TranscriptResponse struct {
	ID      string          `json:"id" jsonschema_description:"Session identifier"`
	Flow    string          `json:"flow" jsonschema_description:"Name of the flow this session runs"`
	Status  session.Status  `json:"status" jsonschema_description:"active, completed, failed or canceled"`
	Entries []session.Entry `json:"entries" jsonschema_description:"Transcript in order, oldest first"`
	Data    any             `json:"data,omitempty" jsonschema_description:"Collected conversation data, present once the session completed"`
	Error   string          `json:"error,omitempty" jsonschema_description:"Failure reason for failed sessions"`
}

// Server wraps a session hub and exposes it as an MCP server.
type Server[T any] struct {
	hub       *session.Hub[T]
	src       session.Source[T]
	def       *flow.Definition
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option[T any] func(*Server[T])

// WithFlowDefinition publishes def under the prompta://flow resource.
func WithFlowDefinition[T any](def *flow.Definition) Option[T] {
	return func(s *Server[T]) { s.def = def }
}

// NewServer creates an MCP server running one flow source on hub.
func NewServer[T any](hub *session.Hub[T], src session.Source[T], opts ...Option[T]) *Server[T] {
	s := &Server[T]{
		hub:       hub,
		src:       src,
		mcpServer: server.NewMCPServer("prompta-mcp", prompta.Version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server[T]) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and blocks until
// ctx is canceled or the listener fails.
func (s *Server[T]) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server[T]) registerTools() {
	startTool := mcp.NewTool("start_conversation",
		mcp.WithDescription("Start a new conversation session. Returns the session id and the opening question."),
		mcp.WithOutputSchema[TranscriptResponse](),
	)
	s.mcpServer.AddTool(startTool, mcp.NewStructuredToolHandler(s.handleStart))

	sendTool := mcp.NewTool("send_message",
		mcp.WithDescription("Send a user message into a session and wait briefly for the reply."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to post into")),
		mcp.WithString("text", mcp.Required(), mcp.Description("The user's message")),
		mcp.WithOutputSchema[TranscriptResponse](),
	)
	s.mcpServer.AddTool(sendTool, mcp.NewStructuredToolHandler(s.handleSend))

	transcriptTool := mcp.NewTool("get_transcript",
		mcp.WithDescription("Read a session's transcript and status."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to read")),
		mcp.WithOutputSchema[TranscriptResponse](),
	)
	s.mcpServer.AddTool(transcriptTool, mcp.NewStructuredToolHandler(s.handleTranscript))

	endTool := mcp.NewTool("end_conversation",
		mcp.WithDescription("End a session: close the input side and let it wind down, or cancel it outright."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to end")),
		mcp.WithBoolean("cancel", mcp.Description("Cancel the run instead of draining it")),
		mcp.WithOutputSchema[TranscriptResponse](),
	)
	s.mcpServer.AddTool(endTool, mcp.NewStructuredToolHandler(s.handleEnd))
}

func (s *Server[T]) handleStart(ctx context.Context, _ mcp.CallToolRequest, _ map[string]any) (TranscriptResponse, error) {
	sess, err := s.hub.Start(ctx, s.src)
	if err != nil {
		return TranscriptResponse{}, fmt.Errorf("start conversation: %w", err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, replyWait)
	defer cancel()
	s.awaitQuiet(waitCtx, sess, 0)
	return s.toResponse(sess), nil
}

func (s *Server[T]) handleSend(ctx context.Context, _ mcp.CallToolRequest, args map[string]any) (TranscriptResponse, error) {
	sess, err := s.lookup(args)
	if err != nil {
		return TranscriptResponse{}, err
	}
	text, _ := args["text"].(string)

	before := len(sess.Entries())
	if err := sess.Post(text); err != nil {
		return TranscriptResponse{}, fmt.Errorf("send message: %w", err)
	}

	// The post appended the user entry at before+1; wait for whatever the
	// run says after it, but never longer than replyWait.
	waitCtx, cancel := context.WithTimeout(ctx, replyWait)
	defer cancel()
	s.awaitQuiet(waitCtx, sess, before+1)
	return s.toResponse(sess), nil
}

func (s *Server[T]) handleTranscript(_ context.Context, _ mcp.CallToolRequest, args map[string]any) (TranscriptResponse, error) {
	sess, err := s.lookup(args)
	if err != nil {
		return TranscriptResponse{}, err
	}
	return s.toResponse(sess), nil
}

func (s *Server[T]) handleEnd(ctx context.Context, _ mcp.CallToolRequest, args map[string]any) (TranscriptResponse, error) {
	sess, err := s.lookup(args)
	if err != nil {
		return TranscriptResponse{}, err
	}

	if cancelRun, _ := args["cancel"].(bool); cancelRun {
		closeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.hub.Close(closeCtx, sess.ID()); err != nil {
			return TranscriptResponse{}, fmt.Errorf("cancel conversation: %w", err)
		}
		return s.toResponse(sess), nil
	}

	sess.EndInput()
	waitCtx, cancel := context.WithTimeout(ctx, replyWait)
	defer cancel()
	select {
	case <-sess.Done():
	case <-waitCtx.Done():
	}
	return s.toResponse(sess), nil
}

// awaitQuiet blocks until the transcript grows past after entries, then
// keeps waiting while it is still growing. A reply can span several
// entries, and a finishing run appends its last words just before leaving
// the active state; both are captured whole this way.
func (s *Server[T]) awaitQuiet(ctx context.Context, sess *session.Session[T], after int) {
	entries, status, err := sess.Await(ctx, after)
	for err == nil && status == session.StatusActive {
		quiet, cancel := context.WithTimeout(ctx, settleWait)
		entries, status, err = sess.Await(quiet, len(entries))
		cancel()
	}
}

func (s *Server[T]) lookup(args map[string]any) (*session.Session[T], error) {
	id, _ := args["session_id"].(string)
	if id == "" {
		return nil, fmt.Errorf("session_id is required")
	}
	sess, err := s.hub.Get(id)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	return sess, nil
}

func (s *Server[T]) toResponse(sess *session.Session[T]) TranscriptResponse {
	resp := TranscriptResponse{
		ID:      sess.ID(),
		Flow:    sess.Flow(),
		Status:  sess.Status(),
		Entries: sess.Entries(),
	}
	switch resp.Status {
	case session.StatusCompleted:
		result, _ := sess.Result()
		resp.Data = result
	case session.StatusFailed:
		if _, err := sess.Result(); err != nil {
			resp.Error = err.Error()
		}
	}
	return resp
}

func (s *Server[T]) registerResources() {
	if s.def == nil {
		return
	}
	s.mcpServer.AddResource(mcp.NewResource("prompta://flow", "Flow Definition",
		mcp.WithMIMEType("application/yaml"),
	), func(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		text, err := yaml.Marshal(s.def)
		if err != nil {
			return nil, fmt.Errorf("marshal flow definition: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "prompta://flow",
				MIMEType: "application/yaml",
				Text:     string(text),
			},
		}, nil
	})
}
