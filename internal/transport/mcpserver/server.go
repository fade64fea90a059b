package mcpserver

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sandevgo/docportal/internal/core"
	"github.com/sandevgo/docportal/internal/providers/rag"
	"github.com/sandevgo/docportal/internal/service/conversation"
	"github.com/sandevgo/docportal/internal/service/session"
	"github.com/sandevgo/docportal/pkg/log"
)

// DefaultSessionID is used when a tool call names no session.
const DefaultSessionID = "mcp"

const instructions = `Answers questions about a document. Call load_document first, then ask.
Each session_id holds its own document and conversation.`

type orchestrator interface {
	Handle(ctx context.Context, s *session.Session, text string, sink core.Sink) error
	Ingest(ctx context.Context, s *session.Session, doc core.Document, sink core.Sink) error
}

type sessionStore interface {
	GetOrCreate(id string) *session.Session
	Reset(ctx context.Context, id string) (*session.Session, error)
}

// Server exposes the portal as MCP tools.
type Server struct {
	mcp      *server.MCPServer
	orch     orchestrator
	sessions sessionStore
	limits   rag.Limits
}

func NewServer(orch orchestrator, sessions sessionStore, limits rag.Limits) *Server {
	s := &Server{
		mcp: server.NewMCPServer(
			core.PortalName,
			core.PortalVersion,
			server.WithToolCapabilities(false),
			server.WithInstructions(instructions),
		),
		orch:     orch,
		sessions: sessions,
		limits:   limits,
	}

	sessionArg := mcp.WithString("session_id", mcp.Description("Conversation to use. Defaults to a shared session."))

	s.mcp.AddTool(mcp.NewTool("load_document",
		mcp.WithDescription("Load a document to answer questions about. Pass either a file path or the text itself."),
		mcp.WithString("path", mcp.Description("Path of a text, Markdown or HTML file")),
		mcp.WithString("content", mcp.Description("Document text, used when path is empty")),
		mcp.WithString("name", mcp.Description("Display name for inline content")),
		sessionArg,
	), s.loadDocument)

	s.mcp.AddTool(mcp.NewTool("ask",
		mcp.WithDescription("Ask a question about the loaded document."),
		mcp.WithString("question", mcp.Required(), mcp.Description("The question")),
		sessionArg,
	), s.ask)

	s.mcp.AddTool(mcp.NewTool("new_session",
		mcp.WithDescription("Forget the loaded document and the conversation."),
		sessionArg,
	), s.newSession)

	s.mcp.AddTool(mcp.NewTool("status",
		mcp.WithDescription("Show the session state, loaded document and transcript."),
		sessionArg,
	), s.status)

	return s
}

func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// Serve speaks JSON-RPC over in/out until ctx is cancelled or in closes.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	log.FromCtx(ctx).Info().Msg("starting mcp stdio server")
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

func sessionID(req mcp.CallToolRequest) string {
	return req.GetString("session_id", DefaultSessionID)
}

// collectSink gathers a turn into a single tool result.
type collectSink struct {
	reply strings.Builder
	err   error
}

func (c *collectSink) Reply(_ context.Context, text string) error {
	c.reply.WriteString(text)
	return nil
}

func (c *collectSink) Delta(context.Context, string) error {
	return nil
}

func (c *collectSink) Done(_ context.Context, text string) error {
	c.reply.Reset()
	c.reply.WriteString(text)
	return nil
}

func (c *collectSink) Fail(_ context.Context, err error) error {
	c.err = err
	return nil
}

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(conversation.Describe(err))
}

func (s *Server) loadDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess := s.sessions.GetOrCreate(sessionID(req))
	ctx = log.WithFields(ctx, "session", sess.ID)

	var (
		doc core.Document
		err error
	)
	if path := req.GetString("path", ""); path != "" {
		doc, err = rag.LoadFile(ctx, path, s.limits)
	} else if content := req.GetString("content", ""); content != "" {
		doc, err = rag.LoadDocument(ctx, req.GetString("name", "document.txt"), "", strings.NewReader(content), s.limits)
	} else {
		return mcp.NewToolResultError("either path or content is required"), nil
	}
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("document rejected")
		return toolError(err), nil
	}

	sink := &collectSink{}
	if err := s.orch.Ingest(ctx, sess, doc, sink); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(sink.reply.String()), nil
}

func (s *Server) ask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sess := s.sessions.GetOrCreate(sessionID(req))

	sink := &collectSink{}
	if err := s.orch.Handle(ctx, sess, question, sink); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(sink.reply.String()), nil
}

func (s *Server) newSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.sessions.Reset(ctx, sessionID(req))
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Session %s started over. Load a document to begin.", sess.ID)), nil
}

func (s *Server) status(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(s.sessions.GetOrCreate(sessionID(req)).Snapshot())
}
