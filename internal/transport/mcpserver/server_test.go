package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/docportal/internal/core"
	"github.com/sandevgo/docportal/internal/providers/rag"
	"github.com/sandevgo/docportal/internal/service/conversation"
	"github.com/sandevgo/docportal/internal/service/rules"
	"github.com/sandevgo/docportal/internal/service/session"
)

type fakeCompleter struct{}

func (fakeCompleter) Complete(_ context.Context, req core.CompletionRequest) (core.Completion, error) {
	return core.Completion{Text: "You asked: " + req.Message, FinishReason: core.FinishStop}, nil
}

func (fakeCompleter) Stream(context.Context, core.CompletionRequest) (<-chan core.Chunk, error) {
	return nil, fmt.Errorf("streaming disabled")
}

type fakeRetriever struct{}

func (fakeRetriever) Ingest(_ context.Context, doc core.Document) (core.ContextHandle, error) {
	return core.ContextHandle(doc.Name), nil
}

func (fakeRetriever) Query(context.Context, core.ContextHandle, string, int) ([]core.Passage, error) {
	return nil, nil
}

func (fakeRetriever) Release(context.Context, core.ContextHandle) error {
	return nil
}

func newTestServer(t *testing.T) (*Server, *session.Manager) {
	t.Helper()
	sessions := session.NewManager(fakeRetriever{}, 0)
	orch := conversation.New(
		rules.NewMatcher(rules.Defaults()),
		fakeCompleter{},
		fakeRetriever{},
		conversation.Config{SystemPrompt: "Answer from the document.", TopK: 2},
	)
	return NewServer(orch, sessions, rag.Limits{MaxBytes: 1 << 20, Policy: rag.PolicyReject}), sessions
}

func call(t *testing.T, s *Server, tool string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	st := s.MCP().GetTool(tool)
	require.NotNil(t, st, tool)

	req := mcp.CallToolRequest{}
	req.Params.Name = tool
	req.Params.Arguments = args

	res, err := st.Handler(context.Background(), req)
	require.NoError(t, err)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok)
	return tc.Text
}

func TestTools_Registered(t *testing.T) {
	s, _ := newTestServer(t)

	var names []string
	for name := range s.MCP().ListTools() {
		names = append(names, name)
	}
	assert.ElementsMatch(t, []string{"load_document", "ask", "new_session", "status"}, names)
}

func TestAsk_BeforeDocument(t *testing.T) {
	s, _ := newTestServer(t)

	res := call(t, s, "ask", map[string]any{"question": "hello"})
	assert.True(t, res.IsError)
	assert.Equal(t, "Please upload a document to process first.", text(t, res))
}

func TestAsk_MissingQuestion(t *testing.T) {
	s, _ := newTestServer(t)

	res := call(t, s, "ask", map[string]any{})
	assert.True(t, res.IsError)
}

func TestLoadDocumentAndAsk(t *testing.T) {
	s, sessions := newTestServer(t)

	res := call(t, s, "load_document", map[string]any{"content": "Office hours are 9 to 5.", "name": "hours.txt"})
	require.False(t, res.IsError, text(t, res))
	assert.Contains(t, text(t, res), `"hours.txt"`)

	res = call(t, s, "ask", map[string]any{"question": "When is the office open?"})
	require.False(t, res.IsError)
	assert.Equal(t, "You asked: When is the office open?", text(t, res))

	res = call(t, s, "ask", map[string]any{"question": "what is the wifi"})
	assert.Contains(t, text(t, res), "Guest")

	sess, err := sessions.Get(DefaultSessionID)
	require.NoError(t, err)
	assert.Equal(t, 4, sess.Transcript().Len())
}

func TestLoadDocument_FromPath(t *testing.T) {
	s, sessions := newTestServer(t)
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte("<html><body><p>Hello</p></body></html>"), 0644))

	res := call(t, s, "load_document", map[string]any{"path": path, "session_id": "alice"})
	require.False(t, res.IsError, text(t, res))

	sess, err := sessions.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, session.Ready, sess.State())
	assert.Equal(t, "page.html", sess.Document())
}

func TestLoadDocument_Errors(t *testing.T) {
	s, _ := newTestServer(t)

	res := call(t, s, "load_document", map[string]any{})
	assert.True(t, res.IsError)

	res = call(t, s, "load_document", map[string]any{"path": "/no/such/file.txt"})
	assert.True(t, res.IsError)
}

func TestNewSessionAndStatus(t *testing.T) {
	s, _ := newTestServer(t)

	call(t, s, "load_document", map[string]any{"content": "text"})

	res := call(t, s, "status", nil)
	var snap session.Snapshot
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &snap))
	assert.Equal(t, "ready", snap.State)

	res = call(t, s, "new_session", nil)
	assert.True(t, strings.HasPrefix(text(t, res), "Session mcp started over"))

	res = call(t, s, "status", nil)
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &snap))
	assert.Equal(t, "awaiting_document", snap.State)
	assert.Empty(t, snap.Transcript)
}
