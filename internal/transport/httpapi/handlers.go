package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/sandevgo/docportal/internal/providers/rag"
	"github.com/sandevgo/docportal/internal/service/session"
	"github.com/sandevgo/docportal/pkg/log"
)

const (
	apiKeyHeader       = "X-API-Key"
	documentNameHeader = "X-Document-Name"
	defaultDocName     = "document.txt"
	maxMessageBytes    = 64 << 10
)

type createSessionRequest struct {
	APIKey string `json:"api_key"`
}

type sessionResponse struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

type documentResponse struct {
	State    string `json:"state"`
	Document string `json:"document"`
	Message  string `json:"message"`
}

type messageRequest struct {
	Text string `json:"text"`
}

type messageResponse struct {
	Reply string `json:"reply"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(io.LimitReader(r.Body, maxMessageBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeBadRequest(w, "invalid json")
			return
		}
	}

	sess := s.sessions.Create()
	sess.SetAPIKey(firstNonEmpty(r.Header.Get(apiKeyHeader), req.APIKey))

	log.FromCtx(r.Context()).Info().Str("session", sess.ID).Msg("session created")
	writeJSON(w, http.StatusCreated, sessionResponse{ID: sess.ID, State: sess.State().String()})
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	if key := r.Header.Get(apiKeyHeader); key != "" {
		sess.SetAPIKey(key)
	}
	return sess, true
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) uploadDocument(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	name, contentType, body, err := documentBody(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	defer body.Close()

	doc, err := rag.LoadDocument(ctx, name, contentType, body, s.limits)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Str("document", name).Msg("document rejected")
		writeError(w, err)
		return
	}

	sink := &bufferSink{}
	if err := s.orch.Ingest(ctx, sess, doc, sink); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{
		State:    sess.State().String(),
		Document: sess.Document(),
		Message:  sink.reply.String(),
	})
}

// documentBody accepts a multipart "file" field or the raw request body.
func documentBody(r *http.Request) (name, contentType string, body io.ReadCloser, err error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		name = firstNonEmpty(r.Header.Get(documentNameHeader), r.URL.Query().Get("name"), defaultDocName)
		return name, r.Header.Get("Content-Type"), r.Body, nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return "", "", nil, err
	}
	for {
		part, err := mr.NextPart()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", "", nil, errors.New(`multipart field "file" is required`)
			}
			return "", "", nil, err
		}
		if part.FormName() == "file" {
			return firstNonEmpty(part.FileName(), defaultDocName), part.Header.Get("Content-Type"), part, nil
		}
		_ = part.Close()
	}
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var req messageRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxMessageBytes)).Decode(&req); err != nil {
		writeBadRequest(w, "invalid json")
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		if sink, ok := newSSESink(w); ok {
			s.stream(r, sess, req.Text, sink)
			return
		}
	}

	if out, ok := s.command(r, sess, req.Text); ok {
		writeJSON(w, http.StatusOK, messageResponse{Reply: out})
		return
	}

	sink := &bufferSink{}
	if err := s.orch.Handle(ctx, sess, req.Text, sink); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Reply: sink.reply.String()})
}

// stream always ends with a done event, whatever the outcome.
func (s *Server) stream(r *http.Request, sess *session.Session, text string, sink *sseSink) {
	ctx := r.Context()
	logger := log.FromCtx(ctx)

	defer func() {
		if err := sink.Close(); err != nil {
			logger.Debug().Err(err).Msg("client went away before done")
		}
	}()

	if err := sink.Pending(); err != nil {
		return
	}

	if out, ok := s.command(r, sess, text); ok {
		_ = sink.Reply(ctx, out)
		return
	}

	if err := s.orch.Handle(ctx, sess, text, sink); err != nil {
		logger.Debug().Err(err).Msg("message not answered")
	}
}

func (s *Server) command(r *http.Request, sess *session.Session, text string) (string, bool) {
	if s.router == nil {
		return "", false
	}
	return s.router.Execute(r.Context(), sess.ID, text)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
