package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hupe1980/jobmesh/core"
	"github.com/hupe1980/jobmesh/document"
	"github.com/hupe1980/jobmesh/engine"
	"github.com/hupe1980/jobmesh/session"
)

// maxBodyBytes bounds JSON request bodies. Resume texts fit comfortably.
const maxBodyBytes = 1 << 20

// executeRequest is the execute endpoint's body: a run submission plus a
// flag selecting synchronous execution.
type executeRequest struct {
	engine.Request

	// Wait blocks the request until the run finished and returns the final
	// report instead of 202 Accepted.
	Wait bool `json:"wait,omitempty"`
}

type executeAccepted struct {
	SessionID string `json:"session_id"`
	RunID     string `json:"run_id"`
	Status    string `json:"status"`
}

type cancelAccepted struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

type workflowList struct {
	Workflows []engine.WorkflowInfo `json:"workflows"`
}

type agentList struct {
	Agents []engine.AgentInfo `json:"agents"`
}

type documentList struct {
	Documents []document.Document `json:"documents"`
}

type uploadDocumentRequest struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

type healthResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, healthResponse{Status: "ok"})
}

// handleExecute submits a workflow run. The authenticated user, if any,
// overrides the user id claimed in the body.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if uid, ok := UserFromContext(r.Context()); ok {
		req.UserID = uid
	}

	if req.Wait {
		report, err := s.engine.Execute(r.Context(), req.Request)
		if report == nil {
			s.renderError(w, r, err)
			return
		}

		// A failed run still yields a report; Success and Error carry the
		// outcome.
		s.respond(w, http.StatusOK, report)

		return
	}

	h, err := s.engine.ExecuteAsync(r.Context(), req.Request)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	s.respond(w, http.StatusAccepted, executeAccepted{
		SessionID: h.SessionID,
		RunID:     h.RunID,
		Status:    "pending",
	})
}

func (s *Server) handleWorkflows(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, workflowList{Workflows: s.engine.Workflows()})
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, agentList{Agents: s.engine.Capabilities()})
}

func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.engine.Status(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	s.respond(w, http.StatusOK, status)
}

func (s *Server) handleRunCancel(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := s.engine.Cancel(sessionID); err != nil {
		s.renderError(w, r, err)
		return
	}

	s.respond(w, http.StatusAccepted, cancelAccepted{
		SessionID: sessionID,
		Status:    "cancelling",
	})
}

// handleRunEvents streams the run's step events as server-sent events. The
// stream ends with an "event: done" message once the run finished. Only
// active runs can be subscribed; finished runs answer 404 and should be
// inspected via the status endpoint.
func (s *Server) handleRunEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	events, cancel, err := s.engine.Subscribe(sessionID)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	rc := http.NewResponseController(w)

	// The stream outlives the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	fmt.Fprintf(w, "event: ping\ndata: {\"session_id\":%q}\n\n", sessionID)
	_ = rc.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				fmt.Fprintf(w, "event: done\ndata: {\"session_id\":%q}\n\n", sessionID)
				_ = rc.Flush()

				return
			}

			data, _ := json.Marshal(ev)

			fmt.Fprintf(w, "event: step\ndata: %s\n\n", data)
			_ = rc.Flush()
		}
	}
}

// handleDocumentUpload stores a resume. The body carries the already
// extracted text; binary formats are parsed client-side.
func (s *Server) handleDocumentUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadDocumentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		s.respondError(w, http.StatusBadRequest, "document text must not be empty")
		return
	}

	if req.Filename == "" {
		req.Filename = "resume.txt"
	}

	doc := document.New(requestUser(r), req.Filename, req.Text)

	if err := s.documents.Save(r.Context(), doc); err != nil {
		s.renderError(w, r, err)
		return
	}

	s.respond(w, http.StatusCreated, doc)
}

func (s *Server) handleDocumentList(w http.ResponseWriter, r *http.Request) {
	docs, err := s.documents.List(r.Context(), requestUser(r))
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	if docs == nil {
		docs = []document.Document{}
	}

	s.respond(w, http.StatusOK, documentList{Documents: docs})
}

func (s *Server) handleDocumentGet(w http.ResponseWriter, r *http.Request) {
	doc, err := s.documents.Get(r.Context(), requestUser(r), chi.URLParam(r, "documentID"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	s.respond(w, http.StatusOK, doc)
}

func (s *Server) handleDocumentDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.documents.Delete(r.Context(), requestUser(r), chi.URLParam(r, "documentID")); err != nil {
		s.renderError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid request body")
	}

	return nil
}

func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("server.encode_failed", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respond(w, status, errorResponse{Error: msg})
}

// renderError maps domain errors onto HTTP statuses: rejected submissions
// become 400, unknown sessions, runs and documents 404, everything else 500.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	var subErr *core.SubmissionError

	switch {
	case errors.As(err, &subErr):
		s.respondError(w, http.StatusBadRequest, subErr.Reason)
	case errors.Is(err, engine.ErrRunNotFound),
		errors.Is(err, session.ErrNotFound),
		errors.Is(err, document.ErrNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("server.request_failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		s.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
