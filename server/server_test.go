package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/jobmesh/core"
	"github.com/hupe1980/jobmesh/document"
	"github.com/hupe1980/jobmesh/engine"
	"github.com/hupe1980/jobmesh/metrics"
	"github.com/hupe1980/jobmesh/session"
	"github.com/hupe1980/jobmesh/workflow"
)

// fakeEngine satisfies Engine with canned data and records submissions.
type fakeEngine struct {
	mu        sync.Mutex
	submitted []engine.Request
	cancelled []string

	report    *core.Report
	runErr    error
	submitErr error

	statuses map[string]*engine.RunStatus
	events   chan core.StepEvent

	workflows []engine.WorkflowInfo
	agents    []engine.AgentInfo
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		report: &core.Report{
			WorkflowType:   workflow.TypeJobSearch,
			SessionID:      "sess-1",
			Steps:          1,
			ExecutedAgents: []string{workflow.AgentJobSearcher},
			Results:        map[string]any{},
			Success:        true,
		},
		statuses: map[string]*engine.RunStatus{},
		workflows: []engine.WorkflowInfo{
			{
				Type:        workflow.TypeJobSearch,
				Description: "Search for matching job postings",
				EntryAgent:  workflow.AgentJobSearcher,
				Agents:      []string{workflow.AgentJobSearcher},
			},
		},
		agents: []engine.AgentInfo{
			{
				Name:         workflow.AgentJobSearcher,
				Description:  "Searches job postings",
				Capabilities: []string{"job_search"},
			},
		},
	}
}

func (f *fakeEngine) record(req engine.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.submitted = append(f.submitted, req)
}

func (f *fakeEngine) requests() []engine.Request {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]engine.Request(nil), f.submitted...)
}

func (f *fakeEngine) cancelledSessions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.cancelled...)
}

func (f *fakeEngine) Execute(ctx context.Context, req engine.Request) (*core.Report, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}

	f.record(req)

	return f.report, f.runErr
}

func (f *fakeEngine) ExecuteAsync(ctx context.Context, req engine.Request) (*engine.RunHandle, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}

	f.record(req)

	events := make(chan core.StepEvent)
	close(events)

	errs := make(chan error, 1)
	close(errs)

	reports := make(chan *core.Report, 1)
	reports <- f.report
	close(reports)

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = "sess-1"
	}

	return &engine.RunHandle{
		RunID:     "run-1",
		SessionID: sessionID,
		Events:    events,
		Errors:    errs,
		Report:    reports,
	}, nil
}

func (f *fakeEngine) Status(ctx context.Context, sessionID string) (*engine.RunStatus, error) {
	if status, ok := f.statuses[sessionID]; ok {
		return status, nil
	}

	return nil, session.ErrNotFound
}

func (f *fakeEngine) Cancel(sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.statuses[sessionID]; !ok {
		return fmt.Errorf("%w %q", engine.ErrRunNotFound, sessionID)
	}

	f.cancelled = append(f.cancelled, sessionID)

	return nil
}

func (f *fakeEngine) Subscribe(sessionID string) (<-chan core.StepEvent, func(), error) {
	if f.events == nil {
		return nil, nil, fmt.Errorf("%w %q", engine.ErrRunNotFound, sessionID)
	}

	return f.events, func() {}, nil
}

func (f *fakeEngine) Workflows() []engine.WorkflowInfo { return f.workflows }

func (f *fakeEngine) Capabilities() []engine.AgentInfo { return f.agents }

func newTestServer(t *testing.T, eng Engine, optFns ...func(o *Options)) *httptest.Server {
	t.Helper()

	srv, err := New(eng, optFns...)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return ts
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) *http.Response {
	t.Helper()

	var reader io.Reader

	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	require.NoError(t, err)

	return resp
}

func readJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()

	defer resp.Body.Close()

	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestNew_NilEngine(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine must not be nil")
}

func TestNew_AuthWithoutSecret(t *testing.T) {
	_, err := New(newFakeEngine(), func(o *Options) {
		o.Config.AuthEnabled = true
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no secret")
}

func TestServer_Healthz(t *testing.T) {
	ts := newTestServer(t, newFakeEngine())

	resp, err := ts.Client().Get(ts.URL + "/healthz")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health healthResponse
	readJSON(t, resp, &health)
	assert.Equal(t, "ok", health.Status)
}

func TestServer_ExecuteAsync(t *testing.T) {
	fake := newFakeEngine()
	ts := newTestServer(t, fake)

	resp := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/api/v1/workflows/execute", map[string]any{
		"workflow_type": workflow.TypeJobSearch,
		"user_input":    "Golang jobs in Berlin",
	}, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var accepted executeAccepted
	readJSON(t, resp, &accepted)
	assert.Equal(t, "run-1", accepted.RunID)
	assert.NotEmpty(t, accepted.SessionID)
	assert.Equal(t, "pending", accepted.Status)

	submitted := fake.requests()
	require.Len(t, submitted, 1)
	assert.Equal(t, workflow.TypeJobSearch, submitted[0].WorkflowType)
	assert.Equal(t, "Golang jobs in Berlin", submitted[0].UserInput)
}

func TestServer_Execute_Wait(t *testing.T) {
	fake := newFakeEngine()
	ts := newTestServer(t, fake)

	resp := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/api/v1/workflows/execute", map[string]any{
		"workflow_type": workflow.TypeJobSearch,
		"user_input":    "Golang jobs in Berlin",
		"wait":          true,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report core.Report
	readJSON(t, resp, &report)
	assert.True(t, report.Success)
	assert.Equal(t, []string{workflow.AgentJobSearcher}, report.ExecutedAgents)

	require.Len(t, fake.requests(), 1)
}

func TestServer_Execute_SubmissionError(t *testing.T) {
	fake := newFakeEngine()
	fake.submitErr = core.NewSubmissionError("unknown workflow type %q", "nope")
	ts := newTestServer(t, fake)

	resp := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/api/v1/workflows/execute", map[string]any{
		"workflow_type": "nope",
		"user_input":    "anything",
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var apiErr errorResponse
	readJSON(t, resp, &apiErr)
	assert.Contains(t, apiErr.Error, "unknown workflow type")
}

func TestServer_Execute_InvalidBody(t *testing.T) {
	ts := newTestServer(t, newFakeEngine())

	resp, err := ts.Client().Post(ts.URL+"/api/v1/workflows/execute", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var apiErr errorResponse
	readJSON(t, resp, &apiErr)
	assert.Equal(t, "invalid request body", apiErr.Error)
}

func TestServer_Workflows(t *testing.T) {
	ts := newTestServer(t, newFakeEngine())

	resp, err := ts.Client().Get(ts.URL + "/api/v1/workflows")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list workflowList
	readJSON(t, resp, &list)
	require.Len(t, list.Workflows, 1)
	assert.Equal(t, workflow.TypeJobSearch, list.Workflows[0].Type)
}

func TestServer_Capabilities(t *testing.T) {
	ts := newTestServer(t, newFakeEngine())

	resp, err := ts.Client().Get(ts.URL + "/api/v1/agents/capabilities")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list agentList
	readJSON(t, resp, &list)
	require.Len(t, list.Agents, 1)
	assert.Equal(t, workflow.AgentJobSearcher, list.Agents[0].Name)
}

func TestServer_RunStatus(t *testing.T) {
	fake := newFakeEngine()
	fake.statuses["sess-1"] = &engine.RunStatus{
		SessionID:       "sess-1",
		WorkflowType:    workflow.TypeJobSearch,
		State:           session.StatusRunning,
		CompletedAgents: []string{},
		Steps:           2,
	}
	ts := newTestServer(t, fake)

	resp, err := ts.Client().Get(ts.URL + "/api/v1/runs/sess-1/status")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status engine.RunStatus
	readJSON(t, resp, &status)
	assert.Equal(t, session.StatusRunning, status.State)
	assert.Equal(t, 2, status.Steps)
}

func TestServer_RunStatus_NotFound(t *testing.T) {
	ts := newTestServer(t, newFakeEngine())

	resp, err := ts.Client().Get(ts.URL + "/api/v1/runs/ghost/status")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var apiErr errorResponse
	readJSON(t, resp, &apiErr)
	assert.Contains(t, apiErr.Error, "session not found")
}

func TestServer_RunCancel(t *testing.T) {
	fake := newFakeEngine()
	fake.statuses["sess-1"] = &engine.RunStatus{SessionID: "sess-1", State: session.StatusRunning}
	ts := newTestServer(t, fake)

	resp := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/api/v1/runs/sess-1/cancel", nil, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var accepted cancelAccepted
	readJSON(t, resp, &accepted)
	assert.Equal(t, "cancelling", accepted.Status)
	assert.Equal(t, []string{"sess-1"}, fake.cancelledSessions())
}

func TestServer_RunCancel_NotFound(t *testing.T) {
	ts := newTestServer(t, newFakeEngine())

	resp := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/api/v1/runs/ghost/cancel", nil, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestServer_RunEvents_SSE(t *testing.T) {
	fake := newFakeEngine()
	events := make(chan core.StepEvent, 2)
	events <- core.StepEvent{SessionID: "sess-1", Step: 1, Agent: workflow.AgentJobSearcher, Outcome: core.OutcomeContinue}
	events <- core.StepEvent{SessionID: "sess-1", Step: 2, Agent: workflow.AgentJobSearcher, Outcome: core.OutcomeContinue}
	close(events)
	fake.events = events

	ts := newTestServer(t, fake)

	resp, err := ts.Client().Get(ts.URL + "/api/v1/runs/sess-1/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	stream := string(body)
	assert.Contains(t, stream, "event: ping")
	assert.Equal(t, 2, strings.Count(stream, "event: step"))
	assert.Contains(t, stream, `"step":1`)
	assert.Contains(t, stream, `"step":2`)
	assert.Contains(t, stream, "event: done")
}

func TestServer_RunEvents_NotFound(t *testing.T) {
	ts := newTestServer(t, newFakeEngine())

	resp, err := ts.Client().Get(ts.URL + "/api/v1/runs/ghost/events")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestServer_Documents_CRUD(t *testing.T) {
	ts := newTestServer(t, newFakeEngine())

	resp := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/api/v1/documents", map[string]string{
		"filename": "resume.txt",
		"text":     "Go developer, five years of backend work",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var doc document.Document
	readJSON(t, resp, &doc)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, anonymousUser, doc.UserID)
	assert.Equal(t, "resume.txt", doc.Filename)
	assert.Equal(t, len("Go developer, five years of backend work"), doc.Size)

	resp, err := ts.Client().Get(ts.URL + "/api/v1/documents")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list documentList
	readJSON(t, resp, &list)
	require.Len(t, list.Documents, 1)
	assert.Equal(t, doc.ID, list.Documents[0].ID)

	resp, err = ts.Client().Get(ts.URL + "/api/v1/documents/" + doc.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fetched document.Document
	readJSON(t, resp, &fetched)
	assert.Equal(t, doc.Text, fetched.Text)

	resp = doJSON(t, ts.Client(), http.MethodDelete, ts.URL+"/api/v1/documents/"+doc.ID, nil, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp, err = ts.Client().Get(ts.URL + "/api/v1/documents/" + doc.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestServer_DocumentUpload_EmptyText(t *testing.T) {
	ts := newTestServer(t, newFakeEngine())

	resp := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/api/v1/documents", map[string]string{
		"filename": "resume.txt",
		"text":     "   ",
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var apiErr errorResponse
	readJSON(t, resp, &apiErr)
	assert.Contains(t, apiErr.Error, "must not be empty")
}

func TestServer_Metrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(func(o *metrics.Options) {
		o.Registerer = registry
	})

	fake := newFakeEngine()
	fake.statuses["sess-1"] = &engine.RunStatus{SessionID: "sess-1", State: session.StatusRunning}

	ts := newTestServer(t, fake, func(o *Options) {
		o.Metrics = collector
		o.Gatherer = registry
	})

	resp, err := ts.Client().Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = ts.Client().Get(ts.URL + "/api/v1/runs/sess-1/status")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = ts.Client().Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	exposition := string(body)
	assert.Contains(t, exposition, "jobmesh_http_requests_total")
	assert.Contains(t, exposition, `path="/healthz"`)
	assert.Contains(t, exposition, `path="/api/v1/runs/{sessionID}/status"`)
}
