package core

import (
	"context"
	"testing"

	"github.com/hupe1980/jobmesh/logging"
)

func newTestToolContext() *ToolContext {
	state := NewState("test-session", "test-user", "job_search", "find golang jobs")
	state.Scratch["search_criteria"] = "golang"

	return NewToolContext(context.Background(), "job_searcher", "test-call-id", &state, logging.NoOpLogger{})
}

func TestToolContext_BasicFunctionality(t *testing.T) {
	tc := newTestToolContext()

	if !tc.IsValid() {
		t.Fatal("expected valid tool context")
	}
	if tc.SessionID() != "test-session" {
		t.Errorf("session id mismatch")
	}
	if tc.AgentName() != "job_searcher" {
		t.Errorf("agent name mismatch")
	}
	if tc.CallID() != "test-call-id" {
		t.Errorf("call id mismatch")
	}
	if tc.UserInput() != "find golang jobs" {
		t.Errorf("user input mismatch")
	}
	if tc.Logger() == nil {
		t.Errorf("expected logger")
	}
}

func TestToolContext_ScratchStaging(t *testing.T) {
	tc := newTestToolContext()

	// Snapshot values visible before staging.
	if v, ok := tc.GetScratch("search_criteria"); !ok || v != "golang" {
		t.Fatalf("snapshot scratch not visible: %v %v", v, ok)
	}

	tc.SetScratch("jobs_found", 3)

	if v, ok := tc.GetScratch("jobs_found"); !ok || v != 3 {
		t.Errorf("staged value not readable: %v %v", v, ok)
	}
	if _, ok := tc.State().ScratchValue("jobs_found"); ok {
		t.Error("staging leaked into the snapshot")
	}
	if d := tc.ScratchDelta(); d["jobs_found"] != 3 {
		t.Errorf("unexpected scratch delta: %v", d)
	}
}

func TestToolContext_SetResult(t *testing.T) {
	tc := newTestToolContext()
	tc.SetResult(map[string]any{"jobs": []string{"a", "b"}})

	if _, ok := tc.ScratchDelta()["job_searcher_result"]; !ok {
		t.Errorf("result not staged under agent result key: %v", tc.ScratchDelta())
	}
}

func TestToolContext_RequestHandoff(t *testing.T) {
	tc := newTestToolContext()

	if tc.Handoff() != nil {
		t.Fatal("fresh context should have no handoff")
	}

	tc.RequestHandoff("resume_critic", "jobs collected")
	tc.RequestHandoff("resume_rewriter", "changed my mind")

	h := tc.Handoff()
	if h == nil || h.Target != "resume_rewriter" {
		t.Errorf("last handoff request should win: %+v", h)
	}
}

func TestToolContext_Validation(t *testing.T) {
	if (&ToolContext{}).IsValid() {
		t.Error("zero context should not be valid")
	}

	tc := newTestToolContext()
	if err := tc.Validate(); err != nil {
		t.Errorf("validate error: %v", err)
	}
}
