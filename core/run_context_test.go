package core

import (
	"context"
	"testing"
	"time"

	"github.com/hupe1980/jobmesh/logging"
)

func TestRunContext_EmitStep(t *testing.T) {
	emit := make(chan StepEvent, 1)
	rc := NewRunContext(context.Background(), "sess-1", "run-1", "job_search", 50, emit, logging.NoOpLogger{})

	rc.EmitStep(StepEvent{SessionID: "sess-1", Step: 1, Agent: "job_searcher", Outcome: OutcomeContinue})

	select {
	case ev := <-emit:
		if ev.Agent != "job_searcher" || ev.Step != 1 {
			t.Errorf("unexpected event: %+v", ev)
		}
	default:
		t.Fatal("expected event on channel")
	}
}

func TestRunContext_EmitStep_NilChannel(t *testing.T) {
	rc := NewRunContext(context.Background(), "sess-1", "run-1", "job_search", 50, nil, nil)

	// Must not panic or block.
	rc.EmitStep(StepEvent{Step: 1})
}

func TestRunContext_EmitStep_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	emit := make(chan StepEvent) // unbuffered, no receiver
	rc := NewRunContext(ctx, "sess-1", "run-1", "job_search", 50, emit, logging.NoOpLogger{})

	done := make(chan struct{})
	go func() {
		rc.EmitStep(StepEvent{Step: 1})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("EmitStep blocked past cancellation")
	}

	if rc.Err() == nil {
		t.Error("expected context error")
	}
}
