// Package engine implements the orchestration layer for JobMesh.
//
// The Engine is the single entry point for running workflows. It owns the
// registry of workflow definitions and their agents, validates incoming
// submissions, binds each accepted run to a session record and drives the
// workflow executor under a global concurrency cap.
//
// # Core Responsibilities
//
// Submission handling:
//   - Validate workflow type and user input before any state is created
//   - Reject invalid submissions with a core.SubmissionError, leaving no
//     trace in the session store or history
//   - Generate session and run identifiers when the caller supplies none
//
// Run orchestration:
//   - Synchronous execution via Execute, asynchronous via ExecuteAsync
//   - Bounded concurrency through a weighted semaphore; submissions beyond
//     the cap queue in the pending state
//   - Cooperative cancellation per session and engine-wide shutdown
//
// Observability:
//   - Step events fanned out to any number of subscribers per run
//   - Session snapshots checkpointed after every applied step, so Status
//     reflects live progress
//   - Transcript persistence through the history sink
//
// # Usage
//
// Construction wires the workflow catalog to its agents:
//
//	eng, err := engine.New([]engine.Registration{
//	    {Definition: def, Agents: agents},
//	}, func(o *engine.Options) {
//	    o.Sessions = sessionStore
//	    o.History = historySink
//	    o.Logger = logger
//	})
//
// Synchronous execution returns the final report:
//
//	report, err := eng.Execute(ctx, engine.Request{
//	    WorkflowType: "job_search",
//	    UserInput:    "Golang jobs in Berlin",
//	    UserID:       "user-1",
//	})
//
// Asynchronous execution hands back a RunHandle whose channels deliver step
// events and the final result:
//
//	h, err := eng.ExecuteAsync(ctx, req)
//	if err != nil {
//	    return err
//	}
//	for ev := range h.Events {
//	    handleEvent(ev)
//	}
//	report := <-h.Report
//
// While a run executes, Status projects its progress from the session store
// and Cancel stops it cooperatively at the next routing boundary.
package engine
