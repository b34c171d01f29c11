// Package jobmesh wires the career workflows, their agents and their tools
// into a ready-to-run orchestration engine. Most applications interact with
// this package by:
//  1. Creating a JobMesh via New() (optionally overriding the model, the
//     stores and the job board sources)
//  2. Submitting runs synchronously (Execute) or asynchronously (ExecuteAsync)
//  3. Observing runs via Subscribe, Status and the OnStep/OnFinish hooks
//
// The façade delegates orchestration to engine.Engine while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing: a mock model, in-memory stores and a static demo job source.
// Production deployments supply a real model, durable stores and live job
// board credentials.
package jobmesh

import (
	"context"

	"github.com/hupe1980/jobmesh/core"
	"github.com/hupe1980/jobmesh/document"
	"github.com/hupe1980/jobmesh/engine"
	"github.com/hupe1980/jobmesh/history"
	"github.com/hupe1980/jobmesh/logging"
	"github.com/hupe1980/jobmesh/model"
	"github.com/hupe1980/jobmesh/session"
	"github.com/hupe1980/jobmesh/tool/jobsearch"
	"github.com/hupe1980/jobmesh/workflow"
)

// Version is the library version, surfaced by the CLI.
var Version = "0.1.0"

// Options configures the JobMesh instance.
type Options struct {
	// Engine configuration (concurrency, buffers, budgets)
	EngineConfig engine.Config

	// Model backs every agent. Defaults to a mock model that answers
	// without external calls, so the zero-value mesh runs offline.
	Model model.Model

	// Stores (default to in-memory implementations if not provided)
	Sessions  session.Store
	Documents document.Store

	// History receives run records for replay and audit. Nil disables
	// history recording.
	History history.Sink

	// JobSources feed the search_jobs tool. Defaults to a static source
	// serving demo postings when empty.
	JobSources []jobsearch.Source

	// BestEffortComprehensive relaxes the comprehensive workflow so a run
	// counts as complete once the rewriter has produced output, even when
	// earlier agents were skipped.
	BestEffortComprehensive bool

	// OnStep is invoked after every workflow step. Optional.
	OnStep func(ev core.StepEvent)

	// OnFinish is invoked once per run with the final report. Optional.
	OnFinish func(report *core.Report, runErr error)

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// JobMesh is the high-level façade aggregating the engine, the workflow
// catalog and the document store.
type JobMesh struct {
	opts      Options
	engine    *engine.Engine
	documents document.Store
}

// New creates a new JobMesh instance with optional overrides. Any unset
// service is initialized with an in-memory implementation, and the full
// workflow catalog is registered.
func New(optFns ...func(o *Options)) (*JobMesh, error) {
	opts := Options{
		EngineConfig: engine.DefaultConfig,
		Model:        model.NewMockModel("mock-career-model", "mock"),
		Sessions:     session.NewInMemoryStore(),
		Documents:    document.NewInMemoryStore(),
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	sources := opts.JobSources
	if len(sources) == 0 {
		sources = []jobsearch.Source{jobsearch.NewStaticSource("demo", jobsearch.DemoJobs(""))}
	}

	builder := newAgentBuilder(opts.Model, opts.Documents, sources, opts.Logger)

	var catalogFns []func(o *workflow.CatalogOptions)
	if opts.BestEffortComprehensive {
		catalogFns = append(catalogFns, func(o *workflow.CatalogOptions) {
			o.BestEffortComprehensive = true
		})
	}

	defs := workflow.Catalog(catalogFns...)

	regs := make([]engine.Registration, 0, len(defs))
	for _, def := range defs {
		regs = append(regs, engine.Registration{
			Definition: def,
			Agents:     builder.agentsFor(def),
		})
	}

	eng, err := engine.New(regs, func(o *engine.Options) {
		o.Config = opts.EngineConfig
		o.Sessions = opts.Sessions
		o.History = opts.History
		o.OnStep = opts.OnStep
		o.OnFinish = opts.OnFinish
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, err
	}

	return &JobMesh{opts: opts, engine: eng, documents: opts.Documents}, nil
}

// Execute runs a workflow to completion and returns its report. Submission
// failures surface as a core.SubmissionError; once a run has started the
// report is non-nil even when the run itself failed.
func (m *JobMesh) Execute(ctx context.Context, req engine.Request) (*core.Report, error) {
	return m.engine.Execute(ctx, req)
}

// ExecuteAsync starts a workflow run and returns a handle carrying the event,
// error and report channels.
func (m *JobMesh) ExecuteAsync(ctx context.Context, req engine.Request) (*engine.RunHandle, error) {
	return m.engine.ExecuteAsync(ctx, req)
}

// Cancel stops the active run for the session.
func (m *JobMesh) Cancel(sessionID string) error {
	return m.engine.Cancel(sessionID)
}

// Status reports the current state of a session's run.
func (m *JobMesh) Status(ctx context.Context, sessionID string) (*engine.RunStatus, error) {
	return m.engine.Status(ctx, sessionID)
}

// Subscribe attaches to the step event stream of an active run. The returned
// cancel func detaches the subscriber.
func (m *JobMesh) Subscribe(sessionID string) (<-chan core.StepEvent, func(), error) {
	return m.engine.Subscribe(sessionID)
}

// Workflows lists the registered workflow definitions.
func (m *JobMesh) Workflows() []engine.WorkflowInfo {
	return m.engine.Workflows()
}

// Capabilities lists the registered agents and what they can do.
func (m *JobMesh) Capabilities() []engine.AgentInfo {
	return m.engine.Capabilities()
}

// ActiveRuns returns the number of runs currently executing.
func (m *JobMesh) ActiveRuns() int {
	return m.engine.ActiveRuns()
}

// Documents exposes the resume store shared with the analysis tools.
func (m *JobMesh) Documents() document.Store {
	return m.documents
}

// Close cancels all active runs and waits for them to finish.
func (m *JobMesh) Close() error {
	return m.engine.Close()
}
