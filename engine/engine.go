package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/hupe1980/jobmesh/core"
	"github.com/hupe1980/jobmesh/history"
	"github.com/hupe1980/jobmesh/internal/util"
	"github.com/hupe1980/jobmesh/logging"
	"github.com/hupe1980/jobmesh/session"
	"github.com/hupe1980/jobmesh/workflow"
)

// DefaultStepBudget is the per-run step budget applied when the config does
// not override it.
const DefaultStepBudget = 50

// ErrRunNotFound is returned by Cancel and Subscribe when no active run
// exists for the session id. Finished runs are unregistered, so cancelling a
// completed run reports this error too.
var ErrRunNotFound = errors.New("no active run for session")

// Config holds the tunable execution parameters of an Engine.
type Config struct {
	// MaxConcurrentRuns caps the number of runs executing at the same time.
	// Additional submissions are accepted and queue in the pending state
	// until a slot frees up.
	MaxConcurrentRuns int

	// EventBufferSize sets the channel buffering for step event streams.
	EventBufferSize int

	// StepBudget is the maximum number of agent steps per run. Zero means
	// unlimited.
	StepBudget int

	// ErrorBudget is the maximum tolerated number of absorbed agent failures
	// per run. Zero falls back to the workflow executor's default.
	ErrorBudget int

	// StepTimeout bounds a single agent step. Zero disables the per-step
	// timeout.
	StepTimeout time.Duration
}

// DefaultConfig provides production-ready default configuration values.
var DefaultConfig = Config{
	MaxConcurrentRuns: 10,
	EventBufferSize:   100,
	StepBudget:        DefaultStepBudget,
}

// Options holds dependency and configuration overrides passed to New().
type Options struct {
	// Config tunes concurrency, buffering and budgets.
	Config Config

	// Sessions persists run lifecycle records. Defaults to an in-memory
	// store.
	Sessions session.Store

	// History receives the transcript of every run. Nil disables transcript
	// persistence.
	History history.Sink

	// OnStep is invoked synchronously after every executed step across all
	// runs. Used for metrics.
	OnStep func(ev core.StepEvent)

	// OnFinish is invoked once per run when it settles, with the final
	// report and the terminal run error, if any. Used for metrics.
	OnFinish func(report *core.Report, runErr error)

	// Logger defaults to a NoOpLogger.
	Logger logging.Logger
}

// Registration binds one workflow definition to the agents implementing it.
type Registration struct {
	Definition workflow.Definition
	Agents     []core.Agent
}

// Request describes one workflow submission.
type Request struct {
	// WorkflowType selects the workflow to run. Must name a registered
	// workflow.
	WorkflowType string `json:"workflow_type"`

	// UserInput is the user's query or instruction. Must be non-blank.
	UserInput string `json:"user_input"`

	// UserID attributes the run to a user.
	UserID string `json:"user_id,omitempty"`

	// SessionID is optional; the engine generates one when empty. A session
	// id with an active run is rejected.
	SessionID string `json:"session_id,omitempty"`
}

// RunHandle exposes an asynchronously started run.
//
// Events delivers the run's step events and is closed once the run finished.
// Report then yields the final report, and Errors carries the terminal run
// error, if any. Both are buffered, so a caller interested only in the
// report may ignore the event stream.
type RunHandle struct {
	RunID     string
	SessionID string

	Events <-chan core.StepEvent
	Errors <-chan error
	Report <-chan *core.Report
}

// RunStatus is the externally visible progress of a run, projected from its
// persisted session record. It is live: the engine checkpoints the session
// after every applied step.
type RunStatus struct {
	SessionID       string         `json:"session_id"`
	RunID           string         `json:"run_id,omitempty"`
	WorkflowType    string         `json:"workflow_type"`
	State           session.Status `json:"state"`
	CurrentAgent    string         `json:"current_agent,omitempty"`
	CompletedAgents []string       `json:"completed_agents"`
	Steps           int            `json:"steps"`
	ErrorCount      int            `json:"error_count"`
	TokensUsed      int            `json:"tokens_used"`
	Error           string         `json:"error,omitempty"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// WorkflowInfo describes one registered workflow for catalog listings.
type WorkflowInfo struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	EntryAgent  string   `json:"entry_agent,omitempty"`
	Sequence    []string `json:"sequence,omitempty"`
	Agents      []string `json:"agents"`
}

// AgentInfo describes one registered agent for capability listings.
type AgentInfo struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Capabilities []string `json:"capabilities"`
}

// Engine orchestrates workflow runs: it validates submissions, binds them to
// sessions, drives the workflow executor under a concurrency cap and fans
// step events out to subscribers. Public methods are safe for concurrent
// use.
//
// The workflow and agent registries are fixed at construction; runtime state
// is limited to the active-run registry.
type Engine struct {
	workflows     map[string]*workflow.Executor
	workflowTypes []string // Registration order, used for catalog listings
	agents        map[string]core.Agent

	config   Config
	sessions session.Store
	history  history.Sink
	logger   logging.Logger
	onFinish func(report *core.Report, runErr error)

	sem *semaphore.Weighted

	runs   map[string]*activeRun // Keyed by session id
	runsMu sync.RWMutex

	wg sync.WaitGroup
}

// New constructs an Engine serving the given workflow registrations.
//
// Every registration is validated eagerly: an invalid definition or a
// missing agent is a construction error, not a runtime surprise.
func New(regs []Registration, optFns ...func(o *Options)) (*Engine, error) {
	opts := Options{
		Config:   DefaultConfig,
		Sessions: session.NewInMemoryStore(),
		Logger:   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Config.MaxConcurrentRuns <= 0 {
		opts.Config.MaxConcurrentRuns = DefaultConfig.MaxConcurrentRuns
	}

	if opts.Config.EventBufferSize <= 0 {
		opts.Config.EventBufferSize = DefaultConfig.EventBufferSize
	}

	if len(regs) == 0 {
		return nil, fmt.Errorf("no workflows registered")
	}

	e := &Engine{
		workflows: make(map[string]*workflow.Executor, len(regs)),
		agents:    make(map[string]core.Agent),
		config:    opts.Config,
		sessions:  opts.Sessions,
		history:   opts.History,
		logger:    opts.Logger,
		onFinish:  opts.OnFinish,
		sem:       semaphore.NewWeighted(int64(opts.Config.MaxConcurrentRuns)),
		runs:      make(map[string]*activeRun),
	}

	for _, reg := range regs {
		if _, exists := e.workflows[reg.Definition.Type]; exists {
			return nil, fmt.Errorf("workflow %s registered twice", reg.Definition.Type)
		}

		exec, err := workflow.New(reg.Definition, reg.Agents, func(o *workflow.Options) {
			if e.config.ErrorBudget > 0 {
				o.ErrorBudget = e.config.ErrorBudget
			}

			o.StepTimeout = e.config.StepTimeout
			o.History = opts.History
			o.OnStep = opts.OnStep
			o.Checkpoint = e.checkpointRun
			o.Logger = e.logger
		})
		if err != nil {
			return nil, err
		}

		e.workflows[reg.Definition.Type] = exec
		e.workflowTypes = append(e.workflowTypes, reg.Definition.Type)

		for _, a := range reg.Agents {
			e.agents[a.Name()] = a
		}
	}

	return e, nil
}

// Execute runs a workflow to completion and returns its report.
//
// Validation failures surface as a core.SubmissionError before anything is
// persisted. A terminal run error (budget exhaustion, cancellation) is
// returned alongside the report describing the failed run; the report is
// non-nil whenever the submission was accepted.
//
// Cancelling ctx cancels the run.
func (e *Engine) Execute(ctx context.Context, req Request) (*core.Report, error) {
	h, err := e.ExecuteAsync(ctx, req)
	if err != nil {
		return nil, err
	}

	// The asynchronous run is detached from ctx; re-attach it for the
	// synchronous caller so ctx cancellation stops the run.
	stop := context.AfterFunc(ctx, func() {
		_ = e.Cancel(h.SessionID)
	})
	defer stop()

	for range h.Events {
	}

	report := <-h.Report
	runErr := <-h.Errors

	return report, runErr
}

// ExecuteAsync validates the request, persists a pending session and starts
// the run in the background.
//
// The run is detached from ctx and keeps executing after ctx ends; use
// Cancel or Close to stop it. ctx still applies to the submission itself,
// i.e. the initial session write.
func (e *Engine) ExecuteAsync(ctx context.Context, req Request) (*RunHandle, error) {
	exec, ok := e.workflows[req.WorkflowType]
	if !ok {
		return nil, core.NewSubmissionError("unknown workflow type %q", req.WorkflowType)
	}

	if strings.TrimSpace(req.UserInput) == "" {
		return nil, core.NewSubmissionError("user input is empty")
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = util.NewID()
	}

	runID := util.NewID()

	state := core.NewState(sessionID, req.UserID, req.WorkflowType, req.UserInput)
	sess := session.New(sessionID, runID, state)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	r := &activeRun{
		runID:  runID,
		ctx:    runCtx,
		cancel: cancel,
		sess:   sess,
		subs:   make(map[int]chan core.StepEvent),
	}

	e.runsMu.Lock()
	if _, exists := e.runs[sessionID]; exists {
		e.runsMu.Unlock()
		cancel()

		return nil, core.NewSubmissionError("session %s already has an active run", sessionID)
	}
	e.runs[sessionID] = r
	e.runsMu.Unlock()

	if err := e.sessions.Save(ctx, sess); err != nil {
		e.removeRun(sessionID)
		cancel()

		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	e.appendUserRecord(ctx, state)

	emitCh := make(chan core.StepEvent, e.config.EventBufferSize)
	errorsCh := make(chan error, 1)
	reportCh := make(chan *core.Report, 1)

	events, _, err := r.subscribe(e.config.EventBufferSize)
	if err != nil {
		// Unreachable: the run was registered above and has not finished.
		e.removeRun(sessionID)
		cancel()

		return nil, err
	}

	rc := core.NewRunContext(runCtx, sessionID, runID, req.WorkflowType, e.config.StepBudget, emitCh, e.logger)

	e.logger.Info(
		"engine.run.accepted",
		"workflow", req.WorkflowType,
		"session", sessionID,
		"run", runID,
	)

	e.wg.Add(2)

	go func() {
		defer e.wg.Done()

		for ev := range emitCh {
			r.broadcast(ev)
		}

		r.closeSubs()
	}()

	go func() {
		defer e.wg.Done()
		defer cancel()

		report, runErr := e.run(rc, exec, r, state)

		if e.onFinish != nil {
			e.onFinish(report, runErr)
		}

		if runErr != nil {
			errorsCh <- runErr
		}
		close(errorsCh)

		reportCh <- report
		close(reportCh)

		close(emitCh)

		e.removeRun(sessionID)
	}()

	return &RunHandle{
		RunID:     runID,
		SessionID: sessionID,
		Events:    events,
		Errors:    errorsCh,
		Report:    reportCh,
	}, nil
}

// Cancel requests cooperative cancellation of the session's active run. The
// run keeps executing until the workflow executor observes the cancellation
// at its next routing boundary. Returns ErrRunNotFound when the session has
// no active run.
func (e *Engine) Cancel(sessionID string) error {
	e.runsMu.RLock()
	r, ok := e.runs[sessionID]
	e.runsMu.RUnlock()

	if !ok {
		return fmt.Errorf("%w %q", ErrRunNotFound, sessionID)
	}

	r.cancel()

	e.logger.Info("engine.run.cancel_requested", "session", sessionID, "run", r.runID)

	return nil
}

// Status returns the run status of a session, live while the run executes.
// Unknown session ids report session.ErrNotFound.
func (e *Engine) Status(ctx context.Context, sessionID string) (*RunStatus, error) {
	sess, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return statusFromSession(sess), nil
}

// Subscribe attaches an observer to the step events of the session's active
// run. The returned channel is closed when the run finishes; the cancel
// function detaches early. A subscriber that falls behind its buffer misses
// events rather than slowing the run down.
func (e *Engine) Subscribe(sessionID string) (<-chan core.StepEvent, func(), error) {
	e.runsMu.RLock()
	r, ok := e.runs[sessionID]
	e.runsMu.RUnlock()

	if !ok {
		return nil, nil, fmt.Errorf("%w %q", ErrRunNotFound, sessionID)
	}

	events, cancel, err := r.subscribe(e.config.EventBufferSize)
	if err != nil {
		return nil, nil, fmt.Errorf("%w %q", ErrRunNotFound, sessionID)
	}

	return events, cancel, nil
}

// Workflows lists the registered workflows in registration order.
func (e *Engine) Workflows() []WorkflowInfo {
	out := make([]WorkflowInfo, 0, len(e.workflowTypes))

	for _, t := range e.workflowTypes {
		def := e.workflows[t].Definition()

		out = append(out, WorkflowInfo{
			Type:        def.Type,
			Description: def.Description,
			EntryAgent:  def.EntryAgent,
			Sequence:    append([]string{}, def.Sequence...),
			Agents:      append([]string{}, def.Agents...),
		})
	}

	return out
}

// Capabilities lists every registered agent with its declared capabilities,
// sorted by agent name.
func (e *Engine) Capabilities() []AgentInfo {
	out := make([]AgentInfo, 0, len(e.agents))

	for _, a := range e.agents {
		out = append(out, AgentInfo{
			Name:         a.Name(),
			Description:  a.Description(),
			Capabilities: a.Capabilities(),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// ActiveRuns reports the number of registered runs, queued or executing.
func (e *Engine) ActiveRuns() int {
	e.runsMu.RLock()
	defer e.runsMu.RUnlock()

	return len(e.runs)
}

// Close cancels all active runs and waits for them to finish.
func (e *Engine) Close() error {
	e.runsMu.RLock()
	for _, r := range e.runs {
		r.cancel()
	}
	e.runsMu.RUnlock()

	e.wg.Wait()

	return nil
}

// run acquires a concurrency slot, drives the executor and settles the
// session record. The session stays pending while the run queues for a slot.
func (e *Engine) run(rc *core.RunContext, exec *workflow.Executor, r *activeRun, state core.State) (*core.Report, error) {
	if err := e.sem.Acquire(rc.Context, 1); err != nil {
		e.finalizeSession(r.sess, state, 0, err)

		return core.BuildReport(state, 0, err), err
	}
	defer e.sem.Release(1)

	r.sess.MarkRunning()
	e.saveSession(rc.Context, r.sess)

	finalState, runErr := exec.Run(rc, state)

	steps := rc.Steps.Count()
	e.finalizeSession(r.sess, finalState, steps, runErr)

	return core.BuildReport(finalState, steps, runErr), runErr
}

// finalizeSession records the terminal state. The save must succeed even
// when the run context is already cancelled, so it runs detached.
func (e *Engine) finalizeSession(sess *session.Session, state core.State, steps int, runErr error) {
	sess.State = state
	sess.Steps = steps

	switch {
	case runErr == nil:
		sess.MarkCompleted()
	case errors.Is(runErr, context.Canceled):
		sess.MarkCancelled()
	default:
		sess.MarkFailed(runErr)
	}

	e.saveSession(context.Background(), sess)
}

// checkpointRun persists the session snapshot after an applied step. It is
// installed as the executors' checkpoint hook and resolves the session
// through the active-run registry; the record itself is only ever touched
// from the run's own goroutine.
func (e *Engine) checkpointRun(state core.State, step int) {
	e.runsMu.RLock()
	r, ok := e.runs[state.SessionID]
	e.runsMu.RUnlock()

	if !ok {
		return
	}

	r.sess.State = state
	r.sess.Steps = step
	r.sess.MarkRunning()

	e.saveSession(r.ctx, r.sess)
}

// saveSession persists the session record. Failures are logged, not
// propagated: the store backs status queries, the run itself keeps its
// state in memory.
func (e *Engine) saveSession(ctx context.Context, sess *session.Session) {
	if err := e.sessions.Save(ctx, sess); err != nil {
		e.logger.Warn("engine.session.save_failed", "session", sess.ID, "error", err.Error())
	}
}

// appendUserRecord forwards the submission's user message to the history
// sink. The sink is an observer: failures are logged, the submission stands.
func (e *Engine) appendUserRecord(ctx context.Context, state core.State) {
	if e.history == nil {
		return
	}

	msg, ok := state.LastMessage()
	if !ok {
		return
	}

	rec := history.Record{
		SessionID: state.SessionID,
		Agent:     msg.Agent,
		Role:      msg.Role,
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
	}

	if err := e.history.Append(ctx, rec); err != nil {
		e.logger.Warn("engine.history.append_failed", "session", state.SessionID, "error", err.Error())
	}
}

func (e *Engine) removeRun(sessionID string) {
	e.runsMu.Lock()
	delete(e.runs, sessionID)
	e.runsMu.Unlock()
}

// statusFromSession projects a session record into its run status.
func statusFromSession(sess *session.Session) *RunStatus {
	return &RunStatus{
		SessionID:       sess.ID,
		RunID:           sess.RunID,
		WorkflowType:    sess.State.WorkflowType,
		State:           sess.Status,
		CurrentAgent:    sess.State.CurrentAgent,
		CompletedAgents: append([]string{}, sess.State.CompletedAgents...),
		Steps:           sess.Steps,
		ErrorCount:      sess.State.ErrorCount,
		TokensUsed:      sess.State.TokensUsed,
		Error:           sess.Error,
		UpdatedAt:       sess.UpdatedAt,
	}
}

// activeRun tracks one in-flight run: its cancellation handle, the session
// record owned by the run goroutine and the event subscribers.
type activeRun struct {
	runID  string
	ctx    context.Context
	cancel context.CancelFunc
	sess   *session.Session

	subsMu  sync.Mutex
	subs    map[int]chan core.StepEvent
	nextSub int
	closed  bool
}

// subscribe registers a new event subscriber. The returned cancel function
// detaches and closes the channel; once the run finished all remaining
// subscriber channels are closed centrally.
func (r *activeRun) subscribe(buf int) (chan core.StepEvent, func(), error) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()

	if r.closed {
		return nil, nil, errors.New("run already finished")
	}

	id := r.nextSub
	r.nextSub++

	ch := make(chan core.StepEvent, buf)
	r.subs[id] = ch

	cancel := func() {
		r.subsMu.Lock()
		defer r.subsMu.Unlock()

		if sub, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(sub)
		}
	}

	return ch, cancel, nil
}

// broadcast fans one event out to all subscribers. Sends never block: a
// subscriber whose buffer is full misses the event.
func (r *activeRun) broadcast(ev core.StepEvent) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()

	for _, ch := range r.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// closeSubs closes all subscriber channels once the event stream ended.
func (r *activeRun) closeSubs() {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()

	r.closed = true

	for id, ch := range r.subs {
		delete(r.subs, id)
		close(ch)
	}
}
