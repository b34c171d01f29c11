package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/jobmesh/core"
	"github.com/hupe1980/jobmesh/history"
	"github.com/hupe1980/jobmesh/logging"
)

// DefaultErrorBudget is the number of absorbed agent failures a run may
// accumulate before it terminates with ErrBudgetExceeded.
const DefaultErrorBudget = 5

// Options configures an Executor instance.
type Options struct {
	// ErrorBudget is the maximum tolerated ErrorCount; the run terminates
	// once the count exceeds it. Defaults to DefaultErrorBudget.
	ErrorBudget int

	// StepTimeout bounds a single agent step. A deadline hit is absorbed as
	// an agent failure, not a run crash. Zero disables the per-step timeout.
	StepTimeout time.Duration

	// History receives one record per message produced at each step. Append
	// failures are logged and never fail the run. Nil disables persistence.
	History history.Sink

	// OnStep is invoked synchronously after every executed step, in addition
	// to the RunContext's event channel. Used for metrics.
	OnStep func(ev core.StepEvent)

	// Checkpoint receives the state after each applied step together with
	// the step number. Used by callers persisting run progress. Nil disables
	// checkpointing.
	Checkpoint func(state core.State, step int)

	// Logger defaults to a NoOpLogger.
	Logger logging.Logger
}

// Executor drives a single workflow run from its initial state to a
// terminal one.
//
// The run advances through routing boundaries: at each boundary the
// executor checks cancellation and budgets, evaluates the completion
// predicate and asks the router for the next hop. The chosen agent then
// executes against a snapshot of the state and its returned delta is folded
// in through core.Apply. Step outcomes form a closed set (Continue,
// HandoffTo, Fail) dispatched by an explicit type switch.
//
// Termination, checked in this order at every boundary:
//  1. Context cancelled.
//  2. ErrorCount above the error budget => ErrBudgetExceeded.
//  3. Completion predicate true => success.
//  4. Router reports the sequence exhausted => success.
//  5. Step budget of the RunContext exhausted => ErrStepBudgetExceeded.
//
// An Executor holds no per-run mutable state of its own and may drive many
// runs concurrently.
type Executor struct {
	def         Definition
	agents      map[string]core.Agent
	errorBudget int
	stepTimeout time.Duration
	sink        history.Sink
	onStep      func(ev core.StepEvent)
	checkpoint  func(state core.State, step int)
	logger      logging.Logger
}

// New creates an Executor for one workflow definition.
//
// Every agent named by the definition must be present in agents; a missing
// agent is a construction error, not a runtime surprise.
func New(def Definition, agents []core.Agent, optFns ...func(o *Options)) (*Executor, error) {
	opts := Options{
		ErrorBudget: DefaultErrorBudget,
		Logger:      logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}

	index := make(map[string]core.Agent, len(agents))
	for _, a := range agents {
		index[a.Name()] = a
	}

	for _, name := range def.Agents {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("workflow %s: no agent registered for %q", def.Type, name)
		}
	}

	return &Executor{
		def:         def,
		agents:      index,
		errorBudget: opts.ErrorBudget,
		stepTimeout: opts.StepTimeout,
		sink:        opts.History,
		onStep:      opts.OnStep,
		checkpoint:  opts.Checkpoint,
		logger:      opts.Logger,
	}, nil
}

// Definition returns the workflow definition this executor drives.
func (e *Executor) Definition() Definition { return e.def }

// Run executes the workflow until a terminal condition and returns the
// final state. A nil error marks a completed run; budget and handoff
// errors arrive wrapped for errors.Is / errors.As.
func (e *Executor) Run(rc *core.RunContext, state core.State) (core.State, error) {
	e.logger.Info(
		"workflow.run.start",
		"workflow", e.def.Type,
		"session", rc.SessionID,
		"run", rc.RunID,
	)

	var pendingHandoff *core.Handoff

	for {
		if err := rc.Err(); err != nil {
			return e.finish(rc, state, err)
		}

		if state.ErrorCount > e.errorBudget {
			err := fmt.Errorf("%w: %d failures with budget %d", core.ErrBudgetExceeded, state.ErrorCount, e.errorBudget)
			return e.finish(rc, state, err)
		}

		if e.def.Complete != nil && e.def.Complete(&state) {
			return e.finish(rc, state, nil)
		}

		decision, err := Route(e.def, &state, pendingHandoff)
		if err != nil {
			return e.finish(rc, state, err)
		}

		if decision.End {
			return e.finish(rc, state, nil)
		}

		if err := rc.Steps.Increment(); err != nil {
			return e.finish(rc, state, err)
		}

		state.CurrentAgent = decision.Next
		pendingHandoff = nil

		outcome := e.step(rc, &state, decision.Next)

		var delta core.Delta

		switch o := outcome.(type) {
		case core.Continue:
			delta = o.Delta
		case core.HandoffTo:
			delta = o.Delta
			pendingHandoff = o.Delta.Handoff
		case core.Fail:
			delta = o.Delta

			e.logger.Warn(
				"workflow.step.failed",
				"workflow", e.def.Type,
				"session", rc.SessionID,
				"agent", decision.Next,
				"error", o.Err.Error(),
			)
		}

		state = core.Apply(state, delta)

		ev := stepEvent(rc, e.def.Type, decision.Next, outcome, &state)
		rc.EmitStep(ev)

		if e.onStep != nil {
			e.onStep(ev)
		}

		if e.checkpoint != nil {
			e.checkpoint(state, rc.Steps.Count())
		}

		e.appendHistory(rc, delta.Messages)
	}
}

// step executes one agent against a snapshot of the state and classifies
// the result. Failures are absorbed: the returned Fail outcome carries a
// synthesized delta with the error count increment and a transcript note.
func (e *Executor) step(rc *core.RunContext, state *core.State, agentName string) core.StepOutcome {
	a := e.agents[agentName]

	stepCtx := rc.Context

	if e.stepTimeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(stepCtx, e.stepTimeout)
		defer cancel()
	}

	snapshot := state.Clone()

	start := time.Now()

	delta, err := a.Process(stepCtx, &snapshot)

	e.logger.Debug(
		"workflow.step.executed",
		"workflow", e.def.Type,
		"session", rc.SessionID,
		"agent", agentName,
		"step", rc.Steps.Count(),
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err != nil,
	)

	if err != nil {
		failure := core.NewAgentError(agentName, err)

		return core.Fail{
			Delta: core.Delta{
				Messages:        []core.Message{core.NewAgentMessage(agentName, fmt.Sprintf("Agent failed: %v", err))},
				ErrorCountDelta: 1,
			},
			Err: failure,
		}
	}

	if delta.Handoff != nil {
		return core.HandoffTo{Delta: delta, Target: delta.Handoff.Target}
	}

	return core.Continue{Delta: delta}
}

// appendHistory forwards the step's messages to the history sink. The sink
// is an observer: failures are logged, the run continues.
func (e *Executor) appendHistory(rc *core.RunContext, messages []core.Message) {
	if e.sink == nil {
		return
	}

	for _, msg := range messages {
		rec := history.Record{
			SessionID: rc.SessionID,
			Agent:     msg.Agent,
			Role:      msg.Role,
			Content:   msg.Content,
			Timestamp: msg.Timestamp,
		}

		if err := e.sink.Append(rc.Context, rec); err != nil {
			e.logger.Warn(
				"workflow.history.append_failed",
				"session", rc.SessionID,
				"error", err.Error(),
			)
		}
	}
}

// finish logs the terminal condition and hands the final state back.
func (e *Executor) finish(rc *core.RunContext, state core.State, runErr error) (core.State, error) {
	if runErr != nil {
		e.logger.Warn(
			"workflow.run.failed",
			"workflow", e.def.Type,
			"session", rc.SessionID,
			"run", rc.RunID,
			"steps", rc.Steps.Count(),
			"errors", state.ErrorCount,
			"error", runErr.Error(),
		)

		return state, runErr
	}

	e.logger.Info(
		"workflow.run.complete",
		"workflow", e.def.Type,
		"session", rc.SessionID,
		"run", rc.RunID,
		"steps", rc.Steps.Count(),
		"errors", state.ErrorCount,
		"tokens", state.TokensUsed,
	)

	return state, nil
}

// stepEvent projects one executed step into its observer event.
func stepEvent(rc *core.RunContext, workflowType, agent string, outcome core.StepOutcome, state *core.State) core.StepEvent {
	ev := core.StepEvent{
		SessionID:    rc.SessionID,
		RunID:        rc.RunID,
		WorkflowType: workflowType,
		Step:         rc.Steps.Count(),
		Agent:        agent,
		Outcome:      core.OutcomeLabel(outcome),
		ErrorCount:   state.ErrorCount,
		TokensUsed:   state.TokensUsed,
		Timestamp:    time.Now().UTC(),
	}

	switch o := outcome.(type) {
	case core.HandoffTo:
		ev.Target = o.Target
	case core.Fail:
		ev.Err = o.Err.Error()
	}

	return ev
}
