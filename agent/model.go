package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/jobmesh/core"
	"github.com/hupe1980/jobmesh/internal/util"
	"github.com/hupe1980/jobmesh/logging"
	"github.com/hupe1980/jobmesh/model"
	"github.com/hupe1980/jobmesh/tool"
)

// ModelAgentOptions configures a ModelAgent instance.
//
// Use functional options with NewModelAgent to override defaults.
type ModelAgentOptions struct {
	Description        string
	Capabilities       []string
	Instruction        Instruction
	MaxHistoryMessages int
	MaxToolRounds      int
	MaxParallelTools   int
	OutputKey          string
	Tools              []tool.Tool
	Logger             logging.Logger
}

// ModelAgent integrates with language models to provide intelligent text
// processing capabilities.
//
// This agent implementation supports:
//   - Natural language conversation through system prompts
//   - Function calling with registered tools
//   - Handoffs to other agents through transfer tools
//   - Template-based prompt customization against the run state
//   - Staged scratch output with output keys
//
// Process drives a request / tool execution loop: the model is called
// with the recent conversation, requested tool calls are executed (in
// parallel within a round) and their results fed back, until the model
// produces a final text answer or a tool requests a handoff. Everything
// the step produced is returned as a single Delta; the state itself is
// never mutated.
//
// ModelAgent embeds BaseAgent to inherit the standard identity surface.
type ModelAgent struct {
	BaseAgent
	llm                model.Model
	instruction        Instruction
	tools              map[string]tool.Tool
	toolOrder          []string
	maxHistoryMessages int
	maxToolRounds      int
	maxParallelTools   int
	outputKey          string
	logger             logging.Logger
}

// NewModelAgent creates a new model-based agent with sensible defaults.
//
// The agent is initialized with:
//   - Standard identity surface inherited from BaseAgent
//   - Empty tool registry for function calling
//   - 20-message conversation history window
//   - 8 model/tool rounds per step before the step fails
//   - Up to 4 tool calls executed in parallel per round
//
// Parameters:
//   - name: Human-readable name used in routing and results
//   - llm: Language model implementation for text generation
//
// Returns a fully configured ModelAgent ready for workflow execution.
func NewModelAgent(name string, llm model.Model, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	opts := ModelAgentOptions{
		Instruction:        NewInstructionFromText(fmt.Sprintf("You are %s, a helpful AI assistant.", name)),
		MaxHistoryMessages: 20,
		MaxToolRounds:      8,
		MaxParallelTools:   4,
		Logger:             logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	a := &ModelAgent{
		BaseAgent:          NewBaseAgent(name),
		llm:                llm,
		instruction:        opts.Instruction,
		tools:              make(map[string]tool.Tool),
		maxHistoryMessages: opts.MaxHistoryMessages,
		maxToolRounds:      opts.MaxToolRounds,
		maxParallelTools:   opts.MaxParallelTools,
		outputKey:          opts.OutputKey,
		logger:             opts.Logger,
	}

	if opts.Description != "" {
		a.SetDescription(opts.Description)
	}

	a.SetCapabilities(opts.Capabilities...)
	a.RegisterTools(opts.Tools...)

	return a
}

// RegisterTool adds a function tool to the agent's capability set.
//
// Registered tools become available for the language model to call during
// conversations. Tools should implement the tool.Tool interface with
// proper JSON schema definitions. Registration order is preserved in the
// tool definitions sent to the model.
func (a *ModelAgent) RegisterTool(t tool.Tool) {
	if _, exists := a.tools[t.Name()]; !exists {
		a.toolOrder = append(a.toolOrder, t.Name())
	}

	a.tools[t.Name()] = t
}

// RegisterTools adds multiple tools to the agent's capability set.
func (a *ModelAgent) RegisterTools(tools ...tool.Tool) {
	for _, t := range tools {
		a.RegisterTool(t)
	}
}

// UnregisterTool removes a tool from the agent's capability set.
//
// Returns true if the tool was found and removed, false if it wasn't registered.
func (a *ModelAgent) UnregisterTool(name string) bool {
	if _, exists := a.tools[name]; !exists {
		return false
	}

	delete(a.tools, name)

	for i, n := range a.toolOrder {
		if n == name {
			a.toolOrder = append(a.toolOrder[:i], a.toolOrder[i+1:]...)
			break
		}
	}

	return true
}

// HasTool checks if a tool is registered with the agent.
func (a *ModelAgent) HasTool(name string) bool {
	_, exists := a.tools[name]
	return exists
}

// ListTools returns the names of all registered tools in registration order.
func (a *ModelAgent) ListTools() []string {
	names := make([]string, len(a.toolOrder))
	copy(names, a.toolOrder)

	return names
}

// GetTool retrieves a specific tool by name.
//
// Returns the tool and true if found, nil and false if not registered.
func (a *ModelAgent) GetTool(name string) (tool.Tool, bool) {
	t, exists := a.tools[name]
	return t, exists
}

// Process implements the core.Agent interface.
func (a *ModelAgent) Process(ctx context.Context, state *core.State) (core.Delta, error) {
	a.logger.Debug(
		"agent.process.start",
		"agent", a.Name(),
		"session", state.SessionID,
	)

	instructions, err := a.resolveInstructions(state)
	if err != nil {
		return core.Delta{}, err
	}

	var (
		delta       core.Delta
		handoff     *core.Handoff
		totalTokens int
	)

	transcript := historyWindow(state.Messages, a.maxHistoryMessages)
	stepScratch := make(map[string]any)

	for round := 0; ; round++ {
		if round == a.maxToolRounds {
			return core.Delta{}, fmt.Errorf("agent %s exceeded %d tool rounds", a.Name(), a.maxToolRounds)
		}

		resp, err := a.generate(ctx, model.Request{
			Instructions: instructions,
			Messages:     transcript,
			Tools:        a.toolDefinitions(),
		})
		if err != nil {
			return core.Delta{}, err
		}

		if resp.Usage != nil {
			totalTokens += resp.Usage.TotalTokens
		}

		if !resp.HasToolCalls() {
			delta.Messages = append(delta.Messages, core.NewAgentMessage(a.Name(), resp.Text))

			if a.outputKey != "" {
				stepScratch[a.outputKey] = resp.Text
			}

			break
		}

		callMsg := core.NewToolCallMessage(a.Name(), resp.Text, toCoreToolCalls(resp.ToolCalls)...)
		delta.Messages = append(delta.Messages, callMsg)
		transcript = append(transcript, callMsg)

		for _, exec := range a.executeToolCalls(ctx, state, stepScratch, callMsg.ToolCalls) {
			delta.Messages = append(delta.Messages, exec.message)
			transcript = append(transcript, exec.message)

			for k, v := range exec.scratch {
				stepScratch[k] = v
			}

			if exec.handoff != nil {
				handoff = exec.handoff
			}
		}

		// A requested handoff ends the step; the target agent picks up
		// the conversation including the tool results of this round.
		if handoff != nil {
			break
		}
	}

	if len(stepScratch) > 0 {
		delta.Scratch = stepScratch
	}

	delta.TokensUsed = totalTokens
	delta.CompletedAgent = a.Name()
	delta.Handoff = handoff

	if handoff != nil {
		delta.NextAgent = handoff.Target
	}

	a.logger.Debug(
		"agent.process.complete",
		"agent", a.Name(),
		"session", state.SessionID,
		"tokens", totalTokens,
		"handoff", handoff != nil,
	)

	return delta, nil
}

// resolveInstructions produces the final system prompt by resolving the
// static or dynamic instruction source and rendering it against the run
// state.
func (a *ModelAgent) resolveInstructions(state *core.State) (string, error) {
	instructions, err := a.instruction.Resolve(state)
	if err != nil {
		return "", fmt.Errorf("failed to resolve instruction: %w", err)
	}

	rendered, err := util.RenderTemplate(instructions, templateData(state))
	if err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}

	return rendered, nil
}

// templateData exposes the scratch space plus a few reserved run fields
// to instruction templates.
func templateData(state *core.State) map[string]any {
	data := make(map[string]any, len(state.Scratch)+5)

	for k, v := range state.Scratch {
		data[k] = v
	}

	data["user_input"] = state.UserInput
	data["workflow_type"] = state.WorkflowType
	data["session_id"] = state.SessionID
	data["user_id"] = state.UserID
	data["current_agent"] = state.CurrentAgent

	return data
}

// generate performs one model call and returns the final response.
func (a *ModelAgent) generate(ctx context.Context, req model.Request) (model.Response, error) {
	start := time.Now()

	respCh, errCh := a.llm.Generate(ctx, req)

	var (
		final    model.Response
		sawFinal bool
	)

	for respCh != nil || errCh != nil {
		select {
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}

			if !resp.Partial {
				final = resp
				sawFinal = true
			}
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}

			if err != nil {
				return model.Response{}, fmt.Errorf("model generate: %w", err)
			}
		case <-ctx.Done():
			return model.Response{}, ctx.Err()
		}
	}

	if !sawFinal {
		return model.Response{}, fmt.Errorf("model %s returned no response", a.llm.Info().Name)
	}

	a.logger.Debug(
		"agent.model.response",
		"agent", a.Name(),
		"model", a.llm.Info().Name,
		"duration_ms", time.Since(start).Milliseconds(),
		"tool_calls", len(final.ToolCalls),
	)

	return final, nil
}

// toolDefinitions builds the tool declarations for a model request in
// registration order.
func (a *ModelAgent) toolDefinitions() []model.ToolDefinition {
	if len(a.toolOrder) == 0 {
		return nil
	}

	defs := make([]model.ToolDefinition, 0, len(a.toolOrder))

	for _, name := range a.toolOrder {
		t := a.tools[name]
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}

	return defs
}

// toolExecution is the outcome of a single tool call.
type toolExecution struct {
	message core.Message
	scratch map[string]any
	handoff *core.Handoff
}

// executeToolCalls runs a batch of tool calls, possibly in parallel, and
// returns their outcomes in the original call order. Scratch values
// staged by earlier rounds are seeded into each call's ToolContext so
// tools observe a consistent snapshot; calls within one round do not see
// each other's writes.
func (a *ModelAgent) executeToolCalls(ctx context.Context, state *core.State, seed map[string]any, calls []core.ToolCall) []toolExecution {
	n := len(calls)
	if n == 0 {
		return nil
	}

	// Fast path: single call, execute inline.
	if n == 1 {
		return []toolExecution{a.executeToolCall(ctx, state, seed, calls[0])}
	}

	maxPar := a.maxParallelTools
	if maxPar <= 0 || maxPar > n {
		maxPar = n
	}

	executions := make([]toolExecution, n)
	sem := make(chan struct{}, maxPar)

	var wg sync.WaitGroup

	batchStart := time.Now()

	for i := range calls {
		wg.Add(1)
		sem <- struct{}{}

		go func(idx int, call core.ToolCall) {
			defer wg.Done()
			defer func() { <-sem }()

			executions[idx] = a.executeToolCall(ctx, state, seed, call)
		}(i, calls[i])
	}

	wg.Wait()

	a.logger.Debug(
		"agent.tools.batch.complete",
		"agent", a.Name(),
		"count", n,
		"parallelism", maxPar,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)

	return executions
}

func (a *ModelAgent) executeToolCall(ctx context.Context, state *core.State, seed map[string]any, call core.ToolCall) toolExecution {
	toolCtx := core.NewToolContext(ctx, a.Name(), call.ID, state, a.logger)

	for k, v := range seed {
		toolCtx.SetScratch(k, v)
	}

	start := time.Now()

	var (
		result any
		err    error
	)

	func() { // panic safety
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("tool %s panicked", call.Name)
				a.logger.Error("agent.tool.panic", "agent", a.Name(), "tool", call.Name, "recover", r)
			}
		}()

		result, err = a.executeTool(toolCtx, call.Name, call.Arguments)
	}()

	a.logger.Info(
		"agent.tool.executed",
		"agent", a.Name(),
		"tool", call.Name,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err != nil,
	)

	exec := toolExecution{
		message: core.NewToolMessage(a.Name(), call, toolResultContent(result, err)),
	}

	// A failed call contributes only its error message; staged values and
	// handoff requests of the failed call are discarded.
	if err == nil {
		exec.scratch = toolCtx.ScratchDelta()
		exec.handoff = toolCtx.Handoff()
	}

	return exec
}

// executeTool deserializes JSON arguments and invokes the named tool
// returning its result or an error if the tool is unknown or validation
// fails.
func (a *ModelAgent) executeTool(toolCtx *core.ToolContext, toolName, args string) (any, error) {
	impl, ok := a.tools[toolName]
	if !ok {
		return nil, fmt.Errorf("tool %s not found", toolName)
	}

	argMap := make(map[string]any)
	if args != "" {
		if err := json.Unmarshal([]byte(args), &argMap); err != nil {
			return nil, fmt.Errorf("failed to unmarshal args: %w", err)
		}
	}

	return impl.Call(toolCtx, argMap)
}

// toolResultContent serializes a tool outcome into the message content
// fed back to the model. Errors are surfaced as structured content so the
// model can react to them.
func toolResultContent(result any, err error) string {
	if err != nil {
		content, _ := json.Marshal(map[string]string{"error": err.Error()})
		return string(content)
	}

	content, merr := json.Marshal(result)
	if merr != nil {
		return fmt.Sprintf("%v", result)
	}

	return string(content)
}

func toCoreToolCalls(calls []model.ToolCall) []core.ToolCall {
	out := make([]core.ToolCall, 0, len(calls))

	for _, call := range calls {
		out = append(out, core.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: string(call.Function.Arguments),
		})
	}

	return out
}

// historyWindow returns a copy of the most recent messages. The copy
// keeps later appends from sharing a backing array with the state's
// message slice. A window never starts with tool results whose call
// message was cut off.
func historyWindow(messages []core.Message, max int) []core.Message {
	if max > 0 && len(messages) > max {
		messages = messages[len(messages)-max:]
	}

	for len(messages) > 0 && messages[0].Role == core.RoleTool {
		messages = messages[1:]
	}

	out := make([]core.Message, len(messages))
	copy(out, messages)

	return out
}
