package model

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hupe1980/jobmesh/core"
)

// ToolCall represents a function call request surfaced by a model provider.
// Unified across vendors so downstream logic does not need per-provider branching.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"` // "function"
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction describes the concrete function target of a tool call.
type ToolCallFunction struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"` // JSON string of arguments
}

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// Request captures the normalized model input produced by agents. Messages is
// the run transcript (or a window of it); Instructions carries the agent's
// system prompt.
type Request struct {
	Instructions string           `json:"instructions"`
	Messages     []core.Message   `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	Stream       bool             `json:"stream,omitempty"`
}

// Usage captures token usage statistics for a response.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a model. Final responses
// (Partial == false) carry the complete text, any tool calls and, when the
// provider reports it, token usage.
type Response struct {
	ID           string     `json:"id"`
	Partial      bool       `json:"partial"`
	Text         string     `json:"text"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	FinishReason string     `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *Usage     `json:"usage,omitempty"`
}

// HasToolCalls reports whether the response requests any tool invocations.
func (r Response) HasToolCalls() bool { return len(r.ToolCalls) > 0 }

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "anthropic", "openai", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by agents to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in‑memory Model useful for tests & examples.
// Scripted responses (Enqueue) take precedence over canned prompt lookups,
// enabling deterministic multi-turn tool conversations.
type MockModel struct {
	info      Info
	responses map[string]string
	script    []Response
	mu        sync.Mutex
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.responses[prompt] = response
}

// Enqueue appends scripted responses consumed in FIFO order by Generate.
func (m *MockModel) Enqueue(responses ...Response) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.script = append(m.script, responses...)
}

// nextScripted pops the next scripted response, if any.
func (m *MockModel) nextScripted() (Response, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.script) == 0 {
		return Response{}, false
	}

	resp := m.script[0]
	m.script = m.script[1:]

	return resp, true
}

// cannedFor returns the canned completion for the prompt, or a fallback.
func (m *MockModel) cannedFor(prompt string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if resp, ok := m.responses[prompt]; ok {
		return resp
	}

	return fmt.Sprintf("Mock response to: %s", prompt)
}

// Generate implements Model; emits optional streaming char chunks then the
// final response. Scripted responses bypass streaming.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		if resp, ok := m.nextScripted(); ok {
			if resp.FinishReason == "" {
				resp.FinishReason = "stop"
			}
			if resp.Usage == nil {
				resp.Usage = &Usage{InputTokens: 10, OutputTokens: 10, TotalTokens: 20}
			}

			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
			case respCh <- resp:
			}

			return
		}

		if len(req.Messages) == 0 {
			errCh <- fmt.Errorf("no messages provided")
			return
		}

		inputText := req.Messages[len(req.Messages)-1].Content
		full := m.cannedFor(inputText)

		if req.Stream {
			for _, r := range full {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{Partial: true, Text: string(r)}:
				}
			}
		}

		respCh <- Response{
			Partial:      false,
			Text:         full,
			FinishReason: "stop",
			Usage: &Usage{
				InputTokens:  len(inputText) / 4,
				OutputTokens: len(full) / 4,
				TotalTokens:  len(inputText)/4 + len(full)/4,
			},
		}
	}()

	return respCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
