package model

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hupe1980/jobmesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, out <-chan Response, errCh <-chan error) (Response, []Response) {
	t.Helper()

	var (
		final    Response
		partials []Response
	)

	for out != nil || errCh != nil {
		select {
		case resp, ok := <-out:
			if !ok {
				out = nil
				continue
			}
			if resp.Partial {
				partials = append(partials, resp)
				continue
			}
			final = resp
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			require.NoError(t, err)
		}
	}

	return final, partials
}

func TestMockModel_CannedResponse(t *testing.T) {
	m := NewMockModel("test-model", "mock")
	m.AddResponse("find jobs", "I found 3 jobs for you")

	out, errCh := m.Generate(context.Background(), Request{
		Messages: []core.Message{core.NewUserMessage("find jobs")},
	})

	final, partials := drain(t, out, errCh)

	assert.Equal(t, "I found 3 jobs for you", final.Text)
	assert.Equal(t, "stop", final.FinishReason)
	assert.Empty(t, partials)
	require.NotNil(t, final.Usage)
	assert.Positive(t, final.Usage.TotalTokens)
}

func TestMockModel_Fallback(t *testing.T) {
	m := NewMockModel("test-model", "mock")

	out, errCh := m.Generate(context.Background(), Request{
		Messages: []core.Message{core.NewUserMessage("unregistered prompt")},
	})

	final, _ := drain(t, out, errCh)
	assert.Equal(t, "Mock response to: unregistered prompt", final.Text)
}

func TestMockModel_Streaming(t *testing.T) {
	m := NewMockModel("test-model", "mock")
	m.AddResponse("hi", "hello")

	out, errCh := m.Generate(context.Background(), Request{
		Messages: []core.Message{core.NewUserMessage("hi")},
		Stream:   true,
	})

	final, partials := drain(t, out, errCh)

	assert.Len(t, partials, len("hello"))
	assert.Equal(t, "hello", final.Text)
}

func TestMockModel_ScriptedToolCalls(t *testing.T) {
	m := NewMockModel("test-model", "mock")
	m.Enqueue(
		Response{ToolCalls: []ToolCall{{
			ID:   "call-1",
			Type: "function",
			Function: ToolCallFunction{
				Name:      "search_jobs",
				Arguments: json.RawMessage(`{"query":"golang"}`),
			},
		}}},
		Response{Text: "done"},
	)

	out, errCh := m.Generate(context.Background(), Request{
		Messages: []core.Message{core.NewUserMessage("anything")},
	})
	first, _ := drain(t, out, errCh)

	require.True(t, first.HasToolCalls())
	assert.Equal(t, "search_jobs", first.ToolCalls[0].Function.Name)
	assert.Equal(t, "stop", first.FinishReason)
	require.NotNil(t, first.Usage)

	out, errCh = m.Generate(context.Background(), Request{
		Messages: []core.Message{core.NewUserMessage("anything")},
	})
	second, _ := drain(t, out, errCh)

	assert.Equal(t, "done", second.Text)
	assert.False(t, second.HasToolCalls())
}

func TestMockModel_NoMessages(t *testing.T) {
	m := NewMockModel("test-model", "mock")

	out, errCh := m.Generate(context.Background(), Request{})

	var sawErr bool
	for out != nil || errCh != nil {
		select {
		case _, ok := <-out:
			if !ok {
				out = nil
			}
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			sawErr = err != nil
		}
	}

	assert.True(t, sawErr, "expected an error for empty request")
}

func TestMockModel_Info(t *testing.T) {
	m := NewMockModel("test-model", "mock")

	info := m.Info()
	assert.Equal(t, "test-model", info.Name)
	assert.Equal(t, "mock", info.Provider)
	assert.True(t, info.SupportsTools)
}
