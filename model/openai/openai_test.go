package openai

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/hupe1980/jobmesh/core"
	"github.com/hupe1980/jobmesh/model"
	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessages_RoleMapping(t *testing.T) {
	req := model.Request{
		Instructions: "You are a job search assistant.",
		Messages: []core.Message{
			core.NewUserMessage("find golang jobs"),
			core.NewToolCallMessage("job_searcher", "",
				core.ToolCall{ID: "call-1", Name: "search_jobs", Arguments: `{"query":"golang"}`},
			),
			core.NewToolMessage("job_searcher", core.ToolCall{ID: "call-1", Name: "search_jobs"}, `{"jobs":[]}`),
			core.NewAgentMessage("job_searcher", "no jobs found"),
		},
	}

	messages := buildMessages(req)

	require.Len(t, messages, 5)
	assert.NotNil(t, messages[0].OfSystem, "instructions become the leading system message")
	assert.NotNil(t, messages[1].OfUser)
	require.NotNil(t, messages[2].OfAssistant)
	require.Len(t, messages[2].OfAssistant.ToolCalls, 1)
	assert.Equal(t, "call-1", messages[2].OfAssistant.ToolCalls[0].ID)
	require.NotNil(t, messages[3].OfTool)
	assert.Equal(t, "call-1", messages[3].OfTool.ToolCallID)
	assert.NotNil(t, messages[4].OfAssistant)
}

func TestBuildMessages_SkipsToolResultWithoutCallID(t *testing.T) {
	req := model.Request{
		Messages: []core.Message{
			core.NewUserMessage("hi"),
			{Role: core.RoleTool, Content: "orphan result"},
		},
	}

	messages := buildMessages(req)

	require.Len(t, messages, 1)
	assert.NotNil(t, messages[0].OfUser)
}

func TestBuildToolCalls(t *testing.T) {
	calls := buildToolCalls([]core.ToolCall{
		{ID: "call-1", Name: "search_jobs", Arguments: `{"query":"golang"}`},
		{ID: "call-2", Name: "analyze_resume", Arguments: `{}`},
	})

	require.Len(t, calls, 2)
	assert.Equal(t, "search_jobs", calls[0].Function.Name)
	assert.Equal(t, `{"query":"golang"}`, calls[0].Function.Arguments)
	assert.Equal(t, "call-2", calls[1].ID)
}

func TestBuildParams_IncludesTools(t *testing.T) {
	m := NewModelFromClient(nil, func(o *Options) {
		o.Model = "gpt-4o-mini"
		o.Temperature = 0.2
	})

	req := model.Request{
		Messages: []core.Message{core.NewUserMessage("hi")},
		Tools: []model.ToolDefinition{{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        "search_jobs",
				Description: "Search job postings",
				Parameters: map[string]any{
					"type":       "object",
					"properties": map[string]any{"query": map[string]any{"type": "string"}},
				},
			},
		}},
	}

	params := m.buildParams(req, buildMessages(req))

	assert.Equal(t, "gpt-4o-mini", params.Model)
	require.Len(t, params.Tools, 1)
	assert.Equal(t, "search_jobs", params.Tools[0].Function.Name)
}

func TestEmitFinalChunk_OrdersAggregatedCalls(t *testing.T) {
	out := make(chan model.Response, 1)

	toolAgg := map[int64]*aggCall{
		1: {id: "call-b", name: "analyze_resume", args: `{}`},
		0: {id: "call-a", name: "search_jobs", args: `{"query":"go"}`},
	}

	var builder strings.Builder
	emitFinalChunk(openai.ChatCompletionChunkChoice{}, &builder, toolAgg, nil, out)

	resp := <-out
	require.Len(t, resp.ToolCalls, 2)
	assert.Equal(t, "call-a", resp.ToolCalls[0].ID)
	assert.Equal(t, "call-b", resp.ToolCalls[1].ID)
	assert.Equal(t, json.RawMessage(`{"query":"go"}`), resp.ToolCalls[0].Function.Arguments)
	assert.False(t, resp.Partial)
}
