package tool

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/jobmesh/core"
	"github.com/hupe1980/jobmesh/document"
)

func newTestContext(t *testing.T, agent string, state *core.State) *core.ToolContext {
	t.Helper()

	if state == nil {
		s := core.NewState("sess-1", "user-1", "comprehensive", "Find me a backend job")
		state = &s
	}

	return core.NewToolContext(context.Background(), agent, "call-1", state, nil)
}

// -------------------- FunctionTool Tests --------------------

func TestFunctionTool_Call(t *testing.T) {
	sum := NewFunctionTool(
		"calculate_sum",
		"Calculate the sum of two numbers",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"a": map[string]any{"type": "number"},
				"b": map[string]any{"type": "number"},
			},
			"required": []string{"a", "b"},
		},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			return args["a"].(float64) + args["b"].(float64), nil
		},
	)

	assert.Equal(t, "calculate_sum", sum.Name())
	assert.Equal(t, "Calculate the sum of two numbers", sum.Description())

	result, err := sum.Call(newTestContext(t, "helper", nil), map[string]any{"a": 1.5, "b": 2.5})
	require.NoError(t, err)
	assert.Equal(t, 4.0, result)
}

func TestFunctionTool_ValidationError(t *testing.T) {
	sum := NewFunctionTool(
		"calculate_sum",
		"Calculate the sum of two numbers",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"a": map[string]any{"type": "number"},
			},
			"required": []string{"a"},
		},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			return args["a"], nil
		},
	)

	_, err := sum.Call(newTestContext(t, "helper", nil), map[string]any{})
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
	assert.Equal(t, "calculate_sum", toolErr.Tool)
}

func TestFunctionTool_ExecutionError(t *testing.T) {
	sentinel := errors.New("boom")

	failing := NewFunctionTool(
		"always_fails",
		"Always fails",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			return nil, sentinel
		},
	)

	_, err := failing.Call(newTestContext(t, "helper", nil), map[string]any{})
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "EXECUTION_ERROR", toolErr.Code)
	assert.Equal(t, "boom", toolErr.Message)
	assert.ErrorIs(t, err, sentinel)
}

func TestFunctionTool_PreservesCustomToolError(t *testing.T) {
	failing := NewFunctionTool(
		"custom_tool",
		"Fails with a custom code",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			return nil, NewToolError("custom_tool", "quota exhausted", "RATE_LIMITED")
		},
	)

	_, err := failing.Call(newTestContext(t, "helper", nil), map[string]any{})
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "RATE_LIMITED", toolErr.Code)
}

func TestNewFunctionToolFromStruct_DerivesSchema(t *testing.T) {
	type args struct {
		Query    string `json:"query" description:"Search query"`
		Location string `json:"location,omitempty"`
	}

	search := NewFunctionToolFromStruct("search", "Search something", args{},
		func(toolCtx *core.ToolContext, callArgs map[string]any) (any, error) {
			return callArgs["query"], nil
		},
	)

	schema := search.Parameters()
	assert.Equal(t, "object", schema["type"])

	properties := schema["properties"].(map[string]any)
	assert.Contains(t, properties, "query")
	assert.Contains(t, properties, "location")
	assert.Equal(t, []string{"query"}, schema["required"])

	_, err := search.Call(newTestContext(t, "helper", nil), map[string]any{"location": "Berlin"})
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
}

func TestToolError_Error(t *testing.T) {
	withCode := NewToolError("search_jobs", "upstream timeout", "EXECUTION_ERROR")
	assert.Equal(t, "tool error [EXECUTION_ERROR] in search_jobs: upstream timeout", withCode.Error())

	withoutCode := &ToolError{Tool: "search_jobs", Message: "upstream timeout"}
	assert.Equal(t, "tool error in search_jobs: upstream timeout", withoutCode.Error())
}

// -------------------- Transfer Tool Tests --------------------

func TestNewTransferTool(t *testing.T) {
	transfer := NewTransferTool("resume_critic", "")

	assert.Equal(t, "transfer_to_resume_critic", transfer.Name())
	assert.Contains(t, transfer.Description(), "resume_critic")

	toolCtx := newTestContext(t, "job_searcher", nil)

	result, err := transfer.Call(toolCtx, map[string]any{"reason": "resume needs review"})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"transferred": true, "agent": "resume_critic"}, result)

	handoff := toolCtx.Handoff()
	require.NotNil(t, handoff)
	assert.Equal(t, "resume_critic", handoff.Target)
	assert.Equal(t, "resume needs review", handoff.Reason)
}

func TestNewTransferTool_LastRequestWins(t *testing.T) {
	toolCtx := newTestContext(t, "job_searcher", nil)

	_, err := NewTransferTool("resume_critic", "").Call(toolCtx, map[string]any{})
	require.NoError(t, err)

	_, err = NewTransferTool("skill_heatmapper", "").Call(toolCtx, map[string]any{})
	require.NoError(t, err)

	handoff := toolCtx.Handoff()
	require.NotNil(t, handoff)
	assert.Equal(t, "skill_heatmapper", handoff.Target)
}

func TestTransferTarget(t *testing.T) {
	target, ok := TransferTarget("transfer_to_resume_critic")
	assert.True(t, ok)
	assert.Equal(t, "resume_critic", target)

	_, ok = TransferTarget("search_jobs")
	assert.False(t, ok)

	_, ok = TransferTarget("transfer_to_")
	assert.False(t, ok)
}

// -------------------- Career Tool Tests --------------------

const sampleResume = `
Jane Doe
jane.doe@example.com | +49 151 23456789 | Berlin

Summary
Backend engineer with eight years of experience building data platforms.

Work Experience
Senior Engineer at Acme (2019-2024): Built event pipelines in Python and Go,
moved batch workloads to AWS with Docker and Kubernetes, led a team of four.
Engineer at Initech (2016-2019): Developed Django services backed by
PostgreSQL and Redis, introduced Git based review workflows and agile rituals.

Skills
Python, Go, Django, PostgreSQL, Redis, AWS, Docker, Kubernetes, Git, Communication

Education
BSc Computer Science, TU Berlin

Projects
Open source contributor to a JavaScript charting library.
`

func TestResumeAnalysisTool(t *testing.T) {
	analyze := NewResumeAnalysisTool()
	assert.Equal(t, "analyze_resume", analyze.Name())

	toolCtx := newTestContext(t, "resume_critic", nil)

	raw, err := analyze.Call(toolCtx, map[string]any{"resume_text": sampleResume})
	require.NoError(t, err)

	result, ok := raw.(map[string]any)
	require.True(t, ok)

	assert.Equal(t, 100, result["quality_score"])
	assert.Empty(t, result["feedback"])

	sections := result["sections"].([]string)
	assert.Contains(t, sections, "experience")
	assert.Contains(t, sections, "education")
	assert.Contains(t, sections, "projects")

	skills := result["skills"].([]string)
	assert.Contains(t, skills, "python")
	assert.Contains(t, skills, "go")
	assert.Contains(t, skills, "kubernetes")
	assert.GreaterOrEqual(t, len(skills), 10)

	staged := toolCtx.ScratchDelta()
	assert.Contains(t, staged, "resume_critic_result")
	assert.Contains(t, staged, ScratchKeyResumeSkills)
}

func TestResumeAnalysisTool_PoorResume(t *testing.T) {
	raw, err := NewResumeAnalysisTool().Call(newTestContext(t, "resume_critic", nil), map[string]any{
		"resume_text": "I am looking for a job.",
	})
	require.NoError(t, err)

	result := raw.(map[string]any)
	assert.Less(t, result["quality_score"].(int), 30)

	feedback := result["feedback"].([]string)
	assert.Contains(t, feedback, "Missing basic contact information")
	assert.Contains(t, feedback, "Too few skills listed")
	assert.Contains(t, feedback, "Missing education information")
}

func TestResumeAnalysisTool_EmptyInput(t *testing.T) {
	state := core.NewState("sess-1", "user-1", "resume_analysis", "   ")
	toolCtx := newTestContext(t, "resume_critic", &state)

	_, err := NewResumeAnalysisTool().Call(toolCtx, map[string]any{})
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "EXECUTION_ERROR", toolErr.Code)
}

func TestResumeAnalysisTool_StoredDocument(t *testing.T) {
	store := document.NewInMemoryStore()
	doc := document.New("user-1", "resume.txt", sampleResume)
	require.NoError(t, store.Save(context.Background(), doc))

	analyze := NewResumeAnalysisTool(func(o *ResumeToolOptions) {
		o.Documents = store
	})

	toolCtx := newTestContext(t, "resume_critic", nil)

	raw, err := analyze.Call(toolCtx, map[string]any{"resume_id": doc.ID})
	require.NoError(t, err)

	result := raw.(map[string]any)
	assert.Equal(t, 100, result["quality_score"])
	assert.Equal(t, doc.ID, toolCtx.ScratchDelta()[ScratchKeyResumeID])
}

func TestResumeAnalysisTool_ScratchResumeID(t *testing.T) {
	store := document.NewInMemoryStore()
	doc := document.New("user-1", "resume.txt", sampleResume)
	require.NoError(t, store.Save(context.Background(), doc))

	state := core.NewState("sess-1", "user-1", "resume_analysis", "analyze my stored resume")
	state.Scratch[ScratchKeyResumeID] = doc.ID

	analyze := NewResumeAnalysisTool(func(o *ResumeToolOptions) {
		o.Documents = store
	})

	raw, err := analyze.Call(newTestContext(t, "resume_critic", &state), map[string]any{})
	require.NoError(t, err)

	result := raw.(map[string]any)
	assert.Equal(t, 100, result["quality_score"])
}

func TestResumeAnalysisTool_UnknownDocument(t *testing.T) {
	analyze := NewResumeAnalysisTool(func(o *ResumeToolOptions) {
		o.Documents = document.NewInMemoryStore()
	})

	_, err := analyze.Call(newTestContext(t, "resume_critic", nil), map[string]any{"resume_id": "missing"})
	require.Error(t, err)
	assert.ErrorIs(t, err, document.ErrNotFound)
}

func stagedJobs() []map[string]any {
	return []map[string]any{
		{
			"title":       "Senior Python Developer",
			"description": "Build services with Python, Django and PostgreSQL.",
			"salary_min":  70000.0,
			"salary_max":  90000.0,
		},
		{
			"title":       "Backend Engineer",
			"description": "Python services on AWS, deployed with Docker.",
		},
		{
			"title":        "Data Scientist",
			"description":  "Modeling in Python with TensorFlow.",
			"requirements": "Experience with R is a plus.",
		},
	}
}

func TestSkillHeatmapTool(t *testing.T) {
	heatmap := NewSkillHeatmapTool()
	assert.Equal(t, "generate_skill_heatmap", heatmap.Name())

	state := core.NewState("sess-1", "user-1", "skill_analysis", "What skills are in demand?")
	state.Scratch = map[string]any{ScratchKeyJobPostings: stagedJobs()}

	toolCtx := newTestContext(t, "skill_heatmapper", &state)

	raw, err := heatmap.Call(toolCtx, map[string]any{})
	require.NoError(t, err)

	result := raw.(map[string]any)
	assert.Equal(t, 3, result["total_jobs_analyzed"])

	trends := result["skill_trends"].([]SkillTrend)
	require.NotEmpty(t, trends)

	assert.Equal(t, "python", trends[0].Skill)
	assert.Equal(t, 3, trends[0].Frequency)
	assert.Equal(t, 100.0, trends[0].DemandScore)
	assert.Equal(t, "programming_languages", trends[0].Category)
	assert.Equal(t, 80000.0, trends[0].AvgSalary)

	for _, trend := range trends[1:] {
		assert.Equal(t, 1, trend.Frequency)
		assert.InDelta(t, 33.33, trend.DemandScore, 0.01)
	}

	staged := toolCtx.ScratchDelta()
	assert.Contains(t, staged, "skill_heatmapper_result")
	assert.Contains(t, staged, ScratchKeySkillTrends)
}

func TestSkillHeatmapTool_CategoryFilter(t *testing.T) {
	state := core.NewState("sess-1", "user-1", "skill_analysis", "")
	state.Scratch = map[string]any{ScratchKeyJobPostings: stagedJobs()}

	raw, err := NewSkillHeatmapTool().Call(newTestContext(t, "skill_heatmapper", &state), map[string]any{
		"categories": []any{"databases"},
	})
	require.NoError(t, err)

	trends := raw.(map[string]any)["skill_trends"].([]SkillTrend)
	require.Len(t, trends, 1)
	assert.Equal(t, "postgresql", trends[0].Skill)
}

func TestSkillHeatmapTool_GapAnalysis(t *testing.T) {
	state := core.NewState("sess-1", "user-1", "comprehensive", "")
	state.Scratch = map[string]any{
		ScratchKeyJobPostings:  stagedJobs(),
		ScratchKeyResumeSkills: []string{"python", "git"},
	}

	raw, err := NewSkillHeatmapTool().Call(newTestContext(t, "skill_heatmapper", &state), map[string]any{})
	require.NoError(t, err)

	gaps, ok := raw.(map[string]any)["skill_gaps"].(map[string]any)
	require.True(t, ok)

	assert.Equal(t, []string{"python"}, gaps["matching_skills"])
	assert.Contains(t, gaps["missing_skills"], "django")
	assert.Greater(t, gaps["coverage_rate"].(float64), 0.0)
}

func TestSkillHeatmapTool_NoPostings(t *testing.T) {
	_, err := NewSkillHeatmapTool().Call(newTestContext(t, "skill_heatmapper", nil), map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no job postings")
}

func TestResumeRewriteTool(t *testing.T) {
	rewrite := NewResumeRewriteTool()
	assert.Equal(t, "rewrite_resume", rewrite.Name())

	state := core.NewState("sess-1", "user-1", "comprehensive", "")
	state.Scratch = map[string]any{
		ScratchKeyResumeSkills: []string{"python", "git"},
		ScratchKeySkillTrends: []SkillTrend{
			{Skill: "python", Category: "programming_languages", Frequency: 3, DemandScore: 100},
			{Skill: "aws", Category: "cloud_platforms", Frequency: 2, DemandScore: 66.67},
			{Skill: "docker", Category: "cloud_platforms", Frequency: 1, DemandScore: 33.33},
		},
	}

	toolCtx := newTestContext(t, "resume_rewriter", &state)

	raw, err := rewrite.Call(toolCtx, map[string]any{
		"target_role": "Platform Engineer",
		"tone":        "concise",
	})
	require.NoError(t, err)

	result := raw.(map[string]any)
	assert.Equal(t, []string{"aws", "docker"}, result["keywords_to_add"])

	plan := result["section_plan"].(map[string]string)
	assert.Contains(t, plan["summary"], "Platform Engineer")
	assert.Contains(t, plan["skills"], "aws")
	assert.True(t, strings.HasPrefix(plan["experience"], "Trim"))

	assert.Contains(t, toolCtx.ScratchDelta(), "resume_rewriter_result")
}

func TestResumeRewriteTool_InvalidTone(t *testing.T) {
	_, err := NewResumeRewriteTool().Call(newTestContext(t, "resume_rewriter", nil), map[string]any{
		"tone": "sarcastic",
	})
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
}

func TestExtractSkills_WordBoundaries(t *testing.T) {
	found := extractSkills("We are growing our team. Experience with Go and R required, C++ a plus.")

	assert.Contains(t, found["programming_languages"], "go")
	assert.Contains(t, found["programming_languages"], "r")
	assert.Contains(t, found["programming_languages"], "c++")

	// "growing" and "required" must not match "go" or "r".
	none := extractSkills("We keep growing and hiring, requirements pending.")
	assert.Empty(t, none["programming_languages"])
}
