package jobmesh

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/jobmesh/core"
	"github.com/hupe1980/jobmesh/document"
	"github.com/hupe1980/jobmesh/engine"
	"github.com/hupe1980/jobmesh/workflow"
)

func newTestMesh(t *testing.T, optFns ...func(o *Options)) *JobMesh {
	t.Helper()

	mesh, err := New(optFns...)
	require.NoError(t, err)

	t.Cleanup(func() { _ = mesh.Close() })

	return mesh
}

func TestNew_Defaults(t *testing.T) {
	mesh := newTestMesh(t)

	workflows := mesh.Workflows()
	require.Len(t, workflows, 5)

	types := make([]string, 0, len(workflows))
	for _, info := range workflows {
		types = append(types, info.Type)
	}

	assert.Contains(t, types, workflow.TypeJobSearch)
	assert.Contains(t, types, workflow.TypeResumeAnalysis)
	assert.Contains(t, types, workflow.TypeSkillAnalysis)
	assert.Contains(t, types, workflow.TypeResumeOptimization)
	assert.Contains(t, types, workflow.TypeComprehensive)

	agents := mesh.Capabilities()
	require.Len(t, agents, 4)

	for _, info := range agents {
		assert.NotEmpty(t, info.Description, "agent %s has no description", info.Name)
		assert.NotEmpty(t, info.Capabilities, "agent %s has no capabilities", info.Name)
	}

	assert.NotNil(t, mesh.Documents())
	assert.Zero(t, mesh.ActiveRuns())
}

func TestNew_CustomDocumentStore(t *testing.T) {
	store := document.NewInMemoryStore()

	mesh := newTestMesh(t, func(o *Options) {
		o.Documents = store
	})

	assert.Same(t, store, mesh.Documents())
}

func TestJobMesh_Execute_JobSearch(t *testing.T) {
	mesh := newTestMesh(t)

	report, err := mesh.Execute(context.Background(), engine.Request{
		WorkflowType: workflow.TypeJobSearch,
		UserInput:    "Find Golang jobs in Berlin",
		UserID:       "user-1",
	})
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.True(t, report.Success)
	assert.Equal(t, workflow.TypeJobSearch, report.WorkflowType)
	assert.Equal(t, []string{workflow.AgentJobSearcher}, report.ExecutedAgents)
	assert.Contains(t, report.Results, workflow.AgentJobSearcher+core.ResultKeySuffix)
	assert.NotEmpty(t, report.SessionID)
}

func TestJobMesh_Execute_Comprehensive(t *testing.T) {
	mesh := newTestMesh(t)

	report, err := mesh.Execute(context.Background(), engine.Request{
		WorkflowType: workflow.TypeComprehensive,
		UserInput:    "Optimize my resume for data engineering roles in Munich",
		UserID:       "user-1",
	})
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.True(t, report.Success)
	assert.Equal(t, []string{
		workflow.AgentJobSearcher,
		workflow.AgentResumeCritic,
		workflow.AgentSkillHeatmapper,
		workflow.AgentResumeRewriter,
	}, report.ExecutedAgents)
	assert.Equal(t, 4, report.Steps)

	for _, agent := range report.ExecutedAgents {
		assert.Contains(t, report.Results, agent+core.ResultKeySuffix)
	}
}

func TestJobMesh_Execute_UnknownWorkflow(t *testing.T) {
	mesh := newTestMesh(t)

	report, err := mesh.Execute(context.Background(), engine.Request{
		WorkflowType: "career_pivot",
		UserInput:    "help",
	})
	assert.Nil(t, report)

	var subErr *core.SubmissionError

	require.ErrorAs(t, err, &subErr)
	assert.Contains(t, subErr.Error(), "unknown workflow type")
}

func TestJobMesh_ExecuteAsync(t *testing.T) {
	mesh := newTestMesh(t)

	handle, err := mesh.ExecuteAsync(context.Background(), engine.Request{
		WorkflowType: workflow.TypeJobSearch,
		UserInput:    "Find DevOps jobs",
	})
	require.NoError(t, err)
	require.NotEmpty(t, handle.RunID)
	require.NotEmpty(t, handle.SessionID)

	var events []core.StepEvent
	for ev := range handle.Events {
		events = append(events, ev)
	}

	report := <-handle.Report
	require.NotNil(t, report)
	assert.True(t, report.Success)

	require.NotEmpty(t, events)
	assert.Equal(t, workflow.AgentJobSearcher, events[0].Agent)
	assert.Equal(t, handle.SessionID, events[0].SessionID)

	assert.NoError(t, <-handle.Errors)
}

func TestJobMesh_Hooks(t *testing.T) {
	var (
		mu       sync.Mutex
		steps    []core.StepEvent
		finished *core.Report
	)

	mesh := newTestMesh(t, func(o *Options) {
		o.OnStep = func(ev core.StepEvent) {
			mu.Lock()
			defer mu.Unlock()

			steps = append(steps, ev)
		}
		o.OnFinish = func(report *core.Report, runErr error) {
			mu.Lock()
			defer mu.Unlock()

			finished = report
		}
	})

	_, err := mesh.Execute(context.Background(), engine.Request{
		WorkflowType: workflow.TypeJobSearch,
		UserInput:    "Find QA jobs",
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()

	require.Len(t, steps, 1)
	assert.Equal(t, workflow.AgentJobSearcher, steps[0].Agent)
	assert.Equal(t, core.OutcomeContinue, steps[0].Outcome)

	require.NotNil(t, finished)
	assert.True(t, finished.Success)
}
