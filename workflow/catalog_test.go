package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/jobmesh/core"
)

func TestCatalog_Definitions(t *testing.T) {
	catalog := Catalog()
	require.Len(t, catalog, 5)

	types := make([]string, 0, len(catalog))
	for _, def := range catalog {
		require.NoError(t, def.Validate(), "definition %s", def.Type)
		require.NotNil(t, def.Complete, "definition %s", def.Type)
		types = append(types, def.Type)
	}

	assert.Equal(t, []string{
		TypeJobSearch,
		TypeResumeAnalysis,
		TypeSkillAnalysis,
		TypeResumeOptimization,
		TypeComprehensive,
	}, types)
}

func TestCatalog_ComprehensiveSequence(t *testing.T) {
	def := comprehensiveDef()

	assert.Equal(t, AgentJobSearcher, def.EntryAgent)
	assert.Equal(t, []string{
		AgentJobSearcher,
		AgentResumeCritic,
		AgentSkillHeatmapper,
		AgentResumeRewriter,
	}, def.Sequence)
}

func TestCatalog_ComprehensiveStrictCompletion(t *testing.T) {
	def := comprehensiveDef()

	state := core.NewState("sess-1", "user-1", TypeComprehensive, "find me a job")
	state.CompletedAgents = []string{AgentJobSearcher, AgentResumeCritic, AgentSkillHeatmapper}
	assert.False(t, def.Complete(&state))

	state.CompletedAgents = append(state.CompletedAgents, AgentResumeRewriter)
	assert.True(t, def.Complete(&state))
}

func TestCatalog_ComprehensiveBestEffortCompletion(t *testing.T) {
	var def Definition

	for _, d := range Catalog(func(o *CatalogOptions) { o.BestEffortComprehensive = true }) {
		if d.Type == TypeComprehensive {
			def = d
		}
	}

	state := core.NewState("sess-1", "user-1", TypeComprehensive, "find me a job")
	state.CompletedAgents = []string{AgentResumeRewriter}

	assert.True(t, def.Complete(&state))
}

func TestDefinition_Validate(t *testing.T) {
	tests := []struct {
		name    string
		def     Definition
		wantErr string
	}{
		{
			name:    "missing type",
			def:     Definition{Agents: []string{"a"}},
			wantErr: "no type",
		},
		{
			name:    "missing agents",
			def:     Definition{Type: "x"},
			wantErr: "no agents",
		},
		{
			name:    "entry agent outside set",
			def:     Definition{Type: "x", EntryAgent: "b", Agents: []string{"a"}},
			wantErr: "entry agent",
		},
		{
			name:    "sequence agent outside set",
			def:     Definition{Type: "x", Sequence: []string{"b"}, Agents: []string{"a"}},
			wantErr: "sequence agent",
		},
		{
			name: "valid",
			def:  Definition{Type: "x", EntryAgent: "a", Sequence: []string{"a"}, Agents: []string{"a"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
