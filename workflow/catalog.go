package workflow

import (
	"fmt"

	"github.com/hupe1980/jobmesh/core"
)

// Built-in workflow types.
const (
	TypeJobSearch          = "job_search"
	TypeResumeAnalysis     = "resume_analysis"
	TypeSkillAnalysis      = "skill_analysis"
	TypeResumeOptimization = "resume_optimization"
	TypeComprehensive      = "comprehensive"
)

// Agent names used by the built-in catalog.
const (
	AgentJobSearcher     = "job_searcher"
	AgentResumeCritic    = "resume_critic"
	AgentSkillHeatmapper = "skill_heatmapper"
	AgentResumeRewriter  = "resume_rewriter"
)

// CompletionFunc decides whether a run reached its goal. It is evaluated on
// every routing boundary and must be pure.
type CompletionFunc func(state *core.State) bool

// Definition describes one workflow: which agents participate, in which
// order the router prefers them and when the run counts as complete.
//
// Definitions are value types; the engine copies them at construction and
// treats them as immutable afterwards.
type Definition struct {
	Type        string         // Workflow type clients submit
	Description string         // Human-readable summary for catalog listings
	EntryAgent  string         // First agent of a fresh run
	Sequence    []string       // Preferred execution order for the router
	Agents      []string       // Complete agent set, the valid handoff targets
	Complete    CompletionFunc // Completion predicate, nil means router-end only
}

// HasAgent reports whether the named agent is part of the workflow.
func (d Definition) HasAgent(name string) bool {
	for _, a := range d.Agents {
		if a == name {
			return true
		}
	}

	return false
}

// Validate checks the structural consistency of the definition: a non-empty
// type, at least one agent, and entry/sequence agents drawn from the agent
// set.
func (d Definition) Validate() error {
	if d.Type == "" {
		return fmt.Errorf("workflow has no type")
	}

	if len(d.Agents) == 0 {
		return fmt.Errorf("workflow %s has no agents", d.Type)
	}

	if d.EntryAgent != "" && !d.HasAgent(d.EntryAgent) {
		return fmt.Errorf("workflow %s: entry agent %q is not in the agent set", d.Type, d.EntryAgent)
	}

	for _, name := range d.Sequence {
		if !d.HasAgent(name) {
			return fmt.Errorf("workflow %s: sequence agent %q is not in the agent set", d.Type, name)
		}
	}

	return nil
}

// AgentCompleted returns a predicate that is true once the named agent
// appears in the state's completion record.
func AgentCompleted(agent string) CompletionFunc {
	return func(state *core.State) bool {
		return state.HasCompleted(agent)
	}
}

// AgentsCompleted returns a predicate that is true once every named agent
// appears in the state's completion record.
func AgentsCompleted(agents ...string) CompletionFunc {
	return func(state *core.State) bool {
		for _, a := range agents {
			if !state.HasCompleted(a) {
				return false
			}
		}

		return true
	}
}

// CatalogOptions tunes the built-in workflow catalog.
type CatalogOptions struct {
	// BestEffortComprehensive relaxes the comprehensive completion predicate:
	// the run succeeds once the resume rewriter finished, even if an earlier
	// agent never completed. The default requires all four agents.
	BestEffortComprehensive bool
}

// Catalog returns the built-in workflow definitions.
//
// Four single-agent flows cover the individual career tasks; comprehensive
// chains all four agents, entered at the job searcher and advanced by the
// sequence or by explicit handoffs.
func Catalog(optFns ...func(o *CatalogOptions)) []Definition {
	opts := CatalogOptions{}

	for _, fn := range optFns {
		fn(&opts)
	}

	comprehensiveAgents := []string{AgentJobSearcher, AgentResumeCritic, AgentSkillHeatmapper, AgentResumeRewriter}

	comprehensiveComplete := AgentsCompleted(comprehensiveAgents...)
	if opts.BestEffortComprehensive {
		comprehensiveComplete = AgentCompleted(AgentResumeRewriter)
	}

	return []Definition{
		{
			Type:        TypeJobSearch,
			Description: "Search job boards and summarize matching postings",
			EntryAgent:  AgentJobSearcher,
			Sequence:    []string{AgentJobSearcher},
			Agents:      []string{AgentJobSearcher},
			Complete:    AgentCompleted(AgentJobSearcher),
		},
		{
			Type:        TypeResumeAnalysis,
			Description: "Review a resume and report quality findings",
			EntryAgent:  AgentResumeCritic,
			Sequence:    []string{AgentResumeCritic},
			Agents:      []string{AgentResumeCritic},
			Complete:    AgentCompleted(AgentResumeCritic),
		},
		{
			Type:        TypeSkillAnalysis,
			Description: "Measure skill demand across current job postings",
			EntryAgent:  AgentSkillHeatmapper,
			Sequence:    []string{AgentSkillHeatmapper},
			Agents:      []string{AgentSkillHeatmapper},
			Complete:    AgentCompleted(AgentSkillHeatmapper),
		},
		{
			Type:        TypeResumeOptimization,
			Description: "Rewrite a resume towards in-demand skills",
			EntryAgent:  AgentResumeRewriter,
			Sequence:    []string{AgentResumeRewriter},
			Agents:      []string{AgentResumeRewriter},
			Complete:    AgentCompleted(AgentResumeRewriter),
		},
		{
			Type:        TypeComprehensive,
			Description: "Full pipeline: search jobs, critique the resume, map skill demand, rewrite",
			EntryAgent:  AgentJobSearcher,
			Sequence:    comprehensiveAgents,
			Agents:      comprehensiveAgents,
			Complete:    comprehensiveComplete,
		},
	}
}
