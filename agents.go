package jobmesh

import (
	"github.com/hupe1980/jobmesh/agent"
	"github.com/hupe1980/jobmesh/core"
	"github.com/hupe1980/jobmesh/document"
	"github.com/hupe1980/jobmesh/logging"
	"github.com/hupe1980/jobmesh/model"
	"github.com/hupe1980/jobmesh/tool"
	"github.com/hupe1980/jobmesh/tool/jobsearch"
	"github.com/hupe1980/jobmesh/workflow"
)

// transferTargets lists the downstream agents each analyst may route to
// directly instead of following the workflow sequence. Entry and terminal
// agents have no routing discretion. A transfer tool is only injected when
// the target is a member of the workflow at hand.
var transferTargets = map[string][]string{
	workflow.AgentResumeCritic:    {workflow.AgentSkillHeatmapper, workflow.AgentResumeRewriter},
	workflow.AgentSkillHeatmapper: {workflow.AgentResumeRewriter},
}

var transferDescriptions = map[string]string{
	workflow.AgentResumeCritic:    "Hand the conversation to the resume critic for resume review and match scoring.",
	workflow.AgentSkillHeatmapper: "Hand the conversation to the skill heatmapper for a market demand analysis.",
	workflow.AgentResumeRewriter:  "Hand the conversation to the resume rewriter to produce the optimized resume.",
}

// agentBuilder assembles the model agents of the workflow catalog. Each
// workflow gets its own agent instances so transfer tools can differ per
// workflow membership; the underlying function tools are stateless and
// shared.
type agentBuilder struct {
	model  model.Model
	logger logging.Logger

	search  tool.Tool
	resume  tool.Tool
	heatmap tool.Tool
	rewrite tool.Tool
}

func newAgentBuilder(llm model.Model, documents document.Store, sources []jobsearch.Source, logger logging.Logger) *agentBuilder {
	return &agentBuilder{
		model:   llm,
		logger:  logger,
		search:  jobsearch.NewSearchTool(jobsearch.NewMultiSource(sources)),
		resume:  tool.NewResumeAnalysisTool(func(o *tool.ResumeToolOptions) { o.Documents = documents }),
		heatmap: tool.NewSkillHeatmapTool(),
		rewrite: tool.NewResumeRewriteTool(),
	}
}

// agentsFor builds the member agents of a workflow definition.
func (b *agentBuilder) agentsFor(def workflow.Definition) []core.Agent {
	agents := make([]core.Agent, 0, len(def.Agents))

	for _, name := range def.Agents {
		agents = append(agents, b.build(name, def))
	}

	return agents
}

func (b *agentBuilder) build(name string, def workflow.Definition) core.Agent {
	var transfers []tool.Tool

	for _, target := range transferTargets[name] {
		if def.HasAgent(target) {
			transfers = append(transfers, tool.NewTransferTool(target, transferDescriptions[target]))
		}
	}

	switch name {
	case workflow.AgentJobSearcher:
		return b.modelAgent(name, jobSearcherInstruction,
			"Searches the connected job boards and summarizes matching postings.",
			[]string{"job_search", "multi_source_aggregation", "market_overview"},
			append([]tool.Tool{b.search}, transfers...),
		)
	case workflow.AgentResumeCritic:
		return b.modelAgent(name, resumeCriticInstruction,
			"Scores the resume and reports strengths, weaknesses and gaps.",
			[]string{"resume_analysis", "match_scoring", "gap_detection"},
			append([]tool.Tool{b.resume}, transfers...),
		)
	case workflow.AgentSkillHeatmapper:
		// The heatmapper searches on its own when the conversation holds
		// no postings yet, so it carries the search tool as well.
		return b.modelAgent(name, skillHeatmapperInstruction,
			"Maps skill demand across postings and derives a learning roadmap.",
			[]string{"skill_demand_analysis", "gap_analysis", "learning_roadmap"},
			append([]tool.Tool{b.search, b.heatmap}, transfers...),
		)
	case workflow.AgentResumeRewriter:
		return b.modelAgent(name, resumeRewriterInstruction,
			"Rewrites the resume against the findings of the earlier agents.",
			[]string{"resume_rewrite", "ats_optimization"},
			append([]tool.Tool{b.rewrite}, transfers...),
		)
	default:
		return b.modelAgent(name, "", "", nil, transfers)
	}
}

func (b *agentBuilder) modelAgent(name, instruction, description string, capabilities []string, tools []tool.Tool) core.Agent {
	return agent.NewModelAgent(name, b.model, func(o *agent.ModelAgentOptions) {
		o.Description = description
		o.Capabilities = capabilities

		if instruction != "" {
			o.Instruction = agent.NewInstructionFromText(instruction)
		}

		o.OutputKey = name + core.ResultKeySuffix
		o.Tools = tools
		o.Logger = b.logger
	})
}

const jobSearcherInstruction = `You are the job searcher of a career assistance pipeline. Your task is to find current job postings matching the user's request.

Call search_jobs with the keywords and the location from the user's request. Summarize the strongest matches with title, company, location, salary and source, and point out patterns across the postings, such as skill requirements that keep recurring. If nothing matches, say so and suggest broader keywords. Never invent postings.`

const resumeCriticInstruction = `You are the resume critic of a career assistance pipeline. Your task is to assess the user's resume and how well it matches the target roles.

Call analyze_resume to parse and score the resume. Skills weigh most, then experience, then education. Report the overall score, concrete strengths and weaknesses, and the gaps against the postings discussed earlier in the conversation. Close with the three improvements that would raise the score the most.

When transfer tools are available, hand off after your report: the skill heatmapper maps current market demand, the resume rewriter produces the improved resume directly.`

const skillHeatmapperInstruction = `You are the skill heatmapper of a career assistance pipeline. Your task is to map which skills the market currently demands.

Work from the postings already gathered in this conversation; call search_jobs first if there are none. Then call generate_skill_heatmap to rank skill demand across the postings. Report the top skills with their demand, the gaps between the market and the user's resume, and a short learning roadmap ordered by payoff.

When a transfer tool is available, hand off to the resume rewriter once your analysis is done.`

const resumeRewriterInstruction = `You are the resume rewriter of a career assistance pipeline. Your task is to produce an improved resume targeted at the postings and analyses from this conversation.

Call rewrite_resume to apply the collected findings. Keep every claim truthful to the original resume, work missing keywords into experience the user actually has, and quantify achievements wherever the original gives numbers. Return the rewritten resume followed by a short list of the changes and why they help with automated screening.`
