package tool

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/hupe1980/jobmesh/core"
	"github.com/hupe1980/jobmesh/document"
)

// Scratch keys shared by the career tools. The search tools stage job
// postings under ScratchKeyJobPostings; the analysis tools stage their
// intermediate findings for downstream agents in the same run.
const (
	ScratchKeyJobPostings  = "job_postings"
	ScratchKeyResumeID     = "resume_id"
	ScratchKeyResumeSkills = "resume_skills"
	ScratchKeySkillTrends  = "skill_trends"
)

// skillCategories fixes the iteration order over the vocabulary so that
// repeated runs over the same input produce identical trend lists.
var skillCategories = []string{
	"programming_languages",
	"frameworks",
	"databases",
	"cloud_platforms",
	"tools",
	"soft_skills",
}

var skillVocabulary = map[string][]string{
	"programming_languages": {
		"python", "javascript", "java", "typescript", "c++", "c#", "go",
		"rust", "php", "ruby", "swift", "kotlin", "scala", "r",
	},
	"frameworks": {
		"react", "vue", "angular", "django", "flask", "fastapi", "spring",
		"express", "nest.js", "laravel", "rails", "tensorflow", "pytorch",
	},
	"databases": {
		"postgresql", "mysql", "mongodb", "redis", "elasticsearch",
		"oracle", "sql server", "cassandra", "dynamodb",
	},
	"cloud_platforms": {
		"aws", "azure", "gcp", "docker", "kubernetes", "terraform",
		"jenkins", "gitlab ci", "github actions",
	},
	"tools": {
		"git", "jira", "figma", "photoshop", "tableau", "power bi",
		"excel", "slack", "notion",
	},
	"soft_skills": {
		"communication", "leadership", "teamwork", "problem solving",
		"project management", "agile", "scrum",
	},
}

// tokenRE splits free text into tokens while keeping the characters that
// distinguish skills like "c++", "c#" and "nest.js" from plain words.
var tokenRE = regexp.MustCompile(`[a-z0-9+#.]+`)

var (
	emailRE = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phoneRE = regexp.MustCompile(`(\+?\d[\d\s/.-]{7,}\d)`)
)

// SkillTrend describes how often a skill shows up across the analyzed job
// postings. DemandScore normalizes the frequency against the most demanded
// skill of the batch on a 0-100 scale.
type SkillTrend struct {
	Skill       string  `json:"skill_name"`
	Category    string  `json:"category"`
	Frequency   int     `json:"frequency"`
	DemandScore float64 `json:"demand_score"`
	AvgSalary   float64 `json:"avg_salary,omitempty"`
}

func tokenize(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, tok := range tokenRE.FindAllString(strings.ToLower(text), -1) {
		tokens[strings.Trim(tok, ".")] = true
	}

	return tokens
}

// matchSkill checks single-word skills against the token set and multi-word
// skills against the raw text. Token matching keeps one-letter skills like
// "r" and short ones like "go" from matching inside unrelated words.
func matchSkill(text string, tokens map[string]bool, skill string) bool {
	if strings.Contains(skill, " ") {
		return strings.Contains(text, skill)
	}

	return tokens[skill]
}

// extractSkills scans free text for known skills, grouped by category.
// Categories without any hit are omitted.
func extractSkills(text string) map[string][]string {
	lower := strings.ToLower(text)
	tokens := tokenize(text)

	found := make(map[string][]string)

	for _, category := range skillCategories {
		for _, skill := range skillVocabulary[category] {
			if matchSkill(lower, tokens, skill) {
				found[category] = append(found[category], skill)
			}
		}
	}

	return found
}

func flattenSkills(byCategory map[string][]string) []string {
	var flat []string
	for _, category := range skillCategories {
		flat = append(flat, byCategory[category]...)
	}

	return flat
}

// resumeSections maps a section label to the markers that identify it in
// free resume text.
var resumeSections = []struct {
	name    string
	markers []string
}{
	{"summary", []string{"summary", "profile", "objective"}},
	{"experience", []string{"experience", "employment", "work history"}},
	{"skills", []string{"skills", "technologies", "tech stack"}},
	{"education", []string{"education", "degree", "university"}},
	{"projects", []string{"projects", "portfolio"}},
}

func detectSections(lower string) map[string]bool {
	found := make(map[string]bool)

	for _, section := range resumeSections {
		for _, marker := range section.markers {
			if strings.Contains(lower, marker) {
				found[section.name] = true
				break
			}
		}
	}

	return found
}

// ResumeToolOptions configures the resume analysis tool.
type ResumeToolOptions struct {
	// Documents resolves a staged or passed resume id to its stored text.
	// Nil restricts the tool to inline text and the run's user input.
	Documents document.Store
}

// NewResumeAnalysisTool creates the analyze_resume tool.
//
// It scores a resume on a 0-100 scale from weighted section checks
// (contact details 20, work experience 30, skills 25, education 15,
// projects 10), extracts the skills it recognizes and stages both the
// analysis result and the skill list for downstream agents.
//
// Resume text is resolved in order: the resume_text argument, a stored
// document referenced by resume_id (argument or scratch), the run's user
// input.
func NewResumeAnalysisTool(optFns ...func(o *ResumeToolOptions)) *FunctionTool {
	opts := ResumeToolOptions{}

	for _, fn := range optFns {
		fn(&opts)
	}

	type args struct {
		ResumeText string `json:"resume_text,omitempty" description:"Resume text to analyze. Defaults to the stored resume or the user input of the current run."`
		ResumeID   string `json:"resume_id,omitempty" description:"ID of an uploaded resume document to analyze."`
	}

	return NewFunctionToolFromStruct(
		"analyze_resume",
		"Analyze resume quality, structure and skill coverage.",
		args{},
		func(toolCtx *core.ToolContext, callArgs map[string]any) (any, error) {
			text, _ := callArgs["resume_text"].(string)

			if text == "" && opts.Documents != nil {
				if id := resumeID(toolCtx, callArgs); id != "" {
					doc, err := opts.Documents.Get(toolCtx.Context(), toolCtx.State().UserID, id)
					if err != nil {
						return nil, fmt.Errorf("resume %s: %w", id, err)
					}

					text = doc.Text

					toolCtx.SetScratch(ScratchKeyResumeID, doc.ID)
				}
			}

			if text == "" {
				text = toolCtx.UserInput()
			}

			if strings.TrimSpace(text) == "" {
				return nil, fmt.Errorf("no resume text provided")
			}

			lower := strings.ToLower(text)
			sections := detectSections(lower)
			skillsByCategory := extractSkills(text)
			skills := flattenSkills(skillsByCategory)

			score := 0

			var feedback []string

			if emailRE.MatchString(text) {
				score += 10
			}

			if phoneRE.MatchString(text) {
				score += 10
			}

			if score < 20 {
				feedback = append(feedback, "Missing basic contact information")
			}

			if sections["experience"] {
				score += 15
				if len(text) > 600 {
					score += 15
				} else {
					feedback = append(feedback, "Work experience descriptions are too brief")
				}
			} else {
				feedback = append(feedback, "Missing work experience information")
			}

			switch {
			case len(skills) >= 10:
				score += 25
			case len(skills) >= 5:
				score += 15

				feedback = append(feedback, "Suggest adding more relevant skills")
			default:
				feedback = append(feedback, "Too few skills listed")
			}

			if sections["education"] {
				score += 15
			} else {
				feedback = append(feedback, "Missing education information")
			}

			if sections["projects"] {
				score += 10
			} else {
				feedback = append(feedback, "Suggest adding project experience")
			}

			var sectionNames []string
			for _, section := range resumeSections {
				if sections[section.name] {
					sectionNames = append(sectionNames, section.name)
				}
			}

			result := map[string]any{
				"quality_score":      min(score, 100),
				"word_count":         len(strings.Fields(text)),
				"sections":           sectionNames,
				"skills":             skills,
				"skills_by_category": skillsByCategory,
				"feedback":           feedback,
			}

			toolCtx.SetResult(result)
			toolCtx.SetScratch(ScratchKeyResumeSkills, skills)

			return result, nil
		},
	)
}

// NewSkillHeatmapTool creates the generate_skill_heatmap tool.
//
// It aggregates skill demand across the job postings staged by a prior
// search step. Each posting contributes at most once per skill; demand is
// the frequency normalized against the most demanded skill of the batch.
// When a prior resume analysis staged the candidate's skills, the result
// additionally carries a gap analysis (matching skills, missing skills,
// coverage rate).
func NewSkillHeatmapTool() *FunctionTool {
	type args struct {
		Categories []string `json:"categories,omitempty" description:"Skill categories to analyze. Defaults to all categories."`
		Limit      int      `json:"limit,omitempty" description:"Maximum number of skill trends to return."`
	}

	return NewFunctionToolFromStruct(
		"generate_skill_heatmap",
		"Aggregate skill demand across the collected job postings.",
		args{},
		func(toolCtx *core.ToolContext, callArgs map[string]any) (any, error) {
			jobs := jobPostings(toolCtx)
			if len(jobs) == 0 {
				return nil, fmt.Errorf("no job postings available; run a job search first")
			}

			categories := stringSlice(callArgs["categories"])
			if len(categories) == 0 {
				categories = skillCategories
			}

			trends := skillTrends(jobs, categories)

			if limit := intArg(callArgs["limit"]); limit > 0 && limit < len(trends) {
				trends = trends[:limit]
			}

			result := map[string]any{
				"total_jobs_analyzed": len(jobs),
				"unique_skills_found": len(trends),
				"skill_trends":        trends,
				"categories_analyzed": categories,
			}

			if resumeSkills := scratchStrings(toolCtx, ScratchKeyResumeSkills); len(resumeSkills) > 0 {
				result["skill_gaps"] = skillGaps(trends, resumeSkills)
			}

			toolCtx.SetResult(result)
			toolCtx.SetScratch(ScratchKeySkillTrends, trends)

			return result, nil
		},
	)
}

func skillTrends(jobs []map[string]any, categories []string) []SkillTrend {
	type stats struct {
		frequency   int
		category    string
		totalSalary float64
		salaryCount int
	}

	wanted := make(map[string]bool, len(categories))
	for _, category := range categories {
		wanted[category] = true
	}

	perSkill := make(map[string]*stats)

	for _, job := range jobs {
		text := strings.ToLower(fmt.Sprintf("%s %s %s",
			stringField(job, "title"),
			stringField(job, "description"),
			stringField(job, "requirements"),
		))
		tokens := tokenize(text)
		salary := (floatField(job, "salary_min") + floatField(job, "salary_max")) / 2

		for _, category := range skillCategories {
			if !wanted[category] {
				continue
			}

			for _, skill := range skillVocabulary[category] {
				if !matchSkill(text, tokens, skill) {
					continue
				}

				st := perSkill[skill]
				if st == nil {
					st = &stats{category: category}
					perSkill[skill] = st
				}

				st.frequency++

				if salary > 0 {
					st.totalSalary += salary
					st.salaryCount++
				}
			}
		}
	}

	maxFrequency := 1
	for _, st := range perSkill {
		if st.frequency > maxFrequency {
			maxFrequency = st.frequency
		}
	}

	var trends []SkillTrend

	for _, category := range skillCategories {
		for _, skill := range skillVocabulary[category] {
			st, ok := perSkill[skill]
			if !ok {
				continue
			}

			trend := SkillTrend{
				Skill:       skill,
				Category:    st.category,
				Frequency:   st.frequency,
				DemandScore: round2(float64(st.frequency) / float64(maxFrequency) * 100),
			}
			if st.salaryCount > 0 {
				trend.AvgSalary = round2(st.totalSalary / float64(st.salaryCount))
			}

			trends = append(trends, trend)
		}
	}

	sort.SliceStable(trends, func(i, j int) bool {
		if trends[i].DemandScore != trends[j].DemandScore {
			return trends[i].DemandScore > trends[j].DemandScore
		}
		return trends[i].Skill < trends[j].Skill
	})

	return trends
}

func skillGaps(trends []SkillTrend, resumeSkills []string) map[string]any {
	have := make(map[string]bool, len(resumeSkills))
	for _, skill := range resumeSkills {
		have[strings.ToLower(skill)] = true
	}

	var matching, missing []string

	for _, trend := range trends {
		if have[trend.Skill] {
			matching = append(matching, trend.Skill)
		} else {
			missing = append(missing, trend.Skill)
		}
	}

	coverage := 0.0
	if len(trends) > 0 {
		coverage = round2(float64(len(matching)) / float64(len(trends)) * 100)
	}

	return map[string]any{
		"matching_skills": matching,
		"missing_skills":  missing,
		"coverage_rate":   coverage,
	}
}

// NewResumeRewriteTool creates the rewrite_resume tool.
//
// It turns the staged skill trends and resume skills into a concrete
// rewrite plan: which keywords to add and how to rework each section.
// The tone argument selects the writing style of the suggestions.
func NewResumeRewriteTool() *FunctionTool {
	type args struct {
		TargetRole string `json:"target_role,omitempty" description:"Role the resume should be optimized for."`
		Tone       string `json:"tone,omitempty" description:"Writing style of the rewrite." enum:"concise,impact,executive"`
	}

	return NewFunctionToolFromStruct(
		"rewrite_resume",
		"Produce a rewrite plan that aligns the resume with in-demand skills.",
		args{},
		func(toolCtx *core.ToolContext, callArgs map[string]any) (any, error) {
			targetRole, _ := callArgs["target_role"].(string)

			tone, _ := callArgs["tone"].(string)
			if tone == "" {
				tone = "impact"
			}

			resumeSkills := scratchStrings(toolCtx, ScratchKeyResumeSkills)
			if len(resumeSkills) == 0 {
				resumeSkills = flattenSkills(extractSkills(toolCtx.UserInput()))
			}

			trends := scratchTrends(toolCtx)

			keywords := missingKeywords(trends, resumeSkills, 8)

			sectionPlan := map[string]string{
				"summary":    summaryAdvice(targetRole, resumeSkills),
				"skills":     skillsAdvice(keywords),
				"experience": experienceAdvice(tone),
			}

			result := map[string]any{
				"target_role":     targetRole,
				"tone":            tone,
				"keywords_to_add": keywords,
				"section_plan":    sectionPlan,
			}

			toolCtx.SetResult(result)

			return result, nil
		},
	)
}

func missingKeywords(trends []SkillTrend, resumeSkills []string, limit int) []string {
	have := make(map[string]bool, len(resumeSkills))
	for _, skill := range resumeSkills {
		have[strings.ToLower(skill)] = true
	}

	var missing []string

	for _, trend := range trends {
		if have[trend.Skill] {
			continue
		}

		missing = append(missing, trend.Skill)
		if len(missing) == limit {
			break
		}
	}

	return missing
}

func summaryAdvice(targetRole string, skills []string) string {
	lead := "Open with a two-sentence summary"
	if targetRole != "" {
		lead = fmt.Sprintf("%s positioning you for a %s role", lead, targetRole)
	}

	if len(skills) > 0 {
		top := skills
		if len(top) > 3 {
			top = top[:3]
		}

		return fmt.Sprintf("%s and name your strongest skills (%s).", lead, strings.Join(top, ", "))
	}

	return lead + "."
}

func skillsAdvice(keywords []string) string {
	if len(keywords) == 0 {
		return "Keep the skills section; it already covers the in-demand skills."
	}

	return fmt.Sprintf("Add the in-demand skills you can credibly claim: %s.", strings.Join(keywords, ", "))
}

func experienceAdvice(tone string) string {
	switch tone {
	case "concise":
		return "Trim each position to three bullet points with one measurable outcome each."
	case "executive":
		return "Lead each position with scope (team size, budget) before outcomes."
	default:
		return "Start each bullet with a strong verb and quantify the outcome."
	}
}

// jobPostings reads the staged job postings, accepting both the typed
// in-run shape and the generic shape a JSON round trip produces.
func jobPostings(toolCtx *core.ToolContext) []map[string]any {
	raw, ok := toolCtx.GetScratch(ScratchKeyJobPostings)
	if !ok {
		return nil
	}

	switch v := raw.(type) {
	case []map[string]any:
		return v
	case []any:
		jobs := make([]map[string]any, 0, len(v))

		for _, item := range v {
			if job, ok := item.(map[string]any); ok {
				jobs = append(jobs, job)
			}
		}

		return jobs
	default:
		return nil
	}
}

// resumeID resolves the resume id for the current call, preferring an
// explicit argument over the value staged in scratch.
func resumeID(toolCtx *core.ToolContext, callArgs map[string]any) string {
	if id, _ := callArgs["resume_id"].(string); id != "" {
		return id
	}

	if raw, ok := toolCtx.GetScratch(ScratchKeyResumeID); ok {
		if id, _ := raw.(string); id != "" {
			return id
		}
	}

	return ""
}

func scratchStrings(toolCtx *core.ToolContext, key string) []string {
	raw, ok := toolCtx.GetScratch(key)
	if !ok {
		return nil
	}

	return stringSlice(raw)
}

func scratchTrends(toolCtx *core.ToolContext) []SkillTrend {
	raw, ok := toolCtx.GetScratch(ScratchKeySkillTrends)
	if !ok {
		return nil
	}

	trends, _ := raw.([]SkillTrend)

	return trends
}

func stringSlice(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))

		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}

		return out
	default:
		return nil
	}
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func floatField(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

func intArg(raw any) int {
	switch v := raw.(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
