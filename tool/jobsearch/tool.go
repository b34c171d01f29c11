package jobsearch

import (
	"fmt"

	"github.com/hupe1980/jobmesh/core"
	"github.com/hupe1980/jobmesh/tool"
)

const (
	defaultLocation   = "Germany"
	defaultMaxResults = 20

	// topJobsInResult caps the postings echoed in the agent result so
	// reports stay readable; the full list is staged in scratch.
	topJobsInResult = 5
)

// NewSearchTool exposes the given source to agents as the search_jobs
// function.
//
// The full posting list is staged under tool.ScratchKeyJobPostings in a
// JSON-friendly shape for downstream analysis steps, replacing whatever a
// previous search staged. The agent result and the tool response carry a
// compact digest.
func NewSearchTool(source Source) *tool.FunctionTool {
	type args struct {
		Keywords   string `json:"keywords" description:"Search keywords, e.g. job title or skills."`
		Location   string `json:"location,omitempty" description:"Location to search in. Defaults to Germany."`
		MaxResults int    `json:"max_results,omitempty" description:"Maximum number of postings per source."`
	}

	return tool.NewFunctionToolFromStruct(
		"search_jobs",
		"Search job postings across the configured job boards.",
		args{},
		func(toolCtx *core.ToolContext, callArgs map[string]any) (any, error) {
			query := Query{
				Keywords:   callArgs["keywords"].(string),
				Location:   defaultLocation,
				MaxResults: defaultMaxResults,
			}

			if location, ok := callArgs["location"].(string); ok && location != "" {
				query.Location = location
			}

			if max := numericArg(callArgs["max_results"]); max > 0 {
				query.MaxResults = max
			}

			jobs, err := source.Search(toolCtx.Context(), query)
			if err != nil {
				return nil, fmt.Errorf("job search failed: %w", err)
			}

			toolCtx.SetScratch(tool.ScratchKeyJobPostings, jobsToMaps(jobs))

			result := map[string]any{
				"total_jobs": len(jobs),
				"sources":    sourceNames(jobs),
				"top_jobs":   jobsToMaps(topJobs(jobs)),
			}

			toolCtx.SetResult(result)

			return result, nil
		},
	)
}

func topJobs(jobs []Job) []Job {
	if len(jobs) <= topJobsInResult {
		return jobs
	}

	return jobs[:topJobsInResult]
}

func sourceNames(jobs []Job) []string {
	seen := make(map[string]bool)

	var names []string

	for _, job := range jobs {
		if job.Source == "" || seen[job.Source] {
			continue
		}

		seen[job.Source] = true
		names = append(names, job.Source)
	}

	return names
}

// jobsToMaps converts postings to the generic shape analysis tools read
// from scratch. Using plain maps keeps staged state JSON round-trippable.
func jobsToMaps(jobs []Job) []map[string]any {
	out := make([]map[string]any, 0, len(jobs))

	for _, job := range jobs {
		m := map[string]any{
			"id":          job.ID,
			"title":       job.Title,
			"company":     job.Company,
			"location":    job.Location,
			"source":      job.Source,
			"url":         job.URL,
			"description": job.Description,
		}

		if job.Salary != "" {
			m["salary"] = job.Salary
		}

		if job.PostedAt != "" {
			m["posted_date"] = job.PostedAt
		}

		if job.JobType != "" {
			m["job_type"] = job.JobType
		}

		out = append(out, m)
	}

	return out
}

func numericArg(raw any) int {
	switch v := raw.(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
