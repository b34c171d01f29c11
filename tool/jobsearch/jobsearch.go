// Package jobsearch provides job posting sources and the search_jobs tool.
//
// A Source wraps one job board API behind a uniform Search call. Sources
// can be combined with MultiSource, which fans a query out to all of them
// in parallel, tolerates partial failures and merges the deduplicated
// results. Descriptions coming back from scraping APIs routinely contain
// HTML; every source strips markup before returning a Job.
//
// NewSearchTool exposes a Source to agents as the search_jobs function
// and stages the postings for downstream analysis steps.
package jobsearch

import (
	"context"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// maxDescriptionLen bounds the description carried per posting so a large
// search result does not blow up prompts and reports.
const maxDescriptionLen = 500

// Job is a single job posting in the normalized shape shared by all sources.
type Job struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Salary      string `json:"salary,omitempty"`
	Source      string `json:"source"`
	URL         string `json:"url"`
	Description string `json:"description"`
	PostedAt    string `json:"posted_date,omitempty"`
	JobType     string `json:"job_type,omitempty"`
}

// Query describes a job search.
type Query struct {
	// Keywords is the free text search term.
	Keywords string
	// Location narrows the search geographically.
	Location string
	// MaxResults caps the number of postings per source.
	MaxResults int
}

// Source is a job board that can be searched.
type Source interface {
	// Name identifies the source in logs and results.
	Name() string

	// Search returns the postings matching the query.
	Search(ctx context.Context, query Query) ([]Job, error)
}

var htmlPolicy = bluemonday.StrictPolicy()

// sanitizeText strips HTML markup from scraped content.
func sanitizeText(s string) string {
	return strings.TrimSpace(htmlPolicy.Sanitize(s))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	return s[:max]
}
