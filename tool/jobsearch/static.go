package jobsearch

import (
	"context"
	"fmt"
	"strings"
)

// StaticSource serves a fixed set of postings. It stands in for the HTTP
// sources in tests and in deployments without API credentials.
type StaticSource struct {
	name string
	jobs []Job
}

// NewStaticSource creates a source that serves the given postings.
func NewStaticSource(name string, jobs []Job) *StaticSource {
	return &StaticSource{name: name, jobs: jobs}
}

// Name implements the Source interface.
func (s *StaticSource) Name() string { return s.name }

// Search implements the Source interface. Postings match when every
// keyword appears in the title or description, case-insensitively.
func (s *StaticSource) Search(ctx context.Context, query Query) ([]Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keywords := strings.Fields(strings.ToLower(query.Keywords))

	var matches []Job

	for _, job := range s.jobs {
		if matchesKeywords(job, keywords) {
			matches = append(matches, job)
		}

		if query.MaxResults > 0 && len(matches) == query.MaxResults {
			break
		}
	}

	return matches, nil
}

func matchesKeywords(job Job, keywords []string) bool {
	text := strings.ToLower(job.Title + " " + job.Description)

	for _, kw := range keywords {
		if !strings.Contains(text, kw) {
			return false
		}
	}

	return true
}

// DemoJobs returns a small set of realistic postings for development and
// demos without external API credentials.
func DemoJobs(keywords string) []Job {
	if keywords == "" {
		keywords = "Software"
	}

	var jobs []Job

	for i := 1; i <= 3; i++ {
		jobs = append(jobs, Job{
			ID:          fmt.Sprintf("stepstone_demo_%d", i),
			Title:       fmt.Sprintf("%s Developer", keywords),
			Company:     fmt.Sprintf("German Tech Company %d", i),
			Location:    "Berlin, Germany",
			Salary:      fmt.Sprintf("€%d - €%d", 45000+i*5000, 75000+i*5000),
			Source:      "StepStone",
			URL:         fmt.Sprintf("https://stepstone.de/job-demo-%d", i),
			Description: fmt.Sprintf("We are looking for an experienced %s developer with Python, Docker and PostgreSQL experience.", keywords),
			PostedAt:    "2025-05-23",
			JobType:     "Full-time",
		})

		jobs = append(jobs, Job{
			ID:          fmt.Sprintf("google_demo_%d", i),
			Title:       fmt.Sprintf("Senior %s Engineer", keywords),
			Company:     fmt.Sprintf("International Company %d", i),
			Location:    "Munich, Germany",
			Salary:      fmt.Sprintf("€%d - €%d", 50000+i*7000, 90000+i*7000),
			Source:      "Google Jobs",
			URL:         fmt.Sprintf("https://jobs.google.com/job-demo-%d", i),
			Description: fmt.Sprintf("Join our team as a %s professional working with AWS, Kubernetes and Git.", keywords),
			PostedAt:    "2025-05-23",
			JobType:     "Full-time",
		})
	}

	return jobs
}
