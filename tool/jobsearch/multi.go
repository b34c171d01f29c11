package jobsearch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/jobmesh/logging"
)

// MultiSourceOptions configures the fan-out source.
type MultiSourceOptions struct {
	// Logger receives per-source failure and summary logs.
	Logger logging.Logger
}

// MultiSource fans a query out to several sources in parallel and merges
// their results. A failing source does not fail the search as long as at
// least one source succeeds; its error is logged and the remaining
// results are returned. Only when every source fails does Search return
// an error, joining the individual failures.
//
// Results keep source order, not arrival order, so repeated searches over
// the same data merge identically. Postings appearing in several sources
// are deduplicated by URL.
type MultiSource struct {
	sources []Source
	logger  logging.Logger
}

// NewMultiSource creates a fan-out source over the given sources.
func NewMultiSource(sources []Source, optFns ...func(o *MultiSourceOptions)) *MultiSource {
	opts := MultiSourceOptions{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &MultiSource{sources: sources, logger: opts.Logger}
}

// Name implements the Source interface.
func (s *MultiSource) Name() string {
	names := make([]string, 0, len(s.sources))
	for _, src := range s.sources {
		names = append(names, src.Name())
	}

	return strings.Join(names, "+")
}

// Search implements the Source interface.
func (s *MultiSource) Search(ctx context.Context, query Query) ([]Job, error) {
	if len(s.sources) == 0 {
		return nil, errors.New("no sources configured")
	}

	results := make([][]Job, len(s.sources))
	errs := make([]error, len(s.sources))

	var wg sync.WaitGroup

	for i, src := range s.sources {
		wg.Add(1)

		go func(i int, src Source) {
			defer wg.Done()

			jobs, err := src.Search(ctx, query)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", src.Name(), err)
				return
			}

			results[i] = jobs
		}(i, src)
	}

	wg.Wait()

	var (
		merged   []Job
		failures []error
	)

	seen := make(map[string]bool)

	for i := range s.sources {
		if errs[i] != nil {
			failures = append(failures, errs[i])
			s.logger.Warn("jobsearch.source_failed", "source", s.sources[i].Name(), "error", errs[i].Error())

			continue
		}

		for _, job := range results[i] {
			key := dedupeKey(job)
			if seen[key] {
				continue
			}

			seen[key] = true
			merged = append(merged, job)
		}
	}

	if len(failures) == len(s.sources) {
		return nil, fmt.Errorf("all sources failed: %w", errors.Join(failures...))
	}

	s.logger.Info("jobsearch.completed",
		"sources", len(s.sources),
		"failed", len(failures),
		"jobs", len(merged),
	)

	return merged, nil
}

func dedupeKey(job Job) string {
	if job.URL != "" {
		return job.URL
	}

	return strings.ToLower(job.Title + "|" + job.Company)
}
