package jobsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultStepStoneBaseURL = "https://api.apify.com/v2/acts/stepstone-scraper/run-sync-get-dataset-items"

// StepStoneOptions configures the StepStone source.
type StepStoneOptions struct {
	// BaseURL is the scraper actor endpoint.
	BaseURL string
	// HTTPClient is the client used for requests.
	HTTPClient *http.Client
}

// StepStoneSource searches German job postings through an Apify StepStone
// scraper actor.
type StepStoneSource struct {
	token   string
	baseURL string
	client  *http.Client
}

// NewStepStoneSource creates a StepStone source authenticated with the
// given Apify API token.
func NewStepStoneSource(token string, optFns ...func(o *StepStoneOptions)) *StepStoneSource {
	opts := StepStoneOptions{
		BaseURL:    defaultStepStoneBaseURL,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &StepStoneSource{
		token:   token,
		baseURL: opts.BaseURL,
		client:  opts.HTTPClient,
	}
}

// Name implements the Source interface.
func (s *StepStoneSource) Name() string { return "StepStone" }

type stepstoneItem struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Salary      string `json:"salary"`
	JobURL      string `json:"jobUrl"`
	Description string `json:"description"`
	PostedAt    string `json:"postedAt"`
	JobType     string `json:"jobType"`
}

// Search implements the Source interface.
func (s *StepStoneSource) Search(ctx context.Context, query Query) ([]Job, error) {
	payload := map[string]any{
		"keywords": query.Keywords,
		"location": query.Location,
		"maxItems": query.MaxResults,
		"outputFields": []string{
			"title", "company", "location", "salary",
			"jobUrl", "description", "postedAt", "jobType",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("stepstone: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("stepstone: create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stepstone: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stepstone: unexpected status %d", resp.StatusCode)
	}

	var items []stepstoneItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("stepstone: decode response: %w", err)
	}

	jobs := make([]Job, 0, len(items))

	for _, item := range items {
		jobs = append(jobs, Job{
			ID:          "stepstone_" + lastURLSegment(item.JobURL),
			Title:       sanitizeText(item.Title),
			Company:     sanitizeText(item.Company),
			Location:    item.Location,
			Salary:      item.Salary,
			Source:      s.Name(),
			URL:         item.JobURL,
			Description: truncate(sanitizeText(item.Description), maxDescriptionLen),
			PostedAt:    item.PostedAt,
			JobType:     item.JobType,
		})
	}

	return jobs, nil
}

func lastURLSegment(url string) string {
	trimmed := strings.TrimRight(url, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		return trimmed[idx+1:]
	}

	return trimmed
}
