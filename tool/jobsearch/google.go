package jobsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	defaultGoogleJobsBaseURL = "https://serpapi.com/search"

	// The SerpAPI google_jobs engine returns at most 10 results per page.
	googleJobsPageSize = 10
)

// GoogleJobsOptions configures the Google Jobs source.
type GoogleJobsOptions struct {
	// BaseURL is the SerpAPI endpoint.
	BaseURL string
	// HTTPClient is the client used for requests.
	HTTPClient *http.Client
}

// GoogleJobsSource searches Google Jobs through the SerpAPI google_jobs engine.
type GoogleJobsSource struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewGoogleJobsSource creates a Google Jobs source authenticated with the
// given SerpAPI key.
func NewGoogleJobsSource(apiKey string, optFns ...func(o *GoogleJobsOptions)) *GoogleJobsSource {
	opts := GoogleJobsOptions{
		BaseURL:    defaultGoogleJobsBaseURL,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &GoogleJobsSource{
		apiKey:  apiKey,
		baseURL: opts.BaseURL,
		client:  opts.HTTPClient,
	}
}

// Name implements the Source interface.
func (s *GoogleJobsSource) Name() string { return "Google Jobs" }

type googleJobsResponse struct {
	JobsResults []googleJobsItem `json:"jobs_results"`
}

type googleJobsItem struct {
	JobID              string `json:"job_id"`
	Title              string `json:"title"`
	CompanyName        string `json:"company_name"`
	Location           string `json:"location"`
	Description        string `json:"description"`
	ShareLink          string `json:"share_link"`
	DetectedExtensions struct {
		Salary       string `json:"salary"`
		PostedAt     string `json:"posted_at"`
		ScheduleType string `json:"schedule_type"`
	} `json:"detected_extensions"`
}

// Search implements the Source interface.
func (s *GoogleJobsSource) Search(ctx context.Context, query Query) ([]Job, error) {
	params := url.Values{}
	params.Set("engine", "google_jobs")
	params.Set("q", query.Keywords)
	params.Set("location", query.Location)
	params.Set("api_key", s.apiKey)
	params.Set("num", strconv.Itoa(min(query.MaxResults, googleJobsPageSize)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("google jobs: create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google jobs: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google jobs: unexpected status %d", resp.StatusCode)
	}

	var payload googleJobsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("google jobs: decode response: %w", err)
	}

	jobs := make([]Job, 0, len(payload.JobsResults))

	for _, item := range payload.JobsResults {
		jobs = append(jobs, Job{
			ID:          "google_" + item.JobID,
			Title:       sanitizeText(item.Title),
			Company:     sanitizeText(item.CompanyName),
			Location:    item.Location,
			Salary:      item.DetectedExtensions.Salary,
			Source:      s.Name(),
			URL:         item.ShareLink,
			Description: truncate(sanitizeText(item.Description), maxDescriptionLen),
			PostedAt:    item.DetectedExtensions.PostedAt,
			JobType:     item.DetectedExtensions.ScheduleType,
		})
	}

	return jobs, nil
}
