package core

import "time"

// Report summarizes a finished run. It is assembled from the terminal state
// once the executor stops, whether the run succeeded or hit a terminal error.
type Report struct {
	WorkflowType   string         `json:"workflow_type"`
	SessionID      string         `json:"session_id"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     time.Time      `json:"finished_at"`
	Duration       time.Duration  `json:"duration"`
	Steps          int            `json:"steps"`
	ErrorCount     int            `json:"error_count"`
	TokensUsed     int            `json:"tokens_used"`
	ExecutedAgents []string       `json:"executed_agents"` // Completion order
	Results        map[string]any `json:"results"`         // "<agent>_result" scratch projection
	Success        bool           `json:"success"`
	Error          string         `json:"error,omitempty"`
}

// BuildReport projects a terminal state into a report. A nil runErr marks the
// run successful; otherwise the error message is carried verbatim.
func BuildReport(s State, steps int, runErr error) *Report {
	finished := time.Now().UTC()

	r := &Report{
		WorkflowType:   s.WorkflowType,
		SessionID:      s.SessionID,
		StartedAt:      s.StartedAt,
		FinishedAt:     finished,
		Duration:       finished.Sub(s.StartedAt),
		Steps:          steps,
		ErrorCount:     s.ErrorCount,
		TokensUsed:     s.TokensUsed,
		ExecutedAgents: append([]string{}, s.CompletedAgents...),
		Results:        s.Results(),
		Success:        runErr == nil,
	}

	if runErr != nil {
		r.Error = runErr.Error()
	}

	return r
}
