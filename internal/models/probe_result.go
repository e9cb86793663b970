// Package models holds the result types shared by the probe, the
// benchmarker and the exporters.
package models

import (
	"time"

	"github.com/moamenhredeen/oasgate/internal/schema"
)

// ProbeResult is the outcome of sending one generated request to a
// running server and checking the response against the contract
type ProbeResult struct {
	Method      string `json:"method" yaml:"method"`
	Path        string `json:"path" yaml:"path"`
	URL         string `json:"url" yaml:"url"`
	OperationID string `json:"operation_id" yaml:"operation_id"`

	Passed bool   `json:"passed" yaml:"passed"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`

	StatusCode   int           `json:"status_code" yaml:"status_code"`
	ResponseTime time.Duration `json:"response_time_ns" yaml:"response_time_ns"`

	// Violations are the response body mismatches, if any
	Violations []schema.Violation `json:"violations,omitempty" yaml:"violations,omitempty"`
}

// ProbeSummary aggregates the results of a probe run
type ProbeSummary struct {
	Total   int           `json:"total" yaml:"total"`
	Passed  int           `json:"passed" yaml:"passed"`
	Failed  int           `json:"failed" yaml:"failed"`
	Results []ProbeResult `json:"results" yaml:"results"`
}

// AddResult adds a probe result to the summary
func (s *ProbeSummary) AddResult(result ProbeResult) {
	s.Total++
	s.Results = append(s.Results, result)
	if result.Passed {
		s.Passed++
	} else {
		s.Failed++
	}
}
