package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// BusinessModel is the structured description of a company submitted for a
// stress test. Name is used as the report filename key and must be non-empty.
type BusinessModel struct {
	Name              string            `json:"name" binding:"required"`
	Industry          string            `json:"industry" binding:"required"`
	TargetMarket      string            `json:"target_market" binding:"required"`
	ValueProposition  string            `json:"value_proposition" binding:"required"`
	RevenueStreams    []string          `json:"revenue_streams" binding:"required"`
	CostStructure     []string          `json:"cost_structure" binding:"required"`
	KeyResources      []string          `json:"key_resources" binding:"required"`
	KeyPartners       []string          `json:"key_partners" binding:"required"`
	Competitors       []string          `json:"competitors" binding:"required"`
	CurrentChallenges string            `json:"current_challenges" binding:"required"`
	Financials        map[string]string `json:"financials,omitempty"`
}

// ScenarioSet maps scenario categories to lists of scenario descriptions.
// Category order is preserved (insertion order) because both chunking and
// prompt embedding must be deterministic; a plain Go map would lose it.
type ScenarioSet struct {
	categories []string
	scenarios  map[string][]string
}

// NewScenarioSet creates an empty scenario set.
func NewScenarioSet() *ScenarioSet {
	return &ScenarioSet{scenarios: make(map[string][]string)}
}

// Set replaces the scenarios for a category, registering the category on
// first use.
func (s *ScenarioSet) Set(category string, scenarios []string) {
	if s.scenarios == nil {
		s.scenarios = make(map[string][]string)
	}
	if _, exists := s.scenarios[category]; !exists {
		s.categories = append(s.categories, category)
	}
	s.scenarios[category] = scenarios
}

// Add appends a scenario to a category, registering the category on first use.
func (s *ScenarioSet) Add(category string, scenario string) {
	if s.scenarios == nil {
		s.scenarios = make(map[string][]string)
	}
	if _, exists := s.scenarios[category]; !exists {
		s.categories = append(s.categories, category)
		s.scenarios[category] = []string{}
	}
	s.scenarios[category] = append(s.scenarios[category], scenario)
}

// Categories returns the category names in insertion order.
func (s *ScenarioSet) Categories() []string {
	return s.categories
}

// Scenarios returns the scenario list for a category.
func (s *ScenarioSet) Scenarios(category string) []string {
	return s.scenarios[category]
}

// Len returns the number of categories.
func (s *ScenarioSet) Len() int {
	return len(s.categories)
}

// TotalScenarios returns the number of scenarios across all categories.
func (s *ScenarioSet) TotalScenarios() int {
	total := 0
	for _, list := range s.scenarios {
		total += len(list)
	}
	return total
}

// MarshalJSON serializes the set as a JSON object with categories in
// insertion order.
func (s *ScenarioSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, category := range s.categories {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(category)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		list := s.scenarios[category]
		if list == nil {
			list = []string{}
		}
		value, err := json.Marshal(list)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into the set, preserving the document's
// key order. Values may be arrays of strings or a single string; other value
// shapes are skipped rather than rejected, since scenario payloads come from
// an LLM and downstream stages treat the set as opaque string-keyed data.
func (s *ScenarioSet) UnmarshalJSON(data []byte) error {
	s.categories = nil
	s.scenarios = make(map[string][]string)

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("scenario set: expected JSON object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("scenario set: non-string key %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}

		var list []string
		if err := json.Unmarshal(raw, &list); err == nil {
			s.Set(key, list)
			continue
		}
		var single string
		if err := json.Unmarshal(raw, &single); err == nil {
			s.Set(key, []string{single})
		}
	}

	// Consume the closing brace
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// ScenarioAnalysis is the per-scenario result of the vulnerability analysis
// stage.
type ScenarioAnalysis struct {
	Vulnerabilities  []string `json:"vulnerabilities"`
	Impact           string   `json:"impact"`
	Likelihood       string   `json:"likelihood"`
	RiskScore        int      `json:"risk_score"`
	ContingencyPlans []string `json:"contingency_plans"`
}

// ChunkAnalysis is the shape each analysis call is asked to return for one
// scenario chunk.
type ChunkAnalysis struct {
	Scenarios    map[string]map[string]ScenarioAnalysis `json:"scenarios"`
	ChunkSummary string                                 `json:"chunk_summary"`
}

// VulnerabilityAnalysis is the combined result merged across all chunks.
// Errors collects per-chunk failure messages; a populated Errors list with
// empty Scenarios means every chunk failed but the report stage still runs.
type VulnerabilityAnalysis struct {
	Scenarios map[string]map[string]ScenarioAnalysis `json:"scenarios"`
	Summary   []string                               `json:"summary"`
	Errors    []string                               `json:"errors,omitempty"`
}

// NewVulnerabilityAnalysis creates an empty combined analysis.
func NewVulnerabilityAnalysis() *VulnerabilityAnalysis {
	return &VulnerabilityAnalysis{
		Scenarios: make(map[string]map[string]ScenarioAnalysis),
		Summary:   []string{},
	}
}

// Merge folds one chunk's result into the combined analysis. Categories merge
// shallowly at the category key; chunks partition distinct categories so
// collisions should not occur, but last write wins if they do.
func (va *VulnerabilityAnalysis) Merge(chunk *ChunkAnalysis) {
	for category, scenarios := range chunk.Scenarios {
		va.Scenarios[category] = scenarios
	}
	if chunk.ChunkSummary != "" {
		va.Summary = append(va.Summary, chunk.ChunkSummary)
	}
}

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job tracks one asynchronous stress-test run. A job is mutated exactly once
// after creation, at its terminal transition.
type Job struct {
	ID          string     `json:"job_id"`
	Status      JobStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`
	ReportURL   string     `json:"report_url,omitempty"`
	ReportFile  string     `json:"-"`
	Error       string     `json:"error,omitempty"`
}

// StressTestResponse is the wire shape for submit and status endpoints.
type StressTestResponse struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	ReportURL string `json:"report_url,omitempty"`
}
