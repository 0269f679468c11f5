package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PromptTemplate holds the overridable parts of one LLM prompt: the system
// message and the instruction block that precedes the embedded data.
type PromptTemplate struct {
	System       string `yaml:"system"`
	Instructions string `yaml:"instructions"`
}

// PromptTemplates collects the templates for the three pipeline calls.
type PromptTemplates struct {
	Scenario PromptTemplate `yaml:"scenario"`
	Analysis PromptTemplate `yaml:"analysis"`
	Report   PromptTemplate `yaml:"report"`
}

// DefaultPromptTemplates returns the built-in prompt templates.
func DefaultPromptTemplates() *PromptTemplates {
	return &PromptTemplates{
		Scenario: PromptTemplate{
			System: "You are a business analyst expert.",
			Instructions: `Based on the following business model, generate realistic stress test scenarios in these categories:
1. Market Conditions (economic downturns, market shifts, etc.)
2. Competitor Moves (new entrants, pricing strategies, etc.)
3. Supply Chain Disruptions
4. Regulatory Changes
5. Technology Shifts
6. Consumer Behavior Changes

For each category, provide 3-5 specific, realistic scenarios that could impact this business.`,
		},
		Analysis: PromptTemplate{
			System: "You are a business analyst. Respond only with valid JSON.",
			Instructions: `Analyze this portion of the business model scenarios.
Provide analysis in strict JSON format.`,
		},
		Report: PromptTemplate{
			System: "You are a business analyst expert.",
			Instructions: `Create a comprehensive business model stress test report based on the following information:`,
		},
	}
}

// LoadPromptTemplates reads template overrides from a YAML file and merges
// them over the defaults. An empty path returns the defaults unchanged.
func LoadPromptTemplates(path string) (*PromptTemplates, error) {
	templates := DefaultPromptTemplates()
	if path == "" {
		return templates, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt template file: %w", err)
	}

	var overrides PromptTemplates
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse prompt template file: %w", err)
	}

	mergeTemplate(&templates.Scenario, overrides.Scenario)
	mergeTemplate(&templates.Analysis, overrides.Analysis)
	mergeTemplate(&templates.Report, overrides.Report)

	return templates, nil
}

func mergeTemplate(base *PromptTemplate, override PromptTemplate) {
	if override.System != "" {
		base.System = override.System
	}
	if override.Instructions != "" {
		base.Instructions = override.Instructions
	}
}
