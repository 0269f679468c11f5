package services

import (
	"encoding/json"
	"fmt"

	config "stresstest-api/configs"
	"stresstest-api/pkg/models"
)

// PromptBuilder renders business-model data into the fixed text prompts used
// by the three pipeline calls. All methods are pure: identical inputs produce
// byte-identical prompts, which the tests rely on.
type PromptBuilder struct {
	templates *config.PromptTemplates
}

// NewPromptBuilder creates a prompt builder. A nil templates argument uses
// the built-in defaults.
func NewPromptBuilder(templates *config.PromptTemplates) *PromptBuilder {
	if templates == nil {
		templates = config.DefaultPromptTemplates()
	}
	return &PromptBuilder{templates: templates}
}

// ScenarioSystem returns the system message for scenario generation.
func (pb *PromptBuilder) ScenarioSystem() string {
	return pb.templates.Scenario.System
}

// AnalysisSystem returns the system message for vulnerability analysis.
func (pb *PromptBuilder) AnalysisSystem() string {
	return pb.templates.Analysis.System
}

// ReportSystem returns the system message for report synthesis.
func (pb *PromptBuilder) ReportSystem() string {
	return pb.templates.Report.System
}

// BuildScenarioPrompt renders the stage-1 scenario generation prompt.
func (pb *PromptBuilder) BuildScenarioPrompt(model *models.BusinessModel) string {
	return fmt.Sprintf(`%s

Business Model Details:
%s

Format your response as a JSON object with categories as keys and lists of scenarios as values.`,
		pb.templates.Scenario.Instructions, jsonBlock(model))
}

// BuildAnalysisPrompt renders the stage-2 analysis prompt for one scenario
// chunk.
func (pb *PromptBuilder) BuildAnalysisPrompt(model *models.BusinessModel, chunk *models.ScenarioSet) string {
	return fmt.Sprintf(`%s

Business Model:
%s

Scenarios to Analyze:
%s

Format your response EXACTLY as this JSON structure:
{
    "scenarios": {
        "category_name": {
            "scenario_description": {
                "vulnerabilities": ["list"],
                "impact": "High/Medium/Low",
                "likelihood": "High/Medium/Low",
                "risk_score": 1-10,
                "contingency_plans": ["list"]
            }
        }
    },
    "chunk_summary": "Brief summary of key risks in this chunk"
}`,
		pb.templates.Analysis.Instructions, jsonBlock(model), jsonBlock(chunk))
}

// BuildReportPrompt renders the stage-3 report synthesis prompt from the
// original model, the full scenario set, and the combined analysis.
func (pb *PromptBuilder) BuildReportPrompt(model *models.BusinessModel, scenarios *models.ScenarioSet, analysis *models.VulnerabilityAnalysis) string {
	return fmt.Sprintf(`%s

Business Model:
%s

Scenarios Tested:
%s

Analysis Results:
%s

The report should include:
1. Executive Summary
2. Business Model Overview
3. Methodology
4. Key Findings by Scenario Category
5. Risk Heat Map (describe which scenarios have highest impact/likelihood)
6. Strategic Recommendations
7. Implementation Roadmap

Format the report in markdown for readability.`,
		pb.templates.Report.Instructions, jsonBlock(model), jsonBlock(scenarios), jsonBlock(analysis))
}

// jsonBlock serializes a value as two-space-indented JSON for embedding in a
// prompt. Struct field order and encoding/json's sorted map keys keep the
// output stable across calls.
func jsonBlock(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
