package services

import (
	"context"
	"fmt"
	"log"

	"stresstest-api/pkg/groq"
	"stresstest-api/pkg/models"
)

// Analysis calls use a lower temperature and a smaller output cap than the
// default model configuration to keep the JSON output consistent.
const (
	analysisMaxTokens   = 2000
	analysisTemperature = 0.5
)

// ChatCompleter is the gateway capability the pipeline needs: send role-tagged
// messages, get the completion text back.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []groq.ChatMessage, maxTokens int, temperature float32) (string, error)
}

// StressTestService runs the three-stage stress-test pipeline: generate
// scenarios, analyze vulnerabilities per chunk, synthesize the report.
type StressTestService struct {
	gateway ChatCompleter
	prompts *PromptBuilder
}

// NewStressTestService creates a stress test service.
func NewStressTestService(gateway ChatCompleter, prompts *PromptBuilder) *StressTestService {
	if prompts == nil {
		prompts = NewPromptBuilder(nil)
	}
	return &StressTestService{
		gateway: gateway,
		prompts: prompts,
	}
}

// StressTestResult carries the report together with the intermediate data
// the serving layer exposes (the risk-register export reads the analysis).
type StressTestResult struct {
	Report    string
	Scenarios *models.ScenarioSet
	Analysis  *models.VulnerabilityAnalysis
}

// Run executes the full pipeline. Stages 1 and 2 degrade on failure; only a
// stage-3 gateway failure is fatal.
func (s *StressTestService) Run(ctx context.Context, model *models.BusinessModel) (*StressTestResult, error) {
	log.Printf("Running stress test for %q", model.Name)

	scenarios := s.GenerateScenarios(ctx, model)
	log.Printf("Generated %d scenarios in %d categories", scenarios.TotalScenarios(), scenarios.Len())

	analysis := s.AnalyzeVulnerabilities(ctx, model, scenarios)
	if len(analysis.Errors) > 0 {
		log.Printf("Analysis completed with %d failed chunks", len(analysis.Errors))
	}

	report, err := s.GenerateReport(ctx, model, scenarios, analysis)
	if err != nil {
		return nil, err
	}

	return &StressTestResult{
		Report:    report,
		Scenarios: scenarios,
		Analysis:  analysis,
	}, nil
}

// RunStressTest executes the full pipeline and returns the markdown report.
func (s *StressTestService) RunStressTest(ctx context.Context, model *models.BusinessModel) (string, error) {
	result, err := s.Run(ctx, model)
	if err != nil {
		return "", err
	}
	return result.Report, nil
}

// GenerateScenarios runs stage 1. It never fails: a gateway error falls back
// to the default scenario set, and an unparseable response falls back to
// free-text parsing before the default set.
func (s *StressTestService) GenerateScenarios(ctx context.Context, model *models.BusinessModel) *models.ScenarioSet {
	log.Println("Generating stress test scenarios...")

	messages := []groq.ChatMessage{
		{Role: "system", Content: s.prompts.ScenarioSystem()},
		{Role: "user", Content: s.prompts.BuildScenarioPrompt(model)},
	}

	raw, err := s.gateway.Complete(ctx, messages, groq.DefaultMaxTokens, groq.DefaultTemperature)
	if err != nil {
		log.Printf("Scenario generation failed, using default scenarios: %v", err)
		return DefaultScenarioSet(model.Industry)
	}

	scenarios, err := ExtractScenarioSet(raw)
	if err != nil {
		log.Printf("Error parsing scenarios: %v", err)
		scenarios = ExtractScenariosFromText(raw)
	}

	if scenarios.Len() == 0 {
		return DefaultScenarioSet(model.Industry)
	}
	return scenarios
}

// AnalyzeVulnerabilities runs stage 2. Each chunk is analyzed independently;
// a failed chunk records its error message and the stage moves on, so one bad
// chunk never aborts the analysis.
func (s *StressTestService) AnalyzeVulnerabilities(ctx context.Context, model *models.BusinessModel, scenarios *models.ScenarioSet) *models.VulnerabilityAnalysis {
	combined := models.NewVulnerabilityAnalysis()
	chunks := ChunkScenarios(scenarios, DefaultChunkUnits)

	for i, chunk := range chunks {
		log.Printf("Analyzing scenario chunk %d/%d...", i+1, len(chunks))

		messages := []groq.ChatMessage{
			{Role: "system", Content: s.prompts.AnalysisSystem()},
			{Role: "user", Content: s.prompts.BuildAnalysisPrompt(model, chunk)},
		}

		raw, err := s.gateway.Complete(ctx, messages, analysisMaxTokens, analysisTemperature)
		if err != nil {
			log.Printf("Error processing chunk: %v", err)
			combined.Errors = append(combined.Errors, err.Error())
			continue
		}

		chunkAnalysis, err := ExtractChunkAnalysis(raw)
		if err != nil {
			log.Printf("Error processing chunk: %v", err)
			combined.Errors = append(combined.Errors, err.Error())
			continue
		}

		combined.Merge(chunkAnalysis)
	}

	return combined
}

// GenerateReport runs stage 3. The completion text is the final markdown
// report, taken verbatim; a gateway failure here propagates to the caller.
func (s *StressTestService) GenerateReport(ctx context.Context, model *models.BusinessModel, scenarios *models.ScenarioSet, analysis *models.VulnerabilityAnalysis) (string, error) {
	log.Println("Generating comprehensive report...")

	messages := []groq.ChatMessage{
		{Role: "system", Content: s.prompts.ReportSystem()},
		{Role: "user", Content: s.prompts.BuildReportPrompt(model, scenarios, analysis)},
	}

	report, err := s.gateway.Complete(ctx, messages, groq.DefaultMaxTokens, groq.DefaultTemperature)
	if err != nil {
		return "", fmt.Errorf("report generation failed: %w", err)
	}
	return report, nil
}

// DefaultScenarioSet is the fixed fallback used when scenario generation
// fails outright, templated with the model's industry.
func DefaultScenarioSet(industry string) *models.ScenarioSet {
	set := models.NewScenarioSet()
	set.Set("market_conditions", []string{
		fmt.Sprintf("Severe economic downturn reduces demand across the %s industry", industry),
		fmt.Sprintf("A sudden market shift changes customer expectations in %s", industry),
		fmt.Sprintf("Pricing pressure compresses margins throughout the %s market", industry),
	})
	set.Set("competitor_moves", []string{
		fmt.Sprintf("A well-funded new entrant targets the %s market with aggressive pricing", industry),
		"A major competitor launches a directly competing product",
		"Industry consolidation leaves competitors with greater scale",
	})
	set.Set("supply_chain", []string{
		"A key supplier fails or exits the market",
		"Input costs rise sharply due to global supply disruption",
		"Logistics delays extend delivery times beyond customer tolerance",
	})
	set.Set("regulatory", []string{
		fmt.Sprintf("New regulation raises compliance costs in the %s industry", industry),
		"Data protection requirements restrict current business practices",
		"Tax or tariff changes alter the cost structure",
	})
	set.Set("technology", []string{
		fmt.Sprintf("A disruptive technology makes current %s offerings less relevant", industry),
		"A serious security incident damages customer trust",
		"Legacy systems fail to keep pace with operational demands",
	})
	return set
}
