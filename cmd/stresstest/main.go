// Command stresstest runs a single business model stress test from the
// command line, without the API server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	config "stresstest-api/configs"
	"stresstest-api/pkg/groq"
	"stresstest-api/pkg/models"
	"stresstest-api/pkg/services"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var inputPath string
	var outputPath string

	cmd := &cobra.Command{
		Use:          "stresstest",
		Short:        "Business Model Stress Tester",
		Long:         "Analyzes a business model against adversarial scenarios and writes a markdown report.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(inputPath, outputPath)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Path to JSON file with business model details")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Path to save the output report")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func run(inputPath, outputPath string) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	cfg := config.LoadConfig()
	if cfg.GroqAPIKey == "" {
		return fmt.Errorf("GROQ_API_KEY not found in environment variables or .env file")
	}

	templates, err := config.LoadPromptTemplates(cfg.PromptTemplate)
	if err != nil {
		return err
	}

	model, err := loadBusinessModel(inputPath)
	if err != nil {
		return err
	}
	log.Printf("Loaded business model from %s", inputPath)

	client := groq.NewClient(cfg.GroqEndpoint, cfg.GroqAPIKey, cfg.GroqModel)
	service := services.NewStressTestService(client, services.NewPromptBuilder(templates))

	ctx := context.Background()

	scenarios := service.GenerateScenarios(ctx, model)
	printScenarios(scenarios)

	analysis := service.AnalyzeVulnerabilities(ctx, model, scenarios)
	report, err := service.GenerateReport(ctx, model, scenarios, analysis)
	if err != nil {
		return err
	}

	filename := outputPath
	if filename == "" {
		filename = fmt.Sprintf("%s_stress_test_%s.md", services.Slugify(model.Name), time.Now().Format("20060102"))
	}
	if err := os.WriteFile(filename, []byte(report), 0o644); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	fmt.Printf("\nStress test complete! Report saved to: %s\n", filename)
	return nil
}

func loadBusinessModel(path string) (*models.BusinessModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load business model: %w", err)
	}

	var model models.BusinessModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("failed to parse business model: %w", err)
	}
	if model.Name == "" {
		return nil, fmt.Errorf("business model name must not be empty")
	}
	return &model, nil
}

func printScenarios(scenarios *models.ScenarioSet) {
	fmt.Println("\nGenerated Stress Test Scenarios:")
	for _, category := range scenarios.Categories() {
		fmt.Printf("\n%s:\n", category)
		for i, scenario := range scenarios.Scenarios(category) {
			fmt.Printf("  %d. %s\n", i+1, scenario)
		}
	}
}
