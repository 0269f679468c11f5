package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"stresstest-api/pkg/models"
)

// riskRegisterHeaders are the columns of the exported risk register.
var riskRegisterHeaders = []string{
	"Category", "Scenario", "Impact", "Likelihood", "Risk Score",
	"Vulnerabilities", "Contingency Plans",
}

// BuildRiskRegister renders a combined vulnerability analysis as an Excel
// workbook with one row per analyzed scenario. Rows are sorted by category
// and scenario so repeated exports of the same analysis are identical.
func BuildRiskRegister(analysis *models.VulnerabilityAnalysis) (*excelize.File, error) {
	f := excelize.NewFile()

	const sheet = "Risk Register"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to create risk register sheet: %w", err)
	}

	for col, header := range riskRegisterHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
	}

	categories := make([]string, 0, len(analysis.Scenarios))
	for category := range analysis.Scenarios {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	row := 2
	for _, category := range categories {
		scenarios := analysis.Scenarios[category]

		names := make([]string, 0, len(scenarios))
		for name := range scenarios {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			entry := scenarios[name]
			values := []interface{}{
				category,
				name,
				entry.Impact,
				entry.Likelihood,
				entry.RiskScore,
				strings.Join(entry.Vulnerabilities, "; "),
				strings.Join(entry.ContingencyPlans, "; "),
			}
			for col, value := range values {
				cell, err := excelize.CoordinatesToCellName(col+1, row)
				if err != nil {
					return nil, err
				}
				if err := f.SetCellValue(sheet, cell, value); err != nil {
					return nil, err
				}
			}
			row++
		}
	}

	return f, nil
}
