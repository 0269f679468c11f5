package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"stresstest-api/pkg/models"
)

// ExtractionError reports that no JSON object could be recovered from an LLM
// response.
type ExtractionError struct {
	Message string
	Err     error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("extraction failed: %s", e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

var (
	whitespaceRuns = regexp.MustCompile(`\s+`)
	bareKeys       = regexp.MustCompile(`(\w+):`)
)

// freeTextCategories are the category headers recognized by the free-text
// fallback parser, matching the primary scenario prompt.
var freeTextCategories = []string{
	"Market Conditions",
	"Competitor Moves",
	"Supply Chain Disruptions",
	"Regulatory Changes",
	"Technology Shifts",
	"Consumer Behavior Changes",
}

// ExtractJSON locates a JSON object embedded in free-form LLM text, applies a
// best-effort repair pass, and parses it strictly. The repair is heuristic:
// it collapses whitespace, swaps single quotes for double quotes, and quotes
// bare identifier keys. It does not attempt to fix quoting inside string
// values and can silently corrupt them; this is a known limitation.
func ExtractJSON(raw string) (map[string]interface{}, error) {
	span, err := extractJSONSpan(raw)
	if err != nil {
		return nil, err
	}

	var result map[string]interface{}
	if err := json.Unmarshal([]byte(span), &result); err != nil {
		return nil, &ExtractionError{Message: "invalid JSON response", Err: err}
	}
	return result, nil
}

// ExtractScenarioSet recovers a scenario set from LLM text, preserving the
// category order of the underlying JSON document.
func ExtractScenarioSet(raw string) (*models.ScenarioSet, error) {
	span, err := extractJSONSpan(raw)
	if err != nil {
		return nil, err
	}

	set := models.NewScenarioSet()
	if err := json.Unmarshal([]byte(span), set); err != nil {
		return nil, &ExtractionError{Message: "invalid JSON response", Err: err}
	}
	return set, nil
}

// ExtractChunkAnalysis recovers one chunk's analysis result from LLM text.
// This is the validation boundary for the analysis shape: a response that
// parses but does not fit the expected structure fails here.
func ExtractChunkAnalysis(raw string) (*models.ChunkAnalysis, error) {
	span, err := extractJSONSpan(raw)
	if err != nil {
		return nil, err
	}

	var chunk models.ChunkAnalysis
	if err := json.Unmarshal([]byte(span), &chunk); err != nil {
		return nil, &ExtractionError{Message: "invalid JSON response", Err: err}
	}
	return &chunk, nil
}

// extractJSONSpan returns the repaired text between the first '{' and the
// last '}' of the input, after validating that a span exists.
func extractJSONSpan(raw string) (string, error) {
	text := stripCodeFences(raw)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", &ExtractionError{Message: "no JSON found"}
	}

	span := text[start : end+1]
	span = whitespaceRuns.ReplaceAllString(span, " ")
	span = strings.ReplaceAll(span, "'", `"`)
	span = bareKeys.ReplaceAllString(span, `"${1}":`)
	return span, nil
}

// stripCodeFences removes a surrounding markdown code block, if present, so
// the span scan works on the fenced content.
func stripCodeFences(content string) string {
	if strings.Contains(content, "```json") {
		start := strings.Index(content, "```json") + 7
		end := strings.LastIndex(content, "```")
		if end > start {
			return strings.TrimSpace(content[start:end])
		}
	} else if strings.Contains(content, "```") {
		start := strings.Index(content, "```") + 3
		end := strings.LastIndex(content, "```")
		if end > start {
			return strings.TrimSpace(content[start:end])
		}
	}
	return content
}

// ExtractScenariosFromText is the last-resort fallback for scenario
// generation when JSON extraction fails. It scans the response line by line:
// a line containing one of the known category names opens that category, and
// subsequent bulleted or numbered lines become its scenarios. Lines before
// the first category header are discarded. The result may be empty; this
// function never fails.
func ExtractScenariosFromText(raw string) *models.ScenarioSet {
	result := models.NewScenarioSet()
	currentCategory := ""

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		matched := false
		for _, category := range freeTextCategories {
			if strings.Contains(strings.ToLower(line), strings.ToLower(category)) {
				currentCategory = category
				result.Set(category, []string{})
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		if currentCategory == "" || !isScenarioLine(line) {
			continue
		}

		// Drop the leading bullet or number token
		scenario := line
		if idx := strings.Index(line, " "); idx >= 0 {
			scenario = line[idx+1:]
		}
		result.Add(currentCategory, scenario)
	}

	return result
}

// isScenarioLine reports whether a line starts with a bullet marker or a
// digit followed by '.', ')' or ':'.
func isScenarioLine(line string) bool {
	if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "•") || strings.HasPrefix(line, "*") {
		return true
	}
	runes := []rune(line)
	if len(runes) >= 2 && runes[0] >= '0' && runes[0] <= '9' {
		switch runes[1] {
		case '.', ')', ':':
			return true
		}
	}
	return false
}
