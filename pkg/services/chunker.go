package services

import (
	"fmt"

	"stresstest-api/pkg/models"
)

// DefaultChunkUnits is the per-chunk size budget for the analysis stage.
const DefaultChunkUnits = 1500

// ChunkScenarios splits a scenario set into fragments that each fit a rough
// token budget, so analysis calls stay within the model's context limits.
// Sizes are estimated at four characters per unit; the heuristic is coarse
// backpressure, not a context-window guarantee.
//
// Fragments partition the input: every category appears in exactly one
// fragment, in the set's insertion order, and a category whose own size
// exceeds the budget still gets a fragment of its own.
func ChunkScenarios(set *models.ScenarioSet, maxUnits int) []*models.ScenarioSet {
	if maxUnits <= 0 {
		maxUnits = DefaultChunkUnits
	}

	var chunks []*models.ScenarioSet
	current := models.NewScenarioSet()
	currentSize := 0

	for _, category := range set.Categories() {
		scenarios := set.Scenarios(category)
		size := len(fmt.Sprint(scenarios)) / 4

		if currentSize+size > maxUnits && current.Len() > 0 {
			chunks = append(chunks, current)
			current = models.NewScenarioSet()
			currentSize = 0
		}

		current.Set(category, scenarios)
		currentSize += size
	}

	if current.Len() > 0 {
		chunks = append(chunks, current)
	}

	return chunks
}
