package ai

// ModelInfo describes one selectable model.
type ModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DefaultModelID is used when no model has been selected or persisted.
const DefaultModelID = "claude-3-5-haiku-latest"

// KnownModels is the fixed list of models the API exposes. Model selection
// is validated against this list; unknown identifiers are rejected.
var KnownModels = []ModelInfo{
	{
		ID:          "claude-3-5-haiku-latest",
		Name:        "Claude 3.5 Haiku",
		Description: "Fast and inexpensive, good for quick daily planning",
	},
	{
		ID:          "claude-sonnet-4-20250514",
		Name:        "Claude Sonnet 4",
		Description: "Balanced quality and speed for schedules and coaching",
	},
	{
		ID:          "claude-opus-4-20250514",
		Name:        "Claude Opus 4",
		Description: "Highest quality suggestions, slower and pricier",
	},
}

// IsKnownModel reports whether id is in the fixed model list.
func IsKnownModel(id string) bool {
	for _, m := range KnownModels {
		if m.ID == id {
			return true
		}
	}
	return false
}
