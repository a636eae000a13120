package charts

import (
	"fmt"

	"insightchat-backend/internal/models"
)

// Extraction is a model reply split into renderable parts.
type Extraction struct {
	Prose       string
	Suggestions []models.ChartSuggestion
	Tables      []models.Table
	RawBlock    string
	// Problems lists why candidates were dropped. It is for logs only.
	Problems []error
}

// Extract runs preprocessing, validation and role inference over a reply.
// A bad candidate is dropped on its own; siblings and prose are unaffected.
func Extract(text string) Extraction {
	pre := Preprocess(text)
	out := Extraction{
		Prose:    pre.Prose,
		RawBlock: pre.FirstBlock,
		Tables:   ExtractTables(pre.Prose),
	}

	for i, c := range pre.Candidates {
		spec, err := Validate(c)
		if err != nil {
			out.Problems = append(out.Problems, fmt.Errorf("%s candidate %d: %w", c.origin(), i, err))
			continue
		}
		roles := InferRoles(spec.Data, spec.Type == models.ChartScatter)
		if !roles.Renderable() {
			out.Problems = append(out.Problems, fmt.Errorf("%s candidate %d: %s", c.origin(), i, roles.Kind))
			continue
		}
		out.Suggestions = append(out.Suggestions, models.ChartSuggestion{ChartSpec: spec, Roles: roles})
	}
	return out
}
