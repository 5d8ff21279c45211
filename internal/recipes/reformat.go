package recipes

import (
	"context"

	"github.com/dgallion1/voybot/internal/pipeline"
	"github.com/dgallion1/voybot/internal/wikitext"
)

func reformatRecipe(o Options) *pipeline.Recipe {
	f := o.formatter()
	return &pipeline.Recipe{
		Name:        Reformat,
		Description: "Apply the template layout policy, heading normalization and section spacers",
		Summary:     "Formattazione template e sezioni",
		Flags:       minorBot,
		Steps: []pipeline.Step{
			{Name: "reformat", Run: func(_ context.Context, doc *wikitext.Wikicode, _ *pipeline.PageContext) (bool, error) {
				return f.Apply(doc), nil
			}},
		},
	}
}
