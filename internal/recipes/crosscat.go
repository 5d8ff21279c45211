package recipes

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dgallion1/voybot/internal/pipeline"
	"github.com/dgallion1/voybot/internal/wikitext"
)

// templateCrossCategoryRecipe lists the selected pages that are in the
// "category" parameter, or with negative=true the ones that are not. It
// never edits; the list is the run's follow-ups.
func templateCrossCategoryRecipe() *pipeline.Recipe {
	return &pipeline.Recipe{
		Name:        TemplateCrossCategory,
		Description: "List the users of a template that are (or are not) in a category",
		Flags:       minorBot,
		Params: pipeline.Params{
			"negative": "false",
		},
		Steps: []pipeline.Step{
			{Name: "cross_category", Run: crossCategory},
		},
	}
}

func crossCategory(ctx context.Context, _ *wikitext.Wikicode, pc *pipeline.PageContext) (bool, error) {
	target := pc.Params.Get("category")
	if target == "" {
		return false, fmt.Errorf("%w: category parameter is required", pipeline.ErrFatal)
	}
	negative, err := strconv.ParseBool(pc.Params.Or("negative", "false"))
	if err != nil {
		return false, fmt.Errorf("%w: negative: %v", pipeline.ErrFatal, err)
	}

	in, err := pc.InCategory(ctx, target)
	if err != nil {
		return false, err
	}
	if in == negative {
		return false, nil
	}
	if negative {
		pc.Sink.Follow(pc.Title, "not in "+target)
	} else {
		pc.Sink.Follow(pc.Title, "in "+target)
	}
	return false, nil
}
