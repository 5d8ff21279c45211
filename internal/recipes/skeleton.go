package recipes

import (
	"context"
	"fmt"

	"github.com/dgallion1/voybot/internal/pipeline"
	"github.com/dgallion1/voybot/internal/section"
	"github.com/dgallion1/voybot/internal/wikitext"
)

func skeletonRecipe(o Options) *pipeline.Recipe {
	return &pipeline.Recipe{
		Name:        SectionSkeleton,
		Description: "Check the section layout and add missing subsection headings",
		Summarize: func(p pipeline.Params) string {
			return "Aggiungo le sottosezioni mancanti (modello " + p.Or("policy", section.CityPolicy.Name) + ")"
		},
		Flags:    minorBot,
		Selector: category("Città"),
		Params:   pipeline.Params{"policy": section.CityPolicy.Name},
		Steps: []pipeline.Step{
			{Name: "insert_missing_subsections", Run: func(ctx context.Context, doc *wikitext.Wikicode, pc *pipeline.PageContext) (bool, error) {
				name := pc.Params.Or("policy", section.CityPolicy.Name)
				p, ok := o.policy(name)
				if !ok {
					return false, fmt.Errorf("%w: unknown layout %q", pipeline.ErrFatal, name)
				}
				return insertMissingSubsections(doc, pc, p)
			}},
		},
	}
}

// insertMissingSubsections reports every layout violation and fixes the
// missing subsections, the only kind that can be repaired without moving
// content.
func insertMissingSubsections(doc *wikitext.Wikicode, pc *pipeline.PageContext, p section.Policy) (bool, error) {
	level := p.Level
	if level == 0 {
		level = 2
	}
	changed := false
	for _, v := range section.ValidateStructure(doc, p) {
		pc.Sink.Violation(pc.Title, v)
		if v.Kind != section.MissingSubsectionKind {
			continue
		}
		parent, err := section.Find(doc, v.Location, level)
		if err != nil {
			return changed, err
		}
		if _, err := section.InsertSubsection(parent, v.Detail, p.Subsections[v.Location]); err != nil {
			return changed, err
		}
		pc.Note("added %s > %s", v.Location, v.Detail)
		changed = true
	}
	return changed, nil
}
