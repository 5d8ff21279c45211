package recipes

import (
	"context"
	"fmt"
	"strings"

	"github.com/dgallion1/voybot/internal/pipeline"
	"github.com/dgallion1/voybot/internal/wikitext"
)

const quickbarCity = "QuickbarCity"

func mapcodeRecipe() *pipeline.Recipe {
	return &pipeline.Recipe{
		Name:        MapcodeQuickbar,
		Description: "Replace a stale QuickbarCity Map code with the country code from Wikidata",
		Summary:     "Fix codice mappa (allineo con wikidata)",
		Flags:       minorBot,
		Selector:    category("Quickbar con codice mappa diverso da Wikidata"),
		Params:      pipeline.Params{"old": "uk"},
		Done: func(_ context.Context, doc *wikitext.Wikicode, pc *pipeline.PageContext) (bool, error) {
			return len(staleMapQuickbars(doc, pc.Params.Or("old", "uk"))) == 0, nil
		},
		Steps: []pipeline.Step{
			{Name: "fix_map_code", Run: fixMapCode},
		},
	}
}

func staleMapQuickbars(doc *wikitext.Wikicode, old string) []*wikitext.Template {
	var out []*wikitext.Template
	for _, t := range doc.TemplatesNamed(quickbarCity) {
		if v, ok := t.Lookup("Map"); ok && strings.EqualFold(v, old) {
			out = append(out, t)
		}
	}
	return out
}

func fixMapCode(ctx context.Context, doc *wikitext.Wikicode, pc *pipeline.PageContext) (bool, error) {
	old := pc.Params.Or("old", "uk")
	stale := staleMapQuickbars(doc, old)
	if len(stale) == 0 {
		return false, nil
	}
	id, err := pc.EntityID(ctx)
	if err != nil {
		return false, err
	}
	if id == "" {
		pc.Sink.Follow(pc.Title, "no wikidata item linked")
		return false, nil
	}
	code, ok, err := pc.Enricher.GetCountryISOCode(ctx, id)
	if err != nil {
		return false, err
	}
	if !ok {
		pc.Sink.Follow(pc.Title, fmt.Sprintf("no country code for %s", id))
		return false, nil
	}
	code = strings.ToUpper(code)
	if strings.EqualFold(code, old) {
		return false, nil
	}
	for _, t := range stale {
		t.Add("Map", code, wikitext.Before("Lat"))
	}
	pc.Note("Map %s -> %s", old, code)
	return true, nil
}
