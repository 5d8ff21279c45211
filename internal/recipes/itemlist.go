package recipes

import (
	"context"
	"fmt"

	"github.com/dgallion1/voybot/internal/pipeline"
	"github.com/dgallion1/voybot/internal/wikitext"
)

// itemTemplates are the entries of Citylist and Destinationlist.
var itemTemplates = []string{"Città", "Destinazione"}

func itemlistRecipe() *pipeline.Recipe {
	return &pipeline.Recipe{
		Name:        ItemlistWikidata,
		Description: "Complete itemlist entries with their Wikidata id and coordinates",
		Summary:     "Completo itemlists con codici wikidata",
		Flags:       minorBot,
		Selector:    category("Itemlist con errori di compilazione"),
		Done:        itemlistDone,
		Steps: []pipeline.Step{
			{Name: "enrich_items", Run: enrichItems},
		},
	}
}

func itemlistDone(_ context.Context, doc *wikitext.Wikicode, _ *pipeline.PageContext) (bool, error) {
	for _, t := range doc.TemplatesNamed(itemTemplates...) {
		if t.IsBlank("wikidata") {
			return false, nil
		}
	}
	return true, nil
}

// enrichItems resolves every entry lacking a wikidata id by its nome (and
// alt) and fills wikidata, then missing lat and long, before descrizione.
func enrichItems(ctx context.Context, doc *wikitext.Wikicode, pc *pipeline.PageContext) (bool, error) {
	changed := false
	for _, t := range doc.TemplatesNamed(itemTemplates...) {
		if !t.IsBlank("wikidata") {
			continue
		}
		name, _ := t.Lookup("nome")
		if name == "" {
			pc.Sink.Warning(pc.Title, fmt.Sprintf("%s entry without nome", t.Name()))
			continue
		}
		alt, _ := t.Lookup("alt")

		ent, err := pc.Enricher.ResolveEntity(ctx, name, alt, pc.Lang)
		if err != nil {
			return changed, err
		}
		switch {
		case ent.Disambiguation:
			pc.Sink.Follow(pc.Title, fmt.Sprintf("%s resolves to a disambiguation item", name))
			continue
		case !ent.Found():
			pc.Sink.Follow(pc.Title, fmt.Sprintf("no wikidata item for %s", name))
			continue
		}
		t.Add("wikidata", ent.ID, wikitext.Before("descrizione"))
		changed = true

		coords, err := pc.Enricher.GetCoordinates(ctx, ent.ID)
		if err != nil {
			return changed, err
		}
		if coords.Valid() && t.IsBlank("lat") && t.IsBlank("long") {
			t.Add("lat", coords.Lat, wikitext.Before("descrizione"))
			t.Add("long", coords.Long, wikitext.Before("descrizione"))
		}
		pc.Note("%s -> %s", name, ent.ID)
	}
	return changed, nil
}
