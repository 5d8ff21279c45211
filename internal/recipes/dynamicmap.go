package recipes

import (
	"context"
	"strconv"

	"github.com/dgallion1/voybot/internal/pipeline"
	"github.com/dgallion1/voybot/internal/wikitext"
)

// zoomByType is the MappaDinamica zoom per article category. The first
// category the page belongs to wins.
var zoomByType = []struct {
	category string
	zoom     int
}{
	{"Città", 12},
	{"Regione", 6},
	{"Distretto", 10},
	{"Parco", 10},
	{"Sito archeologico", 10},
}

func dynamicMapRecipe() *pipeline.Recipe {
	return &pipeline.Recipe{
		Name:        DynamicMapCoordinates,
		Description: "Fill MappaDinamica coordinates and zoom from Wikidata",
		Summary:     "Aggiungo le coordinate alla mappa dinamica",
		Flags:       minorBot,
		Selector:    category("Mappa dinamica senza coordinate"),
		Done: func(_ context.Context, doc *wikitext.Wikicode, _ *pipeline.PageContext) (bool, error) {
			return len(mapsWithoutCoordinates(doc)) == 0, nil
		},
		Steps: []pipeline.Step{
			{Name: "add_map_coordinates", Run: addMapCoordinates},
		},
	}
}

func mapsWithoutCoordinates(doc *wikitext.Wikicode) []*wikitext.Template {
	var out []*wikitext.Template
	for _, t := range doc.TemplatesNamed(dynamicMap) {
		if t.IsBlank("Lat") || t.IsBlank("Long") {
			out = append(out, t)
		}
	}
	return out
}

func addMapCoordinates(ctx context.Context, doc *wikitext.Wikicode, pc *pipeline.PageContext) (bool, error) {
	maps := mapsWithoutCoordinates(doc)
	if len(maps) == 0 {
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
	coords, err := pc.Enricher.GetCoordinates(ctx, id)
	if err != nil {
		return false, err
	}
	if !coords.Valid() {
		pc.Sink.Follow(pc.Title, "wikidata item "+id+" has no coordinates")
		return false, nil
	}

	zoom := 0
	for _, zt := range zoomByType {
		in, err := pc.InCategory(ctx, zt.category)
		if err != nil {
			return false, err
		}
		if in {
			zoom = zt.zoom
			break
		}
	}

	for _, t := range maps {
		t.Add("Lat", coords.Lat, wikitext.Before("h"))
		t.Add("Long", coords.Long, wikitext.Before("h"))
		if zoom > 0 {
			t.Add("z", strconv.Itoa(zoom), wikitext.Before("h"))
		}
	}
	pc.Note("Lat=%s Long=%s", coords.Lat, coords.Long)
	return true, nil
}
