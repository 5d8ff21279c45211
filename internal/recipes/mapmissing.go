package recipes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgallion1/voybot/internal/pipeline"
	"github.com/dgallion1/voybot/internal/section"
	"github.com/dgallion1/voybot/internal/wikitext"
)

const (
	regionList = "Regionlist"
	mapShape   = "Mapshape"
)

// mapTarget says where the map goes in an article type and how far it is
// zoomed in.
type mapTarget struct {
	category string
	section  string
	zoom     int
}

var mapTargets = []mapTarget{
	{"Città", "Come orientarsi", 12},
	{"Regione", "Territori e mete turistiche", 7},
}

func missingMapRecipe() *pipeline.Recipe {
	return &pipeline.Recipe{
		Name:        ArticlesWithoutMap,
		Description: "Add MappaDinamica, Mapshape and Regionlist to articles without a map",
		Summary:     "Aggiungo mappa dinamica (auto)",
		Flags:       minorBot,
		Selector:    category("Regione"),
		Confirm:     true,
		Steps: []pipeline.Step{
			{Name: "add_dynamic_map", Run: addDynamicMap},
		},
	}
}

func addDynamicMap(ctx context.Context, doc *wikitext.Wikicode, pc *pipeline.PageContext) (bool, error) {
	hasMap := doc.FirstTemplate(dynamicMap) != nil
	hasList := doc.FirstTemplate(regionList) != nil
	switch {
	case hasMap && !hasList:
		pc.Sink.Follow(pc.Title, "dynamic map without Regionlist")
		return false, nil
	case hasMap || hasList:
		return false, nil
	}
	pc.Sink.Follow(pc.Title, "no dynamic map")

	var target *mapTarget
	for i := range mapTargets {
		in, err := pc.InCategory(ctx, mapTargets[i].category)
		if err != nil {
			return false, err
		}
		if in {
			target = &mapTargets[i]
			break
		}
	}
	if target == nil {
		return false, fmt.Errorf("%w: neither a city nor a region", pipeline.ErrSkipPage)
	}
	sec, err := section.Find(doc, target.section, 2)
	if errors.Is(err, section.ErrMissingSection) {
		pc.Sink.Follow(pc.Title, "no "+target.section+" section")
		return false, nil
	}
	if err != nil {
		return false, err
	}

	id, err := pc.EntityID(ctx)
	if err != nil {
		return false, err
	}
	if id == "" {
		pc.Sink.Follow(pc.Title, "no wikidata item linked")
		return false, nil
	}
	parts, err := pc.Enricher.Parts(ctx, id, pc.Lang)
	if err != nil {
		return false, err
	}
	if len(parts) == 0 {
		pc.Log.Info("no subregions on wikidata", "id", id)
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

	var b strings.Builder
	fmt.Fprintf(&b, "\n{{%s\n| Lat=%s\n| Long=%s\n| h=450\n| w=450\n| z=%d\n| view=Kartographer\n}}",
		dynamicMap, coords.Lat, coords.Long, target.zoom)
	for i, p := range parts {
		fmt.Fprintf(&b, "\n{{%s|type=geoshape|wikidata=%s|fill={{StdColor|T%d}}}}", mapShape, p.ID, i+1)
	}
	fmt.Fprintf(&b, "\n\n{{%s\n", regionList)
	for i, p := range parts {
		n := i + 1
		fmt.Fprintf(&b, "| region%dname=%s\n| region%dcolor={{StdColor|T%d}}\n| region%ddescription=\n", n, p.Label, n, n, n)
	}
	b.WriteString("}}")

	if err := sec.Body().Prepend(wikitext.ParseFragment(b.String()).Nodes()...); err != nil {
		return false, err
	}
	pc.Note("added map of %s with %d subregions", id, len(parts))
	return true, nil
}
