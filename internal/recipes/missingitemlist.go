package recipes

import (
	"context"
	"fmt"
	"strings"

	"github.com/dgallion1/voybot/internal/pipeline"
	"github.com/dgallion1/voybot/internal/wikitext"
)

// Actions of missing-itemlist.
const (
	actionAddCategory    = "add-cat"
	actionRemoveCategory = "remove-cat"
	actionAddDump        = "add-dump"
	actionRemoveDump     = "remove-dump"
)

const regionServiceCategory = "Regioni senza Citylist o Destinationlist"

var itemlistTemplates = []string{"Citylist", "Destinationlist"}

func missingItemlistRecipe() *pipeline.Recipe {
	return &pipeline.Recipe{
		Name:        MissingItemlist,
		Description: "Categorize region pages without Citylist or Destinationlist",
		Summarize: func(p pipeline.Params) string {
			cat := p.Or("category", regionServiceCategory)
			switch p.Or("action", actionAddCategory) {
			case actionAddCategory:
				return "Aggiungo la categoria " + cat
			case actionRemoveCategory:
				return "Rimuovo la categoria " + cat + " - pagina ora con Itemlist o costituente eccezione"
			}
			return "Manutenzione per regioni senza Citylist o Destinationlist"
		},
		Flags:    minorBot,
		Selector: category("Regione"),
		Params: pipeline.Params{
			"action":   actionAddCategory,
			"category": regionServiceCategory,
			// Regions too small to have a city list.
			"exceptions": "Gibilterra,Isola dei leoni marini,Nananu i Ra,New Island,Razzoli,Salt Cay,Territori insulari",
			"excluded":   "Atollo",
		},
		Steps: []pipeline.Step{
			{Name: "categorize_missing_itemlist", Run: categorizeMissingItemlist},
		},
	}
}

// exempt reports whether title is listed in the exceptions or contains one
// of the excluded substrings.
func exempt(title string, p pipeline.Params) bool {
	for _, e := range p.List("exceptions") {
		if title == e {
			return true
		}
	}
	for _, sub := range p.List("excluded") {
		if strings.Contains(title, sub) {
			return true
		}
	}
	return false
}

func categorizeMissingItemlist(ctx context.Context, doc *wikitext.Wikicode, pc *pipeline.PageContext) (bool, error) {
	cat := pc.Params.Or("category", regionServiceCategory)
	hasList := doc.FirstTemplate(itemlistTemplates...) != nil
	isExempt := exempt(pc.Title, pc.Params)

	switch action := pc.Params.Or("action", actionAddCategory); action {
	case actionAddCategory, actionAddDump:
		if isExempt {
			return false, fmt.Errorf("%w: exception title", pipeline.ErrSkipPage)
		}
		if hasList {
			return false, nil
		}
		pc.Sink.Follow(pc.Title, "no Citylist or Destinationlist")
		if action == actionAddDump {
			return false, nil
		}
		in, err := pc.InCategory(ctx, cat)
		if err != nil {
			return false, err
		}
		if in || !addCategory(doc, cat) {
			return false, nil
		}
		pc.Note("added category %s", cat)
		return true, nil

	case actionRemoveCategory, actionRemoveDump:
		if !isExempt && !hasList {
			return false, nil
		}
		pc.Sink.Follow(pc.Title, "has an itemlist or is an exception")
		if action == actionRemoveDump {
			return false, nil
		}
		if !removeCategory(doc, cat) {
			return false, nil
		}
		pc.Note("removed category %s", cat)
		return true, nil

	default:
		return false, fmt.Errorf("%w: invalid action %q", pipeline.ErrFatal, action)
	}
}
