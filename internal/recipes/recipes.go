// Package recipes holds the maintenance recipes run by the bot. Every recipe
// is a pipeline.Recipe built from small steps over the markup tree.
package recipes

import (
	"github.com/dgallion1/voybot/internal/format"
	"github.com/dgallion1/voybot/internal/pipeline"
	"github.com/dgallion1/voybot/internal/section"
	"github.com/dgallion1/voybot/internal/wikistore"
)

// Recipe names.
const (
	ItemlistWikidata      = "itemlist-wikidata"
	AirportModel          = "airport-model"
	MapcodeQuickbar       = "mapcode-quickbar"
	DynamicMapCoordinates = "dynamic-map-coordinates"
	EmptySection          = "empty-section"
	MissingItemlist       = "missing-itemlist"
	SortCitylist          = "sort-citylist"
	Reformat              = "reformat"
	SectionSkeleton       = "section-skeleton"
	TemplateCrossCategory = "template-x-category"
	ArticlesWithoutMap    = "articles-without-map"
)

// Options tune the built-in recipes. The zero value is usable.
type Options struct {
	// Formatter runs the layout passes; nil means format.NewFormatter().
	Formatter *format.Formatter
	// Policies are the canonical layouts by name; nil means section.Policies.
	Policies map[string]section.Policy
	// Params override the default parameters per recipe name.
	Params map[string]pipeline.Params
	// Selectors override the default page selection per recipe name.
	Selectors map[string]pipeline.Selector
}

func (o Options) formatter() *format.Formatter {
	if o.Formatter != nil {
		return o.Formatter
	}
	return format.NewFormatter()
}

func (o Options) policy(name string) (section.Policy, bool) {
	policies := o.Policies
	if policies == nil {
		policies = section.Policies
	}
	p, ok := policies[name]
	return p, ok
}

// Edit flags shared by the maintenance recipes.
var (
	minorBot = wikistore.SaveFlags{Minor: true, Bot: true, Watch: wikistore.WatchNoChange}
	majorBot = wikistore.SaveFlags{Bot: true, Watch: wikistore.WatchNoChange}
)

// All returns every built-in recipe with o applied.
func All(o Options) []*pipeline.Recipe {
	all := []*pipeline.Recipe{
		itemlistRecipe(),
		airportRecipe(o),
		mapcodeRecipe(),
		dynamicMapRecipe(),
		emptySectionRecipe(),
		missingItemlistRecipe(),
		sortCitylistRecipe(),
		reformatRecipe(o),
		skeletonRecipe(o),
		templateCrossCategoryRecipe(),
		missingMapRecipe(),
	}
	for _, rc := range all {
		rc.Params = rc.Params.Merge(o.Params[rc.Name])
		if sel, ok := o.Selectors[rc.Name]; ok && !sel.Empty() {
			rc.Selector = sel
		}
	}
	return all
}

// NewRegistry registers All(o).
func NewRegistry(o Options) *pipeline.Registry {
	return pipeline.NewRegistry(All(o)...)
}

func category(name string) pipeline.Selector {
	return pipeline.Selector{Category: name, Recursive: true}
}
