package recipes

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/dgallion1/voybot/internal/pipeline"
	"github.com/dgallion1/voybot/internal/wikistore"
	"github.com/dgallion1/voybot/internal/wikitext"
)

func sortCitylistRecipe() *pipeline.Recipe {
	return &pipeline.Recipe{
		Name:        SortCitylist,
		Description: "Sort Citylist and Destinationlist entries alphabetically",
		Summarize: func(p pipeline.Params) string {
			return "Ordino alfabeticamente i parametri del template " + strings.Join(p.List("templates"), "/")
		},
		Flags: wikistore.SaveFlags{Minor: true, Bot: true, Watch: wikistore.WatchWatch},
		Params: pipeline.Params{
			"templates": strings.Join(itemlistTemplates, ","),
			"key":       "nome",
		},
		Selector: pipeline.Selector{Template: "Citylist"},
		Steps: []pipeline.Step{
			{Name: "sort_entries", Run: sortEntries},
		},
	}
}

type listEntry struct {
	param *wikitext.Param
	key   string
	// body is the value without its surrounding whitespace, so comments
	// after the entry travel with it.
	body string
}

// sortEntries reorders the entries of every list template by the sort key
// of the entry, using Italian collation. Entries trade values in place:
// parameter keys, their order and the whitespace around each value stay
// put.
func sortEntries(_ context.Context, doc *wikitext.Wikicode, pc *pipeline.PageContext) (bool, error) {
	key := pc.Params.Or("key", "nome")
	col := collate.New(language.Italian, collate.IgnoreCase)
	changed := false

	for _, list := range doc.TemplatesNamed(pc.Params.List("templates")...) {
		var entries []listEntry
		for _, p := range list.Params() {
			if _, err := strconv.Atoi(list.Key(p)); err != nil {
				continue
			}
			nested := p.Value().Templates()
			if len(nested) == 0 {
				continue
			}
			name, _ := nested[0].Lookup(key)
			entries = append(entries, listEntry{
				param: p,
				key:   name,
				body:  strings.TrimSpace(p.Value().String()),
			})
		}
		if len(entries) < 2 {
			continue
		}
		sorted := make([]listEntry, len(entries))
		copy(sorted, entries)
		sort.SliceStable(sorted, func(i, j int) bool {
			return col.CompareString(sorted[i].key, sorted[j].key) < 0
		})
		if sameOrder(entries, sorted) {
			continue
		}
		for i, slot := range entries {
			raw := slot.param.Value().String()
			at := strings.Index(raw, slot.body)
			slot.param.SetValue(raw[:at] + sorted[i].body + raw[at+len(slot.body):])
		}
		pc.Note("sorted %d entries of %s", len(sorted), list.Name())
		changed = true
	}
	return changed, nil
}

func sameOrder(a, b []listEntry) bool {
	for i := range a {
		if a[i].param != b[i].param {
			return false
		}
	}
	return true
}
