package recipes

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/dgallion1/voybot/internal/format"
	"github.com/dgallion1/voybot/internal/pipeline"
	"github.com/dgallion1/voybot/internal/section"
	"github.com/dgallion1/voybot/internal/wikitext"
)

const (
	quickbarAirport = "QuickbarAirport"
	quickfooter     = "Quickfooter"
	airportTheme    = "Aeroporto"
	dynamicMap      = "MappaDinamica"
)

// Placeholders left in the new quickbar when no value is known.
const (
	imagePlaceholder   = "<!--Nome file dell'immagine.jpg-->"
	countryPlaceholder = "<!--[[Nome dello stato di appartenenza]]-->"
	mapPlaceholder     = "<!--tld (sigla a due lettere senza il punto) dello Stato di appartenenza-->"
)

// Scratch keys passed between airport steps.
const (
	keyBanner  = "banner"
	keyImage   = "image"
	keyCaption = "caption"
	keyLat     = "lat"
	keyLong    = "long"
)

func airportRecipe(o Options) *pipeline.Recipe {
	f := o.formatter()
	return &pipeline.Recipe{
		Name:        AirportModel,
		Description: "Move airport articles to the QuickbarAirport model",
		Summary:     "Applico quickbar e Quickfooter aeroporto",
		Flags:       majorBot,
		Selector:    category("Tematica Aeroporto"),
		Done:        airportDone,
		Confirm:     true,
		Params: pipeline.Params{
			"deprecated": "Quickbar,QuickbarCity",
			"zoom":       "13",
		},
		Steps: []pipeline.Step{
			{Name: "remove_pagebanner", Run: removePagebanner},
			{Name: "remove_inline_image", Run: removeInlineImage},
			{Name: "clean_intro", Run: cleanIntro},
			{Name: "insert_quickbar", Run: insertAirportQuickbar},
			{Name: "strip_deprecated_markers", Run: stripDeprecated},
			{Name: "insert_listing_examples", Run: insertListingExamples},
			{Name: "process_quickfooter", Run: processQuickfooter},
			{Name: "insert_dynamic_map", Run: insertDynamicMap},
			{Name: "reformat", Run: func(_ context.Context, doc *wikitext.Wikicode, _ *pipeline.PageContext) (bool, error) {
				return f.Templates(doc), nil
			}},
			{Name: "normalize_headings", Run: func(_ context.Context, doc *wikitext.Wikicode, _ *pipeline.PageContext) (bool, error) {
				return format.NormalizeHeadings(doc), nil
			}},
			{Name: "insert_section_spacers", Run: func(_ context.Context, doc *wikitext.Wikicode, _ *pipeline.PageContext) (bool, error) {
				return format.InsertSectionSpacers(doc, f.SpacerExempt...), nil
			}},
		},
	}
}

// airportDone skips list pages and reports pages already on the model.
func airportDone(_ context.Context, doc *wikitext.Wikicode, pc *pipeline.PageContext) (bool, error) {
	if strings.Contains(strings.ToLower(pc.Title), "aeroporti") {
		return false, fmt.Errorf("%w: plural title", pipeline.ErrSkipPage)
	}
	if doc.FirstTemplate(quickbarAirport) != nil {
		return true, nil
	}
	if t := doc.FirstTemplate(quickfooter); t != nil {
		if p, ok := t.Positional(1); ok && strings.TrimSpace(p.Value().String()) == airportTheme {
			return true, nil
		}
	}
	return false, nil
}

func removePagebanner(_ context.Context, doc *wikitext.Wikicode, pc *pipeline.PageContext) (bool, error) {
	t := doc.FirstTemplate("pagebanner")
	if t == nil {
		return false, nil
	}
	if p, ok := t.Positional(1); ok {
		pc.Remember(keyBanner, strings.TrimSpace(p.Value().String()))
	}
	detach(t)
	pc.Note("removed pagebanner")
	return true, nil
}

var (
	filePrefixRe = regexp.MustCompile(`(?i)^\s*(file|immagine|image)\s*:\s*`)
	sizeOptionRe = regexp.MustCompile(`^(\d+|x\d+|\d+x\d+)px$`)
)

// Layout options of an image link that are not part of the caption.
var imageOptions = map[string]bool{
	"thumb": true, "thumbnail": true, "right": true, "left": true, "center": true,
	"miniatura": true, "destra": true, "sinistra": true, "centro": true,
}

// removeInlineImage drops the first image link and keeps its file name and
// caption for the quickbar.
func removeInlineImage(_ context.Context, doc *wikitext.Wikicode, pc *pipeline.PageContext) (bool, error) {
	for _, l := range doc.Wikilinks() {
		if !filePrefixRe.MatchString(l.Target) {
			continue
		}
		pc.Remember(keyImage, strings.TrimSpace(filePrefixRe.ReplaceAllString(l.Target, "")))
		if label := l.Text(); label != nil {
			pc.Remember(keyCaption, imageCaption(label.String()))
		}
		detach(l)
		pc.Note("moved image %s to the quickbar", strings.TrimSpace(l.Target))
		return true, nil
	}
	return false, nil
}

func imageCaption(label string) string {
	var parts []string
	for _, part := range strings.Split(label, "|") {
		part = strings.TrimSpace(part)
		if part == "" || imageOptions[strings.ToLower(part)] || sizeOptionRe.MatchString(part) {
			continue
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " ")
}

var blankLinesRe = regexp.MustCompile(`\n{3,}`)

// cleanIntro trims the start of the page and collapses runs of blank lines
// left in the text above the first heading.
func cleanIntro(_ context.Context, doc *wikitext.Wikicode, _ *pipeline.PageContext) (bool, error) {
	changed := false
	first := true
	for n := doc.First(); n != nil; n = n.Next() {
		if _, ok := n.(*wikitext.Section); ok {
			break
		}
		txt, ok := n.(*wikitext.Text)
		if !ok {
			first = false
			continue
		}
		v := blankLinesRe.ReplaceAllString(txt.Value, "\n\n")
		if first {
			v = strings.TrimLeft(v, " \t\n")
		}
		if v != txt.Value {
			txt.Value = v
			changed = true
		}
		if v != "" {
			first = false
		}
	}
	return changed, nil
}

// insertAirportQuickbar puts a QuickbarAirport at the top of the page, filled
// from what the earlier steps collected and from the page's Wikidata item.
func insertAirportQuickbar(ctx context.Context, doc *wikitext.Wikicode, pc *pipeline.PageContext) (bool, error) {
	if doc.FirstTemplate(quickbarAirport) != nil {
		return false, nil
	}
	id, err := pc.EntityID(ctx)
	if err != nil {
		return false, err
	}

	country, iso, lat, long := countryPlaceholder, mapPlaceholder, "", ""
	image, _ := pc.Recall(keyImage)
	if id == "" {
		pc.Sink.Follow(pc.Title, "no wikidata item linked, quickbar left with placeholders")
	} else {
		if label, ok, err := pc.Enricher.GetCountryLabel(ctx, id, pc.Lang); err != nil {
			return false, err
		} else if ok {
			country = "[[" + label + "]]"
		}
		if code, ok, err := pc.Enricher.GetCountryISOCode(ctx, id); err != nil {
			return false, err
		} else if ok {
			iso = strings.ToLower(code)
		}
		coords, err := pc.Enricher.GetCoordinates(ctx, id)
		if err != nil {
			return false, err
		}
		if coords.Valid() {
			lat, long = coords.Lat, coords.Long
			pc.Remember(keyLat, lat)
			pc.Remember(keyLong, long)
		}
		if image == "" {
			if img, ok, err := pc.Enricher.GetImage(ctx, id); err != nil {
				return false, err
			} else if ok {
				image = img
			}
		}
	}

	t := wikitext.NewTemplate(quickbarAirport)
	for _, kv := range [][2]string{
		{"Banner", recallOr(pc, keyBanner, imagePlaceholder)},
		{"DidascaliaBanner", "<!--Didascalia del banner-->"},
		{"Immagine", or(image, imagePlaceholder)},
		{"Didascalia", recallOr(pc, keyCaption, "<!--Didascalia dell'immagine-->")},
		{"Tipologia aeroporto", "<!--internazionale / domestico-->"},
		{"Stato", country},
		{"Stato federato", "<!--[[Nome dello stato federato di appartenenza]]-->"},
		{"Regione", "<!--[[Nome della regione di appartenenza]]-->"},
		{"Territorio", "<!--[[Nome del territorio di appartenenza]]-->"},
		{"Città", "<!--[[Nome della città in cui è situato]]-->"},
		{"Altitudine", "<!--Usare il punto come simbolo delle migliaia e NON riportare la dicitura m s.l.m.-->"},
		{"Superficie", "<!--Usare il punto come simbolo delle migliaia e NON riportare la dicitura m²-->"},
		{"Sito ufficiale", "<!--https://-->"},
		{"Map", iso},
		{"Lat", lat},
		{"Long", long},
	} {
		t.Add(kv[0], kv[1], wikitext.PreserveSpacing())
	}
	if err := doc.Prepend(t, wikitext.NewText("\n")); err != nil {
		return false, err
	}
	pc.Note("added %s", quickbarAirport)
	return true, nil
}

// stripDeprecated removes the generic quickbars replaced by the airport one.
func stripDeprecated(_ context.Context, doc *wikitext.Wikicode, pc *pipeline.PageContext) (bool, error) {
	names := pc.Params.List("deprecated")
	if len(names) == 0 {
		return false, nil
	}
	changed := false
	for _, t := range doc.TemplatesNamed(names...) {
		detach(t)
		pc.Note("removed %s", t.Name())
		changed = true
	}
	return changed, nil
}

// listingSections maps a section title to the listing template shown as a
// commented example under its heading.
var listingSections = []struct{ title, listing, extra string }{
	{"Cosa fare", "do", "| orari= | prezzo="},
	{"Acquisti", "buy", "| orari= | prezzo="},
	{"Dove mangiare", "eat", "| orari= | prezzo="},
	{"Dove alloggiare", "sleep", "| checkin= | checkout= | prezzo="},
}

func listingExample(listing, extra string) string {
	return "* {{" + listing + "\n" +
		"| nome= | alt= | sito= | email=\n" +
		"| indirizzo= | lat= | long= | indicazioni=\n" +
		"| tel= | numero verde= | fax=\n" +
		extra + "\n" +
		"| descrizione=\n" +
		"}}"
}

func insertListingExamples(_ context.Context, doc *wikitext.Wikicode, pc *pipeline.PageContext) (bool, error) {
	changed := false
	for _, ls := range listingSections {
		s, err := section.Find(doc, ls.title, 2)
		if err != nil {
			pc.Log.Debug("no section for listing example", "section", ls.title, "error", err)
			continue
		}
		if hasListingExample(s, ls.listing) {
			continue
		}
		s.Body().Prepend(
			wikitext.NewText("\n"),
			wikitext.NewComment(listingExample(ls.listing, ls.extra)),
			wikitext.NewText("\n"),
		)
		changed = true
	}
	return changed, nil
}

func hasListingExample(s *wikitext.Section, listing string) bool {
	for _, c := range s.Body().Comments() {
		if strings.HasPrefix(strings.TrimSpace(c.Content), "* {{"+listing) {
			return true
		}
	}
	return false
}

// processQuickfooter switches the footer to the airport theme.
func processQuickfooter(_ context.Context, doc *wikitext.Wikicode, pc *pipeline.PageContext) (bool, error) {
	t := doc.FirstTemplate(quickfooter)
	if t == nil {
		pc.Sink.Warning(pc.Title, "Quickfooter not found")
		return false, nil
	}
	before := t.String()
	if p, ok := t.Positional(1); ok {
		p.SetValue(airportTheme + "\n")
	} else {
		t.Add("1", airportTheme+"\n", wikitext.PreserveSpacing())
	}
	t.Remove("Tema")
	return t.String() != before, nil
}

// insertDynamicMap adds a MappaDinamica above the first section when the
// quickbar step found coordinates.
func insertDynamicMap(_ context.Context, doc *wikitext.Wikicode, pc *pipeline.PageContext) (bool, error) {
	lat, okLat := pc.Recall(keyLat)
	long, okLong := pc.Recall(keyLong)
	if !okLat || !okLong || doc.FirstTemplate(dynamicMap) != nil {
		return false, nil
	}
	secs := doc.Sections(wikitext.SectionQuery{Levels: []int{2}, Flat: true})
	if len(secs) == 0 {
		return false, nil
	}
	t := wikitext.NewTemplate(dynamicMap)
	t.Add("Lat", lat)
	t.Add("Long", long)
	t.Add("z", pc.Params.Or("zoom", "13"))

	nodes := []wikitext.Node{t, wikitext.NewText("\n")}
	list, stop := section.Boundary(secs[0])
	var err error
	if stop != nil {
		err = wikitext.InsertBefore(stop, nodes...)
	} else {
		err = list.Append(nodes...)
	}
	if err != nil {
		return false, err
	}
	pc.Note("added %s", dynamicMap)
	return true, nil
}

func recallOr(pc *pipeline.PageContext, key, def string) string {
	if v, ok := pc.Recall(key); ok && v != "" {
		return v
	}
	return def
}

func or(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
