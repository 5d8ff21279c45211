package format

import (
	"strings"

	"github.com/dgallion1/voybot/internal/section"
	"github.com/dgallion1/voybot/internal/wikitext"
)

// DefaultSpacerExempt lists level-2 titles that never get a spacer above.
var DefaultSpacerExempt = []string{"Da sapere"}

// NormalizeHeadings makes every heading read "== Title ==": exactly one space
// between each = run and the text, nothing after the closing run.
func NormalizeHeadings(doc *wikitext.Wikicode) bool {
	changed := false
	for _, s := range doc.Sections(wikitext.SectionQuery{Flat: true}) {
		text := strings.TrimSpace(s.RawTitle())
		if text == "" {
			continue
		}
		if raw := " " + text + " "; s.RawTitle() != raw {
			s.SetRawTitle(raw)
			changed = true
		}
		if s.Trailing() != "" {
			s.SetTrailing("")
			changed = true
		}
	}
	return changed
}

// InsertSectionSpacers puts a {{-}} line above every level-2 heading whose
// title is not exempt. Headings already preceded by a spacer and headings
// with nothing above them are left alone.
func InsertSectionSpacers(doc *wikitext.Wikicode, exempt ...string) bool {
	skip := wikitext.TitleIs(exempt...)
	changed := false
	for _, s := range doc.Sections(wikitext.SectionQuery{Levels: []int{2}, Flat: true}) {
		if skip(s.Title()) || s.Prev() == nil || section.SpacerAbove(s) {
			continue
		}
		spacer := []wikitext.Node{wikitext.NewTemplate(section.SpacerTemplate), wikitext.NewText("\n")}
		list, stop := section.Boundary(s)
		var err error
		if stop != nil {
			err = wikitext.InsertBefore(stop, spacer...)
		} else {
			err = list.Append(spacer...)
		}
		if err == nil {
			changed = true
		}
	}
	return changed
}

// Formatter bundles the layout passes run by the reformat step.
type Formatter struct {
	Policy       *Policy
	SpacerExempt []string
}

// NewFormatter returns a formatter with the default policy and exemptions.
func NewFormatter() *Formatter {
	return &Formatter{Policy: DefaultPolicy(), SpacerExempt: DefaultSpacerExempt}
}

// Apply runs template formatting, heading normalization and spacer
// insertion in that order and reports whether doc changed.
func (f *Formatter) Apply(doc *wikitext.Wikicode) bool {
	a := f.Templates(doc)
	b := NormalizeHeadings(doc)
	c := InsertSectionSpacers(doc, f.SpacerExempt...)
	return a || b || c
}

// Templates runs only the template layout pass.
func (f *Formatter) Templates(doc *wikitext.Wikicode) bool {
	if f.Policy == nil {
		return false
	}
	return f.Policy.Apply(doc)
}
