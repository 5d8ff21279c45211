// Package format applies the per-template layout policies, heading
// normalization and section spacers. Every transform here is deterministic
// and makes no external calls.
package format

import (
	"fmt"
	"strings"

	"github.com/dgallion1/voybot/internal/wikitext"
)

// Style is a parameter layout for one family of templates.
type Style string

const (
	// StyleQuickbar puts one "| key = value" per line with a newline after
	// the template name.
	StyleQuickbar Style = "quickbar"
	// StyleListing puts one "| key=value " per line.
	StyleListing Style = "listing"
	// StyleInline keeps everything on one line: {{Name| k=v | k2=v2}}.
	StyleInline Style = "inline"
)

// ParseStyle validates a style name read from configuration.
func ParseStyle(s string) (Style, error) {
	switch st := Style(strings.ToLower(strings.TrimSpace(s))); st {
	case StyleQuickbar, StyleListing, StyleInline:
		return st, nil
	default:
		return "", fmt.Errorf("unknown template style %q", s)
	}
}

// Policy maps template names to styles. Names are matched after
// wikitext.NormalizeName, so lookups are case-insensitive.
type Policy struct {
	styles map[string]Style
}

// NewPolicy builds a policy from a name -> style table.
func NewPolicy(styles map[string]Style) *Policy {
	p := &Policy{styles: make(map[string]Style, len(styles))}
	for name, st := range styles {
		p.Set(name, st)
	}
	return p
}

// DefaultPolicy covers the quickbars, the listing templates and the itemlist
// entries used on it.wikivoyage.
func DefaultPolicy() *Policy {
	styles := map[string]Style{}
	for _, name := range []string{
		"Quickbar", "QuickbarCity", "QuickbarAirport", "QuickbarRegion", "QuickbarCountry",
		"QuickbarPark", "QuickbarDistrict", "QuickbarArcheo", "QuickbarIsland",
	} {
		styles[name] = StyleQuickbar
	}
	for _, name := range []string{"see", "do", "buy", "eat", "drink", "sleep", "listing"} {
		styles[name] = StyleListing
	}
	for _, name := range []string{"Città", "Destinazione"} {
		styles[name] = StyleInline
	}
	return NewPolicy(styles)
}

// Set adds or replaces the style for name.
func (p *Policy) Set(name string, st Style) {
	p.styles[wikitext.NormalizeName(name)] = st
}

// StyleFor returns the style registered for a template name.
func (p *Policy) StyleFor(name string) (Style, bool) {
	st, ok := p.styles[wikitext.NormalizeName(name)]
	return st, ok
}

// Len returns the number of registered template names.
func (p *Policy) Len() int { return len(p.styles) }

// Apply formats every template in doc that has a registered style and
// reports whether the markup changed. Unknown templates stay verbatim.
func (p *Policy) Apply(doc *wikitext.Wikicode) bool {
	ts := doc.Templates()
	changed := false
	// Innermost first: formatting an outer value re-parses it.
	for i := len(ts) - 1; i >= 0; i-- {
		st, ok := p.StyleFor(ts[i].Name())
		if !ok {
			continue
		}
		if FormatTemplate(ts[i], st) {
			changed = true
		}
	}
	return changed
}
