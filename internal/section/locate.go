// Package section locates heading-delimited sections, decides whether they
// are empty and checks page structure against canonical layouts.
package section

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dgallion1/voybot/internal/wikitext"
)

var (
	ErrAmbiguousSection = errors.New("ambiguous section")
	ErrMissingSection   = errors.New("missing section")
)

// SpacerTemplate is the no-op layout template {{-}} that clears floats
// between sections.
const SpacerTemplate = "-"

// Find returns the single section titled title at one of levels. No match
// wraps ErrMissingSection; more than one wraps ErrAmbiguousSection.
func Find(doc *wikitext.Wikicode, title string, levels ...int) (*wikitext.Section, error) {
	return FindAny(doc, []string{title}, levels...)
}

// FindAny is Find with an allow-list of accepted titles.
func FindAny(doc *wikitext.Wikicode, titles []string, levels ...int) (*wikitext.Section, error) {
	matches := doc.Sections(wikitext.SectionQuery{
		Levels: levels,
		Match:  wikitext.TitleIs(titles...),
		Flat:   true,
	})
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrMissingSection, strings.Join(titles, " / "))
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %s matched %d times", ErrAmbiguousSection, strings.Join(titles, " / "), len(matches))
	}
}

var (
	commentRe = regexp.MustCompile(`(?s)<!--.*?(-->|$)`)
	spacerRe  = regexp.MustCompile(`\{\{\s*-\s*\}\}`)
)

// IsEmpty reports whether the section body holds nothing visible once
// comments, spacer templates and newlines are stripped. Subsection headings
// count as content.
func IsEmpty(s *wikitext.Section) bool {
	return IsEmptyText(s.Body().String())
}

// IsEmptyText applies the IsEmpty rule to raw markup.
func IsEmptyText(text string) bool {
	text = commentRe.ReplaceAllString(text, "")
	text = spacerRe.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "\n", "")
	return strings.TrimSpace(text) == ""
}

// Boundary returns the position directly above the heading of s as a list
// and the node the position precedes. A nil node means the end of the list:
// when s follows another section, the text above the heading is the tail of
// that section's deepest last body.
func Boundary(s *wikitext.Section) (*wikitext.Wikicode, wikitext.Node) {
	prev := s.Prev()
	ps, ok := prev.(*wikitext.Section)
	if !ok {
		return s.Parent(), s
	}
	for {
		last := ps.Body().Last()
		inner, isSec := last.(*wikitext.Section)
		if !isSec {
			return ps.Body(), nil
		}
		ps = inner
	}
}

// SpacerAbove reports whether a spacer template is the last visible node
// above the heading of s, ignoring whitespace and comments.
func SpacerAbove(s *wikitext.Section) bool {
	list, stop := Boundary(s)
	n := list.Last()
	if stop != nil {
		n = stop.Prev()
	}
	return spacerAt(n)
}

// EndsWithSpacer reports whether list ends with a spacer template, ignoring
// trailing whitespace and comments.
func EndsWithSpacer(list *wikitext.Wikicode) bool {
	return spacerAt(list.Last())
}

func spacerAt(n wikitext.Node) bool {
	for ; n != nil; n = n.Prev() {
		switch v := n.(type) {
		case *wikitext.Text:
			if strings.TrimSpace(v.Value) != "" {
				return false
			}
		case *wikitext.Comment:
		case *wikitext.Template:
			return v.NameMatches(SpacerTemplate)
		default:
			return false
		}
	}
	return false
}
