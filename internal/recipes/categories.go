package recipes

import (
	"strings"

	"github.com/dgallion1/voybot/internal/wikistore"
	"github.com/dgallion1/voybot/internal/wikitext"
)

// categoryLinks returns the [[Categoria:name]] links of doc, in either
// namespace spelling.
func categoryLinks(doc *wikitext.Wikicode, name string) []*wikitext.Wikilink {
	var out []*wikitext.Wikilink
	for _, l := range doc.Wikilinks() {
		bare := wikistore.CategoryName(l.Target)
		if bare == strings.TrimSpace(l.Target) {
			continue // not a category link
		}
		if wikitext.SameName(bare, name) {
			out = append(out, l)
		}
	}
	return out
}

// addCategory appends a category link on its own line unless doc already
// links the category.
func addCategory(doc *wikitext.Wikicode, name string) bool {
	if len(categoryLinks(doc, name)) > 0 {
		return false
	}
	doc.Append(wikitext.NewText("\n"), wikitext.NewWikilink("Categoria:"+name))
	return true
}

// removeCategory drops every link to the category together with the line
// break in front of it.
func removeCategory(doc *wikitext.Wikicode, name string) bool {
	links := categoryLinks(doc, name)
	for _, l := range links {
		if prev, ok := l.Prev().(*wikitext.Text); ok && strings.HasSuffix(prev.Value, "\n") {
			next, isText := l.Next().(*wikitext.Text)
			if l.Next() == nil || (isText && strings.HasPrefix(next.Value, "\n")) {
				prev.Value = strings.TrimSuffix(prev.Value, "\n")
			}
		}
		wikitext.Remove(l)
	}
	return len(links) > 0
}

// detach removes n and the line break right after it, so a node that sat
// on its own line leaves no blank line behind.
func detach(n wikitext.Node) {
	if next, ok := n.Next().(*wikitext.Text); ok && strings.HasPrefix(next.Value, "\n") {
		if prev := n.Prev(); prev == nil || strings.HasSuffix(prev.String(), "\n") {
			next.Value = next.Value[1:]
		}
	}
	wikitext.Remove(n)
}
