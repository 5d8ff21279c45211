package wikitext

// Filter walks every node below w in document order, descending into section
// bodies, template parameter values and link labels, and returns the nodes
// for which match returns true. The result is a snapshot: edits made after
// Filter returns do not change it.
func (w *Wikicode) Filter(match func(Node) bool) []Node {
	var out []Node
	var walk func(list *Wikicode)
	walk = func(list *Wikicode) {
		for n := list.first; n != nil; n = n.Next() {
			if match == nil || match(n) {
				out = append(out, n)
			}
			for _, c := range children(n) {
				walk(c)
			}
		}
	}
	walk(w)
	return out
}

// OfKind matches nodes of kind k.
func OfKind(k Kind) func(Node) bool {
	return func(n Node) bool { return n.Kind() == k }
}

// Templates returns all templates, nested ones included, in document order.
func (w *Wikicode) Templates() []*Template {
	var out []*Template
	for _, n := range w.Filter(OfKind(KindTemplate)) {
		out = append(out, n.(*Template))
	}
	return out
}

// TemplatesNamed returns templates whose name matches any of names.
func (w *Wikicode) TemplatesNamed(names ...string) []*Template {
	var out []*Template
	for _, t := range w.Templates() {
		for _, name := range names {
			if t.NameMatches(name) {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// FirstTemplate returns the first template matching any of names, or nil.
func (w *Wikicode) FirstTemplate(names ...string) *Template {
	if ts := w.TemplatesNamed(names...); len(ts) > 0 {
		return ts[0]
	}
	return nil
}

// Wikilinks returns all internal links in document order.
func (w *Wikicode) Wikilinks() []*Wikilink {
	var out []*Wikilink
	for _, n := range w.Filter(OfKind(KindWikilink)) {
		out = append(out, n.(*Wikilink))
	}
	return out
}

// Comments returns all comments in document order.
func (w *Wikicode) Comments() []*Comment {
	var out []*Comment
	for _, n := range w.Filter(OfKind(KindComment)) {
		out = append(out, n.(*Comment))
	}
	return out
}

// SectionQuery selects sections by level and title.
type SectionQuery struct {
	// Levels restricts matches to these heading levels; empty means any.
	Levels []int
	// Match filters by cleaned heading title; nil accepts every title.
	Match func(title string) bool
	// Flat also returns sections nested inside matched sections.
	Flat bool
}

// Sections returns matching sections in document order. Without Flat, the
// body of a matched section is not searched further.
func (w *Wikicode) Sections(q SectionQuery) []*Section {
	var out []*Section
	var walk func(list *Wikicode)
	walk = func(list *Wikicode) {
		for n := list.first; n != nil; n = n.Next() {
			s, ok := n.(*Section)
			if !ok {
				continue
			}
			matched := q.wantsLevel(s.level) && (q.Match == nil || q.Match(s.Title()))
			if matched {
				out = append(out, s)
			}
			if !matched || q.Flat {
				walk(s.body)
			}
		}
	}
	walk(w)
	return out
}

// TitleIs builds a SectionQuery matcher comparing normalized titles.
func TitleIs(titles ...string) func(string) bool {
	want := make(map[string]bool, len(titles))
	for _, t := range titles {
		want[NormalizeName(t)] = true
	}
	return func(title string) bool { return want[NormalizeName(title)] }
}

func (q SectionQuery) wantsLevel(level int) bool {
	if len(q.Levels) == 0 {
		return true
	}
	for _, l := range q.Levels {
		if l == level {
			return true
		}
	}
	return false
}
