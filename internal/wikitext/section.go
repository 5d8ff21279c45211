package wikitext

import (
	"strings"

	"golang.org/x/net/html"
)

// Section is a heading together with everything up to the next heading of
// the same or a shallower level. Deeper headings nest inside the body.
type Section struct {
	links
	level    int
	title    string // raw text between the = runs
	trailing string // whitespace after the closing = run
	body     *Wikicode
}

// NewSection builds "== title ==" followed by a newline.
func NewSection(level int, title string) *Section {
	s := &Section{level: clampLevel(level), title: " " + strings.TrimSpace(title) + " "}
	s.body = NewWikicode(NewText("\n"))
	s.body.owner = s
	return s
}

func (*Section) Kind() Kind { return KindSection }

func (s *Section) Level() int { return s.level }

// Title returns the heading text without inline tags, comments or padding.
func (s *Section) Title() string { return CleanHeading(s.title) }

// RawTitle returns the heading text exactly as written between the = runs.
func (s *Section) RawTitle() string { return s.title }

func (s *Section) SetRawTitle(raw string) { s.title = raw }

// Trailing returns whatever followed the closing = run on the heading line.
func (s *Section) Trailing() string { return s.trailing }

func (s *Section) SetTrailing(t string) { s.trailing = t }

// Body returns the content below the heading, subsections included.
func (s *Section) Body() *Wikicode { return s.body }

// Heading renders the heading line without its newline.
func (s *Section) Heading() string {
	run := strings.Repeat("=", s.level)
	return run + s.title + run + s.trailing
}

func (s *Section) String() string { return render(s) }

func (s *Section) writeTo(sb *strings.Builder) {
	sb.WriteString(s.Heading())
	s.body.writeTo(sb)
}

func clampLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > 6 {
		return 6
	}
	return level
}

// CleanHeading reduces raw heading text to its visible words: HTML comments
// and inline tags such as <span id="..."> are dropped, entities decoded and
// whitespace collapsed.
func CleanHeading(raw string) string {
	if !strings.ContainsAny(raw, "<&") {
		return strings.Join(strings.Fields(raw), " ")
	}
	var sb strings.Builder
	z := html.NewTokenizer(strings.NewReader(raw))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.TextToken {
			sb.Write(z.Text())
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}
