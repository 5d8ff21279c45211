package wikitext

import (
	"strings"
)

// Kind identifies one of the closed set of node variants.
type Kind int

const (
	KindText Kind = iota
	KindTemplate
	KindWikilink
	KindExternalLink
	KindSection
	KindComment
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindTemplate:
		return "template"
	case KindWikilink:
		return "wikilink"
	case KindExternalLink:
		return "external_link"
	case KindSection:
		return "section"
	case KindComment:
		return "comment"
	}
	return "unknown"
}

// Node is an element of a parsed page. Implementations are *Text, *Template,
// *Wikilink, *ExternalLink, *Section and *Comment.
type Node interface {
	Kind() Kind
	// Parent returns the child list holding the node, or nil when detached.
	Parent() *Wikicode
	Next() Node
	Prev() Node
	String() string

	writeTo(sb *strings.Builder)
	link() *links
}

// links holds the sibling and parent pointers shared by every node.
type links struct {
	parent  *Wikicode
	prev    Node
	next    Node
	removed bool
}

func (l *links) link() *links      { return l }
func (l *links) Parent() *Wikicode { return l.parent }
func (l *links) Next() Node        { return l.next }
func (l *links) Prev() Node        { return l.prev }

// Text is a run of literal markup.
type Text struct {
	links
	Value string
}

func NewText(s string) *Text { return &Text{Value: s} }

func (*Text) Kind() Kind                     { return KindText }
func (t *Text) String() string               { return t.Value }
func (t *Text) writeTo(sb *strings.Builder) { sb.WriteString(t.Value) }

// Comment is an HTML comment. An unterminated comment runs to the end of input.
type Comment struct {
	links
	Content      string
	unterminated bool
}

func NewComment(content string) *Comment { return &Comment{Content: content} }

func (*Comment) Kind() Kind { return KindComment }

func (c *Comment) String() string { return render(c) }

func (c *Comment) writeTo(sb *strings.Builder) {
	sb.WriteString("<!--")
	sb.WriteString(c.Content)
	if !c.unterminated {
		sb.WriteString("-->")
	}
}

// Wikilink is an internal link: [[target]] or [[target|text]].
type Wikilink struct {
	links
	Target string
	text   *Wikicode // nil when the link has no pipe
}

// NewWikilink builds [[target]]. Use SetText to add a label.
func NewWikilink(target string) *Wikilink { return &Wikilink{Target: target} }

func (*Wikilink) Kind() Kind { return KindWikilink }

// Text returns the label after the pipe, or nil when there is none.
func (l *Wikilink) Text() *Wikicode { return l.text }

// SetText replaces the label. An empty string keeps the pipe ("[[a|]]").
func (l *Wikilink) SetText(s string) {
	if l.text != nil {
		l.text.release()
	}
	l.text = ParseFragment(s)
	l.text.owner = l
}

// ClearText drops the label and its pipe.
func (l *Wikilink) ClearText() {
	if l.text != nil {
		l.text.release()
	}
	l.text = nil
}

func (l *Wikilink) String() string { return render(l) }

func (l *Wikilink) writeTo(sb *strings.Builder) {
	sb.WriteString("[[")
	sb.WriteString(l.Target)
	if l.text != nil {
		sb.WriteByte('|')
		l.text.writeTo(sb)
	}
	sb.WriteString("]]")
}

// ExternalLink is a bracketed external link: [url title].
type ExternalLink struct {
	links
	URL   string
	Title string
	sep   string
	raw   bool // sep came from source text
}

func NewExternalLink(url, title string) *ExternalLink {
	l := &ExternalLink{URL: url, Title: title}
	if title != "" {
		l.sep = " "
	}
	return l
}

func (*ExternalLink) Kind() Kind { return KindExternalLink }

func (l *ExternalLink) String() string { return render(l) }

func (l *ExternalLink) writeTo(sb *strings.Builder) {
	sb.WriteByte('[')
	sb.WriteString(l.URL)
	if l.Title != "" && l.sep == "" && !l.raw {
		sb.WriteByte(' ')
	}
	sb.WriteString(l.sep)
	sb.WriteString(l.Title)
	sb.WriteByte(']')
}

func render(n Node) string {
	var sb strings.Builder
	n.writeTo(&sb)
	return sb.String()
}
