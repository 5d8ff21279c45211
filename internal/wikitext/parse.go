package wikitext

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxDepth bounds template/link nesting.
const maxDepth = 200

// ParseError reports markup that cannot be tokenized at all. Unbalanced
// brackets are not an error; they come back as literal text.
type ParseError struct {
	Offset int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse wikitext at offset %d: %s", e.Offset, e.Reason)
}

// Parse turns page markup into a tree. Serializing the result without edits
// reproduces text byte for byte.
func Parse(text string) (*Wikicode, error) {
	if !utf8.ValidString(text) {
		off := 0
		for off < len(text) {
			r, size := utf8.DecodeRuneInString(text[off:])
			if r == utf8.RuneError && size <= 1 {
				break
			}
			off += size
		}
		return nil, &ParseError{Offset: off, Reason: "invalid UTF-8"}
	}
	p := newParser(text)
	nodes, _, err := p.parseSeq(0, true)
	if err != nil {
		return nil, err
	}
	return nest(nodes), nil
}

// ParseFragment parses a snippet that will be placed inside an existing
// tree. Headings are not recognized. Markup that fails to parse is kept as a
// single text node.
func ParseFragment(text string) *Wikicode {
	w := &Wikicode{}
	if text == "" {
		return w
	}
	if !utf8.ValidString(text) {
		w.Append(NewText(text))
		return w
	}
	p := newParser(text)
	nodes, _, err := p.parseSeq(0, false)
	if err != nil {
		w.Append(NewText(text))
		return w
	}
	w.Append(nodes...)
	return w
}

// nest folds flat heading nodes into a section hierarchy: every node after a
// heading belongs to it until a heading of the same or a shallower level.
func nest(nodes []Node) *Wikicode {
	root := &Wikicode{}
	type stackEntry struct {
		body  *Wikicode
		level int
	}
	stack := []stackEntry{{body: root, level: 0}}
	for _, n := range nodes {
		if s, ok := n.(*Section); ok {
			for len(stack) > 1 && stack[len(stack)-1].level >= s.level {
				stack = stack[:len(stack)-1]
			}
			stack[len(stack)-1].body.Append(s)
			stack = append(stack, stackEntry{body: s.body, level: s.level})
			continue
		}
		stack[len(stack)-1].body.Append(n)
	}
	return root
}

type stopSet uint8

const (
	stopPipe stopSet = 1 << iota
	stopEquals
	stopCloseTemplate
	stopCloseLink
)

type failKey struct {
	pos      int
	kind     Kind
	tmpl     bool
	wikilink bool
}

type parser struct {
	src    string
	pos    int
	depth  int
	tmpl   int // open templates
	wlink  int // open wikilinks
	failed map[failKey]bool
}

func newParser(src string) *parser {
	return &parser{src: src, failed: make(map[failKey]bool)}
}

const special = "{}[]|=<"

// parseSeq consumes nodes until a stop token shows up at the current level
// and returns the token without consuming it ("" at end of input). A closer
// belonging to an enclosing template or link also stops the sequence so the
// caller can give up on its own opener.
func (p *parser) parseSeq(stop stopSet, atRoot bool) ([]Node, string, error) {
	var out []Node
	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			out = append(out, &Text{Value: text.String()})
			text.Reset()
		}
	}

	for p.pos < len(p.src) {
		rest := p.src[p.pos:]
		i := strings.IndexAny(rest, special)
		if i < 0 {
			text.WriteString(rest)
			p.pos = len(p.src)
			break
		}
		if i > 0 {
			text.WriteString(rest[:i])
			p.pos += i
			rest = rest[i:]
		}

		switch {
		case strings.HasPrefix(rest, "}}") && (stop&stopCloseTemplate != 0 || p.tmpl > 0):
			flush()
			return out, "}}", nil
		case strings.HasPrefix(rest, "]]") && (stop&stopCloseLink != 0 || p.wlink > 0):
			flush()
			return out, "]]", nil
		case rest[0] == '|' && stop&stopPipe != 0:
			flush()
			return out, "|", nil
		case rest[0] == '=' && stop&stopEquals != 0:
			flush()
			return out, "=", nil

		case strings.HasPrefix(rest, "<!--"):
			flush()
			out = append(out, p.parseComment())

		case strings.HasPrefix(rest, "{{{"):
			text.WriteByte('{')
			p.pos++

		case strings.HasPrefix(rest, "{{"):
			t, err := p.parseTemplate()
			if err != nil {
				return nil, "", err
			}
			if t == nil {
				text.WriteString("{{")
				p.pos += 2
				continue
			}
			flush()
			out = append(out, t)

		case strings.HasPrefix(rest, "[["):
			l, err := p.parseWikilink()
			if err != nil {
				return nil, "", err
			}
			if l == nil {
				text.WriteString("[[")
				p.pos += 2
				continue
			}
			flush()
			out = append(out, l)

		case rest[0] == '[' && hasScheme(rest[1:]):
			if l := p.parseExternalLink(); l != nil {
				flush()
				out = append(out, l)
				continue
			}
			text.WriteByte('[')
			p.pos++

		case rest[0] == '=' && atRoot && (p.pos == 0 || p.src[p.pos-1] == '\n'):
			if s := p.parseHeading(); s != nil {
				flush()
				out = append(out, s)
				continue
			}
			text.WriteByte('=')
			p.pos++

		default:
			text.WriteByte(rest[0])
			p.pos++
		}
	}
	flush()
	return out, "", nil
}

func (p *parser) parseComment() *Comment {
	body := p.src[p.pos+4:]
	end := strings.Index(body, "-->")
	if end < 0 {
		p.pos = len(p.src)
		return &Comment{Content: body, unterminated: true}
	}
	p.pos += 4 + end + 3
	return &Comment{Content: body[:end]}
}

func (p *parser) enter(kind Kind) (failKey, bool, error) {
	key := failKey{pos: p.pos, kind: kind, tmpl: p.tmpl > 0, wikilink: p.wlink > 0}
	if p.failed[key] {
		return key, false, nil
	}
	if p.depth >= maxDepth {
		return key, false, &ParseError{Offset: p.pos, Reason: "nesting too deep"}
	}
	return key, true, nil
}

// parseTemplate reads {{name|...}} at p.pos. It returns nil, leaving p.pos
// untouched, when the opener has no matching closer.
func (p *parser) parseTemplate() (*Template, error) {
	key, ok, err := p.enter(KindTemplate)
	if !ok || err != nil {
		return nil, err
	}
	start := p.pos
	p.depth++
	p.tmpl++
	defer func() {
		p.depth--
		p.tmpl--
	}()
	fail := func() (*Template, error) {
		p.failed[key] = true
		p.pos = start
		return nil, nil
	}

	p.pos += 2
	nameNodes, tok, err := p.parseSeq(stopPipe|stopCloseTemplate, false)
	if err != nil {
		return nil, err
	}
	name := joinNodes(nameNodes)
	if (tok != "|" && tok != "}}") || strings.TrimSpace(name) == "" {
		return fail()
	}

	t := &Template{name: name}
	for tok == "|" {
		p.pos++
		keyNodes, next, err := p.parseSeq(stopPipe|stopCloseTemplate|stopEquals, false)
		if err != nil {
			return nil, err
		}
		param := &Param{owner: t}
		if next == "=" {
			p.pos++
			valNodes, after, err := p.parseSeq(stopPipe|stopCloseTemplate, false)
			if err != nil {
				return nil, err
			}
			param.showKey = true
			param.rawKey = joinNodes(keyNodes)
			param.value = NewWikicode(valNodes...)
			next = after
		} else {
			param.value = NewWikicode(keyNodes...)
		}
		param.value.owner = t
		t.params = append(t.params, param)
		tok = next
	}
	if tok != "}}" {
		return fail()
	}
	p.pos += 2
	return t, nil
}

// parseWikilink reads [[target]] or [[target|text]] at p.pos.
func (p *parser) parseWikilink() (*Wikilink, error) {
	key, ok, err := p.enter(KindWikilink)
	if !ok || err != nil {
		return nil, err
	}
	start := p.pos
	p.depth++
	p.wlink++
	defer func() {
		p.depth--
		p.wlink--
	}()
	fail := func() (*Wikilink, error) {
		p.failed[key] = true
		p.pos = start
		return nil, nil
	}

	i := p.pos + 2
	for i < len(p.src) {
		c := p.src[i]
		if c == '|' || strings.HasPrefix(p.src[i:], "]]") {
			break
		}
		if c == '\n' || c == '[' || c == ']' || c == '{' || c == '}' {
			return fail()
		}
		i++
	}
	if i >= len(p.src) {
		return fail()
	}
	target := p.src[p.pos+2 : i]
	if strings.TrimSpace(target) == "" {
		return fail()
	}
	l := &Wikilink{Target: target}
	if p.src[i] == ']' {
		p.pos = i + 2
		return l, nil
	}

	p.pos = i + 1
	nodes, tok, err := p.parseSeq(stopCloseLink, false)
	if err != nil {
		return nil, err
	}
	if tok != "]]" {
		return fail()
	}
	p.pos += 2
	l.text = NewWikicode(nodes...)
	l.text.owner = l
	return l, nil
}

var schemes = []string{"http://", "https://", "//", "ftp://", "irc://", "mailto:", "news:"}

func hasScheme(s string) bool {
	lower := strings.ToLower(s[:min(len(s), 8)])
	for _, sc := range schemes {
		if strings.HasPrefix(lower, sc) {
			return true
		}
	}
	return false
}

// parseExternalLink reads [url title] at p.pos; the link must close on the
// same line and, inside a template, before any pipe.
func (p *parser) parseExternalLink() *ExternalLink {
	rest := p.src[p.pos+1:]
	end := strings.IndexAny(rest, " \t]\n<")
	if end <= 0 {
		return nil
	}
	url := rest[:end]
	i := end
	for i < len(rest) && (rest[i] == ' ' || rest[i] == '\t') {
		i++
	}
	sep := rest[end:i]
	close := strings.IndexAny(rest[i:], "]\n")
	if close < 0 || rest[i+close] != ']' {
		return nil
	}
	title := rest[i : i+close]
	if p.tmpl > 0 && (strings.Contains(title, "|") || strings.Contains(title, "}}")) {
		return nil
	}
	if strings.Contains(title, "[") {
		return nil
	}
	p.pos += 1 + i + close + 1
	return &ExternalLink{URL: url, Title: title, sep: sep, raw: true}
}

// parseHeading reads a "== title ==" line at p.pos. The newline is left for
// the section body.
func (p *parser) parseHeading() *Section {
	line := p.src[p.pos:]
	if nl := strings.IndexByte(line, '\n'); nl >= 0 {
		line = line[:nl]
	}
	content := strings.TrimRight(line, " \t")
	open := len(content) - len(strings.TrimLeft(content, "="))
	closing := len(content) - len(strings.TrimRight(content, "="))
	level := min(open, closing, 6)
	if level == 0 || len(content) <= 2*level {
		return nil
	}
	s := &Section{
		level:    level,
		title:    content[level : len(content)-level],
		trailing: line[len(content):],
	}
	s.body = &Wikicode{owner: s}
	p.pos += len(line)
	return s
}

func joinNodes(nodes []Node) string {
	var sb strings.Builder
	for _, n := range nodes {
		n.writeTo(&sb)
	}
	return sb.String()
}
