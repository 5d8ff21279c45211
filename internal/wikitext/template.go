package wikitext

import (
	"strconv"
	"strings"
)

// Template is a transclusion: {{name|positional|key=value}}.
type Template struct {
	links
	name   string
	params []*Param
}

// Param is one template argument. Positional arguments carry no explicit key
// and are numbered from 1 in source order.
type Param struct {
	owner   *Template
	rawKey  string
	showKey bool
	value   *Wikicode
}

// NewTemplate builds {{name}} with no parameters. The name is used verbatim.
func NewTemplate(name string) *Template { return &Template{name: name} }

func (*Template) Kind() Kind { return KindTemplate }

// Name returns the template name without surrounding whitespace.
func (t *Template) Name() string { return strings.TrimSpace(t.name) }

// RawName returns the name exactly as written, e.g. "QuickbarCity\n".
func (t *Template) RawName() string { return t.name }

func (t *Template) SetRawName(name string) { t.name = name }

// NameMatches compares names after NormalizeName.
func (t *Template) NameMatches(name string) bool { return SameName(t.name, name) }

// Params returns the parameters in their current order.
func (t *Template) Params() []*Param {
	out := make([]*Param, len(t.params))
	copy(out, t.params)
	return out
}

// Key returns the name of p: its trimmed explicit key, or its positional index.
func (t *Template) Key(p *Param) string {
	if p.showKey {
		return strings.TrimSpace(p.rawKey)
	}
	pos := 0
	for _, q := range t.params {
		if !q.showKey {
			pos++
		}
		if q == p {
			return strconv.Itoa(pos)
		}
	}
	return ""
}

// Has reports whether a parameter named key exists.
func (t *Template) Has(key string) bool {
	return t.index(key) >= 0
}

// Get returns the parameter named key. When a key is repeated the last one
// wins, as it does when the wiki renders the page.
func (t *Template) Get(key string) (*Param, bool) {
	i := t.index(key)
	if i < 0 {
		return nil, false
	}
	return t.params[i], true
}

// Lookup returns the trimmed value of key.
func (t *Template) Lookup(key string) (string, bool) {
	p, ok := t.Get(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(p.value.String()), true
}

// IsBlank reports whether key is absent or holds only whitespace.
func (t *Template) IsBlank(key string) bool {
	v, _ := t.Lookup(key)
	return v == ""
}

// Positional returns the n-th positional parameter (1-based).
func (t *Template) Positional(n int) (*Param, bool) {
	return t.Get(strconv.Itoa(n))
}

type addOptions struct {
	before   string
	preserve bool
}

// AddOption tunes Template.Add.
type AddOption func(*addOptions)

// Before inserts a new parameter immediately before key. When key is absent
// the parameter is appended instead.
func Before(key string) AddOption {
	return func(o *addOptions) { o.before = key }
}

// PreserveSpacing keeps key and value exactly as passed. Without it the value
// is trimmed and takes the padding of the parameter it replaces, or of its
// neighbour when it is new.
func PreserveSpacing() AddOption {
	return func(o *addOptions) { o.preserve = true }
}

// Add sets key to value. An existing parameter is overwritten where it
// stands; a new one goes before the Before key when present, else at the end.
func (t *Template) Add(key, value string, opts ...AddOption) *Param {
	var o addOptions
	for _, fn := range opts {
		fn(&o)
	}
	name := strings.TrimSpace(key)

	if p, ok := t.Get(name); ok {
		if o.preserve {
			p.SetValue(value)
		} else {
			lead, trail := padding(p.value.String())
			p.SetValue(lead + strings.TrimSpace(value) + trail)
		}
		return p
	}

	idx := len(t.params)
	var ref *Param
	if o.before != "" {
		if i := t.index(o.before); i >= 0 {
			idx = i
			ref = t.params[i]
		}
	}
	if ref == nil {
		ref = t.lastExplicit()
	}

	p := &Param{owner: t, showKey: true}
	switch {
	case o.preserve:
		p.rawKey = key
		p.value = ParseFragment(value)
	case ref != nil:
		kl, kt := padding(ref.rawKey)
		vl, vt := padding(ref.value.String())
		p.rawKey = kl + name + kt
		p.value = ParseFragment(vl + strings.TrimSpace(value) + vt)
	default:
		p.rawKey = name
		p.value = ParseFragment(strings.TrimSpace(value))
	}
	p.value.owner = t
	if name == strconv.Itoa(t.positionalCount()+1) && idx == len(t.params) && !hasBareEquals(p.value) {
		p.showKey = false
		p.rawKey = ""
	}

	t.params = append(t.params, nil)
	copy(t.params[idx+1:], t.params[idx:])
	t.params[idx] = p
	return p
}

// Remove deletes every parameter named key. It reports whether any existed.
func (t *Template) Remove(key string) bool {
	name := strings.TrimSpace(key)
	removed := false
	for {
		i := t.index(name)
		if i < 0 {
			return removed
		}
		t.params[i].value.release()
		t.params = append(t.params[:i], t.params[i+1:]...)
		removed = true
	}
}

// RemoveParam deletes p if it belongs to t.
func (t *Template) RemoveParam(p *Param) bool {
	for i, q := range t.params {
		if q == p {
			p.value.release()
			t.params = append(t.params[:i], t.params[i+1:]...)
			return true
		}
	}
	return false
}

func (t *Template) String() string { return render(t) }

func (t *Template) writeTo(sb *strings.Builder) {
	sb.WriteString("{{")
	sb.WriteString(t.name)
	for _, p := range t.params {
		sb.WriteByte('|')
		if p.showKey {
			sb.WriteString(p.rawKey)
			sb.WriteByte('=')
		}
		p.value.writeTo(sb)
	}
	sb.WriteString("}}")
}

func (t *Template) index(key string) int {
	name := strings.TrimSpace(key)
	for i := len(t.params) - 1; i >= 0; i-- {
		if t.Key(t.params[i]) == name {
			return i
		}
	}
	return -1
}

func (t *Template) positionalCount() int {
	n := 0
	for _, p := range t.params {
		if !p.showKey {
			n++
		}
	}
	return n
}

func (t *Template) lastExplicit() *Param {
	for i := len(t.params) - 1; i >= 0; i-- {
		if t.params[i].showKey {
			return t.params[i]
		}
	}
	return nil
}

// Value returns the parameter's value list.
func (p *Param) Value() *Wikicode { return p.value }

// RawKey returns the key as written, padding included; empty when positional.
func (p *Param) RawKey() string { return p.rawKey }

// SetRawKey writes the key verbatim, turning a positional parameter into an
// explicit one.
func (p *Param) SetRawKey(raw string) {
	p.showKey = true
	p.rawKey = raw
}

// Explicit reports whether the parameter was written as key=value.
func (p *Param) Explicit() bool { return p.showKey }

// SetValue replaces the value verbatim. A positional value containing "="
// gets its index written out so it keeps its meaning.
func (p *Param) SetValue(value string) {
	v := ParseFragment(value)
	if !p.showKey && hasBareEquals(v) && p.owner != nil {
		p.rawKey = p.owner.Key(p)
		p.showKey = true
	}
	p.value.release()
	p.value = v
	p.value.owner = p.owner
}

// hasBareEquals reports whether v has an "=" outside nested markup, which
// would turn a positional value into a key.
func hasBareEquals(v *Wikicode) bool {
	for n := v.first; n != nil; n = n.Next() {
		if t, ok := n.(*Text); ok && strings.Contains(t.Value, "=") {
			return true
		}
	}
	return false
}

func padding(s string) (lead, trail string) {
	trimmed := strings.TrimLeft(s, " \t\n")
	if trimmed == "" {
		// Blank value: spaces before the first newline lead, the rest trails.
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			return s[:i], s[i:]
		}
		return "", s
	}
	lead = s[:len(s)-len(trimmed)]
	body := strings.TrimRight(trimmed, " \t\n")
	return lead, trimmed[len(body):]
}
