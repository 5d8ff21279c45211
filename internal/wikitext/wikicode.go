package wikitext

import (
	"errors"
	"strings"
)

var (
	// ErrNodeRemoved is returned when a node that was removed from its tree is
	// used as an anchor for a structural edit.
	ErrNodeRemoved = errors.New("node was removed from the tree")
	// ErrNotInTree is returned when an anchor node was never attached.
	ErrNotInTree = errors.New("node is not attached to a tree")
	// ErrCycle is returned when a node would become its own descendant.
	ErrCycle = errors.New("node cannot be inserted inside itself")
)

// Wikicode is an ordered child list. The parsed page, every section body,
// every template parameter value and every link label is a Wikicode.
type Wikicode struct {
	owner Node // nil for the page root
	first Node
	last  Node
	n     int
}

// NewWikicode returns an empty, detached child list.
func NewWikicode(nodes ...Node) *Wikicode {
	w := &Wikicode{}
	for _, n := range nodes {
		w.Append(n)
	}
	return w
}

// Owner returns the node whose child list this is (a section, template or
// link), or nil for the page root.
func (w *Wikicode) Owner() Node { return w.owner }

func (w *Wikicode) First() Node { return w.first }
func (w *Wikicode) Last() Node  { return w.last }
func (w *Wikicode) Len() int    { return w.n }

// Nodes returns a snapshot of the direct children.
func (w *Wikicode) Nodes() []Node {
	out := make([]Node, 0, w.n)
	for n := w.first; n != nil; n = n.Next() {
		out = append(out, n)
	}
	return out
}

func (w *Wikicode) String() string {
	var sb strings.Builder
	w.writeTo(&sb)
	return sb.String()
}

func (w *Wikicode) writeTo(sb *strings.Builder) {
	for n := w.first; n != nil; n = n.Next() {
		n.writeTo(sb)
	}
}

// Append adds nodes at the end. Attached nodes are moved.
func (w *Wikicode) Append(nodes ...Node) error {
	for _, n := range nodes {
		if err := w.attachAfter(w.last, n); err != nil {
			return err
		}
	}
	return nil
}

// Prepend adds nodes at the start, keeping their relative order.
func (w *Wikicode) Prepend(nodes ...Node) error {
	var prev Node
	for _, n := range nodes {
		if err := w.attachAfter(prev, n); err != nil {
			return err
		}
		prev = n
	}
	return nil
}

// InsertBefore places nodes immediately before anchor in anchor's parent list.
func InsertBefore(anchor Node, nodes ...Node) error {
	w, err := parentOf(anchor)
	if err != nil {
		return err
	}
	prev := anchor.Prev()
	for _, n := range nodes {
		if n == anchor {
			continue
		}
		if err := w.attachAfter(prev, n); err != nil {
			return err
		}
		prev = n
	}
	return nil
}

// InsertAfter places nodes immediately after anchor in anchor's parent list.
func InsertAfter(anchor Node, nodes ...Node) error {
	w, err := parentOf(anchor)
	if err != nil {
		return err
	}
	prev := anchor
	for _, n := range nodes {
		if n == anchor {
			continue
		}
		if err := w.attachAfter(prev, n); err != nil {
			return err
		}
		prev = n
	}
	return nil
}

// Remove detaches n. Later edits anchored on n fail with ErrNodeRemoved.
func Remove(n Node) error {
	w, err := parentOf(n)
	if err != nil {
		return err
	}
	w.unlink(n)
	n.link().removed = true
	return nil
}

// Replace puts repl where old was and marks old removed.
func Replace(old, repl Node) error {
	if old == repl {
		return nil
	}
	if err := InsertAfter(old, repl); err != nil {
		return err
	}
	return Remove(old)
}

// Attached reports whether n is currently part of a child list.
func Attached(n Node) bool { return n.link().parent != nil }

func parentOf(n Node) (*Wikicode, error) {
	l := n.link()
	if l.parent != nil {
		return l.parent, nil
	}
	if l.removed {
		return nil, ErrNodeRemoved
	}
	return nil, ErrNotInTree
}

// attachAfter links n after prev (nil means at the front), moving n first if
// it is attached elsewhere.
func (w *Wikicode) attachAfter(prev Node, n Node) error {
	if contains(n, w) {
		return ErrCycle
	}
	if n.link().parent != nil {
		if n == prev {
			return nil
		}
		n.link().parent.unlink(n)
	}
	l := n.link()
	l.parent = w
	l.removed = false
	l.prev = prev
	if prev == nil {
		l.next = w.first
		w.first = n
	} else {
		l.next = prev.Next()
		prev.link().next = n
	}
	if l.next != nil {
		l.next.link().prev = n
	} else {
		w.last = n
	}
	w.n++
	return nil
}

func (w *Wikicode) unlink(n Node) {
	l := n.link()
	if l.prev != nil {
		l.prev.link().next = l.next
	} else {
		w.first = l.next
	}
	if l.next != nil {
		l.next.link().prev = l.prev
	} else {
		w.last = l.prev
	}
	l.parent, l.prev, l.next = nil, nil, nil
	w.n--
}

// release marks every child removed; used when a value list is replaced.
func (w *Wikicode) release() {
	for n := w.first; n != nil; {
		next := n.Next()
		l := n.link()
		l.parent, l.prev, l.next = nil, nil, nil
		l.removed = true
		n = next
	}
	w.first, w.last, w.n = nil, nil, 0
}

// contains reports whether list w sits somewhere inside node n.
func contains(n Node, w *Wikicode) bool {
	for cur := w; cur != nil; {
		owner := cur.owner
		if owner == nil {
			return false
		}
		if owner == n {
			return true
		}
		cur = owner.link().parent
	}
	return false
}

// children returns the nested child lists of n in document order.
func children(n Node) []*Wikicode {
	switch v := n.(type) {
	case *Template:
		out := make([]*Wikicode, 0, len(v.params))
		for _, p := range v.params {
			out = append(out, p.value)
		}
		return out
	case *Wikilink:
		if v.text != nil {
			return []*Wikicode{v.text}
		}
	case *Section:
		return []*Wikicode{v.body}
	case *Text, *Comment, *ExternalLink:
	}
	return nil
}
