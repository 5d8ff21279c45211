package section

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgallion1/voybot/internal/wikitext"
)

// ViolationKind classifies a structural problem.
type ViolationKind string

const (
	MissingSectionKind    ViolationKind = "missing_section"
	MissingSubsectionKind ViolationKind = "missing_subsection"
	DuplicateSectionKind  ViolationKind = "duplicate_section"
	OutOfOrderKind        ViolationKind = "out_of_order"
	EmptySectionKind      ViolationKind = "empty_section"
)

// Violation is one structural finding on a page.
type Violation struct {
	Kind     ViolationKind `json:"kind"`
	Location string        `json:"location"`
	Detail   string        `json:"detail"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s at %s: %s", v.Kind, v.Location, v.Detail)
}

// Policy describes the canonical layout of an article type.
type Policy struct {
	Name string `yaml:"name"`
	// Level of the expected top sections, normally 2.
	Level int `yaml:"level"`
	// Expected top-level section titles in their canonical order.
	Sections []string `yaml:"sections"`
	// Required subsection titles keyed by parent section title.
	Subsections map[string][]string `yaml:"subsections"`
}

// ValidateStructure compares doc against p and returns every violation
// found. It never fails; callers log the result or act on it.
func ValidateStructure(doc *wikitext.Wikicode, p Policy) []Violation {
	level := p.Level
	if level == 0 {
		level = 2
	}
	var out []Violation

	lastPos := -1
	lastTitle := ""
	found := make(map[string]*wikitext.Section, len(p.Sections))
	positions := sectionPositions(doc, level)

	for _, title := range p.Sections {
		s, err := Find(doc, title, level)
		switch {
		case errors.Is(err, ErrMissingSection):
			out = append(out, Violation{Kind: MissingSectionKind, Location: "page", Detail: title})
			continue
		case errors.Is(err, ErrAmbiguousSection):
			out = append(out, Violation{Kind: DuplicateSectionKind, Location: "page", Detail: title})
			continue
		}
		found[title] = s
		pos := positions[s]
		if pos < lastPos {
			out = append(out, Violation{
				Kind:     OutOfOrderKind,
				Location: title,
				Detail:   fmt.Sprintf("expected after %q", lastTitle),
			})
		} else {
			lastPos, lastTitle = pos, title
		}
	}

	for _, parent := range p.Sections {
		subs := p.Subsections[parent]
		s, ok := found[parent]
		if !ok || len(subs) == 0 {
			continue
		}
		for _, sub := range subs {
			matches := s.Body().Sections(wikitext.SectionQuery{
				Levels: []int{level + 1},
				Match:  wikitext.TitleIs(sub),
			})
			if len(matches) == 0 {
				out = append(out, Violation{Kind: MissingSubsectionKind, Location: parent, Detail: sub})
			}
		}
	}
	return out
}

// sectionPositions numbers every section of the given level in document order.
func sectionPositions(doc *wikitext.Wikicode, level int) map[*wikitext.Section]int {
	all := doc.Sections(wikitext.SectionQuery{Levels: []int{level}, Flat: true})
	pos := make(map[*wikitext.Section]int, len(all))
	for i, s := range all {
		pos[s] = i
	}
	return pos
}

// InsertSubsection adds an empty subsection heading to parent. It goes before
// the first existing subsection that sorts after it in order (sibling titles
// in canonical order), else at the end of parent.
func InsertSubsection(parent *wikitext.Section, title string, order []string) (*wikitext.Section, error) {
	if parent == nil {
		return nil, fmt.Errorf("insert %q: %w", title, wikitext.ErrNotInTree)
	}
	sub := wikitext.NewSection(parent.Level()+1, title)
	rank := indexOf(order, title)

	var anchor wikitext.Node
	if rank >= 0 {
		for _, existing := range parent.Body().Sections(wikitext.SectionQuery{Levels: []int{parent.Level() + 1}}) {
			if r := indexOf(order, existing.Title()); r > rank {
				anchor = existing
				break
			}
		}
	}
	if anchor != nil {
		if err := wikitext.InsertBefore(anchor, sub); err != nil {
			return nil, fmt.Errorf("insert %q: %w", title, err)
		}
		return sub, nil
	}
	ensureNewline(parent.Body())
	if err := parent.Body().Append(sub); err != nil {
		return nil, fmt.Errorf("insert %q: %w", title, err)
	}
	return sub, nil
}

// ensureNewline makes the text at the very end of list finish a line.
func ensureNewline(list *wikitext.Wikicode) {
	for {
		switch last := list.Last().(type) {
		case *wikitext.Section:
			list = last.Body()
			continue
		case *wikitext.Text:
			if !strings.HasSuffix(last.Value, "\n") {
				last.Value += "\n"
			}
		default:
			_ = list.Append(wikitext.NewText("\n"))
		}
		return
	}
}

func indexOf(list []string, title string) int {
	for i, t := range list {
		if wikitext.SameName(t, title) {
			return i
		}
	}
	return -1
}
