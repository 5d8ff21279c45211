package section

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/voybot/internal/wikitext"
)

func parse(t *testing.T, src string) *wikitext.Wikicode {
	t.Helper()
	doc, err := wikitext.Parse(src)
	require.NoError(t, err)
	return doc
}

func TestFind(t *testing.T) {
	doc := parse(t, "== Da sapere ==\nx\n=== Cenni storici ===\ny\n== Come arrivare ==\n")

	s, err := Find(doc, "da sapere", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, "Da sapere", s.Title())

	sub, err := Find(doc, "Cenni storici", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, sub.Level())

	_, err = Find(doc, "Cenni storici", 2)
	assert.ErrorIs(t, err, ErrMissingSection)
}

func TestFind_Ambiguous(t *testing.T) {
	doc := parse(t, "== Da sapere ==\nx\n== Da sapere ==\ny\n")
	_, err := Find(doc, "Da sapere", 2, 3)
	assert.ErrorIs(t, err, ErrAmbiguousSection)
}

func TestFindAny_AllowList(t *testing.T) {
	doc := parse(t, "== Territori e mete turistiche ==\n")
	s, err := FindAny(doc, []string{"Come orientarsi", "Territori e mete turistiche"}, 2)
	require.NoError(t, err)
	assert.Equal(t, "Territori e mete turistiche", s.Title())
}

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		name  string
		src   string
		empty bool
	}{
		{"comment and spacer", "== Da sapere ==\n<!-- da scrivere -->\n{{-}}\n\n== Altro ==\n", true},
		{"only newlines", "== Da sapere ==\n\n\n== Altro ==\n", true},
		{"spaced spacer", "== Da sapere ==\n{{ - }}\n", true},
		{"visible text", "== Da sapere ==\n<!-- c -->Testo.\n== Altro ==\n", false},
		{"other template", "== Da sapere ==\n{{Citylist}}\n", false},
		{"subsection counts", "== Da sapere ==\n=== Cenni ===\n", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := parse(t, tc.src)
			s, err := Find(doc, "Da sapere", 2)
			require.NoError(t, err)
			before := doc.String()
			assert.Equal(t, tc.empty, IsEmpty(s))
			assert.Equal(t, before, doc.String())
		})
	}
}

func TestSpacerAbove(t *testing.T) {
	doc := parse(t, "Intro\n== A ==\na\n=== A1 ===\nx\n{{-}}\n\n== B ==\nb\n== C ==\n")
	secs := doc.Sections(wikitext.SectionQuery{Levels: []int{2}})
	require.Len(t, secs, 3)

	assert.False(t, SpacerAbove(secs[0]))
	assert.True(t, SpacerAbove(secs[1]))
	assert.False(t, SpacerAbove(secs[2]))

	list, stop := Boundary(secs[1])
	assert.Nil(t, stop)
	assert.Equal(t, "A1", list.Owner().(*wikitext.Section).Title())

	list, stop = Boundary(secs[0])
	assert.Same(t, secs[0], stop)
	assert.Same(t, doc, list)
}

func TestValidateStructure(t *testing.T) {
	policy := Policy{
		Level:    2,
		Sections: []string{"Da sapere", "Come arrivare", "Dove mangiare"},
		Subsections: map[string][]string{
			"Da sapere": {"Cenni geografici", "Quando andare"},
		},
	}
	doc := parse(t, "== Come arrivare ==\n== Da sapere ==\n=== Quando andare ===\n")

	vs := ValidateStructure(doc, policy)
	assert.ElementsMatch(t, []Violation{
		{Kind: OutOfOrderKind, Location: "Come arrivare", Detail: `expected after "Da sapere"`},
		{Kind: MissingSectionKind, Location: "page", Detail: "Dove mangiare"},
		{Kind: MissingSubsectionKind, Location: "Da sapere", Detail: "Cenni geografici"},
	}, vs)
}

func TestValidateStructure_Duplicate(t *testing.T) {
	doc := parse(t, "== Voli ==\n== Voli ==\n")
	vs := ValidateStructure(doc, Policy{Sections: []string{"Voli"}})
	require.Len(t, vs, 1)
	assert.Equal(t, DuplicateSectionKind, vs[0].Kind)
}

func TestInsertSubsection(t *testing.T) {
	doc := parse(t, "== Da sapere ==\nTesto\n=== Cenni storici ===\nStoria\n== Come arrivare ==\n")
	parent, err := Find(doc, "Da sapere", 2)
	require.NoError(t, err)

	order := []string{"Cenni geografici", "Quando andare", "Cenni storici"}
	sub, err := InsertSubsection(parent, "Quando andare", order)
	require.NoError(t, err)
	assert.Equal(t, 3, sub.Level())
	_, err = InsertSubsection(parent, "Extra", order)
	require.NoError(t, err)

	assert.Equal(t,
		"== Da sapere ==\nTesto\n=== Quando andare ===\n=== Cenni storici ===\nStoria\n=== Extra ===\n== Come arrivare ==\n",
		doc.String())
	assert.Empty(t, ValidateStructure(doc, Policy{
		Sections:    []string{"Da sapere"},
		Subsections: map[string][]string{"Da sapere": {"Quando andare", "Extra"}},
	}))

	_, err = InsertSubsection(nil, "Extra", order)
	assert.ErrorIs(t, err, wikitext.ErrNotInTree)
}
