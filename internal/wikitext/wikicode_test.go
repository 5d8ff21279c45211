package wikitext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWikicode_InsertBeforeAndAfter(t *testing.T) {
	doc, err := Parse("a<!--c-->b")
	require.NoError(t, err)
	comment := doc.Comments()[0]

	require.NoError(t, InsertAfter(comment, NewText("X")))
	require.NoError(t, InsertBefore(comment, NewText("Y"), NewText("Z")))
	assert.Equal(t, "aYZ<!--c-->Xb", doc.String())
	assert.Equal(t, 6, doc.Len())
}

func TestWikicode_RemoveThenUseAsAnchor(t *testing.T) {
	doc, err := Parse("x {{Pagebanner|Foo.jpg}} y")
	require.NoError(t, err)
	banner := doc.Templates()[0]

	require.NoError(t, Remove(banner))
	assert.Equal(t, "x  y", doc.String())
	assert.False(t, Attached(banner))

	assert.ErrorIs(t, InsertAfter(banner, NewText("z")), ErrNodeRemoved)
	assert.ErrorIs(t, Remove(banner), ErrNodeRemoved)
	assert.ErrorIs(t, Remove(NewText("never attached")), ErrNotInTree)
}

func TestWikicode_ReplaceAndRelocate(t *testing.T) {
	doc, err := Parse("[[File:A.jpg|thumb|Caption]]\nText\n== Da sapere ==\nBody\n")
	require.NoError(t, err)
	link := doc.Wikilinks()[0]
	quickbar := NewTemplate("QuickbarAirport\n")

	require.NoError(t, Replace(link, quickbar))
	assert.Equal(t, "{{QuickbarAirport\n}}\nText\n== Da sapere ==\nBody\n", doc.String())
	assert.ErrorIs(t, InsertBefore(link, NewText("x")), ErrNodeRemoved)

	// Moving an attached node detaches it from its old place.
	sec := doc.Sections(SectionQuery{Levels: []int{2}})[0]
	require.NoError(t, sec.Body().Append(quickbar))
	assert.Equal(t, "\nText\n== Da sapere ==\nBody\n{{QuickbarAirport\n}}", doc.String())
	assert.Same(t, sec.Body(), quickbar.Parent())
}

func TestWikicode_NoCycles(t *testing.T) {
	doc, err := Parse("{{A|x={{B}}}}")
	require.NoError(t, err)
	outer := doc.TemplatesNamed("A")[0]
	inner := doc.TemplatesNamed("B")[0]

	assert.ErrorIs(t, InsertAfter(inner, outer), ErrCycle)
	assert.Equal(t, "{{A|x={{B}}}}", doc.String())
}

func TestWikicode_FilterIsSnapshot(t *testing.T) {
	doc, err := Parse("{{A}}{{B}}{{C}}")
	require.NoError(t, err)
	ts := doc.Templates()
	require.Len(t, ts, 3)

	for _, tmpl := range ts {
		require.NoError(t, Remove(tmpl))
	}
	assert.Equal(t, "", doc.String())
	assert.Equal(t, 0, doc.Len())
}

func TestWikicode_Prepend(t *testing.T) {
	doc, err := Parse("body")
	require.NoError(t, err)
	require.NoError(t, doc.Prepend(NewTemplate("Q"), NewText("\n")))
	assert.Equal(t, "{{Q}}\nbody", doc.String())
}

func TestWikicode_NewSection(t *testing.T) {
	s := NewSection(3, "Voli")
	assert.Equal(t, "=== Voli ===\n", s.String())
	assert.Equal(t, "Voli", s.Title())
}
