package format

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

func TestFormatTemplate_Styles(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{
			"quickbar",
			"{{QuickbarCity|Map=it|  Lat =45.1\n|Long=}}",
			"{{QuickbarCity\n| Map = it\n| Lat = 45.1\n| Long = \n}}",
		},
		{
			"listing",
			"{{eat | nome=Da Mario|alt= |prezzo=€}}",
			"{{eat\n| nome=Da Mario \n| alt= \n| prezzo=€ \n}}",
		},
		{
			"inline",
			"{{Città\n|nome=Foo\n|alt=\n|descrizione=bar\n}}",
			"{{Città| nome=Foo | alt= | descrizione=bar}}",
		},
		{
			"unknown template stays verbatim",
			"{{Sconosciuto\n|a = 1|b=2}}",
			"{{Sconosciuto\n|a = 1|b=2}}",
		},
		{
			"case-insensitive name lookup",
			"{{quickbarcity|Map=it}}",
			"{{quickbarcity\n| Map = it\n}}",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := parse(t, tc.src)
			DefaultPolicy().Apply(doc)
			assert.Equal(t, tc.want, doc.String())
		})
	}
}

func TestFormatTemplate_PositionalUntouched(t *testing.T) {
	doc := parse(t, "{{Città|  Foo |nome=Foo}}")
	DefaultPolicy().Apply(doc)
	assert.Equal(t, "{{Città|  Foo | nome=Foo}}", doc.String())
}

func TestFormatTemplate_PositionalOwnLine(t *testing.T) {
	doc := parse(t, "{{QuickbarCity| Roma|Map=it}}\n{{eat|Da Mario |nome=X|  secondo}}")
	p := DefaultPolicy()
	assert.True(t, p.Apply(doc))
	assert.Equal(t, "{{QuickbarCity\n| Roma\n| Map = it\n}}\n{{eat\n|Da Mario \n| nome=X \n|  secondo\n}}", doc.String())
	assert.False(t, p.Apply(doc))
}

func TestFormatTemplate_Nested(t *testing.T) {
	doc := parse(t, "{{QuickbarCity|Banner={{eat|nome=X}}|Map=it}}")
	DefaultPolicy().Apply(doc)
	assert.Equal(t, "{{QuickbarCity\n| Banner = {{eat\n| nome=X \n}}\n| Map = it\n}}", doc.String())
}

func TestPolicyApply_Idempotent(t *testing.T) {
	doc := parse(t, "{{QuickbarAirport|Lat=1|Long=2}}\n{{do|nome=x}}\n{{Destinazione|nome=a}}")
	p := DefaultPolicy()
	assert.True(t, p.Apply(doc))
	first := doc.String()
	assert.False(t, p.Apply(doc))
	assert.Equal(t, first, doc.String())
}

func TestParseStyle(t *testing.T) {
	st, err := ParseStyle(" Listing ")
	require.NoError(t, err)
	assert.Equal(t, StyleListing, st)

	_, err = ParseStyle("fancy")
	assert.Error(t, err)
}

func TestNormalizeHeadings(t *testing.T) {
	doc := parse(t, "==Da sapere==  \ntesto\n===  Cenni storici===\n= Titolo =\n")
	assert.True(t, NormalizeHeadings(doc))
	assert.Equal(t, "== Da sapere ==\ntesto\n=== Cenni storici ===\n= Titolo =\n", doc.String())
	assert.False(t, NormalizeHeadings(doc))
}

func TestInsertSectionSpacers(t *testing.T) {
	doc := parse(t, "Intro\n== Da sapere ==\nx\n=== Sub ===\ny\n== Come arrivare ==\nz\n{{-}}\n== Voli ==\n")
	assert.True(t, InsertSectionSpacers(doc, "Da sapere"))
	want := "Intro\n== Da sapere ==\nx\n=== Sub ===\ny\n{{-}}\n== Come arrivare ==\nz\n{{-}}\n== Voli ==\n"
	assert.Equal(t, want, doc.String())

	assert.False(t, InsertSectionSpacers(doc, "Da sapere"))
	assert.Equal(t, want, doc.String())
}

func TestInsertSectionSpacers_AfterIntro(t *testing.T) {
	doc := parse(t, "== Primo ==\na\n")
	assert.False(t, InsertSectionSpacers(doc))

	doc = parse(t, "Intro\n== Voli ==\n")
	assert.True(t, InsertSectionSpacers(doc))
	assert.Equal(t, "Intro\n{{-}}\n== Voli ==\n", doc.String())
}

func TestFormatter_Apply(t *testing.T) {
	doc := parse(t, "{{QuickbarAirport|Lat=1}}\nIntro\n==Voli==\n")
	f := NewFormatter()
	assert.True(t, f.Apply(doc))
	assert.Equal(t, "{{QuickbarAirport\n| Lat = 1\n}}\nIntro\n{{-}}\n== Voli ==\n", doc.String())
	assert.False(t, f.Apply(doc))
}
