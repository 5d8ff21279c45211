package wikitext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOne(t *testing.T, src string) (*Wikicode, *Template) {
	t.Helper()
	doc, err := Parse(src)
	require.NoError(t, err)
	ts := doc.Templates()
	require.NotEmpty(t, ts)
	return doc, ts[0]
}

func keysOf(tmpl *Template) []string {
	var keys []string
	for _, p := range tmpl.Params() {
		keys = append(keys, tmpl.Key(p))
	}
	return keys
}

func TestTemplate_AddBeforeExistingKey(t *testing.T) {
	doc, tmpl := parseOne(t, "{{Città|nome=Foo|alt=|descrizione=bar}}")
	tmpl.Add("wikidata", "Q123", Before("descrizione"))

	assert.Equal(t, []string{"nome", "alt", "wikidata", "descrizione"}, keysOf(tmpl))
	assert.Equal(t, "{{Città|nome=Foo|alt=|wikidata=Q123|descrizione=bar}}", doc.String())
}

func TestTemplate_AddBeforeMissingKeyAppends(t *testing.T) {
	doc, tmpl := parseOne(t, "{{Città|nome=Foo|alt=|descrizione=bar}}")
	tmpl.Add("wikidata", "Q123", Before("mappa"))

	assert.Equal(t, []string{"nome", "alt", "descrizione", "wikidata"}, keysOf(tmpl))
	assert.Equal(t, "{{Città|nome=Foo|alt=|descrizione=bar|wikidata=Q123}}", doc.String())
}

func TestTemplate_AddOverwritesInPlace(t *testing.T) {
	doc, tmpl := parseOne(t, "{{QuickbarCity\n| Map = uk\n| Lat = 51.5\n}}")
	tmpl.Add("Map", "GB", Before("Lat"))

	assert.Equal(t, []string{"Map", "Lat"}, keysOf(tmpl))
	assert.Equal(t, "{{QuickbarCity\n| Map = GB\n| Lat = 51.5\n}}", doc.String())
}

func TestTemplate_AddTakesNeighbourSpacing(t *testing.T) {
	doc, tmpl := parseOne(t, "{{MappaDinamica\n| h = 450\n| w = 450\n}}")
	tmpl.Add("Lat", "45.1", Before("h"))

	assert.Equal(t, "{{MappaDinamica\n| Lat = 45.1\n| h = 450\n| w = 450\n}}", doc.String())
}

func TestTemplate_AddPreserveSpacing(t *testing.T) {
	doc, tmpl := parseOne(t, "{{MappaDinamica|h=450}}")
	tmpl.Add("Lat", " 45.1", Before("h"), PreserveSpacing())
	tmpl.Add("h", " 500 ", PreserveSpacing())

	assert.Equal(t, "{{MappaDinamica|Lat= 45.1|h= 500 }}", doc.String())
}

func TestTemplate_AddBlankExistingValue(t *testing.T) {
	doc, tmpl := parseOne(t, "{{QuickbarCity\n| Map = \n| Lat = 1\n}}")
	tmpl.Add("Map", "it")
	assert.Equal(t, "{{QuickbarCity\n| Map = it\n| Lat = 1\n}}", doc.String())
}

func TestTemplate_AddPositional(t *testing.T) {
	doc, tmpl := parseOne(t, "{{Quickfooter|Città|Tema=x}}")
	tmpl.Add("1", "Aeroporto")
	tmpl.Add("2", "Italia")

	assert.Equal(t, "{{Quickfooter|Aeroporto|Tema=x|Italia}}", doc.String())
	p, ok := tmpl.Positional(2)
	require.True(t, ok)
	assert.False(t, p.Explicit())
}

func TestTemplate_Remove(t *testing.T) {
	doc, tmpl := parseOne(t, "{{Quickfooter|Aeroporto|Tema=x|Tema=y}}")
	assert.True(t, tmpl.Remove("Tema"))
	assert.False(t, tmpl.Remove("Tema"))
	assert.False(t, tmpl.Remove("assente"))
	assert.Equal(t, "{{Quickfooter|Aeroporto}}", doc.String())
}

func TestTemplate_GetLastDuplicateWins(t *testing.T) {
	_, tmpl := parseOne(t, "{{X|a=1|a=2}}")
	v, ok := tmpl.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "2", v)
}

func TestTemplate_NameMatching(t *testing.T) {
	_, tmpl := parseOne(t, "{{QuickbarAirport\n| Lat = 1\n}}")
	assert.Equal(t, "QuickbarAirport\n", tmpl.RawName())
	assert.True(t, tmpl.NameMatches("QuickbarAirport"))
	assert.True(t, tmpl.NameMatches("quickbarairport"))
	assert.False(t, tmpl.NameMatches("Quickbar_Airport"))
	assert.False(t, tmpl.NameMatches("QuickbarCity"))

	_, spaced := parseOne(t, "{{Mappa_dinamica}}")
	assert.True(t, spaced.NameMatches("Mappa dinamica"))
}

func TestTemplate_SetValueNestedMarkupIsParsed(t *testing.T) {
	doc, tmpl := parseOne(t, "{{Mapshape|fill=}}")
	tmpl.Add("fill", "{{StdColor|T1}}")
	assert.Equal(t, "{{Mapshape|fill={{StdColor|T1}}}}", doc.String())
	require.Len(t, doc.TemplatesNamed("StdColor"), 1)
}

func TestTemplate_PositionalValueWithEqualsGetsKey(t *testing.T) {
	doc, tmpl := parseOne(t, "{{X|a}}")
	p, ok := tmpl.Positional(1)
	require.True(t, ok)
	p.SetValue("b=c")
	assert.Equal(t, "{{X|1=b=c}}", doc.String())
}

func TestTemplate_PositionalValueWithNestedEqualsStaysPositional(t *testing.T) {
	doc, tmpl := parseOne(t, "{{Citylist|{{Città|nome=B}}}}")
	p, ok := tmpl.Positional(1)
	require.True(t, ok)
	p.SetValue("{{Città|nome=A}}")
	assert.Equal(t, "{{Citylist|{{Città|nome=A}}}}", doc.String())
}
