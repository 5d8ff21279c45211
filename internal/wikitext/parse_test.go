package wikitext

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_RoundTrip(t *testing.T) {
	cases := []string{
		"",
		"plain text only",
		"{{Città|nome=Foo|alt=|descrizione=bar}}",
		"{{QuickbarCity\n| Map = uk\n| Lat = 51.5\n}}\nIntro.\n",
		"{{Citylist\n| i={{Città| nome=[[Roma]] | alt= | descrizione=La capitale}}\n}}",
		"[[File:Foo.jpg|thumb|Una [[foto]] del {{Tag|x}}]]",
		"[http://example.org Example] and [https://x.y] and [notalink]",
		"<!-- comment --> text <!-- unterminated",
		"Lead\n== Da sapere ==\nBody\n=== Cenni ===\nSub\n==Come arrivare==  \nMore\n",
		"unclosed {{template and [[link",
		"stray }} and ]] closers {{a|b]]}}",
		"{{#if:{{{x|}}}|yes|no}}",
		"= Top =\n====\n==\n",
		"{{a|[[b|c}}]]",
		"Città con àccenti {{Destinazione|nome=Zürich}}",
	}
	for _, src := range cases {
		doc, err := Parse(src)
		require.NoError(t, err, src)
		assert.Equal(t, src, doc.String())
	}
}

func TestParse_TemplateParams(t *testing.T) {
	doc, err := Parse("{{Città|nome=Foo|alt=|descrizione=bar|posizionale}}")
	require.NoError(t, err)

	ts := doc.Templates()
	require.Len(t, ts, 1)
	tmpl := ts[0]
	assert.Equal(t, "Città", tmpl.Name())

	var keys []string
	for _, p := range tmpl.Params() {
		keys = append(keys, tmpl.Key(p))
	}
	assert.Equal(t, []string{"nome", "alt", "descrizione", "1"}, keys)

	v, ok := tmpl.Lookup("nome")
	assert.True(t, ok)
	assert.Equal(t, "Foo", v)
	assert.True(t, tmpl.IsBlank("alt"))
	assert.True(t, tmpl.IsBlank("wikidata"))
}

func TestParse_NestedTemplatesAreFiltered(t *testing.T) {
	src := "{{Citylist\n| i={{Città| nome=A }}\n| ii={{Città| nome=B }}\n}}"
	doc, err := Parse(src)
	require.NoError(t, err)

	ts := doc.TemplatesNamed("città")
	require.Len(t, ts, 2)
	a, _ := ts[0].Lookup("nome")
	b, _ := ts[1].Lookup("nome")
	assert.Equal(t, "A", a)
	assert.Equal(t, "B", b)
	assert.Equal(t, KindTemplate, ts[0].Parent().Owner().Kind())
}

func TestParse_UnmatchedOpenersAreText(t *testing.T) {
	doc, err := Parse("before {{broken and [[also broken")
	require.NoError(t, err)
	assert.Empty(t, doc.Templates())
	assert.Empty(t, doc.Wikilinks())
	require.Equal(t, 1, doc.Len())
	assert.Equal(t, KindText, doc.First().Kind())
}

func TestParse_LinkInsideTemplateDoesNotSwallowCloser(t *testing.T) {
	doc, err := Parse("{{a|[[b|c}}]]")
	require.NoError(t, err)
	ts := doc.Templates()
	require.Len(t, ts, 1)
	first, _ := ts[0].Lookup("1")
	second, _ := ts[0].Lookup("2")
	assert.Equal(t, "[[b", first)
	assert.Equal(t, "c", second)
	assert.Empty(t, doc.Wikilinks())
	assert.Equal(t, "]]", doc.Last().String())
}

func TestParse_SectionHierarchy(t *testing.T) {
	src := "Lead\n== A ==\na\n=== A1 ===\na1\n==== A1x ====\nx\n== B ==\nb\n"
	doc, err := Parse(src)
	require.NoError(t, err)

	top := doc.Sections(SectionQuery{Levels: []int{2}})
	require.Len(t, top, 2)
	assert.Equal(t, "A", top[0].Title())
	assert.Equal(t, "B", top[1].Title())

	all := doc.Sections(SectionQuery{Flat: true})
	var titles []string
	for _, s := range all {
		titles = append(titles, s.Title())
	}
	assert.Equal(t, []string{"A", "A1", "A1x", "B"}, titles)

	sub := top[0].Body().Sections(SectionQuery{Levels: []int{3}})
	require.Len(t, sub, 1)
	assert.Equal(t, "A1", sub[0].Title())

	// Matched sections are not searched again unless Flat is set.
	nested := doc.Sections(SectionQuery{Levels: []int{2, 3}})
	assert.Len(t, nested, 2)
}

func TestParse_HeadingTitleCleaning(t *testing.T) {
	doc, err := Parse("== <span id=\"x\">Da&nbsp;sapere</span> <!-- note --> ==\n")
	require.NoError(t, err)
	secs := doc.Sections(SectionQuery{Match: TitleIs("da sapere")})
	require.Len(t, secs, 1)
	assert.Equal(t, "Da sapere", secs[0].Title())
}

func TestParse_HeadingsOnlyAtRoot(t *testing.T) {
	doc, err := Parse("{{a|\n== not a heading ==\n}}")
	require.NoError(t, err)
	assert.Empty(t, doc.Sections(SectionQuery{Flat: true}))
}

func TestParse_InvalidUTF8(t *testing.T) {
	_, err := Parse("ok \xff bad")
	require.Error(t, err)
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 3, perr.Offset)
}

func TestParse_TooDeep(t *testing.T) {
	src := ""
	for range maxDepth + 5 {
		src += "{{a|"
	}
	for range maxDepth + 5 {
		src += "}}"
	}
	_, err := Parse(src)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestParse_ExternalLinkInsideTemplateStopsAtPipe(t *testing.T) {
	doc, err := Parse("{{a|[http://x y|z]}}")
	require.NoError(t, err)
	ts := doc.Templates()
	require.Len(t, ts, 1)
	assert.Len(t, ts[0].Params(), 2)
	assert.Empty(t, doc.Filter(OfKind(KindExternalLink)))
}
