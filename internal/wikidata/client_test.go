package wikidata

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWikidata struct {
	t *testing.T
	// label -> item ids
	bindings map[string][]string
	entities map[string]any
	// number of 503s to return before answering
	sparqlErr int32
	// returned as an api warning next to each entity
	warning   string
	queries   []string
	apiHits   atomic.Int32
}

func (f *fakeWikidata) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/sparql":
		if atomic.AddInt32(&f.sparqlErr, -1) >= 0 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		q := r.URL.Query().Get("query")
		f.queries = append(f.queries, q)
		var rows []map[string]any
		for label, ids := range f.bindings {
			if strings.Contains(q, `schema:name "`+label+`"@`) {
				for _, id := range ids {
					rows = append(rows, map[string]any{
						"item": map[string]string{"type": "uri", "value": "http://www.wikidata.org/entity/" + id},
					})
				}
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"results": map[string]any{"bindings": rows}})
	case "/w/api.php":
		f.apiHits.Add(1)
		id := r.FormValue("ids")
		e, ok := f.entities[id]
		if !ok {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{"code": "no-such-entity", "info": "Could not find an entity with the ID \"" + id + "\"."},
			})
			return
		}
		resp := map[string]any{"entities": map[string]any{id: e}, "success": 1}
		if f.warning != "" {
			resp["warnings"] = map[string]any{"main": map[string]any{"warnings": f.warning}}
		}
		_ = json.NewEncoder(w).Encode(resp)
	default:
		f.t.Errorf("unexpected path %s", r.URL.Path)
		http.NotFound(w, r)
	}
}

func entityClaim(pid, id string) map[string]any {
	return map[string]any{
		"mainsnak": map[string]any{
			"snaktype": "value",
			"property": pid,
			"datavalue": map[string]any{
				"type":  "wikibase-entityid",
				"value": map[string]any{"entity-type": "item", "numeric-id": 1, "id": id},
			},
		},
		"rank": "normal",
	}
}

func coordClaim(lat, lon float64, rank string) map[string]any {
	return map[string]any{
		"mainsnak": map[string]any{
			"snaktype": "value",
			"property": PropCoordinates,
			"datavalue": map[string]any{
				"type":  "globecoordinate",
				"value": map[string]any{"latitude": lat, "longitude": lon, "globe": "http://www.wikidata.org/entity/Q2"},
			},
		},
		"rank": rank,
	}
}

func newTestClient(t *testing.T, f *fakeWikidata) *Client {
	t.Helper()
	f.t = t
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{
		APIURL:    srv.URL + "/w/api.php",
		SPARQLURL: srv.URL + "/sparql",
		UserAgent: "voybot-test/1.0",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	c.backoff = func(int) time.Duration { return 0 }
	t.Cleanup(c.Close)
	return c
}

func TestFindEntityBySiteTitle(t *testing.T) {
	f := &fakeWikidata{bindings: map[string][]string{
		"Foo":    {"Q999"},
		"Gemini": {"Q1", "Q2"},
		"Dup":    {"Q5", "Q5"},
	}}
	c := newTestClient(t, f)
	ctx := context.Background()

	id, err := c.FindEntityBySiteTitle(ctx, "[[Foo|Città di Foo]]", "it")
	require.NoError(t, err)
	assert.Equal(t, "Q999", id)
	assert.Contains(t, f.queries[0], "schema:isPartOf <https://it.wikipedia.org/>")

	_, err = c.FindEntityBySiteTitle(ctx, "Gemini", "en")
	assert.ErrorIs(t, err, ErrLookupAmbiguous)

	_, err = c.FindEntityBySiteTitle(ctx, "Nowhere", "it")
	assert.ErrorIs(t, err, ErrLookupNotFound)

	id, err = c.FindEntityBySiteTitle(ctx, "Dup", "it")
	require.NoError(t, err)
	assert.Equal(t, "Q5", id)

	_, err = c.FindEntityBySiteTitle(ctx, "Foo", "it> . ?x ?y ?z")
	assert.Error(t, err)

	snap := c.Stats().Snapshot()
	assert.Equal(t, 4, snap.Count)
	assert.Equal(t, 2, snap.Outcomes[OutcomeFound])
	assert.Equal(t, 1, snap.Outcomes[OutcomeAmbiguous])
	assert.Equal(t, 1, snap.Outcomes[OutcomeNotFound])
}

func TestFindEntityBySiteTitle_RetriesTransientErrors(t *testing.T) {
	f := &fakeWikidata{bindings: map[string][]string{"Foo": {"Q999"}}, sparqlErr: 2}
	c := newTestClient(t, f)

	id, err := c.FindEntityBySiteTitle(context.Background(), "Foo", "it")
	require.NoError(t, err)
	assert.Equal(t, "Q999", id)
}

func TestFindEntityBySiteTitle_GivesUpAfterMaxRetries(t *testing.T) {
	f := &fakeWikidata{sparqlErr: MaxRetries}
	c := newTestClient(t, f)

	_, err := c.FindEntityBySiteTitle(context.Background(), "Foo", "it")
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
}

func TestEntityClaims(t *testing.T) {
	f := &fakeWikidata{entities: map[string]any{
		"Q220": map[string]any{
			"id":     "Q220",
			"labels": map[string]any{"it": map[string]string{"language": "it", "value": "Roma"}},
			"sitelinks": map[string]any{
				"itwiki": map[string]string{"site": "itwiki", "title": "Roma"},
			},
			"claims": map[string]any{
				PropInstanceOf: []any{entityClaim(PropInstanceOf, "Q515")},
				PropCountry:    []any{entityClaim(PropCountry, "Q38")},
				PropCoordinates: []any{
					coordClaim(1, 1, "deprecated"),
					coordClaim(41.893055555556, 12.482777777778, "normal"),
				},
			},
		},
	}}
	c := newTestClient(t, f)
	ctx := context.Background()

	ok, err := c.IsInstanceOf(ctx, "Q220", "Q515")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.IsInstanceOf(ctx, "Q220", ClassDisambiguation)
	require.NoError(t, err)
	assert.False(t, ok)

	coords, err := c.GetProperty(ctx, "Q220", PropCoordinates)
	require.NoError(t, err)
	require.Len(t, coords, 1)
	assert.InDelta(t, 41.893055555556, coords[0].Latitude, 1e-9)

	country, err := c.GetProperty(ctx, "Q220", PropCountry)
	require.NoError(t, err)
	assert.Equal(t, []Value{{Type: TypeEntityID, EntityID: "Q38"}}, country)

	none, err := c.GetProperty(ctx, "Q220", PropImage)
	require.NoError(t, err)
	assert.Empty(t, none)

	label, err := c.GetLabel(ctx, "Q220", "it")
	require.NoError(t, err)
	assert.Equal(t, "Roma", label)

	_, err = c.GetLabel(ctx, "Q220", "de")
	assert.ErrorIs(t, err, ErrLookupNotFound)

	assert.EqualValues(t, 1, f.apiHits.Load(), "entity should be fetched once and cached")
}

func TestEntity_Missing(t *testing.T) {
	c := newTestClient(t, &fakeWikidata{})
	_, err := c.Entity(context.Background(), "Q404")
	assert.ErrorIs(t, err, ErrLookupNotFound)

	_, err = c.Entity(context.Background(), "not-an-id")
	assert.ErrorIs(t, err, ErrLookupNotFound)
}

func TestEntity_MalformedClaims(t *testing.T) {
	f := &fakeWikidata{entities: map[string]any{
		"Q1": map[string]any{"id": "Q1", "claims": map[string]any{PropCountry: "Q38"}},
		"Q2": map[string]any{"id": "Q2", "claims": map[string]any{PropCountry: []any{"Q38"}}},
	}}
	c := newTestClient(t, f)

	_, err := c.Entity(context.Background(), "Q1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "claims "+PropCountry+" of Q1")

	_, err = c.Entity(context.Background(), "Q2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement "+PropCountry+" of Q2")
}

func TestEntity_WarningsAreLogged(t *testing.T) {
	f := &fakeWikidata{
		warning: "Unrecognized value for parameter \"props\".",
		entities: map[string]any{
			"Q220": map[string]any{
				"id":     "Q220",
				"labels": map[string]any{"it": map[string]string{"language": "it", "value": "Roma"}},
				"claims": map[string]any{PropCountry: []any{entityClaim(PropCountry, "Q38")}},
			},
		},
	}
	c := newTestClient(t, f)

	e, err := c.Entity(context.Background(), "Q220")
	require.NoError(t, err)
	label, ok := e.Label("it")
	assert.True(t, ok)
	assert.Equal(t, "Roma", label)
	assert.Len(t, e.Claims[PropCountry], 1)

	_, err = c.Entity(context.Background(), "Q220")
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.apiHits.Load())
	entity := c.Stats().Snapshot().Calls[CallEntity]
	assert.Equal(t, map[Outcome]int{OutcomeFound: 1, OutcomeCached: 1}, entity.Outcomes)
}

func TestCleanLabel(t *testing.T) {
	cases := map[string]string{
		"[[Foo]]":           "Foo",
		"[[Foo|Bar]]":       "Foo",
		" Foo ":             "Foo",
		"Sant'Angelo|altro": "Sant'Angelo",
	}
	for in, want := range cases {
		assert.Equal(t, want, CleanLabel(in), in)
	}
}

func TestSitelinkQuery_EscapesLabel(t *testing.T) {
	q := SitelinkQuery(`Say "hi"`, "en")
	assert.Contains(t, q, `schema:name "Say \"hi\""@en.`)
	assert.Contains(t, q, "<https://en.wikipedia.org/>")
}

func TestIDFromURI(t *testing.T) {
	assert.Equal(t, "Q42", IDFromURI("http://www.wikidata.org/entity/Q42"))
	assert.Equal(t, "", IDFromURI("http://www.wikidata.org/entity/statement/abc"))
}
