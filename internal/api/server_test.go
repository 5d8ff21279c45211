package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/voybot/internal/config"
	"github.com/dgallion1/voybot/internal/pipeline"
	"github.com/dgallion1/voybot/internal/wikidata"
	"github.com/dgallion1/voybot/internal/wikistore/storetest"
	"github.com/dgallion1/voybot/internal/wikitext"
)

const apiKey = "test-key"

func addX(_ context.Context, doc *wikitext.Wikicode, pc *pipeline.PageContext) (bool, error) {
	t := doc.FirstTemplate("T")
	if t == nil || t.Has("x") {
		return false, nil
	}
	t.Add("x", "1")
	return true, nil
}

func newTestServer(t *testing.T, ws *storetest.Memory) (*httptest.Server, *storetest.Memory) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	rc := &pipeline.Recipe{
		Name:        "add-x",
		Description: "Adds x to T",
		Summary:     "Aggiungo x",
		Selector:    pipeline.Selector{Category: "Cat"},
		Steps:       []pipeline.Step{{Name: "add_x", Run: addX}},
	}
	runner := pipeline.NewRunner(pipeline.Deps{Store: ws, Recipes: pipeline.NewRegistry(rc), Log: log})
	orch := pipeline.NewOrchestrator(runner, 4, time.Hour, log)
	ctx, cancel := context.WithCancel(context.Background())
	orch.Start(ctx)
	t.Cleanup(func() {
		cancel()
		orch.Stop()
	})

	srv := NewServer(orch, wikidata.NewResolverStats(time.Hour), nil, log, config.Config{VoybotAPIKey: apiKey})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts, ws
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+apiKey)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealth_NoAuth(t *testing.T) {
	ts, _ := newTestServer(t, storetest.New())
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode(t, resp)["status"])
}

func TestAuth(t *testing.T) {
	ts, _ := newTestServer(t, storetest.New())

	resp, err := http.Get(ts.URL + "/api/recipes")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/recipes", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestListRecipes(t *testing.T) {
	ts, _ := newTestServer(t, storetest.New())
	resp := do(t, http.MethodGet, ts.URL+"/api/recipes", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list := decode(t, resp)["recipes"].([]any)
	require.Len(t, list, 1)
	rc := list[0].(map[string]any)
	assert.Equal(t, "add-x", rc["name"])
	assert.Equal(t, []any{"add_x"}, rc["steps"])
}

func TestSubmitRun_PollAndReport(t *testing.T) {
	ws := storetest.New().Put("Roma", "{{T}}", "Cat").Put("Milano", "{{T|x=1}}", "Cat")
	ts, ws := newTestServer(t, ws)

	resp := do(t, http.MethodPost, ts.URL+"/api/runs", `{"recipe":"add-x"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	body := decode(t, resp)
	runID := body["run_id"].(string)
	require.NotEmpty(t, runID)
	assert.Equal(t, "/api/runs/"+runID, body["poll_url"])

	require.Eventually(t, func() bool {
		r := do(t, http.MethodGet, ts.URL+"/api/runs/"+runID, "")
		return decode(t, r)["status"] == string(pipeline.StatusCompleted)
	}, 5*time.Second, 20*time.Millisecond)

	assert.Equal(t, "{{T|x=1}}", ws.Text("Roma"))

	resp = do(t, http.MethodGet, ts.URL+"/api/runs/"+runID+"/report?format=md", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	md, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(md), "# Run "+runID+": add-x")
	assert.Contains(t, string(md), "## Roma")

	resp = do(t, http.MethodGet, ts.URL+"/api/runs/"+runID+"/report", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	html, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(html), "<table>")
	assert.Contains(t, string(html), "<h2>Roma</h2>")
}

func TestSubmitRun_Errors(t *testing.T) {
	ts, _ := newTestServer(t, storetest.New())

	resp := do(t, http.MethodPost, ts.URL+"/api/runs", `{"recipe":"nope"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/api/runs", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/api/runs", `{"recipe":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRunStatus_NotFound(t *testing.T) {
	ts, _ := newTestServer(t, storetest.New())
	resp := do(t, http.MethodGet, ts.URL+"/api/runs/missing", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = do(t, http.MethodGet, ts.URL+"/api/runs/missing/report", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRunHistory_WithoutLedger(t *testing.T) {
	ts, _ := newTestServer(t, storetest.New())
	resp := do(t, http.MethodGet, ts.URL+"/api/runs", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestResolverStats(t *testing.T) {
	ts, _ := newTestServer(t, storetest.New())
	resp := do(t, http.MethodGet, ts.URL+"/api/stats/resolver", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, decode(t, resp), "stats")
}
