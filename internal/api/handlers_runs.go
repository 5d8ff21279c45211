package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/voybot/internal/pipeline"
)

const maxRequestBytes = 1 << 20

type runRequest struct {
	Recipe   string            `json:"recipe"`
	Selector pipeline.Selector `json:"selector"`
	Options  pipeline.Options  `json:"options"`
}

func (s *Server) handleSubmitRun(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Recipe == "" {
		jsonError(w, "recipe is required", http.StatusBadRequest)
		return
	}
	if s.cfg.DryRun {
		req.Options.DryRun = true
	}

	job, err := s.orchestrator.Submit(req.Recipe, req.Selector, req.Options)
	switch {
	case errors.Is(err, pipeline.ErrUnknownRecipe):
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.log.Info("run queued", "run_id", job.ID, "recipe", job.Recipe, "dry_run", req.Options.DryRun)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"run_id":     job.ID,
		"recipe":     job.Recipe,
		"status":     job.Snapshot().Status,
		"poll_url":   fmt.Sprintf("/api/runs/%s", job.ID),
		"report_url": fmt.Sprintf("/api/runs/%s/report", job.ID),
	})
}

func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "runID"))
	if job == nil {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// handleRunHistory lists finished runs recorded in the progress ledger,
// newest first.
func (s *Server) handleRunHistory(w http.ResponseWriter, r *http.Request) {
	if s.progress == nil {
		jsonError(w, "run history unavailable", http.StatusServiceUnavailable)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.progress.Runs(r.Context(), r.URL.Query().Get("recipe"), limit)
	if err != nil {
		jsonError(w, "failed to list runs: "+err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]map[string]any, 0, len(runs))
	for _, run := range runs {
		rec := map[string]any{
			"run_id":      run.ID,
			"recipe":      run.Recipe,
			"started_at":  run.StartedAt,
			"finished_at": run.FinishedAt,
		}
		if json.Valid([]byte(run.Summary)) {
			rec["summary"] = json.RawMessage(run.Summary)
		}
		out = append(out, rec)
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": out})
}

func (s *Server) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	list := s.orchestrator.Runner().Recipes().List()
	out := make([]map[string]any, 0, len(list))
	for _, rc := range list {
		out = append(out, map[string]any{
			"name":        rc.Name,
			"description": rc.Description,
			"steps":       rc.StepNames(),
			"confirm":     rc.Confirm,
			"selector":    rc.Selector,
			"params":      rc.Params,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"recipes": out})
}
