package api

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var reportPage = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>voybot run {{.ID}}</title>
<style>body{font-family:sans-serif;max-width:60em;margin:auto}pre{background:#f6f6f6;padding:.5em;overflow-x:auto}table{border-collapse:collapse}td,th{border:1px solid #ccc;padding:.2em .6em}</style>
</head><body>
{{.Body}}
</body></html>
`))

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// handleRunReport renders a finished run. ?format=md returns the markdown
// source instead of HTML.
func (s *Server) handleRunReport(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	job := s.orchestrator.GetJob(runID)
	if job == nil {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	sum, ok := job.Summary()
	if !ok {
		jsonError(w, "run has not finished", http.StatusConflict)
		return
	}
	md := sum.Markdown()

	if r.URL.Query().Get("format") == "md" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(md))
		return
	}

	var body bytes.Buffer
	if err := markdown.Convert([]byte(md), &body); err != nil {
		jsonError(w, "failed to render report: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	reportPage.Execute(w, map[string]any{
		"ID":   runID,
		"Body": template.HTML(body.String()),
	})
}
