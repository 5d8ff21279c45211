package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Formats of FollowUpList.
const (
	ListWikitext = "wikitext"
	ListJSON     = "json"
	ListText     = "text"
)

// FollowUpList renders the pages with follow-ups, each once, in format:
// a wikitext bullet list stamped with the run time, a JSON array of titles
// or one title per line.
func (s Summary) FollowUpList(format string) ([]byte, error) {
	var pages []string
	seen := map[string]bool{}
	for _, f := range s.FollowUps {
		if !seen[f.Page] {
			seen[f.Page] = true
			pages = append(pages, f.Page)
		}
	}

	var b strings.Builder
	switch format {
	case ListWikitext, "":
		stamp := s.FinishedAt
		if stamp.IsZero() {
			stamp = time.Now()
		}
		for _, p := range pages {
			fmt.Fprintf(&b, "* [[%s]] <small>(check eseguito il %s)</small>\n", p, stamp.Format(time.DateTime))
		}
	case ListJSON:
		if pages == nil {
			pages = []string{}
		}
		return json.Marshal(pages)
	case ListText:
		for _, p := range pages {
			b.WriteString(p + "\n")
		}
	default:
		return nil, fmt.Errorf("unknown list format %q", format)
	}
	return []byte(b.String()), nil
}

// Markdown renders the summary as a human report: counters, follow-ups and
// the diff of every changed page.
func (s Summary) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Run %s: %s\n\n", s.RunID, s.Recipe)
	if s.DryRun {
		b.WriteString("Dry run: nothing was saved.\n\n")
	}
	if !s.StartedAt.IsZero() {
		fmt.Fprintf(&b, "Started %s, took %s.\n\n",
			s.StartedAt.Format(time.DateTime), s.FinishedAt.Sub(s.StartedAt).Round(time.Second))
	}

	b.WriteString("| selected | processed | changed | saved | unchanged | skipped | rejected | conflicts | errors |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d | %d | %d | %d | %d | %d |\n\n",
		s.Selected, s.Processed, s.Changed, s.Saved, s.Unchanged, s.Skipped, s.Rejected, s.Conflicts, s.Errors)

	if len(s.FollowUps) > 0 {
		b.WriteString("## Follow-up\n\n")
		for _, f := range s.FollowUps {
			fmt.Fprintf(&b, "* **%s**: %s\n", f.Page, f.Reason)
		}
		b.WriteString("\n")
	}

	var failed []PageResult
	for _, p := range s.Pages {
		if p.Outcome == OutcomeError {
			failed = append(failed, p)
		}
	}
	if len(failed) > 0 {
		b.WriteString("## Errors\n\n")
		for _, p := range failed {
			fmt.Fprintf(&b, "* **%s** (%s): %s\n", p.Title, p.State, p.Error)
		}
		b.WriteString("\n")
	}

	for _, p := range s.Pages {
		if !p.Changed() {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", p.Title)
		fmt.Fprintf(&b, "Outcome: %s", p.Outcome)
		if len(p.Steps) > 0 {
			fmt.Fprintf(&b, ", steps: %s", strings.Join(p.Steps, ", "))
		}
		b.WriteString("\n\n```diff\n")
		b.WriteString(strings.ReplaceAll(p.Diff, "```", "` ` `"))
		if !strings.HasSuffix(p.Diff, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("```\n\n")
	}
	return b.String()
}
