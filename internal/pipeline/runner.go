// Package pipeline applies transform recipes to wiki pages, one page at a
// time, and keeps track of runs.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/voybot/internal/confirm"
	"github.com/dgallion1/voybot/internal/enrich"
	"github.com/dgallion1/voybot/internal/events"
	"github.com/dgallion1/voybot/internal/store"
	"github.com/dgallion1/voybot/internal/wikistore"
)

// DefaultMinOutputRatio is used when Options leave the threshold unset.
const DefaultMinOutputRatio = 0.5

// Selector picks the pages of a run. Titles, category members and
// template users are merged.
type Selector struct {
	Titles    []string `json:"titles,omitempty" yaml:"titles"`
	Category  string   `json:"category,omitempty" yaml:"category"`
	Recursive bool     `json:"recursive,omitempty" yaml:"recursive"`
	Template  string   `json:"template,omitempty" yaml:"template"`
	// Namespace filters template users; -1 means every namespace.
	Namespace int `json:"namespace,omitempty" yaml:"namespace"`
	Limit     int `json:"limit,omitempty" yaml:"limit"`
}

// Empty reports whether nothing is selected.
func (s Selector) Empty() bool {
	return len(s.Titles) == 0 && s.Category == "" && s.Template == ""
}

// Options tune one run.
type Options struct {
	// RunID is generated when empty.
	RunID  string `json:"run_id,omitempty"`
	DryRun bool   `json:"dry_run,omitempty"`
	// AssumeYes saves without asking even for recipes that confirm.
	AssumeYes bool `json:"assume_yes,omitempty"`
	// Resume skips pages the ledger records as done for this recipe.
	Resume bool `json:"resume,omitempty"`
	// RequeueOnConflict retries conflicted pages once at the end of the run.
	RequeueOnConflict bool    `json:"requeue_on_conflict,omitempty"`
	MinOutputRatio    float64 `json:"min_output_ratio,omitempty"`
	Params            Params  `json:"params,omitempty"`

	// OnPage is called after every page.
	OnPage func(PageResult) `json:"-"`
}

// FollowUp is a page left for a human.
type FollowUp struct {
	Page   string `json:"page"`
	Reason string `json:"reason"`
}

// Summary is the result of a run.
type Summary struct {
	RunID      string    `json:"run_id"`
	Recipe     string    `json:"recipe"`
	DryRun     bool      `json:"dry_run,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Selected  int `json:"selected"`
	Resumed   int `json:"resumed"`
	Processed int `json:"processed"`
	Changed   int `json:"changed"`
	Saved     int `json:"saved"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
	Rejected  int `json:"rejected"`
	Conflicts int `json:"conflicts"`
	Errors    int `json:"errors"`

	FollowUps []FollowUp     `json:"follow_ups"`
	Events    []events.Event `json:"events,omitempty"`
	Pages     []PageResult   `json:"pages,omitempty"`
}

func (s *Summary) add(p PageResult) {
	s.Processed++
	if p.Changed() {
		s.Changed++
	}
	switch p.Outcome {
	case OutcomeSaved:
		s.Saved++
	case OutcomeUnchanged:
		s.Unchanged++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeRejected:
		s.Rejected++
	case OutcomeConflict:
		s.Conflicts++
	case OutcomeError:
		s.Errors++
	}
	s.Pages = append(s.Pages, p)
}

// Deps are the collaborators of a Runner.
type Deps struct {
	Store    wikistore.Store
	Enricher *enrich.Enricher
	Recipes  *Registry
	// Progress is optional; without it Resume has no effect.
	Progress *store.Store
	// Confirmer answers recipes that confirm. Nil declines every edit.
	Confirmer confirm.Confirmer
	// RunLogDir receives <recipe>.log files; empty keeps events in memory.
	RunLogDir      string
	Lang           string
	MinOutputRatio float64
	Log            *slog.Logger
}

// Runner executes recipes. Pages are processed strictly one after another.
type Runner struct {
	store     wikistore.Store
	enricher  *enrich.Enricher
	recipes   *Registry
	progress  *store.Store
	confirmer confirm.Confirmer
	logDir    string
	lang      string
	minRatio  float64
	log       *slog.Logger
}

func NewRunner(d Deps) *Runner {
	r := &Runner{
		store:     d.Store,
		enricher:  d.Enricher,
		recipes:   d.Recipes,
		progress:  d.Progress,
		confirmer: d.Confirmer,
		logDir:    d.RunLogDir,
		lang:      d.Lang,
		minRatio:  d.MinOutputRatio,
		log:       d.Log,
	}
	if r.confirmer == nil {
		r.confirmer = confirm.Always(false)
	}
	if r.recipes == nil {
		r.recipes = NewRegistry()
	}
	if r.lang == "" {
		r.lang = "it"
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	return r
}

// Recipes returns the registry.
func (r *Runner) Recipes() *Registry { return r.recipes }

func (r *Runner) minOutputRatio(o Options) float64 {
	switch {
	case o.MinOutputRatio > 0:
		return o.MinOutputRatio
	case r.minRatio > 0:
		return r.minRatio
	}
	return DefaultMinOutputRatio
}

// run is the state shared by the pages of one run.
type run struct {
	id     string
	recipe *Recipe
	params Params
	opts   Options
	sink   *events.RunLog
	log    *slog.Logger
}

// Enumerate lists the titles sel selects, sorted and de-duplicated.
func (r *Runner) Enumerate(ctx context.Context, sel Selector) ([]string, error) {
	seen := map[string]bool{}
	var titles []string
	add := func(ts []string) {
		for _, t := range ts {
			if t != "" && !seen[t] {
				seen[t] = true
				titles = append(titles, t)
			}
		}
	}
	add(sel.Titles)
	if sel.Category != "" {
		ts, err := r.store.ListCategoryMembers(ctx, sel.Category, sel.Recursive, 0)
		if err != nil {
			return nil, fmt.Errorf("list category %s: %w", sel.Category, err)
		}
		add(ts)
	}
	if sel.Template != "" {
		ts, err := r.store.ListPagesUsingTemplate(ctx, sel.Template, sel.Namespace, 0)
		if err != nil {
			return nil, fmt.Errorf("list template %s: %w", sel.Template, err)
		}
		add(ts)
	}
	sort.Strings(titles)
	if sel.Limit > 0 && len(titles) > sel.Limit {
		titles = titles[:sel.Limit]
	}
	return titles, nil
}

// Run applies recipe to the selected pages. An empty selector falls back
// to the recipe's default. Cancellation stops between pages; the summary
// so far is returned with the context error.
func (r *Runner) Run(ctx context.Context, recipeName string, sel Selector, opts Options) (Summary, error) {
	rc, err := r.recipes.Get(recipeName)
	if err != nil {
		return Summary{}, err
	}
	if sel.Empty() {
		sel = rc.Selector
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}

	log := r.log.With("run_id", opts.RunID, "recipe", rc.Name)
	sink, err := events.OpenRunLog(r.logDir, rc.Name, log)
	if err != nil {
		return Summary{}, err
	}
	defer sink.Close()

	rs := &run{
		id:     opts.RunID,
		recipe: rc,
		params: rc.Params.Merge(opts.Params),
		opts:   opts,
		sink:   sink,
		log:    log,
	}
	sum := Summary{RunID: rs.id, Recipe: rc.Name, DryRun: opts.DryRun, StartedAt: time.Now()}

	titles, err := r.Enumerate(ctx, sel)
	if err != nil {
		return sum, err
	}
	sum.Selected = len(titles)

	done := map[string]bool{}
	if opts.Resume && r.progress != nil {
		if done, err = r.progress.Completed(ctx, rc.Name); err != nil {
			return sum, err
		}
	}
	log.Info("run started", "pages", len(titles), "dry_run", opts.DryRun, "resume", opts.Resume)

	var conflicted []string
	for _, title := range titles {
		if err := ctx.Err(); err != nil {
			return r.finish(ctx, rs, sum), err
		}
		if done[title] {
			sum.Resumed++
			continue
		}
		res := r.processPage(ctx, rs, title)
		if res.Outcome == OutcomeConflict && opts.RequeueOnConflict {
			conflicted = append(conflicted, title)
			continue
		}
		r.record(ctx, rs, &sum, res)
	}

	for _, title := range conflicted {
		if err := ctx.Err(); err != nil {
			return r.finish(ctx, rs, sum), err
		}
		sink.Info(title, "retrying after edit conflict")
		res := r.processPage(ctx, rs, title)
		if res.Outcome == OutcomeConflict {
			sink.Follow(title, "edit conflict after retry")
		}
		r.record(ctx, rs, &sum, res)
	}

	sum = r.finish(ctx, rs, sum)
	log.Info("run finished",
		"processed", sum.Processed, "changed", sum.Changed, "saved", sum.Saved,
		"skipped", sum.Skipped, "errors", sum.Errors)
	return sum, nil
}

func (r *Runner) record(ctx context.Context, rs *run, sum *Summary, res PageResult) {
	sum.add(res)
	if r.progress != nil && !rs.opts.DryRun {
		if err := r.progress.MarkPage(ctx, rs.recipe.Name, res.Title, string(res.Outcome), rs.id); err != nil {
			rs.log.Warn("record progress failed", "page", res.Title, "error", err)
		}
	}
	if rs.opts.OnPage != nil {
		rs.opts.OnPage(res)
	}
}

func (r *Runner) finish(ctx context.Context, rs *run, sum Summary) Summary {
	sum.FinishedAt = time.Now()
	sum.FollowUps = []FollowUp{}
	for _, e := range rs.sink.Filter(events.KindFollow) {
		sum.FollowUps = append(sum.FollowUps, FollowUp{Page: e.Page, Reason: e.Message})
	}
	sum.Events = rs.sink.Events()

	if r.progress != nil && !rs.opts.DryRun {
		ledger := sum
		ledger.Events, ledger.Pages = nil, nil
		data, err := json.Marshal(ledger)
		if err == nil {
			err = r.progress.RecordRun(context.WithoutCancel(ctx), store.RunRecord{
				ID:         sum.RunID,
				Recipe:     sum.Recipe,
				StartedAt:  sum.StartedAt,
				FinishedAt: sum.FinishedAt,
				Summary:    string(data),
			})
		}
		if err != nil {
			rs.log.Warn("record run failed", "error", err)
		}
	}
	return sum
}
