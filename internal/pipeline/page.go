package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgallion1/voybot/internal/confirm"
	"github.com/dgallion1/voybot/internal/section"
	"github.com/dgallion1/voybot/internal/wikistore"
	"github.com/dgallion1/voybot/internal/wikitext"
)

// PageState is the furthest state a page reached.
type PageState string

const (
	StateFetched   PageState = "fetched"
	StateParsed    PageState = "parsed"
	StateChecked   PageState = "checked"
	StateMutating  PageState = "mutating"
	StateFormatted PageState = "formatted"
	StateUnchanged PageState = "unchanged"
	StateDiffed    PageState = "diffed"
	StateSaved     PageState = "saved"
	StateSkipped   PageState = "skipped"
	StateRejected  PageState = "rejected"
)

// Outcome is how a page ended, as counted in the summary and recorded in
// the progress ledger.
type Outcome string

const (
	OutcomeSaved     Outcome = "saved"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeRejected  Outcome = "rejected"
	OutcomeDryRun    Outcome = "dry_run"
	OutcomeConflict  Outcome = "conflict"
	OutcomeError     Outcome = "error"
)

// PageResult is the record of one page.
type PageResult struct {
	Title   string    `json:"title"`
	State   PageState `json:"state"`
	Outcome Outcome   `json:"outcome"`
	// Steps lists the steps that changed the page.
	Steps []string `json:"steps,omitempty"`
	Error string   `json:"error,omitempty"`
	// Diff is the rendered line diff of a changed page.
	Diff string `json:"diff,omitempty"`
}

func (p PageResult) Changed() bool { return p.Diff != "" }

// Pages smaller than this are exempt from the output ratio check.
const minCheckedLength = 200

// checkOutput rejects serializations that look truncated or cannot be
// parsed back.
func checkOutput(before, after string, minRatio float64) error {
	if strings.TrimSpace(before) != "" && strings.TrimSpace(after) == "" {
		return fmt.Errorf("%w: empty output", ErrFatal)
	}
	if minRatio > 0 && len(before) >= minCheckedLength {
		if ratio := float64(len(after)) / float64(len(before)); ratio < minRatio {
			return fmt.Errorf("%w: output is %.0f%% of input", ErrFatal, ratio*100)
		}
	}
	if _, err := wikitext.Parse(after); err != nil {
		return fmt.Errorf("%w: output does not parse: %v", ErrFatal, err)
	}
	return nil
}

// processPage drives one page through fetch, parse, check, mutate, format,
// diff and save. The page is never saved unless every step finished.
func (r *Runner) processPage(ctx context.Context, rs *run, title string) PageResult {
	res := PageResult{Title: title}
	log := rs.log.With("page", title)
	sink := rs.sink

	fail := func(err error) PageResult {
		res.Outcome = OutcomeError
		res.Error = err.Error()
		log.Error("page failed", "state", res.State, "error", err)
		sink.Warning(title, err.Error())
		if errors.Is(err, ErrFatal) {
			sink.Follow(title, err.Error())
		}
		return res
	}
	skip := func(msg string) PageResult {
		res.State = StateSkipped
		res.Outcome = OutcomeSkipped
		sink.Info(title, msg)
		return res
	}

	page, err := r.store.FetchPage(ctx, title)
	if errors.Is(err, wikistore.ErrPageNotFound) {
		sink.Warning(title, "page not found")
		res.State, res.Outcome = StateSkipped, OutcomeSkipped
		return res
	}
	if err != nil {
		return fail(fmt.Errorf("fetch: %w", err))
	}
	res.State = StateFetched

	doc, err := wikitext.Parse(page.Text)
	if err != nil {
		var pe *wikitext.ParseError
		if errors.As(err, &pe) {
			sink.Follow(title, "unparseable markup: "+pe.Error())
			return skip("skipped: " + pe.Error())
		}
		return fail(err)
	}
	res.State = StateParsed

	pc := &PageContext{
		Title:    title,
		Original: page.Text,
		Recipe:   rs.recipe.Name,
		Lang:     r.lang,
		Params:   rs.params,
		Sink:     sink,
		Enricher: r.enricher,
		Log:      log,
		store:    r.store,
	}

	if rs.recipe.Done != nil {
		done, err := rs.recipe.Done(ctx, doc, pc)
		switch {
		case errors.Is(err, ErrSkipPage):
			return skip(err.Error())
		case err != nil:
			return fail(fmt.Errorf("check: %w", err))
		}
		res.State = StateChecked
		if done {
			res.State, res.Outcome = StateUnchanged, OutcomeUnchanged
			log.Debug("already done")
			return res
		}
	}

	res.State = StateMutating
	for _, st := range rs.recipe.Steps {
		changed, err := st.Run(ctx, doc, pc)
		switch {
		case err == nil:
		case errors.Is(err, ErrSkipPage):
			return skip(err.Error())
		case errors.Is(err, section.ErrMissingSection), errors.Is(err, section.ErrAmbiguousSection):
			sink.Warning(title, fmt.Sprintf("%s: %v", st.Name, err))
			continue
		default:
			if ctx.Err() != nil {
				return fail(ctx.Err())
			}
			return fail(fmt.Errorf("step %s: %w", st.Name, err))
		}
		if changed {
			res.Steps = append(res.Steps, st.Name)
			log.Debug("step applied", "step", st.Name)
		}
	}

	text := doc.String()
	res.State = StateFormatted
	if err := checkOutput(page.Text, text, r.minOutputRatio(rs.opts)); err != nil {
		return fail(err)
	}
	if text == page.Text {
		res.State, res.Outcome = StateUnchanged, OutcomeUnchanged
		return res
	}
	res.State = StateDiffed
	res.Diff = confirm.Render(page.Text, text, 2)

	summary := rs.recipe.EditSummary(rs.params)

	if rs.opts.DryRun {
		res.Outcome = OutcomeDryRun
		sink.Info(title, "dry run: "+pc.description(summary))
		return res
	}

	if rs.recipe.Confirm && !rs.opts.AssumeYes {
		ok, err := r.confirmer.Confirm(ctx, confirm.Request{
			Page:        title,
			Description: pc.description(summary),
			Before:      page.Text,
			After:       text,
		})
		if err != nil {
			return fail(fmt.Errorf("confirm: %w", err))
		}
		if !ok {
			res.State, res.Outcome = StateRejected, OutcomeRejected
			sink.Info(title, "edit declined")
			return res
		}
	}

	err = r.store.SavePage(ctx, wikistore.SaveRequest{
		Title:          title,
		Text:           text,
		Summary:        summary,
		BaseTimestamp:  page.Timestamp,
		StartTimestamp: page.FetchedAt,
		Flags:          rs.recipe.Flags,
	})
	if errors.Is(err, wikistore.ErrPersistConflict) {
		res.State, res.Outcome = StateSkipped, OutcomeConflict
		sink.Warning(title, "edit conflict, page changed since fetch")
		return res
	}
	if err != nil {
		return fail(fmt.Errorf("save: %w", err))
	}
	res.State, res.Outcome = StateSaved, OutcomeSaved
	sink.Save(title, pc.description(summary))
	return res
}
