package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/voybot/internal/enrich"
	"github.com/dgallion1/voybot/internal/events"
	"github.com/dgallion1/voybot/internal/wikistore"
	"github.com/dgallion1/voybot/internal/wikitext"
)

// PageContext is the side data a step sees besides the tree. It lives for
// one page.
type PageContext struct {
	Title string
	// Original is the text as fetched.
	Original string
	Recipe   string
	Lang     string
	Params   Params
	Sink     events.Sink
	Enricher *enrich.Enricher
	Log      *slog.Logger

	store wikistore.Store

	cats       []string
	catsLoaded bool
	entity     string
	entLoaded  bool

	notes   []string
	scratch map[string]string
}

// Categories returns the page's categories, fetched once.
func (pc *PageContext) Categories(ctx context.Context) ([]string, error) {
	if pc.catsLoaded {
		return pc.cats, nil
	}
	if pc.store == nil {
		pc.catsLoaded = true
		return nil, nil
	}
	cats, err := pc.store.CategoriesOf(ctx, pc.Title)
	if err != nil {
		return nil, fmt.Errorf("categories of %s: %w", pc.Title, err)
	}
	pc.cats, pc.catsLoaded = cats, true
	return cats, nil
}

// InCategory reports whether the page is in any of names.
func (pc *PageContext) InCategory(ctx context.Context, names ...string) (bool, error) {
	cats, err := pc.Categories(ctx)
	if err != nil {
		return false, err
	}
	for _, c := range cats {
		for _, n := range names {
			if wikitext.SameName(c, wikistore.CategoryName(n)) {
				return true, nil
			}
		}
	}
	return false, nil
}

// EntityID returns the Wikidata item linked to the page, or "".
func (pc *PageContext) EntityID(ctx context.Context) (string, error) {
	if pc.entLoaded {
		return pc.entity, nil
	}
	if pc.store == nil {
		pc.entLoaded = true
		return "", nil
	}
	id, err := pc.store.EntityIDOf(ctx, pc.Title)
	if err != nil {
		return "", fmt.Errorf("entity of %s: %w", pc.Title, err)
	}
	pc.entity, pc.entLoaded = id, true
	return id, nil
}

// Note records a human description of a change; notes make up the
// confirmation prompt.
func (pc *PageContext) Note(format string, args ...any) {
	pc.notes = append(pc.notes, fmt.Sprintf(format, args...))
}

// Remember keeps a value for later steps of the same page.
func (pc *PageContext) Remember(key, value string) {
	if pc.scratch == nil {
		pc.scratch = make(map[string]string)
	}
	pc.scratch[key] = value
}

// Recall returns a value stored by an earlier step.
func (pc *PageContext) Recall(key string) (string, bool) {
	v, ok := pc.scratch[key]
	return v, ok
}

// Notes returns the recorded notes.
func (pc *PageContext) Notes() []string { return pc.notes }

func (pc *PageContext) description(summary string) string {
	if len(pc.notes) == 0 {
		return summary
	}
	return summary + ": " + strings.Join(pc.notes, "; ")
}
