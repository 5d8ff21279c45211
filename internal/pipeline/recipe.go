package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dgallion1/voybot/internal/wikistore"
	"github.com/dgallion1/voybot/internal/wikitext"
)

var (
	// ErrFatal aborts a page and leaves it untouched.
	ErrFatal = errors.New("fatal transform error")
	// ErrSkipPage ends processing of a page without saving; not an error.
	ErrSkipPage = errors.New("page skipped")
	// ErrUnknownRecipe is returned for names missing from the registry.
	ErrUnknownRecipe = errors.New("unknown recipe")
)

// StepFunc mutates doc in place and reports whether it changed anything.
// A step with nothing to do returns false, nil.
type StepFunc func(ctx context.Context, doc *wikitext.Wikicode, pc *PageContext) (bool, error)

// Step is a named StepFunc.
type Step struct {
	Name string
	Run  StepFunc
}

// DoneFunc reports whether the whole page already satisfies the recipe.
type DoneFunc func(ctx context.Context, doc *wikitext.Wikicode, pc *PageContext) (bool, error)

// Recipe is an ordered list of steps applied to every selected page.
type Recipe struct {
	Name        string
	Description string
	// Summary is the edit summary of saves. Summarize, when set, builds it
	// from the run parameters instead.
	Summary   string
	Summarize func(Params) string
	Flags     wikistore.SaveFlags
	// Selector is used when the caller does not select pages.
	Selector Selector
	// Done short-circuits the page to Unchanged before any step runs.
	Done  DoneFunc
	Steps []Step
	// Confirm asks the confirmer before every save.
	Confirm bool
	// Params are defaults, overridden per run.
	Params Params
}

// EditSummary returns the edit summary for a run with params.
func (r *Recipe) EditSummary(params Params) string {
	switch {
	case r.Summarize != nil:
		return r.Summarize(params)
	case r.Summary != "":
		return r.Summary
	}
	return r.Description
}

// StepNames lists the steps in order.
func (r *Recipe) StepNames() []string {
	out := make([]string, len(r.Steps))
	for i, s := range r.Steps {
		out[i] = s.Name
	}
	return out
}

// Params are string recipe parameters.
type Params map[string]string

// Get returns the value of key, or "".
func (p Params) Get(key string) string { return p[key] }

// Or returns the value of key, or def when unset or blank.
func (p Params) Or(key, def string) string {
	if v := strings.TrimSpace(p[key]); v != "" {
		return v
	}
	return def
}

// Int returns key parsed as an integer, or def.
func (p Params) Int(key string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(p[key])); err == nil {
		return n
	}
	return def
}

// List splits key on commas.
func (p Params) List(key string) []string {
	var out []string
	for _, s := range strings.Split(p[key], ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Merge returns p overlaid with over.
func (p Params) Merge(over Params) Params {
	out := make(Params, len(p)+len(over))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// Registry holds recipes by name.
type Registry struct {
	mu      sync.RWMutex
	recipes map[string]*Recipe
}

func NewRegistry(recipes ...*Recipe) *Registry {
	r := &Registry{recipes: make(map[string]*Recipe)}
	for _, rc := range recipes {
		r.Register(rc)
	}
	return r
}

// Register adds or replaces a recipe.
func (r *Registry) Register(rc *Recipe) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recipes[rc.Name] = rc
}

func (r *Registry) Get(name string) (*Recipe, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rc, ok := r.recipes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRecipe, name)
	}
	return rc, nil
}

// List returns the recipes sorted by name.
func (r *Registry) List() []*Recipe {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Recipe, 0, len(r.recipes))
	for _, rc := range r.recipes {
		out = append(out, rc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
