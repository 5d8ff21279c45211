// Package enrichtest provides an in-memory enrich.Resolver for tests.
package enrichtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/dgallion1/voybot/internal/wikidata"
)

// Resolver answers from maps and records every title lookup.
type Resolver struct {
	mu sync.Mutex
	// Sitelinks maps lang -> title -> candidate ids.
	Sitelinks map[string]map[string][]string
	// Claims maps id -> property -> values.
	Claims map[string]map[string][]wikidata.Value
	// Labels maps id -> lang -> label.
	Labels map[string]map[string]string
	// Err, when set, is returned by every call.
	Err error

	lookups []string
}

func New() *Resolver {
	return &Resolver{
		Sitelinks: map[string]map[string][]string{},
		Claims:    map[string]map[string][]wikidata.Value{},
		Labels:    map[string]map[string]string{},
	}
}

// Link registers ids as candidates for title on the lang wiki.
func (r *Resolver) Link(lang, title string, ids ...string) *Resolver {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Sitelinks[lang] == nil {
		r.Sitelinks[lang] = map[string][]string{}
	}
	r.Sitelinks[lang][title] = append(r.Sitelinks[lang][title], ids...)
	return r
}

// Claim adds a statement value to id.
func (r *Resolver) Claim(id, pid string, v wikidata.Value) *Resolver {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Claims[id] == nil {
		r.Claims[id] = map[string][]wikidata.Value{}
	}
	r.Claims[id][pid] = append(r.Claims[id][pid], v)
	return r
}

// Item adds an entity-valued statement.
func (r *Resolver) Item(id, pid, target string) *Resolver {
	return r.Claim(id, pid, wikidata.Value{Type: wikidata.TypeEntityID, EntityID: target})
}

// Coord adds a coordinate statement.
func (r *Resolver) Coord(id string, lat, long float64) *Resolver {
	return r.Claim(id, wikidata.PropCoordinates, wikidata.Value{Type: wikidata.TypeCoordinate, Latitude: lat, Longitude: long})
}

// Text adds a string statement.
func (r *Resolver) Text(id, pid, s string) *Resolver {
	return r.Claim(id, pid, wikidata.Value{Type: wikidata.TypeString, Text: s})
}

// Label sets the label of id in lang.
func (r *Resolver) Label(id, lang, label string) *Resolver {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Labels[id] == nil {
		r.Labels[id] = map[string]string{}
	}
	r.Labels[id][lang] = label
	return r
}

// Lookups returns the "lang:title" pairs queried so far, in order.
func (r *Resolver) Lookups() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lookups...)
}

func (r *Resolver) FindEntityBySiteTitle(_ context.Context, name, lang string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups = append(r.lookups, lang+":"+name)
	if r.Err != nil {
		return "", r.Err
	}
	ids := r.Sitelinks[lang][wikidata.CleanLabel(name)]
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %q@%s", wikidata.ErrLookupNotFound, name, lang)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %q@%s", wikidata.ErrLookupAmbiguous, name, lang)
	}
}

func (r *Resolver) GetProperty(_ context.Context, id, pid string) ([]wikidata.Value, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	return append([]wikidata.Value(nil), r.Claims[id][pid]...), nil
}

func (r *Resolver) IsInstanceOf(ctx context.Context, id, class string) (bool, error) {
	vals, err := r.GetProperty(ctx, id, wikidata.PropInstanceOf)
	if err != nil {
		return false, err
	}
	for _, v := range vals {
		if v.EntityID == class {
			return true, nil
		}
	}
	return false, nil
}

func (r *Resolver) GetLabel(_ context.Context, id, lang string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return "", r.Err
	}
	l, ok := r.Labels[id][lang]
	if !ok {
		return "", fmt.Errorf("%w: no %s label on %s", wikidata.ErrLookupNotFound, lang, id)
	}
	return l, nil
}
