// Package enrich answers the questions transform steps ask about places:
// which Wikidata item an article is about, where it is, which country it
// belongs to. It only reads; callers decide what to write into the page.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/voybot/internal/wikidata"
)

// FallbackLang is tried after the preferred language.
const FallbackLang = "en"

// Resolver is the read-only entity store. wikidata.Client implements it.
type Resolver interface {
	FindEntityBySiteTitle(ctx context.Context, name, lang string) (string, error)
	GetProperty(ctx context.Context, id, pid string) ([]wikidata.Value, error)
	IsInstanceOf(ctx context.Context, id, class string) (bool, error)
	GetLabel(ctx context.Context, id, lang string) (string, error)
}

// EnrichedEntity is the outcome of ResolveEntity. A zero ID means no usable
// answer.
type EnrichedEntity struct {
	ID string `json:"id,omitempty"`
	// Name and Lang identify the attempt that matched.
	Name string `json:"name,omitempty"`
	Lang string `json:"lang,omitempty"`
	// Disambiguation is set when the match was discarded for being a
	// disambiguation item.
	Disambiguation bool `json:"disambiguation,omitempty"`
}

func (e EnrichedEntity) Found() bool { return e.ID != "" }

// Coordinates holds lat/long formatted to 6 significant digits. Both are
// empty when the entity has no coordinate statement.
type Coordinates struct {
	Lat  string `json:"lat,omitempty"`
	Long string `json:"long,omitempty"`
}

func (c Coordinates) Valid() bool { return c.Lat != "" && c.Long != "" }

// Enricher wraps a Resolver with the lookup rules of the bot.
type Enricher struct {
	r           Resolver
	log         *slog.Logger
	concurrency int
}

func New(r Resolver, log *slog.Logger, concurrency int) *Enricher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Enricher{r: r, log: log, concurrency: concurrency}
}

type attempt struct{ name, lang string }

// ResolveEntity looks up name in lang, then name in English, then alt in
// English, and keeps the first attempt that yields exactly one candidate.
// A disambiguation item discards the whole resolution. Not found is not an
// error; an error is returned only when no attempt could get an answer.
func (e *Enricher) ResolveEntity(ctx context.Context, name, alt, lang string) (EnrichedEntity, error) {
	name = wikidata.CleanLabel(name)
	alt = wikidata.CleanLabel(alt)
	log := e.log.With("name", name)

	attempts := []attempt{{name, lang}}
	if lang != FallbackLang {
		attempts = append(attempts, attempt{name, FallbackLang})
	}
	if alt != "" && alt != name {
		attempts = append(attempts, attempt{alt, FallbackLang})
	}

	var lastErr error
	answered := false
	for _, a := range attempts {
		if a.name == "" {
			continue
		}
		id, err := e.r.FindEntityBySiteTitle(ctx, a.name, a.lang)
		switch {
		case err == nil:
			return e.finalize(ctx, log, EnrichedEntity{ID: id, Name: a.name, Lang: a.lang})
		case errors.Is(err, wikidata.ErrLookupNotFound), errors.Is(err, wikidata.ErrLookupAmbiguous):
			answered = true
			log.Debug("lookup attempt failed", "query", a.name, "lang", a.lang, "error", err)
		default:
			if ctx.Err() != nil {
				return EnrichedEntity{}, ctx.Err()
			}
			lastErr = err
			log.Warn("lookup attempt error", "query", a.name, "lang", a.lang, "error", err)
		}
	}
	if !answered && lastErr != nil {
		return EnrichedEntity{}, fmt.Errorf("resolve %q: %w", name, lastErr)
	}
	log.Info("no wikidata item found")
	return EnrichedEntity{}, nil
}

func (e *Enricher) finalize(ctx context.Context, log *slog.Logger, ent EnrichedEntity) (EnrichedEntity, error) {
	disamb, err := e.r.IsInstanceOf(ctx, ent.ID, wikidata.ClassDisambiguation)
	if err != nil {
		return EnrichedEntity{}, fmt.Errorf("check disambiguation %s: %w", ent.ID, err)
	}
	if disamb {
		log.Info("wikidata item is a disambiguation page", "id", ent.ID)
		return EnrichedEntity{Name: ent.Name, Lang: ent.Lang, Disambiguation: true}, nil
	}
	log.Debug("resolved", "id", ent.ID, "lang", ent.Lang)
	return ent, nil
}

// GetCoordinates returns the coordinates of id. With several coordinate
// statements the last one wins.
func (e *Enricher) GetCoordinates(ctx context.Context, id string) (Coordinates, error) {
	vals, err := e.r.GetProperty(ctx, id, wikidata.PropCoordinates)
	if err != nil {
		return Coordinates{}, fmt.Errorf("coordinates of %s: %w", id, err)
	}
	var c Coordinates
	for _, v := range vals {
		if v.Type != wikidata.TypeCoordinate {
			continue
		}
		c = Coordinates{Lat: FormatCoordinate(v.Latitude), Long: FormatCoordinate(v.Longitude)}
	}
	return c, nil
}

// FormatCoordinate keeps 6 significant digits: 45.123456789 -> "45.1235".
func FormatCoordinate(x float64) string {
	return strconv.FormatFloat(x, 'g', 6, 64)
}

// Country returns the item id of the country id is located in.
func (e *Enricher) Country(ctx context.Context, id string) (string, bool, error) {
	vals, err := e.r.GetProperty(ctx, id, wikidata.PropCountry)
	if err != nil {
		return "", false, fmt.Errorf("country of %s: %w", id, err)
	}
	for _, v := range vals {
		if v.EntityID != "" {
			return v.EntityID, true, nil
		}
	}
	return "", false, nil
}

// GetCountryISOCode walks id -> country -> ISO 3166-1 alpha-2, falling back
// to the ISO 3166-2 code when the country has no alpha-2 statement.
func (e *Enricher) GetCountryISOCode(ctx context.Context, id string) (string, bool, error) {
	country, ok, err := e.Country(ctx, id)
	if err != nil || !ok {
		return "", false, err
	}
	for _, pid := range []string{wikidata.PropISOAlpha2, wikidata.PropISO31662} {
		vals, err := e.r.GetProperty(ctx, country, pid)
		if err != nil {
			return "", false, fmt.Errorf("iso code of %s: %w", country, err)
		}
		for _, v := range vals {
			if code := strings.TrimSpace(v.Text); code != "" {
				return code, true, nil
			}
		}
	}
	return "", false, nil
}

// GetCountryLabel returns the label in lang of the country id belongs to.
func (e *Enricher) GetCountryLabel(ctx context.Context, id, lang string) (string, bool, error) {
	country, ok, err := e.Country(ctx, id)
	if err != nil || !ok {
		return "", false, err
	}
	label, err := e.r.GetLabel(ctx, country, lang)
	if errors.Is(err, wikidata.ErrLookupNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return label, true, nil
}

// GetImage returns the file name of the main image of id.
func (e *Enricher) GetImage(ctx context.Context, id string) (string, bool, error) {
	vals, err := e.r.GetProperty(ctx, id, wikidata.PropImage)
	if err != nil {
		return "", false, fmt.Errorf("image of %s: %w", id, err)
	}
	for _, v := range vals {
		if v.Text != "" {
			return v.Text, true, nil
		}
	}
	return "", false, nil
}

// Part is an item listed in a "has part" statement.
type Part struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Parts returns the items id has as parts, in statement order, labelled in
// lang, else in English, else by their id.
func (e *Enricher) Parts(ctx context.Context, id, lang string) ([]Part, error) {
	vals, err := e.r.GetProperty(ctx, id, wikidata.PropHasPart)
	if err != nil {
		return nil, fmt.Errorf("parts of %s: %w", id, err)
	}
	var parts []Part
	for _, v := range vals {
		if v.EntityID == "" {
			continue
		}
		p := Part{ID: v.EntityID, Label: v.EntityID}
		for _, l := range []string{lang, FallbackLang} {
			label, err := e.r.GetLabel(ctx, v.EntityID, l)
			if errors.Is(err, wikidata.ErrLookupNotFound) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("label of %s: %w", v.EntityID, err)
			}
			p.Label = label
			break
		}
		parts = append(parts, p)
	}
	return parts, nil
}

// Query is one ResolveEntity input.
type Query struct {
	Name string
	Alt  string
	Lang string
}

// ResolveAll resolves independent queries concurrently, bounded by the
// configured concurrency. Results line up with qs.
func (e *Enricher) ResolveAll(ctx context.Context, qs []Query) ([]EnrichedEntity, error) {
	out := make([]EnrichedEntity, len(qs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, q := range qs {
		g.Go(func() error {
			ent, err := e.ResolveEntity(ctx, q.Name, q.Alt, q.Lang)
			if err != nil {
				return err
			}
			out[i] = ent
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
