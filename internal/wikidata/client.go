// Package wikidata resolves wiki article titles to Wikidata items and reads
// their statements. Title lookups go through the SPARQL endpoint; entity
// data comes from the action API (wbgetentities).
package wikidata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	mwclient "cgt.name/pkg/go-mwclient"
	"cgt.name/pkg/go-mwclient/params"
	"github.com/antonholmquist/jason"
	"golang.org/x/time/rate"
)

const (
	DefaultAPIURL    = "https://www.wikidata.org/w/api.php"
	DefaultSPARQLURL = "https://query.wikidata.org/sparql"
)

// Options configures a Client.
type Options struct {
	APIURL    string
	SPARQLURL string
	UserAgent string
	// Rate caps requests per second across both endpoints; <= 0 means no cap.
	Rate    float64
	Timeout time.Duration
}

// Client talks to Wikidata. Entities are cached for the life of the client.
type Client struct {
	api        *mwclient.Client
	sparqlURL  string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	stats      *ResolverStats
	log        *slog.Logger
	backoff    func(attempt int) time.Duration

	mu       sync.Mutex
	entities map[string]*Entity
}

func NewClient(opts Options, log *slog.Logger) (*Client, error) {
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	if opts.SPARQLURL == "" {
		opts.SPARQLURL = DefaultSPARQLURL
	}
	if opts.UserAgent == "" {
		return nil, fmt.Errorf("user agent is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	api, err := mwclient.New(opts.APIURL, opts.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("wikidata api client: %w", err)
	}
	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}
	return &Client{
		api:        api,
		sparqlURL:  opts.SPARQLURL,
		userAgent:  opts.UserAgent,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		stats:      NewResolverStats(time.Hour),
		log:        log,
		backoff:    Backoff,
		entities:   make(map[string]*Entity),
	}, nil
}

// Stats exposes the rolling latency window of resolver calls.
func (c *Client) Stats() *ResolverStats { return c.stats }

// FindEntityBySiteTitle returns the item whose lang.wikipedia article is
// titled name. Exactly one candidate counts as success: none yields
// ErrLookupNotFound and several yield ErrLookupAmbiguous.
func (c *Client) FindEntityBySiteTitle(ctx context.Context, name, lang string) (string, error) {
	label := CleanLabel(name)
	if label == "" {
		return "", fmt.Errorf("%w: empty title", ErrLookupNotFound)
	}
	if !ValidLang(lang) {
		return "", fmt.Errorf("invalid language code %q", lang)
	}

	start := time.Now()
	var ids []string
	err := c.withRetry(ctx, "sparql", func() error {
		var err error
		ids, err = c.sparqlItems(ctx, SitelinkQuery(label, lang))
		return err
	})
	elapsed := time.Since(start)
	if err != nil {
		c.stats.Record(CallSitelink, elapsed, OutcomeError)
		return "", fmt.Errorf("find %q@%s: %w", label, lang, err)
	}

	switch len(ids) {
	case 0:
		c.stats.Record(CallSitelink, elapsed, OutcomeNotFound)
		return "", fmt.Errorf("%w: %q@%s", ErrLookupNotFound, label, lang)
	case 1:
		c.stats.Record(CallSitelink, elapsed, OutcomeFound)
		return ids[0], nil
	default:
		c.stats.Record(CallSitelink, elapsed, OutcomeAmbiguous)
		return "", fmt.Errorf("%w: %q@%s has %d candidates", ErrLookupAmbiguous, label, lang, len(ids))
	}
}

// Entity fetches labels, sitelinks and statements of id.
func (c *Client) Entity(ctx context.Context, id string) (*Entity, error) {
	if !IsEntityID(id) {
		return nil, fmt.Errorf("%w: invalid entity id %q", ErrLookupNotFound, id)
	}
	c.mu.Lock()
	cached, ok := c.entities[id]
	c.mu.Unlock()
	if ok {
		c.stats.Record(CallEntity, 0, OutcomeCached)
		return cached, nil
	}

	start := time.Now()
	var e *Entity
	err := c.withRetry(ctx, "wbgetentities", func() error {
		resp, err := c.api.Get(params.Values{
			"action": "wbgetentities",
			"ids":    id,
			"props":  "labels|claims|sitelinks",
		})
		var apiErr mwclient.APIError
		if errors.As(err, &apiErr) && apiErr.Code == "no-such-entity" {
			return fmt.Errorf("%w: %s", ErrLookupNotFound, id)
		}
		var warnings mwclient.APIWarnings
		if errors.As(err, &warnings) {
			for _, w := range warnings {
				c.log.Warn("wikidata api warning", "id", id, "module", w.Module, "info", w.Info)
			}
			err = nil
		}
		if err != nil {
			return err
		}
		e, err = entityFromResponse(id, resp)
		return err
	})
	elapsed := time.Since(start)
	if err != nil {
		outcome := OutcomeError
		if errors.Is(err, ErrLookupNotFound) {
			outcome = OutcomeNotFound
		}
		c.stats.Record(CallEntity, elapsed, outcome)
		return nil, fmt.Errorf("get entity %s: %w", id, err)
	}
	c.stats.Record(CallEntity, elapsed, OutcomeFound)

	c.mu.Lock()
	c.entities[id] = e
	c.mu.Unlock()
	return e, nil
}

// GetProperty returns the statement values of pid on id; empty when absent.
func (c *Client) GetProperty(ctx context.Context, id, pid string) ([]Value, error) {
	e, err := c.Entity(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.Claims[pid], nil
}

// IsInstanceOf reports whether id has an "instance of" statement for class.
func (c *Client) IsInstanceOf(ctx context.Context, id, class string) (bool, error) {
	vals, err := c.GetProperty(ctx, id, PropInstanceOf)
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

// GetLabel returns the label of id in lang.
func (c *Client) GetLabel(ctx context.Context, id, lang string) (string, error) {
	e, err := c.Entity(ctx, id)
	if err != nil {
		return "", err
	}
	label, ok := e.Label(lang)
	if !ok {
		return "", fmt.Errorf("%w: no %s label on %s", ErrLookupNotFound, lang, id)
	}
	return label, nil
}

func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := range MaxRetries {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		err = fn()
		if err == nil || !IsRetryable(err) {
			return err
		}
		c.log.Warn("retryable resolver error", "op", op, "attempt", attempt, "error", err)
		select {
		case <-time.After(c.backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (c *Client) sparqlItems(ctx context.Context, query string) ([]string, error) {
	u := c.sparqlURL + "?" + url.Values{"query": {query}, "format": {"json"}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/sparql-results+json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sparql: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &RetryableError{StatusCode: resp.StatusCode, Message: string(body)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sparql status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	obj, err := jason.NewObjectFromBytes(body)
	if err != nil {
		return nil, fmt.Errorf("decode sparql response: %w", err)
	}
	bindings, err := obj.GetObjectArray("results", "bindings")
	if err != nil {
		return nil, fmt.Errorf("decode sparql response: %w", err)
	}

	seen := make(map[string]bool, len(bindings))
	var ids []string
	for _, b := range bindings {
		uri, err := b.GetString("item", "value")
		if err != nil {
			continue
		}
		if id := IDFromURI(uri); id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func entityFromResponse(id string, resp *jason.Object) (*Entity, error) {
	entities, err := resp.GetObject("entities")
	if err != nil {
		return nil, fmt.Errorf("decode entities: %w", err)
	}
	all := entities.Map()
	v, ok := all[id]
	if !ok {
		// A redirected id comes back keyed by its target.
		for _, other := range all {
			v = other
			break
		}
	}
	if v == nil {
		return nil, fmt.Errorf("%w: %s", ErrLookupNotFound, id)
	}
	obj, err := v.Object()
	if err != nil {
		return nil, fmt.Errorf("decode entity %s: %w", id, err)
	}
	return parseEntity(id, obj)
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
