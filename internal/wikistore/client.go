package wikistore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	mwclient "cgt.name/pkg/go-mwclient"
	"cgt.name/pkg/go-mwclient/params"
	"github.com/antonholmquist/jason"
	"golang.org/x/time/rate"
)

// Options configures a Client.
type Options struct {
	APIURL    string
	UserAgent string
	Username  string
	Password  string
	// APIRate caps read requests per second; <= 0 means no cap.
	APIRate float64
	// EditsPerMinute caps saves; <= 0 means no cap.
	EditsPerMinute float64
}

// Client implements Store over the action API.
type Client struct {
	w     *mwclient.Client
	opts  Options
	reads *rate.Limiter
	edits *rate.Limiter
	log   *slog.Logger
}

func NewClient(opts Options, log *slog.Logger) (*Client, error) {
	if opts.APIURL == "" {
		return nil, fmt.Errorf("api url is required")
	}
	if opts.UserAgent == "" {
		return nil, fmt.Errorf("user agent is required")
	}
	w, err := mwclient.New(opts.APIURL, opts.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("wiki client: %w", err)
	}
	reads := rate.NewLimiter(rate.Inf, 1)
	if opts.APIRate > 0 {
		reads = rate.NewLimiter(rate.Limit(opts.APIRate), 1)
	}
	edits := rate.NewLimiter(rate.Inf, 1)
	if opts.EditsPerMinute > 0 {
		edits = rate.NewLimiter(rate.Every(time.Duration(float64(time.Minute)/opts.EditsPerMinute)), 1)
	}
	return &Client{w: w, opts: opts, reads: reads, edits: edits, log: log}, nil
}

// Login authenticates with the configured bot password. Without a username
// the client stays anonymous and can only read.
func (c *Client) Login(ctx context.Context) error {
	if c.opts.Username == "" {
		c.log.Info("no wiki username configured, running read-only")
		return nil
	}
	if err := c.reads.Wait(ctx); err != nil {
		return err
	}
	if err := c.w.Login(c.opts.Username, c.opts.Password); err != nil {
		return fmt.Errorf("login as %s: %w", c.opts.Username, err)
	}
	c.log.Info("logged in", "user", c.opts.Username)
	return nil
}

func (c *Client) FetchPage(ctx context.Context, title string) (Page, error) {
	if err := c.reads.Wait(ctx); err != nil {
		return Page{}, err
	}
	fetched := time.Now().UTC().Format(time.RFC3339)
	text, ts, err := c.w.GetPageByName(title)
	err = c.dropWarnings(err, "fetch", title)
	if errors.Is(err, mwclient.ErrPageNotFound) {
		return Page{}, fmt.Errorf("fetch %s: %w", title, ErrPageNotFound)
	}
	if err != nil {
		return Page{}, fmt.Errorf("fetch %s: %w", title, err)
	}
	return Page{Title: title, Text: text, Timestamp: ts, FetchedAt: fetched}, nil
}

func (c *Client) SavePage(ctx context.Context, req SaveRequest) error {
	if err := c.edits.Wait(ctx); err != nil {
		return err
	}
	p := params.Values{
		"title":    req.Title,
		"text":     req.Text,
		"summary":  req.Summary,
		"nocreate": "1",
	}
	if req.BaseTimestamp != "" {
		p["basetimestamp"] = req.BaseTimestamp
	}
	if req.StartTimestamp != "" {
		p["starttimestamp"] = req.StartTimestamp
	}
	if req.Flags.Minor {
		p["minor"] = "1"
	} else {
		p["notminor"] = "1"
	}
	if req.Flags.Bot {
		p["bot"] = "1"
	}
	if req.Flags.Watch != "" {
		p["watchlist"] = req.Flags.Watch
	}

	err := c.edit(p)
	var apiErr mwclient.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "editconflict", "pagedeleted":
			return fmt.Errorf("save %s: %w", req.Title, ErrPersistConflict)
		case "missingtitle":
			return fmt.Errorf("save %s: %w", req.Title, ErrPageNotFound)
		}
	}
	if err != nil {
		return fmt.Errorf("save %s: %w", req.Title, err)
	}
	return nil
}

// edit posts an edit and checks its result. Warnings that come with a
// successful edit are logged, not returned.
func (c *Client) edit(p params.Values) error {
	token, err := c.w.GetToken(mwclient.CSRFToken)
	if err != nil {
		return fmt.Errorf("csrf token: %w", err)
	}
	p["token"] = token
	p["action"] = "edit"

	resp, err := c.w.Post(p)
	if err = c.dropWarnings(err, "edit", p["title"]); err != nil {
		return err
	}
	result, err := resp.GetString("edit", "result")
	if err != nil {
		return fmt.Errorf("edit response without result: %w", err)
	}
	if result != "Success" {
		v, _ := resp.GetValue("edit")
		return fmt.Errorf("edit %s: %v", result, v)
	}
	if nochange, _ := resp.GetBoolean("edit", "nochange"); nochange {
		c.log.Debug("edit made no change", "page", p["title"])
	}
	return nil
}

// dropWarnings logs API warnings and clears them. The client library
// reports warnings through the error value even when the call succeeded.
func (c *Client) dropWarnings(err error, op, title string) error {
	var warnings mwclient.APIWarnings
	if !errors.As(err, &warnings) {
		return err
	}
	for _, w := range warnings {
		c.log.Warn("api warning", "op", op, "page", title, "module", w.Module, "info", w.Info)
	}
	return nil
}

func (c *Client) ListCategoryMembers(ctx context.Context, category string, recursive bool, limit int) ([]string, error) {
	seenCats := map[string]bool{}
	seen := map[string]bool{}
	var titles []string
	queue := []string{CategoryName(category)}

	for len(queue) > 0 {
		cat := queue[0]
		queue = queue[1:]
		if seenCats[cat] {
			continue
		}
		seenCats[cat] = true

		err := c.query(ctx, params.Values{
			"list":    "categorymembers",
			"cmtitle": "Category:" + cat,
			"cmtype":  "page|subcat",
			"cmlimit": "max",
		}, func(resp *jason.Object) bool {
			members, err := resp.GetObjectArray("query", "categorymembers")
			if err != nil {
				return true
			}
			for _, m := range members {
				title, _ := m.GetString("title")
				ns, _ := m.GetInt64("ns")
				if ns == 14 {
					if recursive {
						queue = append(queue, CategoryName(title))
					}
					continue
				}
				if title == "" || seen[title] {
					continue
				}
				seen[title] = true
				titles = append(titles, title)
				if limit > 0 && len(titles) >= limit {
					return false
				}
			}
			return true
		})
		if err != nil {
			return nil, fmt.Errorf("list category %s: %w", cat, err)
		}
		if limit > 0 && len(titles) >= limit {
			break
		}
	}
	return titles, nil
}

func (c *Client) ListPagesUsingTemplate(ctx context.Context, template string, namespace, limit int) ([]string, error) {
	p := params.Values{
		"list":    "embeddedin",
		"eititle": "Template:" + TemplateName(template),
		"eilimit": "max",
	}
	if namespace >= 0 {
		p["einamespace"] = strconv.Itoa(namespace)
	}
	var titles []string
	err := c.query(ctx, p, func(resp *jason.Object) bool {
		pages, err := resp.GetObjectArray("query", "embeddedin")
		if err != nil {
			return true
		}
		for _, pg := range pages {
			if title, err := pg.GetString("title"); err == nil {
				titles = append(titles, title)
			}
			if limit > 0 && len(titles) >= limit {
				return false
			}
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("list pages using %s: %w", template, err)
	}
	return titles, nil
}

func (c *Client) CategoriesOf(ctx context.Context, title string) ([]string, error) {
	var cats []string
	err := c.query(ctx, params.Values{
		"prop":    "categories",
		"titles":  title,
		"cllimit": "max",
	}, func(resp *jason.Object) bool {
		pages, err := resp.GetObjectArray("query", "pages")
		if err != nil {
			return true
		}
		for _, pg := range pages {
			list, err := pg.GetObjectArray("categories")
			if err != nil {
				continue
			}
			for _, cat := range list {
				if t, err := cat.GetString("title"); err == nil {
					cats = append(cats, CategoryName(t))
				}
			}
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("categories of %s: %w", title, err)
	}
	sort.Strings(cats)
	return cats, nil
}

func (c *Client) EntityIDOf(ctx context.Context, title string) (string, error) {
	if err := c.reads.Wait(ctx); err != nil {
		return "", err
	}
	resp, err := c.w.Get(params.Values{
		"action": "query",
		"prop":   "pageprops",
		"ppprop": "wikibase_item",
		"titles": title,
	})
	if err = c.dropWarnings(err, "pageprops", title); err != nil {
		return "", fmt.Errorf("pageprops of %s: %w", title, err)
	}
	pages, err := resp.GetObjectArray("query", "pages")
	if err != nil || len(pages) == 0 {
		return "", fmt.Errorf("pageprops of %s: %w", title, ErrPageNotFound)
	}
	if missing, _ := pages[0].GetBoolean("missing"); missing {
		return "", fmt.Errorf("pageprops of %s: %w", title, ErrPageNotFound)
	}
	id, _ := pages[0].GetString("pageprops", "wikibase_item")
	return id, nil
}

// query runs a continued list query, handing each batch to fn until fn
// returns false or the results run out.
func (c *Client) query(ctx context.Context, p params.Values, fn func(*jason.Object) bool) error {
	p.Set("action", "query")
	p.Set("continue", "")
	for {
		if err := c.reads.Wait(ctx); err != nil {
			return err
		}
		resp, err := c.w.Get(p)
		if err = c.dropWarnings(err, p.Get("list")+p.Get("prop"), p.Get("titles")); err != nil {
			return err
		}
		if !fn(resp) {
			return nil
		}
		cont, err := resp.GetObject("continue")
		if err != nil {
			return nil
		}
		for k, v := range cont.Map() {
			s, err := v.String()
			if err != nil {
				return fmt.Errorf("continue %s: %w", k, err)
			}
			p.Set(k, s)
		}
	}
}
