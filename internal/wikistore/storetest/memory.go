// Package storetest provides an in-memory wikistore.Store for tests.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/dgallion1/voybot/internal/wikistore"
)

// Memory is a Store backed by maps. Saves are recorded and applied.
type Memory struct {
	mu sync.Mutex

	pages      map[string]string
	revs       map[string]int
	categories map[string][]string // category -> members
	subcats    map[string][]string // category -> subcategories
	usage      map[string][]string // template -> pages
	entities   map[string]string

	// pending forced conflicts per title
	conflicts map[string]int
	saves     []wikistore.SaveRequest
}

func New() *Memory {
	return &Memory{
		pages:      map[string]string{},
		revs:       map[string]int{},
		categories: map[string][]string{},
		subcats:    map[string][]string{},
		usage:      map[string][]string{},
		entities:   map[string]string{},
		conflicts:  map[string]int{},
	}
}

// Put creates or replaces a page and lists it under cats.
func (m *Memory) Put(title, text string, cats ...string) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[title] = text
	m.revs[title]++
	for _, c := range cats {
		c = wikistore.CategoryName(c)
		m.categories[c] = append(m.categories[c], title)
	}
	return m
}

// Subcategory registers child as a subcategory of parent.
func (m *Memory) Subcategory(parent, child string) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	parent = wikistore.CategoryName(parent)
	m.subcats[parent] = append(m.subcats[parent], wikistore.CategoryName(child))
	return m
}

// Uses records that title transcludes template.
func (m *Memory) Uses(title, template string) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := wikistore.TemplateName(template)
	m.usage[t] = append(m.usage[t], title)
	return m
}

// Entity links title to a Wikidata item.
func (m *Memory) Entity(title, id string) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities[title] = id
	return m
}

// Conflict makes the next n saves of title fail with ErrPersistConflict.
func (m *Memory) Conflict(title string, n int) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflicts[title] = n
	return m
}

// Text returns the current text of title.
func (m *Memory) Text(title string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pages[title]
}

// Saves returns every successful save in order.
func (m *Memory) Saves() []wikistore.SaveRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]wikistore.SaveRequest(nil), m.saves...)
}

func (m *Memory) FetchPage(_ context.Context, title string) (wikistore.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	text, ok := m.pages[title]
	if !ok {
		return wikistore.Page{}, fmt.Errorf("fetch %s: %w", title, wikistore.ErrPageNotFound)
	}
	return wikistore.Page{Title: title, Text: text, Timestamp: strconv.Itoa(m.revs[title])}, nil
}

func (m *Memory) SavePage(_ context.Context, req wikistore.SaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pages[req.Title]; !ok {
		return fmt.Errorf("save %s: %w", req.Title, wikistore.ErrPageNotFound)
	}
	if m.conflicts[req.Title] > 0 {
		m.conflicts[req.Title]--
		m.revs[req.Title]++
		return fmt.Errorf("save %s: %w", req.Title, wikistore.ErrPersistConflict)
	}
	if req.BaseTimestamp != "" && req.BaseTimestamp != strconv.Itoa(m.revs[req.Title]) {
		return fmt.Errorf("save %s: %w", req.Title, wikistore.ErrPersistConflict)
	}
	m.pages[req.Title] = req.Text
	m.revs[req.Title]++
	m.saves = append(m.saves, req)
	return nil
}

func (m *Memory) ListCategoryMembers(_ context.Context, category string, recursive bool, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	seen := map[string]bool{}
	visited := map[string]bool{}
	queue := []string{wikistore.CategoryName(category)}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if visited[c] {
			continue
		}
		visited[c] = true
		for _, t := range m.categories[c] {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
		if recursive {
			queue = append(queue, m.subcats[c]...)
		}
	}
	return clip(out, limit), nil
}

func (m *Memory) ListPagesUsingTemplate(_ context.Context, template string, _, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clip(append([]string(nil), m.usage[wikistore.TemplateName(template)]...), limit), nil
}

func (m *Memory) CategoriesOf(_ context.Context, title string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pages[title]; !ok {
		return nil, fmt.Errorf("categories of %s: %w", title, wikistore.ErrPageNotFound)
	}
	var cats []string
	for c, members := range m.categories {
		for _, t := range members {
			if t == title {
				cats = append(cats, c)
				break
			}
		}
	}
	sort.Strings(cats)
	return cats, nil
}

func (m *Memory) EntityIDOf(_ context.Context, title string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pages[title]; !ok {
		return "", fmt.Errorf("pageprops of %s: %w", title, wikistore.ErrPageNotFound)
	}
	return m.entities[title], nil
}

func clip(titles []string, limit int) []string {
	if limit > 0 && len(titles) > limit {
		return titles[:limit]
	}
	return titles
}

var _ wikistore.Store = (*Memory)(nil)
