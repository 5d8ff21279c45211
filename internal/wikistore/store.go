// Package wikistore reads and writes wiki pages through the MediaWiki
// action API.
package wikistore

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrPageNotFound means the requested page does not exist.
	ErrPageNotFound = errors.New("page not found")
	// ErrPersistConflict means the save was rejected because the page changed
	// after it was fetched.
	ErrPersistConflict = errors.New("edit conflict")
)

// Page is a fetched revision.
type Page struct {
	Title string
	Text  string
	// Timestamp of the fetched revision; sent back on save to detect
	// conflicts.
	Timestamp string
	// FetchedAt is when the text was read; sent back as starttimestamp so
	// a deletion in between is reported as a conflict.
	FetchedAt string
}

// Watch values accepted by the edit API.
const (
	WatchNoChange    = "nochange"
	WatchWatch       = "watch"
	WatchUnwatch     = "unwatch"
	WatchPreferences = "preferences"
)

// SaveFlags are the edit options of a save.
type SaveFlags struct {
	Minor bool   `json:"minor" yaml:"minor"`
	Bot   bool   `json:"bot" yaml:"bot"`
	Watch string `json:"watch" yaml:"watch"`
}

// SaveRequest is one edit.
type SaveRequest struct {
	Title         string
	Text          string
	Summary       string
	BaseTimestamp  string
	StartTimestamp string
	Flags          SaveFlags
}

// Store is the page store the pipeline works against.
type Store interface {
	FetchPage(ctx context.Context, title string) (Page, error)
	SavePage(ctx context.Context, req SaveRequest) error
	// ListCategoryMembers returns article titles in category, descending
	// into subcategories when recursive. limit <= 0 means no limit.
	ListCategoryMembers(ctx context.Context, category string, recursive bool, limit int) ([]string, error)
	// ListPagesUsingTemplate returns titles transcluding template in
	// namespace (-1 for every namespace).
	ListPagesUsingTemplate(ctx context.Context, template string, namespace, limit int) ([]string, error)
	// CategoriesOf returns the category names of title without namespace.
	CategoriesOf(ctx context.Context, title string) ([]string, error)
	// EntityIDOf returns the Wikidata item linked to title, or "".
	EntityIDOf(ctx context.Context, title string) (string, error)
}

// Namespace prefixes accepted for category and template titles.
var (
	categoryPrefixes = []string{"Category:", "Categoria:"}
	templatePrefixes = []string{"Template:"}
)

// StripNamespace removes a known prefix: "Categoria:Città" -> "Città".
func StripNamespace(title string, prefixes ...string) string {
	title = strings.TrimSpace(title)
	for _, p := range prefixes {
		if len(title) >= len(p) && strings.EqualFold(title[:len(p)], p) {
			return strings.TrimSpace(title[len(p):])
		}
	}
	return title
}

// CategoryName normalizes a category title to its bare name.
func CategoryName(title string) string { return StripNamespace(title, categoryPrefixes...) }

// TemplateName normalizes a template title to its bare name.
func TemplateName(title string) string { return StripNamespace(title, templatePrefixes...) }
