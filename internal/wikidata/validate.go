package wikidata

import (
	"regexp"
	"strings"
)

var (
	entityIDRe = regexp.MustCompile(`^[QPL][1-9][0-9]*$`)
	langRe     = regexp.MustCompile(`^[a-z]{2,3}(-[a-z]+)?$`)
)

// IsEntityID reports whether s looks like an item, property or lexeme id.
func IsEntityID(s string) bool { return entityIDRe.MatchString(s) }

// ValidLang reports whether lang is a plausible wiki language code. The code
// ends up in a SPARQL IRI, so anything else is refused.
func ValidLang(lang string) bool { return langRe.MatchString(lang) }

// CleanLabel turns itemlist names such as "[[Foo|Bar]]" into the article
// title "Foo".
func CleanLabel(name string) string {
	name = strings.ReplaceAll(name, "[[", "")
	name = strings.ReplaceAll(name, "]]", "")
	if i := strings.IndexByte(name, '|'); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}

// IDFromURI extracts the entity id from a concept URI such as
// http://www.wikidata.org/entity/Q42.
func IDFromURI(uri string) string {
	id := uri[strings.LastIndexByte(uri, '/')+1:]
	if !IsEntityID(id) {
		return ""
	}
	return id
}
