package wikitext

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName folds a template name or heading title for comparison:
// surrounding whitespace (including the newline left by block layout) is
// stripped, underscores read as spaces, inner runs of whitespace collapse,
// and the result is NFC-normalized and case-folded.
func NormalizeName(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.Join(strings.Fields(s), " ")
	s = norm.NFC.String(s)
	return cases.Fold().String(s)
}

// SameName reports whether two names are equal after NormalizeName.
func SameName(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b)
}
