package wikidata

import (
	"fmt"
	"strings"
)

// SitelinkQuery builds the SPARQL query that finds items whose Wikipedia
// article in lang is titled label.
func SitelinkQuery(label, lang string) string {
	var sb strings.Builder
	sb.WriteString("SELECT ?item WHERE {\n")
	sb.WriteString("  ?sitelink schema:about ?item;\n")
	sb.WriteString(fmt.Sprintf("    schema:isPartOf <https://%s.wikipedia.org/>;\n", lang))
	sb.WriteString(fmt.Sprintf("    schema:name \"%s\"@%s.\n", escapeLiteral(label), lang))
	sb.WriteString("}")
	return sb.String()
}

var literalEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`)

func escapeLiteral(s string) string { return literalEscaper.Replace(s) }
