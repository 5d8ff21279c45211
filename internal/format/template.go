package format

import (
	"strings"

	"github.com/dgallion1/voybot/internal/wikitext"
)

// FormatTemplate rewrites the whitespace of t according to st and reports
// whether anything changed. Positional values keep their whitespace because
// the wiki does not trim it; in the multi-line styles they only gain the
// newline that puts the next parameter on its own line.
func FormatTemplate(t *wikitext.Template, st Style) bool {
	name := strings.TrimSpace(t.RawName())
	if st != StyleInline {
		name += "\n"
	}
	changed := false
	if t.RawName() != name {
		t.SetRawName(name)
		changed = true
	}

	params := t.Params()
	for i, p := range params {
		if !p.Explicit() {
			if st == StyleInline {
				continue
			}
			if v := p.Value().String(); !strings.HasSuffix(v, "\n") {
				p.SetValue(v + "\n")
				changed = true
			}
			continue
		}
		key := strings.TrimSpace(p.RawKey())
		value := strings.TrimSpace(p.Value().String())
		last := i == len(params)-1

		var rawKey, rawValue string
		switch st {
		case StyleQuickbar:
			rawKey = " " + key + " "
			rawValue = " " + value + "\n"
		case StyleListing:
			rawKey = " " + key
			rawValue = value + " \n"
		case StyleInline:
			rawKey = " " + key
			rawValue = value
			if !last {
				rawValue += " "
			}
		}

		if p.RawKey() != rawKey {
			p.SetRawKey(rawKey)
			changed = true
		}
		if p.Value().String() != rawValue {
			p.SetValue(rawValue)
			changed = true
		}
	}
	return changed
}
