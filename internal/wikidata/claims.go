package wikidata

import (
	"fmt"
	"strconv"

	"github.com/antonholmquist/jason"
)

// Properties and classes used by the bot.
const (
	PropInstanceOf  = "P31"
	PropCountry     = "P17"
	PropImage       = "P18"
	PropISOAlpha2   = "P297"
	PropISO31662    = "P300"
	PropCoordinates = "P625"
	PropHasPart     = "P527"

	ClassDisambiguation = "Q4167410"
)

// Value types as reported by the datavalue "type" field.
const (
	TypeEntityID   = "wikibase-entityid"
	TypeString     = "string"
	TypeCoordinate = "globecoordinate"
	TypeText       = "monolingualtext"
	TypeQuantity   = "quantity"
	TypeTime       = "time"
)

// Value is the main value of one statement.
type Value struct {
	Type      string  `json:"type"`
	EntityID  string  `json:"entity_id,omitempty"`
	Text      string  `json:"text,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
}

// Entity is the subset of an item the bot reads.
type Entity struct {
	ID        string
	Labels    map[string]string
	Claims    map[string][]Value
	Sitelinks map[string]string
}

// Label returns the label in lang.
func (e *Entity) Label(lang string) (string, bool) {
	l, ok := e.Labels[lang]
	return l, ok
}

// Has reports whether pid has at least one usable statement.
func (e *Entity) Has(pid string) bool { return len(e.Claims[pid]) > 0 }

// parseEntity reads one entry of a wbgetentities "entities" object.
func parseEntity(id string, obj *jason.Object) (*Entity, error) {
	if _, missing := obj.Map()["missing"]; missing {
		return nil, fmt.Errorf("%w: %s", ErrLookupNotFound, id)
	}
	e := &Entity{
		ID:        id,
		Labels:    map[string]string{},
		Claims:    map[string][]Value{},
		Sitelinks: map[string]string{},
	}
	if got, err := obj.GetString("id"); err == nil {
		e.ID = got
	}

	if labels, err := obj.GetObject("labels"); err == nil {
		for lang, v := range labels.Map() {
			lo, err := v.Object()
			if err != nil {
				continue
			}
			if text, err := lo.GetString("value"); err == nil {
				e.Labels[lang] = text
			}
		}
	}

	if links, err := obj.GetObject("sitelinks"); err == nil {
		for site, v := range links.Map() {
			lo, err := v.Object()
			if err != nil {
				continue
			}
			if title, err := lo.GetString("title"); err == nil {
				e.Sitelinks[site] = title
			}
		}
	}

	claims, err := obj.GetObject("claims")
	if err != nil {
		return e, nil
	}
	for pid, v := range claims.Map() {
		statements, err := v.Array()
		if err != nil {
			return nil, fmt.Errorf("claims %s of %s: %w", pid, id, err)
		}
		for _, sv := range statements {
			st, err := sv.Object()
			if err != nil {
				return nil, fmt.Errorf("statement %s of %s: %w", pid, id, err)
			}
			if rank, _ := st.GetString("rank"); rank == "deprecated" {
				continue
			}
			val, ok := parseSnak(st)
			if ok {
				e.Claims[pid] = append(e.Claims[pid], val)
			}
		}
	}
	return e, nil
}

func parseSnak(statement *jason.Object) (Value, bool) {
	if kind, err := statement.GetString("mainsnak", "snaktype"); err != nil || kind != "value" {
		return Value{}, false
	}
	typ, err := statement.GetString("mainsnak", "datavalue", "type")
	if err != nil {
		return Value{}, false
	}
	dv := []string{"mainsnak", "datavalue", "value"}
	v := Value{Type: typ}

	switch typ {
	case TypeEntityID:
		if id, err := statement.GetString(append(dv, "id")...); err == nil {
			v.EntityID = id
		} else if n, err := statement.GetInt64(append(dv, "numeric-id")...); err == nil {
			v.EntityID = "Q" + strconv.FormatInt(n, 10)
		} else {
			return Value{}, false
		}
	case TypeString:
		s, err := statement.GetString(dv...)
		if err != nil {
			return Value{}, false
		}
		v.Text = s
	case TypeCoordinate:
		lat, err1 := statement.GetFloat64(append(dv, "latitude")...)
		lon, err2 := statement.GetFloat64(append(dv, "longitude")...)
		if err1 != nil || err2 != nil {
			return Value{}, false
		}
		v.Latitude, v.Longitude = lat, lon
	case TypeText:
		v.Text, _ = statement.GetString(append(dv, "text")...)
	case TypeQuantity:
		v.Text, _ = statement.GetString(append(dv, "amount")...)
	case TypeTime:
		v.Text, _ = statement.GetString(append(dv, "time")...)
	default:
		return Value{}, false
	}
	return v, true
}
