package domain

import (
	"math"
	"sort"

	"github.com/goccy/go-json"
)

// Attribute names a specification attribute that can be parsed from free text
type Attribute string

const (
	AttrBrand       Attribute = "brand"
	AttrRAM         Attribute = "ram"
	AttrStorage     Attribute = "storage"
	AttrDisplaySize Attribute = "display_size"
	AttrCamera      Attribute = "camera"
	AttrBattery     Attribute = "battery"
	AttrPrice       Attribute = "price"
	AttrProcessor   Attribute = "processor"
)

// UnknownBrand is reported when no brand alias is found in the text
const UnknownBrand = "unknown"

// ParsedSpecification is the sparse result of parsing a specification query.
// Brand is always set ("unknown" when nothing matched). Attributes only holds
// values that were actually found in the text; absence means "not mentioned".
type ParsedSpecification struct {
	Brand      string
	Attributes map[Attribute]float64
}

// Get returns the parsed value of a numeric attribute and whether it was present
func (p ParsedSpecification) Get(attr Attribute) (float64, bool) {
	v, ok := p.Attributes[attr]
	return v, ok
}

// HasBrand reports whether the query named a known brand
func (p ParsedSpecification) HasBrand() bool {
	return p.Brand != "" && p.Brand != UnknownBrand
}

// Keys returns the attribute names present in the specification, brand first
func (p ParsedSpecification) Keys() []string {
	keys := make([]string, 0, len(p.Attributes)+1)
	if p.Brand != "" {
		keys = append(keys, string(AttrBrand))
	}
	rest := make([]string, 0, len(p.Attributes))
	for attr := range p.Attributes {
		rest = append(rest, string(attr))
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// MarshalJSON renders the specification as a flat sparse object.
// Integral values are emitted as integers.
func (p ParsedSpecification) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(p.Attributes)+1)
	if p.Brand != "" {
		out[string(AttrBrand)] = p.Brand
	}
	for attr, v := range p.Attributes {
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			out[string(attr)] = int64(v)
		} else {
			out[string(attr)] = v
		}
	}
	return json.Marshal(out)
}
