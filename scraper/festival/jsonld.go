package festival

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"festival-scraper/models"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "null"
	}
}

// Value is a decoded JSON-LD value. Only the field matching Kind is set.
type Value struct {
	Kind   Kind
	Bool   bool
	Number float64
	String string
	Array  []Value
	Object map[string]Value
}

func (v *Value) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*v = fromAny(raw)
	return nil
}

func fromAny(raw any) Value {
	switch t := raw.(type) {
	case bool:
		return Value{Kind: KindBool, Bool: t}
	case float64:
		return Value{Kind: KindNumber, Number: t}
	case string:
		return Value{Kind: KindString, String: t}
	case []any:
		arr := make([]Value, len(t))
		for i, item := range t {
			arr[i] = fromAny(item)
		}
		return Value{Kind: KindArray, Array: arr}
	case map[string]any:
		obj := make(map[string]Value, len(t))
		for k, item := range t {
			obj[k] = fromAny(item)
		}
		return Value{Kind: KindObject, Object: obj}
	default:
		return Value{Kind: KindNull}
	}
}

// Get returns the member key of an object, or a null Value.
func (v Value) Get(key string) Value {
	if v.Kind != KindObject {
		return Value{}
	}
	return v.Object[key]
}

// Items returns the elements of an array, or v itself for any other
// non-null value.
func (v Value) Items() []Value {
	switch v.Kind {
	case KindArray:
		return v.Array
	case KindNull:
		return nil
	default:
		return []Value{v}
	}
}

var (
	// ErrNoEvent means the block holds no Event or FoodEvent node.
	ErrNoEvent = errors.New("jsonld: no Event node")
	// ErrEventShape means an event node has fields of the wrong type.
	ErrEventShape = errors.New("jsonld: malformed Event node")
)

var eventTypes = map[string]bool{"Event": true, "FoodEvent": true}

// DecodeEvent parses a JSON-LD script body and narrows the first Event or
// FoodEvent node to EventData. Nodes are searched at the top level, inside
// top-level arrays and inside @graph.
func DecodeEvent(raw string) (*models.EventData, error) {
	var root Value
	if err := json.Unmarshal([]byte(raw), &root); err != nil {
		return nil, fmt.Errorf("jsonld: %w", err)
	}

	var shapeErr error
	for _, node := range candidates(root) {
		if !isEvent(node) {
			continue
		}
		ev, err := narrowEvent(node)
		if err != nil {
			if shapeErr == nil {
				shapeErr = err
			}
			continue
		}
		return ev, nil
	}
	if shapeErr != nil {
		return nil, shapeErr
	}
	return nil, ErrNoEvent
}

func candidates(root Value) []Value {
	var out []Value
	for _, node := range root.Items() {
		if node.Kind != KindObject {
			continue
		}
		out = append(out, node)
		for _, g := range node.Get("@graph").Items() {
			if g.Kind == KindObject {
				out = append(out, g)
			}
		}
	}
	return out
}

func isEvent(node Value) bool {
	for _, t := range node.Get("@type").Items() {
		if t.Kind == KindString && eventTypes[typeName(t.String)] {
			return true
		}
	}
	return false
}

// typeName strips a schema.org IRI prefix.
func typeName(t string) string {
	if i := strings.LastIndexAny(t, "/#"); i >= 0 {
		return t[i+1:]
	}
	return t
}

func narrowEvent(node Value) (*models.EventData, error) {
	var bad []string
	str := func(key string) string {
		v := node.Get(key)
		switch v.Kind {
		case KindNull:
			return ""
		case KindString:
			return strings.TrimSpace(v.String)
		default:
			bad = append(bad, key)
			return ""
		}
	}

	ev := &models.EventData{
		Type:        eventTypeOf(node),
		Name:        str("name"),
		StartDate:   str("startDate"),
		EndDate:     str("endDate"),
		Description: str("description"),
	}

	if loc := node.Get("location"); loc.Kind != KindNull {
		l, ok := narrowLocation(loc)
		if !ok {
			bad = append(bad, "location")
		}
		ev.Location = l
	}

	if len(bad) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrEventShape, strings.Join(bad, ", "))
	}
	return ev, nil
}

func eventTypeOf(node Value) string {
	for _, t := range node.Get("@type").Items() {
		if t.Kind == KindString && eventTypes[typeName(t.String)] {
			return typeName(t.String)
		}
	}
	return "Event"
}

func narrowLocation(v Value) (*models.Location, bool) {
	switch v.Kind {
	case KindString:
		return models.TextLocation(strings.TrimSpace(v.String)), true
	case KindArray:
		if len(v.Array) == 0 {
			return nil, true
		}
		return narrowLocation(v.Array[0])
	case KindObject:
	default:
		return nil, false
	}

	place := &models.Place{Type: "Place"}
	if t := v.Get("@type"); t.Kind == KindString {
		place.Type = t.String
	}
	if n := v.Get("name"); n.Kind == KindString {
		place.Name = strings.TrimSpace(n.String)
	} else if n.Kind != KindNull {
		return nil, false
	}

	switch a := v.Get("address"); a.Kind {
	case KindString:
		place.Address = strings.TrimSpace(a.String)
	case KindObject:
		place.Address = postalAddress(a)
	case KindNull:
	default:
		return nil, false
	}

	if g := v.Get("geo"); g.Kind == KindObject {
		lat, okLat := number(g.Get("latitude"))
		lng, okLng := number(g.Get("longitude"))
		if okLat && okLng {
			place.Geo = &models.GeoCoordinates{Latitude: lat, Longitude: lng}
		}
	}
	return models.PlaceLocation(place), true
}

func postalAddress(a Value) string {
	var parts []string
	for _, key := range []string{"streetAddress", "postalCode", "addressLocality", "addressRegion"} {
		if p := a.Get(key); p.Kind == KindString && strings.TrimSpace(p.String) != "" {
			parts = append(parts, strings.TrimSpace(p.String))
		}
	}
	return strings.Join(parts, ", ")
}

// number accepts JSON numbers and numeric strings, both common in the wild.
func number(v Value) (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Number, true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.String), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
