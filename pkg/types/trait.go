package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrUnsupportedTrait is returned when a trait value cannot be normalized to a
// string or a list of strings.
var ErrUnsupportedTrait = errors.New("unsupported trait value")

// TraitValue is either a single string or a list of strings.
// The zero value is the empty scalar.
type TraitValue struct {
	scalar string
	items  []string
	list   bool
}

// Traits maps a trait name to its value.
type Traits map[string]TraitValue

// Scalar returns a single-string trait value.
func Scalar(s string) TraitValue {
	return TraitValue{scalar: s}
}

// List returns a list trait value. The items are copied.
func List(items ...string) TraitValue {
	cp := make([]string, len(items))
	copy(cp, items)
	return TraitValue{items: cp, list: true}
}

// IsList reports whether the value holds a list.
func (v TraitValue) IsList() bool { return v.list }

// String returns the scalar, or the list items joined by ", ".
func (v TraitValue) String() string {
	if v.list {
		return strings.Join(v.items, ", ")
	}
	return v.scalar
}

// Items returns a copy of the list items. A scalar yields a one element slice.
func (v TraitValue) Items() []string {
	if !v.list {
		return []string{v.scalar}
	}
	cp := make([]string, len(v.items))
	copy(cp, v.items)
	return cp
}

// Len returns the number of list items, or 1 for a scalar.
func (v TraitValue) Len() int {
	if v.list {
		return len(v.items)
	}
	return 1
}

// Equal reports whether two values have the same shape and content.
func (v TraitValue) Equal(o TraitValue) bool {
	if v.list != o.list {
		return false
	}
	if !v.list {
		return v.scalar == o.scalar
	}
	if len(v.items) != len(o.items) {
		return false
	}
	for i := range v.items {
		if v.items[i] != o.items[i] {
			return false
		}
	}
	return true
}

// Map applies fn to the scalar or to every list item.
func (v TraitValue) Map(fn func(string) string) TraitValue {
	if !v.list {
		return Scalar(fn(v.scalar))
	}
	out := make([]string, len(v.items))
	for i, it := range v.items {
		out[i] = fn(it)
	}
	return TraitValue{items: out, list: true}
}

// MarshalJSON encodes a scalar as a JSON string and a list as a JSON array.
func (v TraitValue) MarshalJSON() ([]byte, error) {
	if v.list {
		if v.items == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.items)
	}
	return json.Marshal(v.scalar)
}

// UnmarshalJSON accepts any JSON value and normalizes it with ParseTraitValue.
func (v *TraitValue) UnmarshalJSON(data []byte) error {
	parsed, err := ParseTraitValue(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseTraitValue normalizes raw JSON into a TraitValue. Strings become
// scalars, numbers and booleans are rendered as text, arrays are flattened
// into a list, and objects become a list of "key: value" entries sorted by key.
// null is rejected.
func ParseTraitValue(raw json.RawMessage) (TraitValue, error) {
	var decoded interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		return TraitValue{}, fmt.Errorf("%w: %v", ErrUnsupportedTrait, err)
	}
	switch val := decoded.(type) {
	case nil:
		return TraitValue{}, fmt.Errorf("%w: null", ErrUnsupportedTrait)
	case []interface{}:
		items := make([]string, 0, len(val))
		for _, el := range val {
			items = append(items, flatten(el)...)
		}
		return TraitValue{items: items, list: true}, nil
	case map[string]interface{}:
		return TraitValue{items: flatten(val), list: true}, nil
	default:
		return Scalar(flatten(val)[0]), nil
	}
}

func flatten(v interface{}) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return []string{val}
	case json.Number:
		return []string{val.String()}
	case bool:
		return []string{strconv.FormatBool(val)}
	case []interface{}:
		var out []string
		for _, el := range val {
			out = append(out, flatten(el)...)
		}
		return out
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]string, 0, len(keys))
		for _, k := range keys {
			out = append(out, k+": "+strings.Join(flatten(val[k]), ", "))
		}
		return out
	default:
		return []string{fmt.Sprint(val)}
	}
}

// Clone returns a copy of the map. TraitValues are immutable through their
// API so a shallow copy of each value is sufficient.
func (t Traits) Clone() Traits {
	if t == nil {
		return nil
	}
	out := make(Traits, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Keys returns the trait names in sorted order.
func (t Traits) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
