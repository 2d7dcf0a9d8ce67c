package template

import (
	"fmt"
	"strings"

	"github.com/kris-hansen/tagup/utils/tags"
)

// Axis names an enumerated template parameter
type Axis = string

const (
	AxisRating      Axis = "rating"
	AxisLength      Axis = "length"
	AxisAspectRatio Axis = "aspect_ratio"
	AxisIdentity    Axis = "identity"
)

// AutoValue asks for a value to be derived from the input
const AutoValue = string(tags.RatingAuto)

// Table maps the values of one axis to their literal prompt encoding
type Table struct {
	keys     []string
	literals map[string]string
}

// Enum builds a table whose literal for each key is fmt.Sprintf(format, key)
func Enum(format string, keys ...string) Table {
	t := Table{literals: make(map[string]string, len(keys))}
	for _, k := range keys {
		t.keys = append(t.keys, k)
		t.literals[k] = fmt.Sprintf(format, k)
	}
	return t
}

// Pairs builds a table from alternating key, literal arguments
func Pairs(kv ...string) Table {
	if len(kv)%2 != 0 {
		panic("template.Pairs: odd number of arguments")
	}
	t := Table{literals: make(map[string]string, len(kv)/2)}
	for i := 0; i < len(kv); i += 2 {
		t.keys = append(t.keys, kv[i])
		t.literals[kv[i]] = kv[i+1]
	}
	return t
}

// Keys returns the accepted values in declaration order
func (t Table) Keys() []string {
	return append([]string(nil), t.keys...)
}

// Has reports whether key is in the table
func (t Table) Has(key string) bool {
	_, ok := t.literals[key]
	return ok
}

// Tables holds the lookup tables of one model family
type Tables map[Axis]Table

// IsAxis reports whether name is resolved through a table
func (ts Tables) IsAxis(name string) bool {
	_, ok := ts[name]
	return ok
}

// Lookup returns the literal for value on axis
func (ts Tables) Lookup(axis Axis, value string) (string, error) {
	if value == AutoValue {
		return "", fmt.Errorf("%w: %s", ErrUnresolvedAuto, axis)
	}
	table, ok := ts[axis]
	if !ok {
		return "", fmt.Errorf("%w: no %s table", ErrUnknownEnumValue, axis)
	}
	lit, ok := table.literals[value]
	if !ok {
		return "", fmt.Errorf("%w: %s %q (want one of %s)",
			ErrUnknownEnumValue, axis, value, strings.Join(table.keys, ", "))
	}
	return lit, nil
}
