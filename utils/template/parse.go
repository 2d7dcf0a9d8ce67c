// Package template fills prompt templates with enum literals and free text.
//
// Templates use {name} placeholders. {{ and }} produce literal braces.
package template

import (
	"fmt"
	"strings"
)

type segment struct {
	text  string
	field bool
}

// Template is a parsed prompt template. It is immutable.
type Template struct {
	src    string
	segs   []segment
	fields []string
}

// Parse compiles a template string
func Parse(src string) (*Template, error) {
	t := &Template{src: src}
	seen := make(map[string]bool)
	var lit strings.Builder

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch c {
		case '{':
			if i+1 < len(src) && src[i+1] == '{' {
				lit.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(src[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("%w: unclosed '{' at offset %d", ErrMalformedTemplate, i)
			}
			name := src[i+1 : i+1+end]
			if !validName(name) {
				return nil, fmt.Errorf("%w: invalid placeholder {%s} at offset %d", ErrMalformedTemplate, name, i)
			}
			if lit.Len() > 0 {
				t.segs = append(t.segs, segment{text: lit.String()})
				lit.Reset()
			}
			t.segs = append(t.segs, segment{text: name, field: true})
			if !seen[name] {
				seen[name] = true
				t.fields = append(t.fields, name)
			}
			i += end + 1
		case '}':
			if i+1 < len(src) && src[i+1] == '}' {
				lit.WriteByte('}')
				i++
				continue
			}
			return nil, fmt.Errorf("%w: single '}' at offset %d", ErrMalformedTemplate, i)
		default:
			lit.WriteByte(c)
		}
	}
	if lit.Len() > 0 {
		t.segs = append(t.segs, segment{text: lit.String()})
	}
	return t, nil
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// Fields returns the placeholder names in order of first use
func (t *Template) Fields() []string {
	return append([]string(nil), t.fields...)
}

// Uses reports whether the template has a {name} placeholder
func (t *Template) Uses(name string) bool {
	for _, f := range t.fields {
		if f == name {
			return true
		}
	}
	return false
}

// String returns the template source
func (t *Template) String() string { return t.src }

// Execute substitutes values. Every placeholder must have a value, though
// the value may be empty.
func (t *Template) Execute(values map[string]string) (string, error) {
	var b strings.Builder
	for _, s := range t.segs {
		if !s.field {
			b.WriteString(s.text)
			continue
		}
		v, ok := values[s.text]
		if !ok {
			return "", fmt.Errorf("%w: {%s}", ErrMissingValue, s.text)
		}
		b.WriteString(v)
	}
	return b.String(), nil
}
