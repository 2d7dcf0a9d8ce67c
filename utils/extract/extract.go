// Package extract pulls tagged sections out of raw generation output.
package extract

import (
	"fmt"
	"regexp"

	"github.com/kris-hansen/tagup/utils/tags"
)

// Pattern extracts one field from the text between an opening and a closing
// marker. The first, shortest match wins.
type Pattern struct {
	Field string
	re    *regexp.Regexp
}

// NewPattern compiles a pattern for the text between open and close
func NewPattern(field, open, close string) Pattern {
	return Pattern{
		Field: field,
		re:    regexp.MustCompile("(?s)" + regexp.QuoteMeta(open) + "(.*?)" + regexp.QuoteMeta(close)),
	}
}

// Section returns a pattern for <name>...</name>
func Section(name string) Pattern {
	return NewPattern(name, "<"+name+">", "</"+name+">")
}

// Find returns the normalized section content and whether it was present
func (p Pattern) Find(raw string) (string, bool) {
	m := p.re.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return tags.NormalizeTagText(m[1]), true
}

func (p Pattern) String() string {
	return fmt.Sprintf("%s=%s", p.Field, p.re)
}

// Standard sections written by the tag models
var (
	Copyright   = Section("copyright")
	Character   = Section("character")
	General     = Section("general")
	Translation = Section("translation")
	Extension   = Section("extension")
)

// Result maps field names to normalized tag strings
type Result map[string]string

// Get returns the field or "" when absent
func (r Result) Get(field string) string {
	return r[field]
}

// Extract applies each pattern independently. Every pattern's field is
// present in the result, empty when the section was not found.
func Extract(raw string, patterns ...Pattern) Result {
	out := make(Result, len(patterns))
	for _, p := range patterns {
		v, _ := p.Find(raw)
		out[p.Field] = v
	}
	return out
}
