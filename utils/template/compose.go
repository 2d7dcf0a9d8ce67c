package template

import (
	"fmt"
	"sort"

	"github.com/kris-hansen/tagup/utils/tags"
)

// Config carries the enum axis choices and free-text overrides for one
// composition. Empty axis fields fall back to the template defaults.
type Config struct {
	AspectRatio string `json:"aspect_ratio,omitempty" yaml:"aspect_ratio,omitempty"`
	Rating      string `json:"rating,omitempty" yaml:"rating,omitempty"`
	Length      string `json:"length,omitempty" yaml:"length,omitempty"`
	// Extra holds further axes such as identity
	Extra map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
	// Overrides win over every other source. Keys naming an axis are still
	// resolved through its table.
	Overrides map[string]string `json:"overrides,omitempty" yaml:"overrides,omitempty"`
}

func (c Config) axisValues() map[string]string {
	out := make(map[string]string, 3+len(c.Extra))
	for k, v := range c.Extra {
		if v != "" {
			out[k] = v
		}
	}
	if c.AspectRatio != "" {
		out[AxisAspectRatio] = c.AspectRatio
	}
	if c.Rating != "" {
		out[AxisRating] = c.Rating
	}
	if c.Length != "" {
		out[AxisLength] = c.Length
	}
	return out
}

// RatingValue returns the effective rating choice, honouring overrides
func (c Config) RatingValue() string {
	if v, ok := c.Overrides[AxisRating]; ok && v != "" {
		return v
	}
	return c.Rating
}

// NeedsRating reports whether the rating is "auto"
func (c Config) NeedsRating() bool {
	return c.RatingValue() == AutoValue
}

// ResolveRating replaces an "auto" rating with estimate(). estimate is only
// called when needed. The receiver's maps are not modified.
func ResolveRating(cfg Config, estimate func() tags.Rating) Config {
	if !cfg.NeedsRating() {
		return cfg
	}
	r := string(estimate())
	if cfg.Rating == AutoValue {
		cfg.Rating = r
	}
	if v, ok := cfg.Overrides[AxisRating]; ok && v == AutoValue {
		o := make(map[string]string, len(cfg.Overrides))
		for k, v := range cfg.Overrides {
			o[k] = v
		}
		o[AxisRating] = r
		cfg.Overrides = o
	}
	return cfg
}

type entry struct {
	tmpl     *Template
	defaults map[string]string
}

// Set is a named collection of templates, each with default values. It is
// read-only once built.
type Set struct {
	entries map[string]entry
}

// NewSet creates an empty set
func NewSet() *Set {
	return &Set{entries: make(map[string]entry)}
}

// Add parses src and registers it under name. defaults may name axes and
// free-text fields.
func (s *Set) Add(name, src string, defaults map[string]string) error {
	t, err := Parse(src)
	if err != nil {
		return fmt.Errorf("template %q: %w", name, err)
	}
	d := make(map[string]string, len(defaults))
	for k, v := range defaults {
		d[k] = v
	}
	s.entries[name] = entry{tmpl: t, defaults: d}
	return nil
}

// Get returns the named template
func (s *Set) Get(name string) (*Template, error) {
	e, ok := s.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownTemplate, name, s.Names())
	}
	return e.tmpl, nil
}

// Defaults returns a copy of the named template's defaults
func (s *Set) Defaults(name string) (map[string]string, error) {
	e, ok := s.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
	d := make(map[string]string, len(e.defaults))
	for k, v := range e.defaults {
		d[k] = v
	}
	return d, nil
}

// Names returns the template names in sorted order
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.entries))
	for n := range s.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Composer renders templates from a Set with one family's Tables
type Composer struct {
	tables Tables
	set    *Set
}

// NewComposer binds tables to a template set
func NewComposer(tables Tables, set *Set) *Composer {
	return &Composer{tables: tables, set: set}
}

// Tables returns the lookup tables
func (c *Composer) Tables() Tables { return c.tables }

// Set returns the template set
func (c *Composer) Set() *Set { return c.set }

// Compose renders the named template. Values are layered as template
// defaults, then seeded (results of earlier stages), then cfg axis choices,
// then cfg.Overrides. Placeholders naming an axis are resolved through its
// table; "auto" and unknown values are errors.
func (c *Composer) Compose(name string, cfg Config, seeded map[string]string) (string, error) {
	e, ok := c.set.entries[name]
	if !ok {
		return "", fmt.Errorf("%w: %q (known: %v)", ErrUnknownTemplate, name, c.set.Names())
	}

	vals := make(map[string]string, len(e.defaults)+len(seeded)+len(cfg.Overrides)+3)
	for _, layer := range []map[string]string{e.defaults, seeded, cfg.axisValues(), cfg.Overrides} {
		for k, v := range layer {
			vals[k] = v
		}
	}

	for _, field := range e.tmpl.fields {
		if !c.tables.IsAxis(field) {
			continue
		}
		v := vals[field]
		if v == "" {
			return "", fmt.Errorf("template %q: %w: no %s given", name, ErrMissingValue, field)
		}
		lit, err := c.tables.Lookup(field, v)
		if err != nil {
			return "", fmt.Errorf("template %q: %w", name, err)
		}
		vals[field] = lit
	}

	out, err := e.tmpl.Execute(vals)
	if err != nil {
		return "", fmt.Errorf("template %q: %w", name, err)
	}
	return out, nil
}
