package models

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/kris-hansen/tagup/utils/classify"
	"github.com/kris-hansen/tagup/utils/extract"
	"github.com/kris-hansen/tagup/utils/tags"
	"github.com/kris-hansen/tagup/utils/template"
	"github.com/kris-hansen/tagup/utils/vocab"
)

// Version identifies a model family
type Version string

const (
	V1    Version = "v1"
	V2    Version = "v2"
	V3    Version = "v3"
	V2408 Version = "v2408"
)

// ErrUnknownVersion is returned for a version with no family
var ErrUnknownVersion = errors.New("unknown model version")

// DefaultTemplate is the template name used by single-stage families
const DefaultTemplate = "default"

// Stage describes one generation call of a family's pipeline
type Stage struct {
	// Template names the template composed for this stage
	Template string
	// Stop ends the stage's generation
	Stop string
	// Extract lists the sections read back from the raw output
	Extract []extract.Pattern
	// Greedy forces deterministic decoding with the caller's token budget
	Greedy bool
}

// Family is the capability set shared by every model version
type Family interface {
	Version() Version
	// Templates returns the template set, keyed by template name
	Templates() *template.Set
	// Tables returns the enum lookup tables
	Tables() template.Tables
	// Stages lists the generation calls of one pipeline run, in order
	Stages() []Stage
	// FormatPrompt composes the named template
	FormatPrompt(name string, cfg template.Config, seeded map[string]string) (string, error)
	// Generate runs one backend call
	Generate(ctx context.Context, req Request) (Output, error)
	// ParsePrompt classifies input tags against the family's lists and vocabulary
	ParsePrompt(text string, mode classify.Mode) classify.Result
	// EncodeBanTags compiles a ban string against the vocabulary
	EncodeBanTags(spec string) vocab.BanSpec
	// AspectRatio returns the aspect ratio table key for an image size
	AspectRatio(width, height int) (string, error)
}

// Deps are the collaborators of a family
type Deps struct {
	// Backend performs generation. Without it Generate fails with
	// ErrBackendNotConfigured but prompts can still be composed.
	Backend Backend
	// Vocabulary overrides Backend.Vocabulary()
	Vocabulary *vocab.Vocabulary
	Copyright  *tags.TagList
	Character  *tags.TagList
	// Templates replaces built-in template text by template name
	Templates map[string]string
	Logger    *zap.Logger
}

type constructor func(Deps) (Family, error)

var families = map[Version]constructor{
	V1:    newV1,
	V2:    newV2,
	V3:    newV3,
	V2408: newV2408,
}

// New builds the family for version
func New(version Version, deps Deps) (Family, error) {
	ctor, ok := families[version]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownVersion, version, Versions())
	}
	return ctor(deps)
}

// Versions returns the supported versions in sorted order
func Versions() []Version {
	out := make([]Version, 0, len(families))
	for v := range families {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
