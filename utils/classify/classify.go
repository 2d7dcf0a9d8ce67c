// Package classify sorts free-form input tags into copyright, character,
// known and unknown groups and estimates a content rating from them.
package classify

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kris-hansen/tagup/utils/tags"
	"github.com/kris-hansen/tagup/utils/vocab"
)

// Mode selects how input text is split into tags
type Mode int

const (
	// SplitComma splits on commas only
	SplitComma Mode = iota
	// SplitBrackets strips emphasis syntax such as (tag:1.2) before splitting
	SplitBrackets
)

func (m Mode) String() string {
	switch m {
	case SplitComma:
		return "comma"
	case SplitBrackets:
		return "brackets"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode maps "comma" and "brackets" to a Mode
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "comma":
		return SplitComma, nil
	case "brackets", "bracket":
		return SplitBrackets, nil
	}
	return 0, fmt.Errorf("unknown split mode %q", s)
}

// Result is the outcome of one Parse call. Every input tag except dropped
// special tokens lands in exactly one of the four groups, in input order.
type Result struct {
	Copyright string `json:"copyright"`
	Character string `json:"character"`
	Known     string `json:"known"`
	Unknown   string `json:"unknown"`

	Rating tags.Rating `json:"rating"`

	CopyrightTags []string `json:"-"`
	CharacterTags []string `json:"-"`
	KnownTags     []string `json:"-"`
	UnknownTags   []string `json:"-"`
	// Dropped holds special tokens removed from the input
	Dropped []string `json:"dropped,omitempty"`
}

// Total returns the number of tags placed in a group
func (r Result) Total() int {
	return len(r.CopyrightTags) + len(r.CharacterTags) + len(r.KnownTags) + len(r.UnknownTags)
}

// Classifier holds the read-only lookup sets for one model. It is safe for
// concurrent use.
type Classifier struct {
	copyright *tags.TagList
	character *tags.TagList
	vocab     *vocab.Vocabulary
	logger    *zap.Logger
}

// New creates a classifier. A nil vocabulary treats every tag that is not a
// copyright or character as known.
func New(copyright, character *tags.TagList, v *vocab.Vocabulary, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{
		copyright: copyright,
		character: character,
		vocab:     v,
		logger:    logger,
	}
}

// Tokenize splits text into normalized tags according to mode. Markup
// tokens such as <|reserved_6|> keep their underscores.
func Tokenize(text string, mode Mode) []string {
	text = tags.FoldWidth(text)
	if mode == SplitBrackets {
		text = tags.StripEmphasis(text)
	}

	parts := strings.Split(text, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !isMarkup(p) {
			p = strings.ReplaceAll(p, "_", " ")
		}
		out = append(out, p)
	}
	return out
}

func isMarkup(tok string) bool {
	return strings.HasPrefix(tok, "<") && strings.HasSuffix(tok, ">")
}

// Parse classifies text. Membership is tested in order: copyright list,
// character list, special tokens, vocabulary. The first match decides, so a
// tag listed as both copyright and character is a copyright.
func (c *Classifier) Parse(text string, mode Mode) Result {
	var r Result
	for _, tag := range Tokenize(text, mode) {
		switch {
		case c.copyright.Contains(tag):
			r.CopyrightTags = append(r.CopyrightTags, tag)
		case c.character.Contains(tag):
			r.CharacterTags = append(r.CharacterTags, tag)
		case c.vocab.IsSpecial(tag):
			c.logger.Warn("dropping special token from input", zap.String("tag", tag))
			r.Dropped = append(r.Dropped, tag)
		case c.vocab != nil && !c.vocab.Contains(tag):
			c.logger.Warn("tag not in vocabulary", zap.String("tag", tag))
			r.UnknownTags = append(r.UnknownTags, tag)
		default:
			r.KnownTags = append(r.KnownTags, tag)
		}
	}

	r.Copyright = strings.Join(r.CopyrightTags, tags.Separator)
	r.Character = strings.Join(r.CharacterTags, tags.Separator)
	r.Known = strings.Join(r.KnownTags, tags.Separator)
	r.Unknown = strings.Join(r.UnknownTags, tags.Separator)
	r.Rating = tags.EstimateRating(r.UnknownTags)
	return r
}
