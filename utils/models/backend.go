package models

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/kris-hansen/tagup/utils/vocab"
)

var (
	// ErrBackendNotConfigured is returned when a family has no backend to call
	ErrBackendNotConfigured = errors.New("generation backend not configured")
	// ErrEncoderInputUnsupported is returned by backends that can only take a
	// decoder prompt when a request carries encoder text
	ErrEncoderInputUnsupported = errors.New("backend does not accept encoder input text")
)

// Request is one generation call
type Request struct {
	// Text is the natural-language encoder input. Decoder-only families leave it empty.
	Text string `json:"text,omitempty"`
	// Template is the decoder prompt the model continues
	Template string `json:"template"`
	// Negative is an optional negative prompt
	Negative string           `json:"negative_prompt,omitempty"`
	Params   GenerationConfig `json:"generation_config"`
	Ban      vocab.BanSpec    `json:"bad_words_ids,omitempty"`
	// Stop ends generation when produced. Empty means the model's end token.
	Stop string `json:"stop,omitempty"`
}

// Output is the decoded result of a generation call
type Output struct {
	// Full is prompt and completion with special tokens removed
	Full string `json:"full"`
	// New is the completion alone with special tokens removed
	New string `json:"new"`
	// Raw is prompt and completion with special tokens kept
	Raw string `json:"raw"`
}

// Backend performs generation. Implementations must be safe for concurrent
// use and must not retain requests.
type Backend interface {
	Name() string
	Generate(ctx context.Context, req Request) (Output, error)
	// Vocabulary returns the token vocabulary, or nil when unknown
	Vocabulary() *vocab.Vocabulary
}

// stripSpecial removes special tokens from s
func stripSpecial(s string, v *vocab.Vocabulary) string {
	specials := v.SpecialTokens()
	if len(specials) == 0 {
		return s
	}
	pairs := make([]string, 0, 2*len(specials))
	// longest first so overlapping tokens are removed whole
	sort.SliceStable(specials, func(i, j int) bool { return len(specials[i]) > len(specials[j]) })
	for _, tok := range specials {
		pairs = append(pairs, tok, "")
	}
	return strings.NewReplacer(pairs...).Replace(s)
}
