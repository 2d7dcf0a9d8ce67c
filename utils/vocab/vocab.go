// Package vocab holds the read-only token vocabulary of a generation backend
// and compiles ban specifications against it.
package vocab

import "sort"

// Vocabulary maps token strings to ids and marks special tokens. It is
// immutable after construction and safe for concurrent reads.
type Vocabulary struct {
	ids     map[string]int
	special map[string]struct{}
	byID    []entry
}

type entry struct {
	token string
	id    int
}

// New builds a vocabulary. Special tokens missing from ids are still
// recognised as special.
func New(ids map[string]int, special []string) *Vocabulary {
	v := &Vocabulary{
		ids:     make(map[string]int, len(ids)),
		special: make(map[string]struct{}, len(special)),
		byID:    make([]entry, 0, len(ids)),
	}
	for tok, id := range ids {
		v.ids[tok] = id
		v.byID = append(v.byID, entry{token: tok, id: id})
	}
	sort.Slice(v.byID, func(i, j int) bool {
		if v.byID[i].id != v.byID[j].id {
			return v.byID[i].id < v.byID[j].id
		}
		return v.byID[i].token < v.byID[j].token
	})
	for _, s := range special {
		v.special[s] = struct{}{}
	}
	return v
}

// ID returns the id of token
func (v *Vocabulary) ID(token string) (int, bool) {
	if v == nil {
		return 0, false
	}
	id, ok := v.ids[token]
	return id, ok
}

// Contains reports whether token is in the vocabulary
func (v *Vocabulary) Contains(token string) bool {
	_, ok := v.ID(token)
	return ok
}

// IsSpecial reports whether token is a special token
func (v *Vocabulary) IsSpecial(token string) bool {
	if v == nil {
		return false
	}
	_, ok := v.special[token]
	return ok
}

// Len returns the number of tokens
func (v *Vocabulary) Len() int {
	if v == nil {
		return 0
	}
	return len(v.ids)
}

// SpecialTokens returns the special tokens in sorted order
func (v *Vocabulary) SpecialTokens() []string {
	if v == nil {
		return nil
	}
	out := make([]string, 0, len(v.special))
	for s := range v.special {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Each calls fn for every token in ascending id order until fn returns false
func (v *Vocabulary) Each(fn func(token string, id int) bool) {
	if v == nil {
		return
	}
	for _, e := range v.byID {
		if !fn(e.token, e.id) {
			return
		}
	}
}
