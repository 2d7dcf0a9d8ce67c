package vocab

import (
	"regexp"
	"strings"
)

// Wildcard matches any run of characters in a ban pattern
const Wildcard = "*"

// BanSpec is a set of token id groups, each banned as a unit. A nil BanSpec
// means no restriction.
type BanSpec [][]int

// Empty reports whether the spec restricts nothing
func (b BanSpec) Empty() bool { return len(b) == 0 }

// IDs flattens the groups
func (b BanSpec) IDs() []int {
	var out []int
	for _, g := range b {
		out = append(out, g...)
	}
	return out
}

// CompileBanSpec turns a comma-separated list of tag patterns into a BanSpec.
// A pattern without * is looked up directly. A pattern with * is matched
// against every non-special token in id order, * matching any run of
// characters. Each matching token contributes one singleton group and a
// token is never listed twice. Patterns that match nothing are ignored; if
// nothing matches at all the result is nil.
func CompileBanSpec(spec string, v *Vocabulary) BanSpec {
	if v == nil {
		return nil
	}
	var out BanSpec
	seen := make(map[int]bool)
	add := func(id int) {
		if seen[id] {
			return
		}
		seen[id] = true
		out = append(out, []int{id})
	}

	for _, pattern := range strings.Split(spec, ",") {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if !strings.Contains(pattern, Wildcard) {
			if id, ok := v.ID(pattern); ok {
				add(id)
			}
			continue
		}

		re := compileWildcard(pattern)
		v.Each(func(token string, id int) bool {
			if !v.IsSpecial(token) && re.MatchString(token) {
				add(id)
			}
			return true
		})
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func compileWildcard(pattern string) *regexp.Regexp {
	parts := strings.Split(pattern, Wildcard)
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile("^" + strings.Join(parts, ".*") + "$")
}
