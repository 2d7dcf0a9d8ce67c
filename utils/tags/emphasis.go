package tags

import (
	"regexp"
	"strings"
)

var trailingWeight = regexp.MustCompile(`:\s*-?(?:\d+\.?\d*|\.\d+)\s*$`)

// StripEmphasis removes prompt weighting syntax and returns the literal text.
// "(tag:1.2)", "((tag))" and "[tag]" all become "tag". Escaped brackets
// such as `\(` are kept as literal characters. A closing bracket without a
// matching opener is kept as text.
func StripEmphasis(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	var starts []int

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch r {
		case '\\':
			if i+1 < len(runes) && isBracket(runes[i+1]) {
				b.WriteRune(runes[i+1])
				i++
				continue
			}
			b.WriteRune(r)
		case '(', '[':
			starts = append(starts, b.Len())
		case ')', ']':
			if len(starts) == 0 {
				b.WriteRune(r)
				continue
			}
			start := starts[len(starts)-1]
			starts = starts[:len(starts)-1]
			if r == ')' {
				s := b.String()
				if loc := trailingWeight.FindStringIndex(s[start:]); loc != nil {
					s = s[:start+loc[0]]
					b.Reset()
					b.WriteString(s)
				}
			}
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isBracket(r rune) bool {
	return r == '(' || r == ')' || r == '[' || r == ']'
}
