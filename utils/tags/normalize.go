package tags

import (
	"strings"

	"golang.org/x/text/width"
)

// Separator joins tags in every rendered tag string
const Separator = ", "

// SplitTags comma-splits text, trims each token, turns underscores into
// spaces and drops empty tokens.
func SplitTags(text string) []string {
	parts := strings.Split(text, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, strings.ReplaceAll(p, "_", " "))
	}
	return out
}

// NormalizeTagText rewrites comma-separated tags into canonical ", " form.
// It is idempotent.
func NormalizeTagText(text string) string {
	return strings.Join(SplitTags(text), Separator)
}

// JoinNonEmpty joins the parts that are not blank
func JoinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

var bracketEscaper = strings.NewReplacer("(", `\(`, ")", `\)`)

// EscapeBrackets escapes parentheses so image generators read them literally
func EscapeBrackets(text string) string {
	return bracketEscaper.Replace(text)
}

// FoldWidth maps full-width forms such as "，" and "（" to their ASCII forms
func FoldWidth(text string) string {
	return width.Fold.String(text)
}
