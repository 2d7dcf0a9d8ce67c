package tags

import (
	"bufio"
	"bytes"
	"strings"
)

// CommentMarker starts a comment in tag list files
const CommentMarker = "//"

// TagList is an ordered set of tags loaded from a list file. It is read-only
// after construction and safe to share.
type TagList struct {
	tags  []string
	index map[string]struct{}
}

// NewTagList builds a list from tags, keeping the first occurrence of each.
// Underscores and spaces are interchangeable for lookup.
func NewTagList(tags []string) *TagList {
	l := &TagList{
		tags:  make([]string, 0, len(tags)),
		index: make(map[string]struct{}, len(tags)),
	}
	for _, t := range tags {
		key := listKey(t)
		if _, dup := l.index[key]; dup {
			continue
		}
		l.index[key] = struct{}{}
		l.tags = append(l.tags, t)
	}
	return l
}

func listKey(tag string) string {
	return strings.ReplaceAll(tag, "_", " ")
}

// ParseTagList reads one tag per line. Lines starting with // are skipped,
// text after an inline // is dropped and blank lines are ignored.
func ParseTagList(data []byte) *TagList {
	var out []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, CommentMarker) {
			continue
		}
		if i := strings.Index(line, CommentMarker); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return NewTagList(out)
}

// Contains reports whether tag is in the list. A nil list contains nothing.
func (l *TagList) Contains(tag string) bool {
	if l == nil {
		return false
	}
	_, ok := l.index[listKey(tag)]
	return ok
}

// Tags returns a copy of the tags in file order
func (l *TagList) Tags() []string {
	if l == nil {
		return nil
	}
	return append([]string(nil), l.tags...)
}

// Len returns the number of distinct tags
func (l *TagList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.tags)
}
