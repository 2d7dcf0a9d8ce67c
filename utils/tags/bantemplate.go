package tags

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kris-hansen/tagup/utils/fileutil"
)

const banTemplateExt = ".txt"

// ListBanTemplates returns the ban template names in dir, sorted, without the
// .txt extension. A missing directory has no templates.
func ListBanTemplates(dir string) ([]string, error) {
	expanded, err := fileutil.ExpandPath(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list ban templates: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), banTemplateExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), banTemplateExt))
	}
	sort.Strings(names)
	return names, nil
}

// LoadBanTemplate reads the named template and returns it as a normalized
// comma-separated ban string. Wildcards are kept verbatim.
func LoadBanTemplate(store *Store, dir, name string) (string, error) {
	if name == "" {
		return "", nil
	}
	if strings.ContainsAny(name, `/\`) || name == ".." {
		return "", fmt.Errorf("invalid ban template name %q", name)
	}
	file := strings.TrimSuffix(name, banTemplateExt) + banTemplateExt
	list, err := store.Load(filepath.Join(dir, file))
	if err != nil {
		return "", fmt.Errorf("load ban template %q: %w", name, err)
	}
	return NormalizeTagText(strings.Join(list.Tags(), ",")), nil
}

// BanList joins inline ban patterns with the named templates from dir.
// Inline patterns are only trimmed so they match vocabulary tokens exactly.
func BanList(store *Store, dir, inline string, templates ...string) (string, error) {
	var patterns []string
	for _, p := range strings.Split(inline, ",") {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	parts := []string{strings.Join(patterns, Separator)}
	for _, name := range templates {
		t, err := LoadBanTemplate(store, dir, name)
		if err != nil {
			return "", err
		}
		parts = append(parts, t)
	}
	return JoinNonEmpty(Separator, parts...), nil
}
