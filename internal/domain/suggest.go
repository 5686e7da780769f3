package domain

import "strings"

// SuggestNames flattens every name of every item and keeps those containing
// query, case-insensitively. Order of first appearance is preserved and
// duplicates are dropped. An empty query yields an empty list.
func SuggestNames(items []CatalogItem, query string) []string {
	needle := strings.ToLower(strings.TrimSpace(query))
	out := []string{}
	if needle == "" {
		return out
	}

	seen := make(map[string]struct{})
	for i := range items {
		for _, name := range items[i].Names {
			if !strings.Contains(strings.ToLower(name), needle) {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}
