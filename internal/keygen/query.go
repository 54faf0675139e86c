package keygen

import "strings"

// Searchable attribute sets expose the text fields a query matches against.
type Searchable interface {
	SearchFields() []string
}

// MatchQuery reports whether any search field contains query,
// case-insensitively. An empty query matches everything.
func MatchQuery[A Searchable](r Resource[A], query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	if strings.Contains(strings.ToLower(r.ID), query) {
		return true
	}
	for _, field := range r.Attributes.SearchFields() {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// Filter returns the items matching query.
func Filter[A Searchable](items []Resource[A], query string) []Resource[A] {
	out := make([]Resource[A], 0, len(items))
	for _, item := range items {
		if MatchQuery(item, query) {
			out = append(out, item)
		}
	}
	return out
}
