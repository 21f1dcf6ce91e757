// Package filter decides which search results may be visited.
package filter

import "strings"

// Filter holds the allow-list and deny-list substrings.
//
// The deny-list is authoritative: when it has entries, only deny matches
// reject a result and the allow-list is not consulted. The allow-list only
// restricts results when the deny-list is empty.
type Filter struct {
	allow []string
	deny  []string
}

// New builds a Filter, dropping empty entries
func New(allow, deny []string) *Filter {
	return &Filter{
		allow: compact(allow),
		deny:  compact(deny),
	}
}

// IsLegal reports whether a result with the given title and url fragment may be visited
func (f *Filter) IsLegal(title, fragment string) bool {
	if f == nil {
		return true
	}
	if len(f.deny) > 0 {
		return !matchesAny(f.deny, title, fragment)
	}
	if len(f.allow) > 0 {
		return matchesAny(f.allow, title, fragment)
	}
	return true
}

func matchesAny(entries []string, title, fragment string) bool {
	for _, s := range entries {
		if strings.Contains(title, s) || strings.Contains(fragment, s) {
			return true
		}
	}
	return false
}

// compact drops blank entries; an empty substring would match everything
func compact(entries []string) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e) != "" {
			out = append(out, e)
		}
	}
	return out
}
