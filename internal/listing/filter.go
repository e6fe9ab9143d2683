package listing

import "strings"

// Query holds the browse facets. Empty or "all" facets match everything.
type Query struct {
	Search string
	Type   string
	Island string
	Tags   []string
}

func (q Query) Active() bool {
	return q.Search != "" || !isAll(q.Type) || !isAll(q.Island) || len(q.Tags) > 0
}

// Filter returns the listings matching every facet of q, in input order.
func Filter(listings []Listing, q Query) []Listing {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]Listing, 0, len(listings))
	for _, l := range listings {
		if search != "" &&
			!strings.Contains(strings.ToLower(l.Name), search) &&
			!strings.Contains(strings.ToLower(l.Description), search) {
			continue
		}
		if !isAll(q.Type) && string(l.Type) != q.Type {
			continue
		}
		if !isAll(q.Island) && !strings.EqualFold(l.Island, q.Island) {
			continue
		}
		if len(q.Tags) > 0 && !hasAnyTag(l.Tags, q.Tags) {
			continue
		}
		out = append(out, l)
	}
	return out
}

func isAll(facet string) bool {
	return facet == "" || facet == "all"
}

func hasAnyTag(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}
