package filter

import (
	"strings"
)

// QueryFilter matches listings whose title contains the role and whose
// location contains the location. Matching is case-insensitive substring; an
// empty role or location matches everything.
type QueryFilter struct {
	role     string
	location string
}

// New returns a filter for one role/location query. Surrounding whitespace is
// ignored.
func New(role, location string) QueryFilter {
	return QueryFilter{
		role:     strings.ToLower(strings.TrimSpace(role)),
		location: strings.ToLower(strings.TrimSpace(location)),
	}
}

// Match reports whether a listing with the given title and location passes.
func (f QueryFilter) Match(title, location string) bool {
	if f.role != "" && !strings.Contains(strings.ToLower(title), f.role) {
		return false
	}
	if f.location != "" && !strings.Contains(strings.ToLower(location), f.location) {
		return false
	}
	return true
}
