package listings

import (
	"strings"

	"deskrent/internal/domain/profiles"
)

const (
	defaultSearchLimit = 24
	maxSearchLimit     = 60
)

// SearchParams describe catalog filters and paging options.
type SearchParams struct {
	ProfileID profiles.ID
	Location  string
	SpaceType string
	Limit     int
	Offset    int
}

// Normalized returns a sanitized copy of params.
func (p SearchParams) Normalized() SearchParams {
	normalized := p
	normalized.Location = strings.TrimSpace(strings.ToLower(normalized.Location))
	normalized.SpaceType = strings.TrimSpace(strings.ToLower(normalized.SpaceType))
	if normalized.Limit <= 0 {
		normalized.Limit = defaultSearchLimit
	}
	if normalized.Limit > maxSearchLimit {
		normalized.Limit = maxSearchLimit
	}
	if normalized.Offset < 0 {
		normalized.Offset = 0
	}
	return normalized
}

// Matches applies the catalog filters: case-insensitive "contains" on location and space type.
// p must be normalized.
func (p SearchParams) Matches(l *Listing) bool {
	if l == nil {
		return false
	}
	if p.ProfileID != "" && l.ProfileID != p.ProfileID {
		return false
	}
	if p.Location != "" && !strings.Contains(strings.ToLower(l.Location), p.Location) {
		return false
	}
	if p.SpaceType != "" && !strings.Contains(strings.ToLower(l.SpaceType), p.SpaceType) {
		return false
	}
	return true
}

// SearchResult wraps search hits with meta.
type SearchResult struct {
	Items []*Listing
	Total int
}
