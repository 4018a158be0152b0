package listing

import "strings"

// SortOrder is the optional price ordering of a search.
type SortOrder string

const (
	SortNone SortOrder = ""
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ParseSortOrder maps the user-facing tri-state choice. Anything that is not
// ascending or descending means no ordering.
func ParseSortOrder(s string) SortOrder {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending":
		return SortAsc
	case "desc", "descending":
		return SortDesc
	default:
		return SortNone
	}
}

// Criteria holds partial, case-insensitive search terms. Empty terms match
// everything.
type Criteria struct {
	City        string    `json:"city,omitempty"`
	State       string    `json:"state,omitempty"`
	Type        string    `json:"type,omitempty"`
	Address     string    `json:"address,omitempty"`
	CustomID    string    `json:"custom_id,omitempty"`
	SortByPrice SortOrder `json:"sort_by_price,omitempty"`
}

// Normalized trims every term and canonicalizes the sort directive.
func (c Criteria) Normalized() Criteria {
	return Criteria{
		City:        strings.TrimSpace(c.City),
		State:       strings.TrimSpace(c.State),
		Type:        strings.TrimSpace(c.Type),
		Address:     strings.TrimSpace(c.Address),
		CustomID:    strings.TrimSpace(c.CustomID),
		SortByPrice: ParseSortOrder(string(c.SortByPrice)),
	}
}
