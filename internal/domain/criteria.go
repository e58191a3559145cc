package domain

import "strings"

// SortKey orders a catalog view.
type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
)

// ValidSortKeys returns the accepted sort keys.
func ValidSortKeys() []SortKey {
	return []SortKey{SortNewest, SortPriceLow, SortPriceHigh}
}

// Valid reports whether k is one of ValidSortKeys.
func (k SortKey) Valid() bool {
	for _, s := range ValidSortKeys() {
		if s == k {
			return true
		}
	}
	return false
}

// Criteria is the per-query search/filter/sort triple.
type Criteria struct {
	SearchTerm string  `json:"search_term"`
	Category   string  `json:"category"`
	SortKey    SortKey `json:"sort"`
}

// Normalized lower-cases the search term and category and replaces an empty
// or unknown sort key with SortNewest.
func (c Criteria) Normalized() Criteria {
	out := Criteria{
		SearchTerm: strings.ToLower(c.SearchTerm),
		Category:   strings.ToLower(c.Category),
		SortKey:    c.SortKey,
	}
	if !out.SortKey.Valid() {
		out.SortKey = SortNewest
	}
	return out
}
