package catalog

import (
	"sort"
	"strings"

	"github.com/utafrali/storefront/internal/domain"
)

// Apply derives the view of products described by c. It never mutates
// products: filtering copies into a fresh slice, and sorting is stable so
// ties keep their snapshot order.
func Apply(products []domain.Product, c domain.Criteria) []domain.Product {
	c = c.Normalized()

	matched := make([]domain.Product, 0, len(products))
	for i := range products {
		if matches(&products[i], c) {
			matched = append(matched, products[i])
		}
	}

	sortProducts(matched, c.SortKey)
	return matched
}

// matches applies the search term, then the category filter. c must be
// normalized.
func matches(p *domain.Product, c domain.Criteria) bool {
	if c.SearchTerm != "" {
		if !strings.Contains(strings.ToLower(p.Name), c.SearchTerm) &&
			!strings.Contains(strings.ToLower(p.Description), c.SearchTerm) {
			return false
		}
	}

	if c.Category != "" {
		if p.Category == "" || strings.ToLower(p.Category) != c.Category {
			return false
		}
	}

	return true
}

func sortProducts(products []domain.Product, key domain.SortKey) {
	switch key {
	case domain.SortPriceLow:
		// Undefined prices sort as lowest.
		sort.SliceStable(products, func(i, j int) bool {
			pi, okI := products[i].LowPrice()
			pj, okJ := products[j].LowPrice()
			if okI != okJ {
				return !okI
			}
			return okI && pi.LessThan(pj)
		})
	case domain.SortPriceHigh:
		// Undefined prices sort as lowest, which puts them last here.
		sort.SliceStable(products, func(i, j int) bool {
			pi, okI := products[i].HighPrice()
			pj, okJ := products[j].HighPrice()
			if okI != okJ {
				return okI
			}
			return okI && pi.GreaterThan(pj)
		})
	default:
		// Products without a timestamp count as the earliest.
		sort.SliceStable(products, func(i, j int) bool {
			ti, tj := products[i].CreatedAt, products[j].CreatedAt
			if ti.Valid() != tj.Valid() {
				return ti.Valid()
			}
			return ti.Valid() && ti.After(tj.Time)
		})
	}
}

// Categories returns the distinct non-empty categories of products,
// lower-cased and sorted.
func Categories(products []domain.Product) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for i := range products {
		c := strings.ToLower(products[i].Category)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
