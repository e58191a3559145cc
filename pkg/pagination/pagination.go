package pagination

import (
	"net/url"
	"strconv"
)

const (
	DefaultPerPage = 24
	MaxPerPage     = 100
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// DefaultParams returns the first page with the default page size.
func DefaultParams() Params {
	return Params{Page: 1, PerPage: DefaultPerPage}
}

// FromQuery reads page and per_page from q. Invalid or out-of-range values
// fall back to the defaults.
func FromQuery(q url.Values) Params {
	p := DefaultParams()

	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(q.Get("per_page")); err == nil && v > 0 && v <= MaxPerPage {
		p.PerPage = v
	}
	return p
}

// Offset is the index of the first item of the page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Meta describes where a page sits in the full list.
type Meta struct {
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// Paginate cuts the requested page out of items. A page past the end yields
// an empty, non-nil slice. The returned slice shares memory with items.
func Paginate[T any](items []T, p Params) ([]T, Meta) {
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.Page < 1 {
		p.Page = 1
	}

	total := len(items)
	totalPages := total / p.PerPage
	if total%p.PerPage > 0 {
		totalPages++
	}

	start := min(p.Offset(), total)
	end := min(start+p.PerPage, total)

	page := items[start:end]
	if page == nil {
		page = []T{}
	}

	return page, Meta{
		TotalCount: total,
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
		HasPrev:    p.Page > 1,
	}
}
