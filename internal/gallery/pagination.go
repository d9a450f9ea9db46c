// Package gallery holds the paged VOD gallery state and the per-item card and
// watch-menu models rendered from it.
package gallery

import "math"

// PageSize is the number of VODs requested per page.
const PageSize = 50

// MaxPage is the highest page whose offset fits in an int.
const MaxPage = math.MaxInt/PageSize + 1

// ValidPage reports whether page can be requested.
func ValidPage(page int) bool {
	return page >= 1 && page <= MaxPage
}

// Skip returns the record offset for a 1-based page. Pages below 1 map to 0
// and pages above MaxPage to the offset of MaxPage, so the result is never
// negative.
func Skip(page int) int {
	if page < 1 {
		return 0
	}
	if page > MaxPage {
		page = MaxPage
	}
	return (page - 1) * PageSize
}

// TotalPages derives the page count from the API's record total.
//
// The count is floored, not rounded up: a trailing partial page is not
// counted. Callers relying on the last page being reachable from the pager
// must account for this.
func TotalPages(total int) int {
	if total <= 0 {
		return 0
	}
	return total / PageSize
}

// PagerItem is one position in the page selector. Gap items render as an
// ellipsis and carry no page number.
type PagerItem struct {
	Page    int
	Current bool
	Gap     bool
}

// PagerItems lays out the page selector for total pages around current:
// first and last page, one sibling either side of current, ellipses for
// larger holes. A hole of exactly one page shows that page instead.
func PagerItems(current, total int) []PagerItem {
	if total <= 0 {
		return nil
	}
	show := make(map[int]bool, 5)
	for _, p := range []int{1, total, current - 1, current, current + 1} {
		if p >= 1 && p <= total {
			show[p] = true
		}
	}

	var items []PagerItem
	last := 0
	for p := 1; p <= total; p++ {
		if !show[p] {
			continue
		}
		switch gap := p - last - 1; {
		case gap == 1:
			items = append(items, PagerItem{Page: p - 1})
		case gap > 1:
			items = append(items, PagerItem{Gap: true})
		}
		items = append(items, PagerItem{Page: p, Current: p == current})
		last = p
	}
	return items
}
