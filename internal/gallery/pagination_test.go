package gallery

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSkip(t *testing.T) {
	tests := []struct {
		page int
		want int
	}{
		{1, 0},
		{2, 50},
		{5, 200},
		{0, 0},
		{-3, 0},
		{MaxPage, (MaxPage - 1) * PageSize},
		{MaxPage + 1, (MaxPage - 1) * PageSize},
		{math.MaxInt/25 + 1, (MaxPage - 1) * PageSize},
	}
	for _, tc := range tests {
		got := Skip(tc.page)
		assert.Equal(t, tc.want, got, "page %d", tc.page)
		assert.GreaterOrEqual(t, got, 0)
	}
}

func TestValidPage(t *testing.T) {
	assert.True(t, ValidPage(1))
	assert.True(t, ValidPage(MaxPage))
	assert.False(t, ValidPage(0))
	assert.False(t, ValidPage(MaxPage+1))
	assert.False(t, ValidPage(math.MaxInt))
}

// The page count is floored. A trailing partial page is not counted, so
// these cases pin the current behavior rather than a ceiling.
func TestTotalPages_Floors(t *testing.T) {
	tests := []struct {
		total int
		want  int
	}{
		{0, 0},
		{49, 0},
		{50, 1},
		{99, 1},
		{100, 2},
		{120, 2},
		{237, 4},
		{250, 5},
		{-1, 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, TotalPages(tc.total), "total %d", tc.total)
	}
}

func pages(items []PagerItem) []int {
	out := make([]int, 0, len(items))
	for _, it := range items {
		if it.Gap {
			out = append(out, -1)
			continue
		}
		out = append(out, it.Page)
	}
	return out
}

func TestPagerItems(t *testing.T) {
	tests := []struct {
		name    string
		current int
		total   int
		want    []int
	}{
		{"none", 1, 0, []int{}},
		{"single", 1, 1, []int{1}},
		{"small fills holes", 1, 4, []int{1, 2, 3, 4}},
		{"middle", 5, 10, []int{1, -1, 4, 5, 6, -1, 10}},
		{"near start", 3, 10, []int{1, 2, 3, 4, -1, 10}},
		{"at end", 10, 10, []int{1, -1, 9, 10}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, pages(PagerItems(tc.current, tc.total)))
		})
	}
}

func TestPagerItems_MarksCurrent(t *testing.T) {
	for _, it := range PagerItems(3, 6) {
		assert.Equal(t, it.Page == 3, it.Current)
	}
}
