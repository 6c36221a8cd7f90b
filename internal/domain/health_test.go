package domain_test

import (
	"math"
	"testing"

	"github.com/raycargo/backoffice/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name     string
		page     int
		pageSize int
		want     []int
		hasMore  bool
	}{
		{"first page", 1, 2, []int{1, 2}, true},
		{"last partial page", 3, 2, []int{5}, false},
		{"past the end", 4, 2, []int{}, false},
		{"huge page", 500000000000000000, 20, []int{}, false},
		{"max int page", math.MaxInt, 100, []int{}, false},
		{"zero page", 0, 2, []int{1, 2}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got domain.ListResponse[int]
			assert.NotPanics(t, func() { got = domain.Paginate(items, tt.page, tt.pageSize) })
			assert.Equal(t, tt.want, got.Data)
			assert.Equal(t, 5, got.Total)
			assert.Equal(t, tt.hasMore, got.HasMore)
		})
	}
}
