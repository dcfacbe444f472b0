package handler

import (
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name       string
		page, size int
		want       []int
	}{
		{"first", 1, 2, []int{1, 2}},
		{"last partial", 3, 2, []int{5}},
		{"past the end", 4, 2, []int{}},
		{"huge page", math.MaxInt, 20, []int{}},
		{"huge page small size", math.MaxInt / 2, 3, []int{}},
		{"zero page", 0, 2, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, paginate(items, tt.page, tt.size))
		})
	}
	assert.Empty(t, paginate([]int(nil), 1, 20))
}

func TestPagination_ClampsQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		query            string
		wantPage, wantSz int
	}{
		{"", 1, 20},
		{"?page=-4&page_size=0", 1, 20},
		{"?page=3&page_size=50", 3, 50},
		{"?page_size=1000", 1, 20},
		{"?page=9223372036854775807", maxPage, 20},
		{"?page=99999999999999999999", maxPage, 20},
	}
	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/api/logs"+tt.query, nil)
		page, size := pagination(c, 20)
		assert.Equal(t, tt.wantPage, page, tt.query)
		assert.Equal(t, tt.wantSz, size, tt.query)
	}
}
