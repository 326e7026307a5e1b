package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		page       string
		limit      string
		wantPage   int
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", "", 1, DefaultLimit, 0},
		{"explicit", "3", "25", 3, 25, 50},
		{"zero page clamps to first", "0", "999", 1, MaxLimit, 0},
		{"negative page clamps to first", "-5", "10", 1, 10, 0},
		{"limit above max clamps", "2", "500", 2, MaxLimit, MaxLimit},
		{"zero limit uses default", "1", "0", 1, DefaultLimit, 0},
		{"garbage falls back", "abc", "xyz", 1, DefaultLimit, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Parse(tt.page, tt.limit)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantLimit, p.Limit)
			assert.Equal(t, tt.wantOffset, p.Offset)
		})
	}
}

func TestNewResponse(t *testing.T) {
	tests := []struct {
		name      string
		total     int64
		params    Params
		wantPages int
	}{
		{"exact multiple", 100, Params{Page: 1, Limit: 10}, 10},
		{"partial last page", 101, Params{Page: 1, Limit: 10}, 11},
		{"empty", 0, Params{Page: 1, Limit: 10}, 0},
		{"single row", 1, Params{Page: 1, Limit: 10}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := NewResponse(tt.total, tt.params)
			assert.Equal(t, tt.total, resp.Total)
			assert.Equal(t, tt.params.Page, resp.Page)
			assert.Equal(t, tt.params.Limit, resp.Limit)
			assert.Equal(t, tt.wantPages, resp.TotalPages)
		})
	}
}
