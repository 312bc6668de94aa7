package query

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetPagination(t *testing.T) {
	tests := []struct {
		name      string
		page      string
		limit     string
		wantPage  int64
		wantLimit int64
		wantSkip  int64
	}{
		{"defaults", "", "", 1, 10, 0},
		{"valid values", "3", "20", 3, 20, 40},
		{"page zero floors at one", "0", "10", 1, 10, 0},
		{"negative page floors at one", "-5", "10", 1, 10, 0},
		{"non-numeric page", "abc", "10", 1, 10, 0},
		{"limit zero falls back to default", "1", "0", 1, 10, 0},
		{"negative limit falls back to default", "1", "-3", 1, 10, 0},
		{"non-numeric limit", "1", "lots", 1, 10, 0},
		{"limit clamped to max", "2", "5000", 2, 100, 100},
		{"limit at max unchanged", "1", "100", 1, 100, 0},
		{"limit of one unchanged", "4", "1", 4, 1, 3},
		{"huge page caps without overflowing skip", "9223372036854775807", "100", MaxPage, 100, (MaxPage - 1) * 100},
		{"page just above cap", "92233720368547759", "10", MaxPage, 10, (MaxPage - 1) * 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := url.Values{}
			if tt.page != "" {
				params.Set("page", tt.page)
			}
			if tt.limit != "" {
				params.Set("limit", tt.limit)
			}

			page, limit, skip := GetPagination(params)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantLimit, limit)
			assert.Equal(t, tt.wantSkip, skip)
			assert.GreaterOrEqual(t, skip, int64(0))
		})
	}
}
