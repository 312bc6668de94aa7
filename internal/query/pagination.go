package query

import (
	"math"
	"net/url"
	"strconv"
)

const (
	DefaultPage  int64 = 1
	DefaultLimit int64 = 10
	MaxLimit     int64 = 100

	// MaxPage keeps (page-1)*limit inside int64 at the largest limit.
	MaxPage int64 = math.MaxInt64 / MaxLimit
)

// GetPagination normalizes raw page/limit parameters into bounded values.
// Garbage input never fails: page floors at 1 and caps at MaxPage, limit
// defaults to 10 and is clamped to [1, MaxLimit]. skip is the resulting
// document offset and is never negative.
func GetPagination(params url.Values) (page, limit, skip int64) {
	page = DefaultPage
	if p, err := strconv.ParseInt(params.Get("page"), 10, 64); err == nil && p > 0 {
		page = p
	}
	if page > MaxPage {
		page = MaxPage
	}

	limit = DefaultLimit
	if l, err := strconv.ParseInt(params.Get("limit"), 10, 64); err == nil && l > 0 {
		limit = l
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	skip = (page - 1) * limit
	return page, limit, skip
}
