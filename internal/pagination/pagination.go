// Package pagination normalizes list-endpoint paging parameters and the
// shared pagination envelope.
package pagination

import (
	"math"
	"strconv"
)

const (
	// DefaultLimit is used when the caller omits or mangles the limit.
	DefaultLimit = 10
	// MaxLimit caps the page size for every list endpoint.
	MaxLimit = 100
)

// Params is a normalized page/limit/offset triple.
type Params struct {
	Page   int
	Limit  int
	Offset int
}

// Parse normalizes raw query values. Page floors to 1; limit defaults to
// DefaultLimit and is clamped to [1, MaxLimit]; offset is derived.
func Parse(rawPage, rawLimit string) Params {
	page := 1
	if p, err := strconv.Atoi(rawPage); err == nil && p > 1 {
		page = p
	}

	limit := DefaultLimit
	if l, err := strconv.Atoi(rawLimit); err == nil && l > 0 {
		limit = l
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Params{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// Response is the pagination block of the list envelope.
type Response struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

// NewResponse builds the pagination envelope for a result set.
func NewResponse(total int64, p Params) Response {
	return Response{
		Total:      total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(p.Limit))),
	}
}
