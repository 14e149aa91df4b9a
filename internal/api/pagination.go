package api

import (
	"net/http"
	"strconv"
)

// pagination holds the parsed list-query parameters.
type pagination struct {
	Page           int
	Size           int
	Skip           int
	Limit          int
	OrderBy        string
	OrderDirection string
}

// parsePagination reads page/size/order_by/order_direction query
// parameters. Pages are 1-indexed; size is clamped to [1, 100] with a
// default of 50. Malformed values fall back to defaults.
func parsePagination(r *http.Request) pagination {
	q := r.URL.Query()

	page := intParam(q.Get("page"), 1)
	if page < 1 {
		page = 1
	}

	size := intParam(q.Get("size"), 50)
	if size < 1 {
		size = 1
	}
	if size > 100 {
		size = 100
	}

	return pagination{
		Page:           page,
		Size:           size,
		Skip:           (page - 1) * size,
		Limit:          size,
		OrderBy:        q.Get("order_by"),
		OrderDirection: q.Get("order_direction"),
	}
}

func intParam(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}
