package handler

import (
	"net/http"
	"strconv"
)

const MaxLimit = 100

type PaginationParams struct {
	Page  int
	Limit int
}

// ParsePagination reads ?page and ?limit, clamping both to sane ranges.
func ParsePagination(r *http.Request, defaultLimit int) PaginationParams {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > MaxLimit {
		limit = defaultLimit
	}

	return PaginationParams{
		Page:  page,
		Limit: limit,
	}
}
