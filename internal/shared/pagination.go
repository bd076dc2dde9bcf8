package shared

import (
	"math"
	"net/url"
	"strconv"

	"github.com/klinika/klinika/internal/envelope"
)

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// ParseListParams reads page/per_page/q from console query parameters.
func ParseListParams(query url.Values) (page, perPage int, search string) {
	page, _ = strconv.Atoi(query.Get("page"))
	perPage, _ = strconv.Atoi(query.Get("per_page"))
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > 200 {
		perPage = 20
	}
	return page, perPage, query.Get("q")
}

// PaginationFromPage folds normalized upstream page metadata into console
// pagination. When the upstream reports no total, the current item count
// stands in so the console still renders a single page.
func PaginationFromPage(page envelope.Page, requestedPage, perPage int) Pagination {
	total := len(page.Data)
	if page.Total != nil {
		total = int(*page.Total)
	}
	return NewPagination(requestedPage, perPage, total)
}
