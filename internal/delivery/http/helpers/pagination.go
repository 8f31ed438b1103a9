package helpers

import (
	"net/http"
	"strconv"
	"strings"

	"eventhub/internal/domain"
)

// ParsePagination reads page and page_size from the query string. Missing
// values use defaults and page_size is capped at domain.MaxPageSize. A value
// that is not a positive integer answers 400 and returns false.
func ParsePagination(w http.ResponseWriter, r *http.Request) (domain.PaginationParams, bool) {
	var errs []string
	positive := func(name string) int {
		s := r.URL.Query().Get(name)
		if s == "" {
			return 0
		}
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			errs = append(errs, name+" must be a positive integer")
			return 0
		}
		return v
	}
	page, size := positive("page"), positive("page_size")
	if len(errs) > 0 {
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, strings.Join(errs, "; "))
		return domain.PaginationParams{}, false
	}
	return domain.NewPaginationParams(page, size), true
}

// PaginationMeta is the pagination metadata included in paginated list responses.
// swagger:model PaginationMeta
type PaginationMeta struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
}

func NewPaginationMeta(params domain.PaginationParams, total int) PaginationMeta {
	pages := params.TotalPages(total)
	return PaginationMeta{
		Page:       params.Page,
		PageSize:   params.PageSize,
		Total:      total,
		TotalPages: pages,
		HasNext:    params.Page < pages,
	}
}
