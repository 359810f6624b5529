package dto

import (
	"net/http"
	"parking/shared/constant"
	"parking/shared/failure"
	"strconv"
)

const (
	SortDirAsc  = "ASC"
	SortDirDesc = "DESC"
)

// QueryParams carries paging and ordering for list queries. SortBy is always set by the
// caller, never taken from the request.
type QueryParams struct {
	Page    int    `json:"page"    validate:"omitempty,gte=1"`
	Limit   int    `json:"limit"   validate:"omitempty,gte=1"`
	SortBy  string `json:"sortBy"  validate:"omitempty"`
	SortDir string `json:"sortDir" validate:"omitempty,oneof=ASC DESC"`
}

// FromRequest reads page and limit from the query string. Missing values fall back to page 1
// and defaultLimit; malformed values and limits above maxLimit are rejected.
func (q *QueryParams) FromRequest(r *http.Request, defaultLimit, maxLimit int) error {
	query := r.URL.Query()

	q.Page = constant.DefaultValuePage
	q.Limit = defaultLimit

	if page := query.Get(constant.RequestParamPage); page != constant.Empty {
		value, err := strconv.Atoi(page)
		if err != nil || value < 1 {
			return failure.InvalidPageParam
		}

		q.Page = value
	}

	if limit := query.Get(constant.RequestParamLimit); limit != constant.Empty {
		value, err := strconv.Atoi(limit)
		if err != nil || value < 1 || value > maxLimit {
			return failure.InvalidLimitParam
		}

		q.Limit = value
	}

	return nil
}

// Offset is the number of rows skipped before the current page.
func (q QueryParams) Offset() int {
	if q.Page <= 1 || q.Limit <= 0 {
		return 0
	}

	return (q.Page - 1) * q.Limit
}
