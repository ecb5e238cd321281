package dto

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// IDsRequest carries the account ids of a bulk admin action.
type IDsRequest struct {
	IDs []string `json:"ids" validate:"max=500,dive,max=64"`
}

func (r *IDsRequest) Validate() error {
	return validateStruct(r)
}

type ListRequest struct {
	Query    string `json:"q" validate:"max=254"`
	Status   string `json:"status" validate:"omitempty,max=32"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// ListRequestFromQuery reads q, status, page and page_size. Paging values
// are clamped later by the service; only non-numbers are rejected here.
// An absent page_size gets the default, an explicit one below the minimum
// is raised to it (zero means unset to ListQuery.Normalize).
func ListRequestFromQuery(v url.Values) (ListRequest, error) {
	r := ListRequest{
		Query:    strings.TrimSpace(v.Get("q")),
		Status:   strings.TrimSpace(v.Get("status")),
		Page:     1,
		PageSize: domain.DefaultPageSize,
	}

	page, ok, err := intParam(v, "page")
	if err != nil {
		return r, err
	}
	if ok {
		r.Page = page
	}

	size, ok, err := intParam(v, "page_size")
	if err != nil {
		return r, err
	}
	if ok {
		r.PageSize = max(size, domain.MinPageSize)
	}
	return r, validateStruct(&r)
}

func (r ListRequest) ToQuery() domain.ListQuery {
	return domain.ListQuery{
		Query:    r.Query,
		Status:   domain.StatusFilter(r.Status),
		Page:     r.Page,
		PageSize: r.PageSize,
	}
}

// intParam reports whether key was present and parses it.
func intParam(v url.Values, key string) (int, bool, error) {
	s := strings.TrimSpace(v.Get(key))
	if s == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, true, domain.ErrInvalidField(key, key+" must be a number")
	}
	return n, true, nil
}
