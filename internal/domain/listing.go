package domain

import "strings"

// StatusFilter narrows the admin account list.
type StatusFilter string

const (
	StatusAll        StatusFilter = "all"
	StatusActive     StatusFilter = "active"
	StatusBlocked    StatusFilter = "blocked"
	StatusUnverified StatusFilter = "unverified"
)

const (
	DefaultPageSize = 10
	MinPageSize     = 5
	MaxPageSize     = 50
)

type ListQuery struct {
	Query    string
	Status   StatusFilter
	Page     int
	PageSize int
}

// Normalize clamps paging and canonicalizes the filters. Unknown status
// values fall back to all.
func (q ListQuery) Normalize() ListQuery {
	q.Query = strings.ToLower(strings.TrimSpace(q.Query))

	switch s := StatusFilter(strings.ToLower(strings.TrimSpace(string(q.Status)))); s {
	case StatusActive, StatusBlocked, StatusUnverified:
		q.Status = s
	default:
		q.Status = StatusAll
	}

	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize < MinPageSize {
		q.PageSize = MinPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	return q
}

func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// Matches applies the status and text filters to a single account.
func (q ListQuery) Matches(a Account) bool {
	switch q.Status {
	case StatusActive:
		if !a.IsActive() {
			return false
		}
	case StatusBlocked:
		if !a.Blocked {
			return false
		}
	case StatusUnverified:
		if a.EmailVerified {
			return false
		}
	}
	if q.Query != "" && !strings.Contains(strings.ToLower(a.Email), q.Query) {
		return false
	}
	return true
}

// ListOrderLess orders accounts that have logged in first (most recent
// login first), then never-logged-in accounts, each group by newest
// creation time.
func ListOrderLess(a, b Account) bool {
	if (a.LastLoginAt == nil) != (b.LastLoginAt == nil) {
		return a.LastLoginAt != nil
	}
	if a.LastLoginAt != nil && !a.LastLoginAt.Equal(*b.LastLoginAt) {
		return a.LastLoginAt.After(*b.LastLoginAt)
	}
	return a.CreatedAt.After(b.CreatedAt)
}

type Page struct {
	Items      []Account
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

func NewPage(items []Account, total int, q ListQuery) Page {
	pages := 0
	if q.PageSize > 0 {
		pages = (total + q.PageSize - 1) / q.PageSize
	}
	return Page{Items: items, Total: total, Page: q.Page, PageSize: q.PageSize, TotalPages: pages}
}
