package dto

import (
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// AccountView is the public shape of an account. It never carries the
// password hash or any token.
type AccountView struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	State         string     `json:"state"`
	EmailVerified bool       `json:"email_verified"`
	Blocked       bool       `json:"blocked"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
}

func NewAccountView(a domain.Account) AccountView {
	return AccountView{
		ID:            a.ID,
		Email:         a.Email,
		State:         string(a.State()),
		EmailVerified: a.EmailVerified,
		Blocked:       a.Blocked,
		CreatedAt:     a.CreatedAt,
		LastLoginAt:   a.LastLoginAt,
	}
}

// ReasonResponse mirrors the login landing notice.
type ReasonResponse struct {
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

func NewReasonResponse(r domain.Reason) ReasonResponse {
	if !r.Known() {
		return ReasonResponse{}
	}
	return ReasonResponse{Reason: string(r), Message: r.Message()}
}

type CountResponse struct {
	Count int `json:"count"`
}

type PageResponse struct {
	Items      []AccountView `json:"items"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
}

func NewPageResponse(p domain.Page) PageResponse {
	items := make([]AccountView, 0, len(p.Items))
	for _, a := range p.Items {
		items = append(items, NewAccountView(a))
	}
	return PageResponse{
		Items:      items,
		Total:      p.Total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages,
	}
}
